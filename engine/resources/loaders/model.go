package loaders

import (
	"github.com/jinzhu/copier"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/resources"
)

/**
 * @brief Manages models, a mesh plus one material instance per geometry.
 */
type ModelLoader struct {
	*resources.BaseLoader
	reg *Registry
}

func NewModelLoader(reg *Registry) *ModelLoader {
	l := &ModelLoader{reg: reg}
	l.BaseLoader = resources.NewBaseLoader(resources.LoaderConfig{
		Name:             "ModelLoader",
		ResourceDirName:  "Models",
		ResourceTypeName: metadata.ResourceTypeModel,
		FileExt:          ".model",
		Encoding:         resources.EncodingReadable,
	}, reg.Env, l)
	reg.Models = l
	return l
}

func (l *ModelLoader) Initialize() error {
	if err := l.BaseLoader.Initialize(); err != nil {
		return err
	}
	for _, name := range []string{triangleMeshName, quadMeshName} {
		if l.FindResource(name) != nil {
			continue
		}
		mesh, ok := l.reg.ResolveMesh(name)
		if !ok {
			continue
		}
		model := metadata.NewModel(name, l.reg)
		model.SetMesh(mesh)
		l.CreateResource(name, model, "")
	}
	return nil
}

// buildModel resolves the names of data. Unknown material instances are
// replaced by the default instance when the mesh is bound.
func (l *ModelLoader) buildModel(name string, data metadata.ModelData) *metadata.Model {
	model := metadata.NewModel(name, l.reg)
	for _, instanceName := range data.MaterialInstances {
		ref, ok := l.reg.ResolveMaterialInstance(instanceName)
		if !ok {
			ref = resources.NamedRef(instanceName)
		}
		model.MaterialInstances = append(model.MaterialInstances, ref)
	}
	mesh, ok := l.reg.ResolveMesh(data.Mesh)
	if !ok {
		core.LogWarn("%s : mesh %s not found", name, data.Mesh)
		mesh = resources.NamedRef(data.Mesh)
	}
	model.SetMesh(mesh)
	return model
}

// GetModel returns the model payload called name, loading it when needed.
func (l *ModelLoader) GetModel(name string) *metadata.Model {
	model, _ := resources.DataAs[*metadata.Model](l.FindResource(name))
	return model
}

func (l *ModelLoader) LoadResource(name string) bool {
	resource := l.GetResource(name)
	if resource == nil {
		core.LogError("%s failed to load %s", l.Config().Name, name)
		return false
	}
	var data metadata.ModelData
	if !l.LoadResourceData(resource, &data) {
		core.LogError("%s failed to load %s", l.Config().Name, name)
		return false
	}
	resource.SetData(l.buildModel(resource.Name, data))
	markLoaded(resource, l.Metrics())
	return true
}

/**
 * @brief Creates and saves a model named after mesh. Every geometry gets the
 * default material instance.
 */
func (l *ModelLoader) CreateModel(mesh resources.Ref) *resources.Resource {
	name := l.NewResourceName(mesh.Name())
	model := metadata.NewModel(name, l.reg)
	model.SetMesh(mesh)
	resource := l.CreateResource(name, model, "")
	model.SetResourceName(resource.Name)
	l.SaveResource(resource.Name)
	return resource
}

func (l *ModelLoader) OpenResource(name string) bool {
	resource := l.GetResource(name)
	if _, ok := resources.DataAs[*metadata.Model](resource); !ok {
		return false
	}
	return l.reg.Scene.AddObject(resource.Ref()) != ""
}

func (l *ModelLoader) DuplicateResource(name string) bool {
	model, ok := resources.DataAs[*metadata.Model](l.GetResource(name))
	if !ok {
		return false
	}
	saved := model.SaveData().(metadata.ModelData)
	var data metadata.ModelData
	if err := copier.CopyWithOption(&data, &saved, copier.Option{DeepCopy: true}); err != nil {
		core.LogFailure(err, "%s failed to duplicate %s", l.Config().Name, name)
		return false
	}
	newName := l.NewResourceName(name)
	duplicate := l.buildModel(newName, data)
	resource := l.CreateResource(newName, duplicate, "")
	duplicate.SetResourceName(resource.Name)
	core.LogInfo("duplicate_resource : %s to %s", name, resource.Name)
	return l.SaveResource(resource.Name)
}
