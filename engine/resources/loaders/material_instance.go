package loaders

import (
	"github.com/jinzhu/copier"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/resources"
)

/**
 * @brief Manages material instances, the per-object component values bound
 * to a generated material.
 */
type MaterialInstanceLoader struct {
	*resources.BaseLoader
	reg *Registry
}

func NewMaterialInstanceLoader(reg *Registry) *MaterialInstanceLoader {
	l := &MaterialInstanceLoader{reg: reg}
	l.BaseLoader = resources.NewBaseLoader(resources.LoaderConfig{
		Name:             "MaterialInstanceLoader",
		ResourceDirName:  "MaterialInstances",
		ResourceTypeName: metadata.ResourceTypeMaterialInstance,
		FileExt:          ".matinst",
		Encoding:         resources.EncodingReadable,
	}, reg.Env, l)
	reg.MaterialInstances = l
	return l
}

func (l *MaterialInstanceLoader) LoadResource(name string) bool {
	resource := l.GetResource(name)
	if resource == nil {
		core.LogError("%s failed to load %s", l.Config().Name, name)
		return false
	}
	var data metadata.MaterialInstanceData
	if !l.LoadResourceData(resource, &data) {
		core.LogError("%s failed to load %s", l.Config().Name, name)
		return false
	}
	if data.ShaderName == "" {
		data.ShaderName = metadata.DefaultShaderName
	}

	materialRef := resources.NamedRef(GenerateMaterialName(data.ShaderName, data.Macros))
	if material := l.reg.Materials.GetMaterial(data.ShaderName, data.Macros); material != nil {
		materialRef = material.Ref()
	}
	instance := metadata.NewMaterialInstance(resource.Name, data, materialRef)
	if !instance.IsValid() {
		core.LogError("%s failed to load %s, material %s is not valid.", l.Config().Name, name, materialRef.Name())
		return false
	}

	resource.SetData(instance)
	markLoaded(resource, l.Metrics())
	if instance.NeedToSave {
		l.SaveResource(resource.Name)
		instance.NeedToSave = false
	}
	return true
}

// ReloadMaterialInstances reloads the loaded instances built from shaderName.
func (l *MaterialInstanceLoader) ReloadMaterialInstances(shaderName string) {
	for _, resource := range l.GetResourceList() {
		instance, ok := resource.Data().(*metadata.MaterialInstance)
		if !ok || instance.ShaderName != shaderName {
			continue
		}
		core.LogInfo("Reload material instance %s", resource.Name)
		l.LoadResource(resource.Name)
		l.Metrics().AddReload()
	}
}

/**
 * @brief Creates and saves an instance of the variant of shaderName for
 * macros. An empty shaderName means the shader named like the instance.
 * @return The new resource, or nil when the material is not valid.
 */
func (l *MaterialInstanceLoader) CreateMaterialInstance(resourceName, shaderName string, macros metadata.Macros) *resources.Resource {
	if shaderName == "" {
		shaderName = resourceName
	}
	if shaderName != "" {
		resourceName = l.NewResourceName(resourceName)
		if material := l.reg.Materials.GetMaterial(shaderName, macros); material != nil {
			instance := metadata.NewMaterialInstance(resourceName, metadata.MaterialInstanceData{
				ShaderName: shaderName,
				Macros:     macros.Clone(),
			}, material.Ref())
			if instance.IsValid() {
				resource := l.CreateResource(resourceName, instance, "")
				instance.SetResourceName(resource.Name)
				l.SaveResource(resource.Name)
				instance.NeedToSave = false
				return resource
			}
		}
	}
	core.LogError("Failed to %s material instance.", resourceName)
	return nil
}

/**
 * @brief Returns the instance called name. A missing instance is created
 * from shaderName and macros, falling back to the default instance. Macros
 * given for an existing instance rebind it to the matching variant.
 */
func (l *MaterialInstanceLoader) GetMaterialInstance(name, shaderName string, macros metadata.Macros) *resources.Resource {
	if resource := l.FindResource(name); resource != nil {
		if instance, ok := resources.DataAs[*metadata.MaterialInstance](resource); ok {
			if len(macros) > 0 {
				if material := l.reg.Materials.GetMaterial(instance.ShaderName, macros); material != nil {
					instance.Macros = macros.Clone()
					instance.SetMaterial(material.Ref())
				}
			}
			return resource
		}
	}
	if created := l.CreateMaterialInstance(name, shaderName, macros); created != nil {
		return created
	}
	if name == metadata.DefaultMaterialInstanceName {
		return nil
	}
	return l.FindResource(metadata.DefaultMaterialInstanceName)
}

func (l *MaterialInstanceLoader) DuplicateResource(name string) bool {
	instance, ok := resources.DataAs[*metadata.MaterialInstance](l.GetResource(name))
	if !ok {
		return false
	}
	saved := instance.SaveData().(metadata.MaterialInstanceData)
	var data metadata.MaterialInstanceData
	if err := copier.CopyWithOption(&data, &saved, copier.Option{DeepCopy: true}); err != nil {
		core.LogFailure(err, "%s failed to duplicate %s", l.Config().Name, name)
		return false
	}
	newName := l.NewResourceName(name)
	duplicate := metadata.NewMaterialInstance(newName, data, instance.Material)
	resource := l.CreateResource(newName, duplicate, "")
	duplicate.SetResourceName(resource.Name)
	core.LogInfo("duplicate_resource : %s to %s", name, resource.Name)
	return l.SaveResource(resource.Name)
}
