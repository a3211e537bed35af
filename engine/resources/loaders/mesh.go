package loaders

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/resources"
)

const (
	triangleMeshName = "Triangle"
	quadMeshName     = "Quad"
	cubeMeshName     = "Cube"
)

/**
 * @brief Converts WaveFront and glTF files into compressed mesh files. The
 * primitive meshes exist without files.
 */
type MeshLoader struct {
	*resources.BaseLoader
	reg *Registry
}

func NewMeshLoader(reg *Registry) *MeshLoader {
	l := &MeshLoader{reg: reg}
	l.BaseLoader = resources.NewBaseLoader(resources.LoaderConfig{
		Name:             "MeshLoader",
		ResourceDirName:  "Meshes",
		ResourceTypeName: metadata.ResourceTypeMesh,
		ResourceVersion:  0,
		FileExt:          ".mesh",
		ExternalDirNames: []string{filepath.Join(resources.ExternalsDirName, "Meshes")},
		ExternalFileExt: map[string]string{
			"WaveFront": ".obj",
			"GLTF":      ".gltf",
			"GLB":       ".glb",
		},
		Encoding: resources.EncodingCompressed,
	}, reg.Env, l)
	reg.Meshes = l
	return l
}

func (l *MeshLoader) Initialize() error {
	if err := l.BaseLoader.Initialize(); err != nil {
		return err
	}
	l.registBuiltin(triangleMeshName, metadata.GenerateTriangleGeometry(triangleMeshName))
	l.registBuiltin(quadMeshName, metadata.GeneratePlaneGeometry(2, 2, 1, 1, 1, 1, quadMeshName))
	l.registBuiltin(cubeMeshName, metadata.GenerateCubeGeometry(1, 1, 1, 1, 1, cubeMeshName))
	return nil
}

func (l *MeshLoader) registBuiltin(name string, geometry metadata.GeometryData) {
	if l.FindResource(name) != nil {
		return
	}
	l.CreateResource(name, metadata.NewMesh(name, metadata.MeshData{Geometries: []metadata.GeometryData{geometry}}), "")
}

// GetMesh returns the mesh payload called name, loading it when needed.
func (l *MeshLoader) GetMesh(name string) *metadata.Mesh {
	mesh, _ := resources.DataAs[*metadata.Mesh](l.FindResource(name))
	return mesh
}

func (l *MeshLoader) LoadResource(name string) bool {
	resource := l.GetResource(name)
	if resource == nil {
		core.LogError("%s failed to load %s", l.Config().Name, name)
		return false
	}
	metaData := resource.MetaData
	if l.IsNewExternalData(metaData, metaData.SourceFilePath) && l.ConvertResource(resource, metaData.SourceFilePath) {
		l.Metrics().AddLoad()
		return true
	}

	var data metadata.MeshData
	if !l.LoadResourceData(resource, &data) {
		core.LogError("%s failed to load %s", l.Config().Name, name)
		return false
	}
	resource.SetData(metadata.NewMesh(resource.Name, data))
	markLoaded(resource, l.Metrics())
	return true
}

func (l *MeshLoader) OpenResource(name string) bool {
	resource := l.GetResource(name)
	if _, ok := resources.DataAs[*metadata.Mesh](resource); !ok {
		return false
	}
	return l.reg.Models.CreateModel(resource.Ref()) != nil
}

func convertMesh(sourceFilePath string) (metadata.MeshData, error) {
	switch strings.ToLower(filepath.Ext(sourceFilePath)) {
	case ".obj":
		return loadOBJ(sourceFilePath)
	case ".gltf", ".glb":
		return loadGLTF(sourceFilePath)
	}
	return metadata.MeshData{}, errors.Wrapf(core.ErrUnknownResourceType, "unsupported mesh file %s", sourceFilePath)
}

func (l *MeshLoader) ConvertResource(resource *resources.Resource, sourceFilePath string) bool {
	core.LogInfo("Convert Resource : %s", sourceFilePath)
	data, err := convertMesh(sourceFilePath)
	if err != nil {
		core.LogFailure(err, "Failed to convert resource : %s", sourceFilePath)
		l.Metrics().AddFailure()
		return false
	}
	if len(data.Geometries) == 0 {
		core.LogError("Failed to convert resource : %s has no geometry", sourceFilePath)
		l.Metrics().AddFailure()
		return false
	}
	mesh := metadata.NewMesh(resource.Name, data)
	resource.SetData(mesh)
	l.Metrics().AddConversion()
	return l.SaveResourceData(resource, mesh.SaveData(), sourceFilePath)
}
