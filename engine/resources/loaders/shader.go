package loaders

import (
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/resources"
)

/**
 * @brief Loads shader sources. A shader file saves as plain text and every
 * load refreshes the materials generated from it.
 */
type ShaderLoader struct {
	*resources.BaseLoader
	reg *Registry
}

func NewShaderLoader(reg *Registry) *ShaderLoader {
	l := &ShaderLoader{reg: reg}
	l.BaseLoader = resources.NewBaseLoader(resources.LoaderConfig{
		Name:             "ShaderLoader",
		ResourceDirName:  "Shaders",
		ResourceTypeName: metadata.ResourceTypeShader,
		ResourceVersion:  0.6,
		FileExt:          ".glsl",
		Encoding:         resources.EncodingRaw,
	}, reg.Env, l)
	reg.Shaders = l
	return l
}

// markLoaded records the current state of the resource file after a load.
func markLoaded(resource *resources.Resource, metrics *core.Metrics) {
	if resource.MetaData != nil {
		resource.MetaData.SetResourceMetaData(resource.MetaData.ResourceFilePath, true)
	}
	metrics.AddLoad()
}

func (l *ShaderLoader) LoadResource(name string) bool {
	resource := l.GetResource(name)
	if resource == nil {
		core.LogError("%s failed to load %s", l.Config().Name, name)
		return false
	}
	if !resource.IsNeedToLoad() {
		return true
	}

	var source string
	if !l.LoadResourceData(resource, &source) {
		core.LogError("%s failed to load %s", l.Config().Name, name)
		return false
	}
	filePath := resource.MetaData.ResourceFilePath
	resource.SetData(metadata.NewShader(resource.Name, source, filePath, l.ResourcePath()))
	markLoaded(resource, l.Metrics())

	if l.reg.Materials != nil {
		l.reg.Materials.ReloadMaterials(filePath)
	}
	return true
}

// GetShader returns the shader payload called name, loading it when needed.
func (l *ShaderLoader) GetShader(name string) *metadata.Shader {
	shader, _ := resources.DataAs[*metadata.Shader](l.GetResource(name))
	return shader
}

func (l *ShaderLoader) OpenResource(name string) bool {
	if l.GetShader(name) == nil {
		return false
	}
	return l.reg.MaterialInstances.CreateMaterialInstance(name, name, nil) != nil
}
