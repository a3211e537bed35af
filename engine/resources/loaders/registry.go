package loaders

import (
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/resources"
)

// Renderer is the part of the graphics layer the loaders call into.
type Renderer interface {
	CompileProgram(name string, codes map[string]string, binaryFormat int, binary []byte) (metadata.Program, error)
	SetDebugTexture(texture *metadata.Texture)
}

// SceneManager is the part of the scene graph the loaders call into.
type SceneManager interface {
	CurrentSceneName() string
	OpenScene(scene *metadata.Scene)
	SaveData() metadata.SceneData
	AddObject(model resources.Ref) string
}

/** @brief Tunables of the specialised loaders. */
type Options struct {
	/** @brief The version line prepended to every generated stage. */
	ShaderVersion string
	/** @brief Resize converted images to the next power of two. */
	TexturePowerOfTwo bool
	/** @brief Pixel size glyph atlases are rasterized at. */
	FontSize uint32
}

func DefaultOptions() Options {
	return Options{
		ShaderVersion: metadata.ShaderVersion,
		FontSize:      metadata.FontSize,
	}
}

/**
 * @brief Holds the collaborators and one instance of every loader. Loaders
 * reach each other through the registry instead of global lookups.
 */
type Registry struct {
	Env      resources.Environment
	Renderer Renderer
	Scene    SceneManager
	Options  Options

	Fonts             *FontLoader
	Textures          *TextureLoader
	Shaders           *ShaderLoader
	Materials         *MaterialLoader
	MaterialInstances *MaterialInstanceLoader
	Meshes            *MeshLoader
	Models            *ModelLoader
	Scenes            *SceneLoader
}

func NewRegistry(env resources.Environment, renderer Renderer, scene SceneManager, options Options) *Registry {
	if options.ShaderVersion == "" {
		options.ShaderVersion = metadata.ShaderVersion
	}
	if options.FontSize == 0 {
		options.FontSize = metadata.FontSize
	}
	return &Registry{
		Env:      env,
		Renderer: renderer,
		Scene:    scene,
		Options:  options,
	}
}

// CreateLoaders constructs one loader of every category. The order matters:
// models resolve default material instances while they initialize.
func (r *Registry) CreateLoaders() {
	NewFontLoader(r)
	NewTextureLoader(r)
	NewShaderLoader(r)
	NewMaterialLoader(r)
	NewMaterialInstanceLoader(r)
	NewMeshLoader(r)
	NewModelLoader(r)
	NewSceneLoader(r)
}

// Loaders returns every loader in initialization order.
func (r *Registry) Loaders() []resources.Loader {
	return []resources.Loader{r.Fonts, r.Textures, r.Shaders, r.Materials, r.MaterialInstances, r.Meshes, r.Models, r.Scenes}
}

// loadedRef loads the payload of resource and returns its slot reference.
func loadedRef(resource *resources.Resource) (resources.Ref, bool) {
	if resource == nil {
		return resources.Ref{}, false
	}
	resource.GetData()
	return resource.Ref(), true
}

func (r *Registry) ResolveMesh(name string) (resources.Ref, bool) {
	if r.Meshes == nil {
		return resources.Ref{}, false
	}
	return loadedRef(r.Meshes.GetResource(name))
}

func (r *Registry) ResolveMaterialInstance(name string) (resources.Ref, bool) {
	if r.MaterialInstances == nil {
		return resources.Ref{}, false
	}
	return loadedRef(r.MaterialInstances.GetResource(name))
}

func (r *Registry) ResolveTexture(name string) (resources.Ref, bool) {
	if r.Textures == nil {
		return resources.Ref{}, false
	}
	return loadedRef(r.Textures.FindResource(name))
}

func (r *Registry) ResolveModel(name string) (resources.Ref, bool) {
	if r.Models == nil {
		return resources.Ref{}, false
	}
	return loadedRef(r.Models.GetResource(name))
}

/**
 * @brief Returns the instance used for geometries without one, creating it
 * from the default shader on first use. Skeletal meshes get a variant with
 * SKELETAL enabled.
 */
func (r *Registry) DefaultMaterialInstance(skeletal bool) resources.Ref {
	if r.MaterialInstances == nil {
		return resources.NamedRef(metadata.DefaultMaterialInstanceName)
	}
	name := metadata.DefaultMaterialInstanceName
	var macros metadata.Macros
	if skeletal {
		name = metadata.DefaultSkeletalMaterialInstanceName
		macros = metadata.Macros{"SKELETAL": "1"}
	}
	if resource := r.MaterialInstances.GetMaterialInstance(name, metadata.DefaultShaderName, macros); resource != nil {
		return resource.Ref()
	}
	return resources.NamedRef(name)
}
