package systems

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/resources"
	"github.com/spaghettifunk/prism/engine/resources/loaders"
)

// DefaultResourcePath is used when the configuration names no root.
const DefaultResourcePath = "Resource"

/** @brief The configuration for the resource system */
type ResourceSystemConfig struct {
	/** @brief The directory every loader is rooted at. */
	RootPath string
	/** @brief Tunables handed to the specialised loaders. */
	Options loaders.Options
}

/** @brief A registered resource and the type routing requests to its loader. */
type ResourceInfo struct {
	Name     string `json:"name"`
	TypeName string `json:"type"`
}

/**
 * @brief Owns one loader per resource category and routes the requests
 * addressed by type name to them.
 */
type ResourceSystem struct {
	config   ResourceSystemConfig
	registry *loaders.Registry
	loaders  map[string]resources.Loader
	metrics  *core.Metrics
}

func NewResourceSystem(config *ResourceSystemConfig, notifier resources.Notifier, metrics *core.Metrics, renderer loaders.Renderer, scene loaders.SceneManager) (*ResourceSystem, error) {
	if config == nil {
		return nil, errors.New("failed to run NewResourceSystem because config is nil")
	}
	if config.RootPath == "" {
		config.RootPath = DefaultResourcePath
	}
	if err := os.MkdirAll(config.RootPath, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", config.RootPath)
	}

	if metrics == nil {
		metrics = core.NewMetrics()
	}
	env := resources.Environment{
		RootPath: config.RootPath,
		Notifier: notifier,
		Metrics:  metrics,
	}
	rs := &ResourceSystem{
		config:   *config,
		registry: loaders.NewRegistry(env, renderer, scene, config.Options),
		loaders:  make(map[string]resources.Loader),
		metrics:  metrics,
	}

	// Be careful with the order, see Registry.CreateLoaders.
	rs.registry.CreateLoaders()
	for _, l := range rs.registry.Loaders() {
		rs.loaders[l.TypeName()] = l
	}
	return rs, nil
}

/**
 * @brief Scans the resource tree with every loader in creation order.
 * @returns An error when a directory could not be scanned.
 */
func (rs *ResourceSystem) Initialize() error {
	for _, l := range rs.registry.Loaders() {
		if err := l.Initialize(); err != nil {
			return errors.Wrapf(err, "failed to initialize %s", l.Config().Name)
		}
	}
	core.LogInfo("Resource system initialized with base path '%s'.", rs.config.RootPath)
	return nil
}

func (rs *ResourceSystem) Shutdown() error {
	all := rs.registry.Loaders()
	for i := len(all) - 1; i >= 0; i-- {
		if err := all[i].Shutdown(); err != nil {
			return err
		}
	}
	return nil
}

func (rs *ResourceSystem) RootPath() string {
	return rs.config.RootPath
}

func (rs *ResourceSystem) Metrics() *core.Metrics {
	return rs.metrics
}

func (rs *ResourceSystem) Registry() *loaders.Registry {
	return rs.registry
}

// FindResourceLoader returns the loader registered for typeName.
func (rs *ResourceSystem) FindResourceLoader(typeName string) (resources.Loader, error) {
	if l, ok := rs.loaders[typeName]; ok {
		return l, nil
	}
	core.LogError("%s is a unknown resource type.", typeName)
	return nil, errors.Wrapf(core.ErrUnknownResourceType, "type %q", typeName)
}

/**
 * @brief Copies the resource tree into a new project directory, overwriting
 * the files already there.
 */
func (rs *ResourceSystem) PrepareProjectDirectory(newProjectDir string) error {
	if err := os.MkdirAll(newProjectDir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", newProjectDir)
	}
	return filepath.WalkDir(rs.config.RootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(rs.config.RootPath, path)
		if err != nil {
			return err
		}
		target := filepath.Join(newProjectDir, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", src)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "failed to copy %s", src)
	}
	return out.Close()
}

// GetResourceNameAndTypeList lists every registered resource, loader by loader.
func (rs *ResourceSystem) GetResourceNameAndTypeList() []ResourceInfo {
	var result []ResourceInfo
	for _, l := range rs.registry.Loaders() {
		for _, name := range l.GetResourceNameList() {
			result = append(result, ResourceInfo{Name: name, TypeName: l.TypeName()})
		}
	}
	return result
}

func (rs *ResourceSystem) SetResourceAttribute(name, typeName, attributeName string, value resources.AttributeValue, index int) bool {
	l, err := rs.FindResourceLoader(typeName)
	if err != nil {
		return false
	}
	return l.SetResourceAttribute(name, attributeName, value, index)
}

func (rs *ResourceSystem) GetResourceAttribute(name, typeName string) []resources.Attribute {
	l, err := rs.FindResourceLoader(typeName)
	if err != nil {
		return nil
	}
	return l.GetResourceAttribute(name)
}

func (rs *ResourceSystem) GetResourceData(name, typeName string) any {
	l, err := rs.FindResourceLoader(typeName)
	if err != nil {
		return nil
	}
	return l.GetResourceData(name)
}

func (rs *ResourceSystem) GetMetaData(name, typeName string) *resources.MetaData {
	l, err := rs.FindResourceLoader(typeName)
	if err != nil {
		return nil
	}
	return l.GetMetaData(name)
}

func (rs *ResourceSystem) LoadResource(name, typeName string) bool {
	l, err := rs.FindResourceLoader(typeName)
	if err != nil {
		return false
	}
	return l.LoadResource(name)
}

func (rs *ResourceSystem) OpenResource(name, typeName string) bool {
	l, err := rs.FindResourceLoader(typeName)
	if err != nil {
		return false
	}
	return l.OpenResource(name)
}

func (rs *ResourceSystem) DuplicateResource(name, typeName string) bool {
	l, err := rs.FindResourceLoader(typeName)
	if err != nil {
		return false
	}
	return l.DuplicateResource(name)
}

func (rs *ResourceSystem) SaveResource(name, typeName string) bool {
	l, err := rs.FindResourceLoader(typeName)
	if err != nil {
		return false
	}
	return l.SaveResource(name)
}

func (rs *ResourceSystem) RenameResource(name, typeName, newName string) bool {
	l, err := rs.FindResourceLoader(typeName)
	if err != nil {
		return false
	}
	return l.RenameResource(name, newName)
}

func (rs *ResourceSystem) DeleteResource(name, typeName string) bool {
	l, err := rs.FindResourceLoader(typeName)
	if err != nil {
		return false
	}
	return l.DeleteResource(name)
}

// externalSource is implemented by every loader embedding resources.BaseLoader.
type externalSource interface {
	IsExternalFile(path string) bool
	ExternalResourceName(sourceFilePath string) string
	IsNewExternalData(metaData *resources.MetaData, sourceFilePath string) bool
	UnregistResource(resource *resources.Resource)
}

/**
 * @brief Refreshes whatever depends on a created or written file. A resource
 * whose file is path gets reloaded when the file changed since the last load
 * or save, a resource converted from path gets converted again, and a new
 * external file becomes a new resource.
 * @returns The number of resources refreshed.
 */
func (rs *ResourceSystem) OnFileChanged(path string) int {
	path = filepath.Clean(path)
	normalized := resources.NormalizeResourcePath(path)
	refreshed := 0

	for _, l := range rs.registry.Loaders() {
		external, _ := l.(externalSource)
		matched := false
		converted := false

		for _, resource := range l.GetResourceList() {
			metaData := resource.MetaData
			if metaData == nil {
				continue
			}
			if metaData.ResourceFilePath == normalized {
				matched = true
				if metaData.IsResourceFileChanged() {
					core.LogInfo("Reload %s %s for %s", l.TypeName(), resource.Name, path)
					if l.LoadResource(resource.Name) {
						rs.metrics.AddReload()
						refreshed++
					}
				}
				continue
			}
			if metaData.SourceFilePath == normalized {
				matched = true
				if external != nil && external.IsExternalFile(path) && external.IsNewExternalData(metaData, path) {
					core.LogInfo("Refresh %s %s from %s", l.TypeName(), resource.Name, path)
					if l.ConvertResource(resource, path) {
						converted = true
						refreshed++
					}
				}
			}
		}

		if !matched && external != nil && external.IsExternalFile(path) {
			if name := external.ExternalResourceName(path); name != "" && l.FindResource(name) == nil {
				core.LogInfo("Create the new resource from %s.", path)
				resource := l.CreateResource(name, nil, "")
				if l.ConvertResource(resource, path) {
					converted = true
					refreshed++
				} else {
					external.UnregistResource(resource)
				}
			}
		}

		if converted && l.TypeName() == metadata.ResourceTypeTexture {
			rs.registry.Textures.GenerateCubeTextures()
		}
	}
	return refreshed
}

// FUNCTIONS : Font

func (rs *ResourceSystem) GetFont(name string) metadata.Font {
	return rs.registry.Fonts.GetFont(name)
}

func (rs *ResourceSystem) GetFontNameList() []string {
	return rs.registry.Fonts.GetResourceNameList()
}

// FUNCTIONS : Shader

func (rs *ResourceSystem) GetShaderVersion() string {
	return rs.registry.Options.ShaderVersion
}

func (rs *ResourceSystem) GetShader(name string) *metadata.Shader {
	return rs.registry.Shaders.GetShader(name)
}

func (rs *ResourceSystem) GetShaderNameList() []string {
	return rs.registry.Shaders.GetResourceNameList()
}

// FUNCTIONS : Material

func (rs *ResourceSystem) GetMaterial(shaderName string, macros metadata.Macros) *resources.Resource {
	return rs.registry.Materials.GetMaterial(shaderName, macros)
}

func (rs *ResourceSystem) GetMaterialNameList() []string {
	return rs.registry.Materials.GetResourceNameList()
}

// FUNCTIONS : MaterialInstance

func (rs *ResourceSystem) GetMaterialInstance(name, shaderName string, macros metadata.Macros) *resources.Resource {
	return rs.registry.MaterialInstances.GetMaterialInstance(name, shaderName, macros)
}

func (rs *ResourceSystem) GetMaterialInstanceNameList() []string {
	return rs.registry.MaterialInstances.GetResourceNameList()
}

/**
 * @brief Returns the instance bound to geometries without one.
 * @param skeletal Selects the variant compiled with SKELETAL enabled.
 */
func (rs *ResourceSystem) GetDefaultMaterialInstance(skeletal bool) resources.Ref {
	return rs.registry.DefaultMaterialInstance(skeletal)
}

// FUNCTIONS : Mesh

func (rs *ResourceSystem) GetMesh(name string) *metadata.Mesh {
	return rs.registry.Meshes.GetMesh(name)
}

func (rs *ResourceSystem) GetMeshNameList() []string {
	return rs.registry.Meshes.GetResourceNameList()
}

// FUNCTIONS : Texture

func (rs *ResourceSystem) GetTexture(name string) *metadata.Texture {
	return rs.registry.Textures.GetTexture(name)
}

func (rs *ResourceSystem) GetTextureNameList() []string {
	return rs.registry.Textures.GetResourceNameList()
}

// FUNCTIONS : Model

func (rs *ResourceSystem) GetModel(name string) *metadata.Model {
	return rs.registry.Models.GetModel(name)
}

func (rs *ResourceSystem) GetModelNameList() []string {
	return rs.registry.Models.GetResourceNameList()
}

// FUNCTIONS : Scene

func (rs *ResourceSystem) GetScene(name string) *metadata.Scene {
	scene, _ := rs.registry.Scenes.GetResourceData(name).(*metadata.Scene)
	return scene
}

func (rs *ResourceSystem) GetSceneNameList() []string {
	return rs.registry.Scenes.GetResourceNameList()
}
