package resources

import (
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/prism/engine/core"
)

// WildcardFileExt makes a loader register every file of its directory.
const WildcardFileExt = ".*"

// ExternalsDirName is the root of the authoring-time source directories.
const ExternalsDirName = "Externals"

/** @brief Static description of a resource category. */
type LoaderConfig struct {
	/** @brief The loader name used in log lines. */
	Name string
	/** @brief The directory, relative to the root, holding the resource files. */
	ResourceDirName string
	/** @brief The resource type name used to route requests. */
	ResourceTypeName string
	/** @brief The schema version of the resource files. A mismatch forces a reconversion. */
	ResourceVersion float64
	/** @brief The extension of the resource files, or WildcardFileExt. */
	FileExt string
	/** @brief Directories, relative to the root, holding external source files. */
	ExternalDirNames []string
	/** @brief External source extensions by format name. */
	ExternalFileExt map[string]string
	Encoding        Encoding
}

/** @brief Collaborators shared by every loader. */
type Environment struct {
	RootPath string
	Notifier Notifier
	Metrics  *core.Metrics
}

// Loader is the contract every resource category implements. BaseLoader
// provides the generic behaviour, categories override what they need.
type Loader interface {
	Config() LoaderConfig
	TypeName() string
	Initialize() error
	Shutdown() error

	FindResource(name string) *Resource
	GetResource(name string) *Resource
	GetResourceData(name string) any
	GetResourceList() []*Resource
	GetResourceNameList() []string
	GetMetaData(name string) *MetaData
	GetResourceAttribute(name string) []Attribute
	SetResourceAttribute(name, attributeName string, value AttributeValue, index int) bool

	CreateResource(name string, data any, filePath string) *Resource
	ConvertResource(resource *Resource, sourceFilePath string) bool
	LoadResource(name string) bool
	OpenResource(name string) bool
	DuplicateResource(name string) bool
	SaveResource(name string) bool
	RenameResource(name, newName string) bool
	DeleteResource(name string) bool
}

/**
 * @brief Generic loader managing one resource category rooted at
 * <root>/<ResourceDirName>.
 */
type BaseLoader struct {
	config        LoaderConfig
	env           Environment
	self          Loader
	arena         *Arena
	resourcePath  string
	externalPaths []string

	resources        map[string]*Resource
	metaDatas        map[string]*MetaData
	externalFileList []string
}

// NewBaseLoader creates the generic loader. self is the outer loader used for
// the operations categories override; nil means the BaseLoader itself.
func NewBaseLoader(config LoaderConfig, env Environment, self Loader) *BaseLoader {
	if config.FileExt == "" {
		config.FileExt = WildcardFileExt
	}
	if env.Notifier == nil {
		env.Notifier = nopNotifier{}
	}
	if env.Metrics == nil {
		env.Metrics = core.NewMetrics()
	}

	b := &BaseLoader{
		config:       config,
		env:          env,
		self:         self,
		arena:        NewArena(),
		resourcePath: filepath.Join(env.RootPath, config.ResourceDirName),
		resources:    make(map[string]*Resource),
		metaDatas:    make(map[string]*MetaData),
	}
	if b.self == nil {
		b.self = b
	}

	if err := os.MkdirAll(b.resourcePath, 0o755); err != nil {
		core.LogFailure(errors.Wrapf(err, "failed to create %s", b.resourcePath), "%s", config.Name)
	}
	b.externalPaths = []string{b.resourcePath}
	for _, dirName := range config.ExternalDirNames {
		externalPath := filepath.Join(env.RootPath, dirName)
		if err := os.MkdirAll(externalPath, 0o755); err != nil {
			core.LogFailure(errors.Wrapf(err, "failed to create %s", externalPath), "%s", config.Name)
		}
		b.externalPaths = append(b.externalPaths, externalPath)
	}
	return b
}

func (b *BaseLoader) Config() LoaderConfig {
	return b.config
}

func (b *BaseLoader) TypeName() string {
	return b.config.ResourceTypeName
}

func (b *BaseLoader) ResourcePath() string {
	return b.resourcePath
}

func (b *BaseLoader) Environment() Environment {
	return b.env
}

func (b *BaseLoader) Metrics() *core.Metrics {
	return b.env.Metrics
}

// ResourceNameFromPath derives the dotted resource name of filePath relative to root.
func ResourceNameFromPath(root, filePath string) string {
	rel, err := filepath.Rel(root, filePath)
	if err != nil {
		rel = filepath.Base(filePath)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return strings.ReplaceAll(rel, string(filepath.Separator), ".")
}

// IsNewExternalData reports whether sourceFilePath must be converted again
// for the resource described by metaData.
func (b *BaseLoader) IsNewExternalData(metaData *MetaData, sourceFilePath string) bool {
	if metaData == nil || !fileExists(sourceFilePath) {
		return false
	}
	sourceFilePath = NormalizeResourcePath(sourceFilePath)
	if metaData.ResourceVersion != b.config.ResourceVersion {
		return true
	}
	return metaData.SourceFilePath == sourceFilePath && metaData.SourceModifyTime != ModifyTimeOfFile(sourceFilePath)
}

func (b *BaseLoader) Initialize() error {
	core.LogInfo("initialize %s", b.config.Name)
	clock := core.NewClock()
	clock.Start()

	// collect resource files
	err := filepath.WalkDir(b.resourcePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext == MetaFileExt {
			return nil
		}
		if b.config.FileExt == WildcardFileExt || ext == b.config.FileExt {
			b.self.CreateResource(ResourceNameFromPath(b.resourcePath, path), nil, path)
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "failed to scan %s", b.resourcePath)
	}

	// convert external source files into resource files
	if len(b.config.ExternalFileExt) > 0 {
		for _, externalPath := range b.externalPaths {
			err := filepath.WalkDir(externalPath, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() {
					b.addConvertSourceFile(path)
				}
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "failed to scan %s", externalPath)
			}

			for _, sourceFilePath := range b.externalFileList {
				name := ResourceNameFromPath(externalPath, sourceFilePath)
				resource := b.FindResource(name)
				metaData := b.metaDatas[name]
				if resource == nil {
					core.LogInfo("Create the new resource from %s.", sourceFilePath)
					resource = b.self.CreateResource(name, nil, "")
					if !b.self.ConvertResource(resource, sourceFilePath) {
						b.UnregistResource(resource)
					}
				} else if metaData != nil && b.IsNewExternalData(metaData, sourceFilePath) {
					core.LogInfo("Refresh the resource from %s.", sourceFilePath)
					b.self.ConvertResource(resource, sourceFilePath)
				}
			}
			b.externalFileList = nil
		}
	}

	// clear garbage meta files
	err = filepath.WalkDir(b.resourcePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != MetaFileExt {
			return nil
		}
		name := ResourceNameFromPath(b.resourcePath, path)
		if b.FindResource(name) != nil {
			return nil
		}
		if metaData, ok := b.metaDatas[name]; ok {
			if err := metaData.Delete(); err != nil {
				core.LogFailure(err, "failed to delete meta data of %s", name)
			}
			delete(b.metaDatas, name)
		} else {
			core.LogInfo("Delete the %s.", path)
			if err := os.Remove(path); err != nil {
				core.LogFailure(errors.Wrapf(err, "failed to remove %s", path), "garbage meta file")
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "failed to sweep %s", b.resourcePath)
	}

	clock.Stop()
	b.env.Metrics.RecordInitialization(b.config.Name, clock.ElapsedDuration())
	return nil
}

func (b *BaseLoader) addConvertSourceFile(sourceFilePath string) {
	ext := filepath.Ext(sourceFilePath)
	for _, externalExt := range b.config.ExternalFileExt {
		if externalExt == ext {
			if !slices.Contains(b.externalFileList, sourceFilePath) {
				b.externalFileList = append(b.externalFileList, sourceFilePath)
			}
			return
		}
	}
}

// IsExternalFile reports whether path has one of the external source extensions.
func (b *BaseLoader) IsExternalFile(path string) bool {
	ext := filepath.Ext(path)
	for _, externalExt := range b.config.ExternalFileExt {
		if externalExt == ext {
			return true
		}
	}
	return false
}

// ExternalResourceName maps an external source file to its resource name, or
// "" when the file is outside of the external directories.
func (b *BaseLoader) ExternalResourceName(sourceFilePath string) string {
	for _, externalPath := range b.externalPaths {
		rel, err := filepath.Rel(externalPath, sourceFilePath)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		return ResourceNameFromPath(externalPath, sourceFilePath)
	}
	return ""
}

// NewResourceName returns prefix when it is free, otherwise the first free
// prefix_N (the type name stands in for an empty prefix).
func (b *BaseLoader) NewResourceName(prefix string) string {
	if _, ok := b.resources[prefix]; !ok && prefix != "" {
		return prefix
	}
	base := prefix
	if base == "" {
		base = b.config.ResourceTypeName
	}
	for num := 0; ; num++ {
		name := base + "_" + strconv.Itoa(num)
		if _, ok := b.resources[name]; !ok {
			return name
		}
	}
}

func (b *BaseLoader) ConvertResource(resource *Resource, sourceFilePath string) bool {
	core.LogWarn("ConvertResource is not implemented in %s.", b.config.Name)
	return false
}

// FindResource looks up a resource without complaining when it is missing.
func (b *BaseLoader) FindResource(name string) *Resource {
	return b.resources[name]
}

func (b *BaseLoader) GetResource(name string) *Resource {
	if r, ok := b.resources[name]; ok {
		return r
	}
	if name != "" {
		core.LogError("%s cannot find %s resource.", b.config.Name, name)
	}
	return nil
}

func (b *BaseLoader) GetResourceData(name string) any {
	if r := b.GetResource(name); r != nil {
		return r.GetData()
	}
	return nil
}

func (b *BaseLoader) GetResourceList() []*Resource {
	list := make([]*Resource, 0, len(b.resources))
	for _, name := range b.GetResourceNameList() {
		list = append(list, b.resources[name])
	}
	return list
}

func (b *BaseLoader) GetResourceNameList() []string {
	names := make([]string, 0, len(b.resources))
	for name := range b.resources {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (b *BaseLoader) GetResourceAttribute(name string) []Attribute {
	if r := b.GetResource(name); r != nil {
		if r.IsNeedToLoad() {
			r.GetData()
		}
		return r.Attributes()
	}
	return nil
}

func (b *BaseLoader) SetResourceAttribute(name, attributeName string, value AttributeValue, index int) bool {
	if attributeName == "name" {
		return b.self.RenameResource(name, value.Text())
	}
	if r := b.GetResource(name); r != nil {
		if r.IsNeedToLoad() {
			r.GetData()
		}
		return r.SetAttribute(attributeName, value, index)
	}
	return false
}

func (b *BaseLoader) GetMetaData(name string) *MetaData {
	if md, ok := b.metaDatas[name]; ok {
		return md
	}
	core.LogError("Not found meta data of %s.", name)
	return nil
}

// CreateResource registers a new resource. A colliding name is suffixed until
// unique. Without filePath the path is derived from the resource name.
func (b *BaseLoader) CreateResource(name string, data any, filePath string) *Resource {
	if _, ok := b.resources[name]; ok || name == "" {
		name = b.NewResourceName(name)
	}
	resource := NewResource(name, b.config.ResourceTypeName, b.arena, b.self, b.env.Notifier)
	if data != nil {
		resource.SetData(data)
	}
	if filePath == "" {
		filePath = filepath.Join(b.resourcePath, name) + b.fileExt()
	}
	b.RegistResource(resource, NewMetaData(b.config.ResourceVersion, filePath))
	return resource
}

func (b *BaseLoader) fileExt() string {
	if b.config.FileExt == WildcardFileExt {
		return ""
	}
	return b.config.FileExt
}

func (b *BaseLoader) RegistResource(resource *Resource, metaData *MetaData) {
	if resource == nil {
		return
	}
	core.LogInfo("Regist %s : %s", b.config.ResourceTypeName, resource.Name)
	b.resources[resource.Name] = resource
	if metaData != nil {
		b.metaDatas[resource.Name] = metaData
		resource.MetaData = metaData
	}
	b.env.Notifier.ResourceInfoChanged(resource.Info())
}

func (b *BaseLoader) UnregistResource(resource *Resource) {
	if resource == nil {
		return
	}
	hasPayload := resource.HasData()
	delete(b.metaDatas, resource.Name)
	if current, ok := b.resources[resource.Name]; ok && current == resource {
		delete(b.resources, resource.Name)
	}
	resource.release()
	b.env.Notifier.ResourceDeleted(resource.Name, resource.TypeName, hasPayload)
}

func (b *BaseLoader) RenameResource(name, newName string) bool {
	return b.MoveResource(name, newName) != nil
}

// MoveResource renames the resource called name to newName and returns it.
// The resource keeps its payload slot, so every Ref held by dependents
// follows it. The effective name can differ from newName when it collides
// with an existing resource.
func (b *BaseLoader) MoveResource(name, newName string) *Resource {
	if newName == "" || name == newName {
		return nil
	}
	resource := b.GetResource(name)
	if resource == nil {
		return nil
	}
	data := resource.GetData()
	hasPayload := resource.HasData()

	delete(b.resources, name)
	effective := b.NewResourceName(newName)
	if effective == name {
		b.resources[name] = resource
		return resource
	}

	oldMetaData := b.metaDatas[name]
	delete(b.metaDatas, name)
	resource.Name = effective
	if named, ok := data.(Named); ok {
		named.SetResourceName(effective)
	}

	newPath := NormalizeResourcePath(b.ResourceFilePath(effective))
	if oldMetaData != nil {
		oldPath := oldMetaData.ResourceFilePath
		if fileExists(oldPath) && oldPath != newPath {
			if err := moveFile(oldPath, newPath); err != nil {
				core.LogFailure(err, "%s failed to move %s", b.config.Name, name)
			}
		}
		if err := oldMetaData.Delete(); err != nil {
			core.LogFailure(err, "rename %s", name)
		}
	}
	b.env.Notifier.ResourceDeleted(name, resource.TypeName, hasPayload)
	metaData := NewMetaData(b.config.ResourceVersion, newPath)
	if oldMetaData != nil {
		metaData.SetSourceMetaData(oldMetaData.SourceFilePath, true)
		for path, modifyTime := range oldMetaData.IncludeFiles {
			metaData.IncludeFiles[path] = modifyTime
		}
	}
	b.RegistResource(resource, metaData)

	if data != nil {
		b.self.SaveResource(effective)
	}
	core.LogInfo("rename_resource : %s to %s", name, effective)
	return resource
}

func moveFile(oldPath, newPath string) error {
	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", filepath.Dir(newPath))
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return errors.Wrapf(err, "failed to move %s to %s", oldPath, newPath)
	}
	return nil
}

func (b *BaseLoader) LoadResource(name string) bool {
	core.LogWarn("LoadResource is not implemented in %s.", b.config.Name)
	return false
}

func (b *BaseLoader) OpenResource(name string) bool {
	core.LogWarn("OpenResource is not implemented in %s.", b.config.Name)
	return false
}

func (b *BaseLoader) DuplicateResource(name string) bool {
	core.LogWarn("DuplicateResource is not implemented in %s.", b.config.Name)
	return false
}

func (b *BaseLoader) SaveResource(name string) bool {
	resource := b.GetResource(name)
	if resource != nil {
		if saveable, ok := resource.GetData().(Saveable); ok {
			sourceFilePath := ""
			if resource.MetaData != nil {
				sourceFilePath = resource.MetaData.SourceFilePath
			}
			return b.SaveResourceData(resource, saveable.SaveData(), sourceFilePath)
		}
	}
	core.LogWarn("SaveResource is not implemented in %s.", b.config.Name)
	return false
}

// LoadResourceData decodes the resource file of resource into out.
func (b *BaseLoader) LoadResourceData(resource *Resource, out any) bool {
	if resource == nil || resource.MetaData == nil {
		return false
	}
	filePath := resource.MetaData.ResourceFilePath
	if !fileExists(filePath) {
		core.LogError("file open error : %s", filePath)
		return false
	}
	if err := ReadData(filePath, out); err != nil {
		core.LogFailure(err, "%s failed to read %s", b.config.Name, resource.Name)
		b.env.Metrics.AddFailure()
		return false
	}
	return true
}

// ResourceFilePath returns the file a resource called name is saved to.
func (b *BaseLoader) ResourceFilePath(name string) string {
	return filepath.Join(b.resourcePath, strings.ReplaceAll(name, ".", string(filepath.Separator))) + b.fileExt()
}

// SaveResourceData writes data to the resource file and refreshes the meta
// data with a single sidecar write.
func (b *BaseLoader) SaveResourceData(resource *Resource, data any, sourceFilePath string) bool {
	if resource == nil {
		return false
	}
	savePath := b.ResourceFilePath(resource.Name)
	if err := os.MkdirAll(filepath.Dir(savePath), 0o755); err != nil {
		core.LogFailure(errors.Wrapf(err, "failed to create %s", filepath.Dir(savePath)), "%s", b.config.Name)
		b.env.Metrics.AddFailure()
		return false
	}

	core.LogInfo("Save : %s", savePath)
	if err := WriteData(savePath, b.config.Encoding, data); err != nil {
		core.LogFailure(err, "%s failed to save %s", b.config.Name, resource.Name)
		b.env.Metrics.AddFailure()
		return false
	}

	metaData := resource.MetaData
	if metaData == nil {
		metaData = NewMetaData(b.config.ResourceVersion, savePath)
		resource.MetaData = metaData
		b.metaDatas[resource.Name] = metaData
	}
	metaData.SetResourceMetaData(savePath, false)
	metaData.SetSourceMetaData(sourceFilePath, false)
	metaData.SetResourceVersion(b.config.ResourceVersion, false)
	metaData.Save()
	b.env.Metrics.AddSave()
	return true
}

// DeleteResource removes the resource, its sidecar and its file.
func (b *BaseLoader) DeleteResource(name string) bool {
	resource := b.GetResource(name)
	if resource == nil {
		return false
	}
	core.LogInfo("Deleted the %s.", resource.Name)
	if metaData, ok := b.metaDatas[resource.Name]; ok {
		if fileExists(metaData.ResourceFilePath) {
			if err := os.Remove(metaData.ResourceFilePath); err != nil {
				core.LogFailure(errors.Wrapf(err, "failed to remove %s", metaData.ResourceFilePath), "delete %s", name)
			}
		}
		if err := metaData.Delete(); err != nil {
			core.LogFailure(err, "delete %s", name)
		}
	}
	b.UnregistResource(resource)
	return true
}

func (b *BaseLoader) Shutdown() error {
	for name, resource := range b.resources {
		resource.ClearData()
		delete(b.resources, name)
	}
	b.metaDatas = make(map[string]*MetaData)
	return nil
}
