package resources

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/spaghettifunk/prism/engine/core"
)

const MetaFileExt = ".meta"

/**
 * @brief Sidecar record tracking the identity and freshness of a resource file
 * and of the external file it was converted from.
 */
type MetaData struct {
	ResourceVersion    float64
	ResourceFilePath   string
	ResourceModifyTime string
	SourceFilePath     string
	SourceModifyTime   string
	/** @brief Files pulled in while generating the resource, mapped to their modify time. Not persisted in the sidecar. */
	IncludeFiles map[string]string

	filePath string
	changed  bool
}

// metaRecord is the sidecar layout. Pointers tell missing keys apart from empty ones.
type metaRecord struct {
	ResourceVersion    *float64 `toml:"resource_version"`
	ResourceFilePath   *string  `toml:"resource_filepath"`
	ResourceModifyTime *string  `toml:"resource_modify_time"`
	SourceFilePath     *string  `toml:"source_filepath"`
	SourceModifyTime   *string  `toml:"source_modify_time"`
}

// NewMetaData builds the record for resourceFilePath and synchronises it with
// its sidecar, writing the sidecar when it is missing or out of date.
func NewMetaData(resourceVersion float64, resourceFilePath string) *MetaData {
	resourceFilePath = NormalizeResourcePath(resourceFilePath)
	md := &MetaData{
		ResourceVersion:    resourceVersion,
		ResourceFilePath:   resourceFilePath,
		ResourceModifyTime: ModifyTimeOfFile(resourceFilePath),
		IncludeFiles:       make(map[string]string),
		filePath:           strings.TrimSuffix(resourceFilePath, filepath.Ext(resourceFilePath)) + MetaFileExt,
	}
	md.load()
	return md
}

// NormalizeResourcePath turns the dotted stem of a resource file into nested
// directories: Textures/env.sky.texture becomes Textures/env/sky.texture.
func NormalizeResourcePath(path string) string {
	if path == "" {
		return ""
	}
	dir, base := filepath.Split(path)
	ext := filepath.Ext(base)
	stem := strings.ReplaceAll(strings.TrimSuffix(base, ext), ".", string(filepath.Separator))
	return filepath.Join(dir, stem) + ext
}

// ModifyTimeOfFile returns the modification time of path, or "" when it does not exist.
func ModifyTimeOfFile(path string) string {
	if path == "" {
		return ""
	}
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return info.ModTime().UTC().Format(time.RFC3339Nano)
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func (md *MetaData) MetaFilePath() string {
	return md.filePath
}

func (md *MetaData) IsChanged() bool {
	return md.changed
}

func (md *MetaData) IsResourceFileChanged() bool {
	return md.ResourceModifyTime != ModifyTimeOfFile(md.ResourceFilePath)
}

func (md *MetaData) IsSourceFileChanged() bool {
	return md.SourceModifyTime != ModifyTimeOfFile(md.SourceFilePath)
}

// IsIncludeFileChanged reports whether any tracked include file was touched since it was recorded.
func (md *MetaData) IsIncludeFileChanged() bool {
	for path, modifyTime := range md.IncludeFiles {
		if ModifyTimeOfFile(path) != modifyTime {
			return true
		}
	}
	return false
}

func (md *MetaData) SetResourceVersion(resourceVersion float64, save bool) {
	md.changed = md.changed || md.ResourceVersion != resourceVersion
	md.ResourceVersion = resourceVersion
	if md.changed && save {
		md.Save()
	}
}

func (md *MetaData) SetResourceMetaData(resourceFilePath string, save bool) {
	resourceFilePath = NormalizeResourcePath(resourceFilePath)
	modifyTime := ModifyTimeOfFile(resourceFilePath)
	md.changed = md.changed || md.ResourceFilePath != resourceFilePath
	md.changed = md.changed || md.ResourceModifyTime != modifyTime
	md.ResourceFilePath = resourceFilePath
	md.ResourceModifyTime = modifyTime
	if md.changed && save {
		md.Save()
	}
}

func (md *MetaData) SetSourceMetaData(sourceFilePath string, save bool) {
	sourceFilePath = NormalizeResourcePath(sourceFilePath)
	modifyTime := ModifyTimeOfFile(sourceFilePath)
	md.changed = md.changed || md.SourceFilePath != sourceFilePath
	md.changed = md.changed || md.SourceModifyTime != modifyTime
	md.SourceFilePath = sourceFilePath
	md.SourceModifyTime = modifyTime
	if md.changed && save {
		md.Save()
	}
}

func (md *MetaData) load() {
	content, err := os.ReadFile(md.filePath)
	if err != nil {
		// no sidecar yet
		md.changed = true
		md.Save()
		return
	}

	var record metaRecord
	if err := toml.Unmarshal(content, &record); err != nil {
		core.LogFailure(errors.Wrapf(err, "failed to parse %s", md.filePath), "corrupt meta file")
		md.changed = true
		md.Save()
		return
	}

	md.changed = md.changed || record.ResourceVersion == nil || *record.ResourceVersion != md.ResourceVersion
	md.changed = md.changed || record.ResourceFilePath == nil || *record.ResourceFilePath != md.ResourceFilePath
	md.changed = md.changed || record.ResourceModifyTime == nil || *record.ResourceModifyTime != md.ResourceModifyTime
	md.changed = md.changed || record.SourceFilePath == nil || *record.SourceFilePath != md.SourceFilePath
	md.changed = md.changed || record.SourceModifyTime == nil || *record.SourceModifyTime != md.SourceModifyTime

	if record.ResourceVersion != nil {
		md.ResourceVersion = *record.ResourceVersion
	}
	if record.SourceFilePath != nil {
		md.SourceFilePath = *record.SourceFilePath
	}
	if record.SourceModifyTime != nil {
		md.SourceModifyTime = *record.SourceModifyTime
	}

	if md.changed {
		md.Save()
	}
}

// Save writes the sidecar when it is dirty or missing, and only while the
// resource file itself exists. It reports whether a write happened.
func (md *MetaData) Save() bool {
	if !(md.changed || !fileExists(md.filePath)) || !fileExists(md.ResourceFilePath) {
		return false
	}

	record := metaRecord{
		ResourceVersion:    &md.ResourceVersion,
		ResourceFilePath:   &md.ResourceFilePath,
		ResourceModifyTime: &md.ResourceModifyTime,
		SourceFilePath:     &md.SourceFilePath,
		SourceModifyTime:   &md.SourceModifyTime,
	}
	content, err := toml.Marshal(record)
	if err != nil {
		core.LogFailure(errors.Wrap(err, "failed to encode meta data"), "cannot save %s", md.filePath)
		return false
	}
	if err := os.WriteFile(md.filePath, content, 0o644); err != nil {
		core.LogFailure(errors.Wrapf(err, "failed to write %s", md.filePath), "cannot save meta file")
		return false
	}
	md.changed = false
	return true
}

func (md *MetaData) Delete() error {
	if !fileExists(md.filePath) {
		return nil
	}
	if err := os.Remove(md.filePath); err != nil {
		return errors.Wrapf(err, "failed to delete %s", md.filePath)
	}
	return nil
}
