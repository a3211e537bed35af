package resources

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetaDataSaveIsIdempotent(t *testing.T) {
	root := t.TempDir()
	resourcePath := filepath.Join(root, "cube.mesh")
	writeFile(t, resourcePath, "payload")

	md := NewMetaData(1, resourcePath)
	require.FileExists(t, md.MetaFilePath())
	assert.False(t, md.IsChanged())

	first, err := os.ReadFile(md.MetaFilePath())
	require.NoError(t, err)

	assert.False(t, md.Save())
	md.SetResourceMetaData(resourcePath, true)
	md.SetResourceVersion(1, true)
	assert.False(t, md.IsChanged())

	second, err := os.ReadFile(md.MetaFilePath())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// a fresh record over an up to date sidecar does not rewrite it either
	again := NewMetaData(1, resourcePath)
	assert.False(t, again.IsChanged())
	third, err := os.ReadFile(md.MetaFilePath())
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestMetaDataIsNotWrittenForMissingResource(t *testing.T) {
	root := t.TempDir()
	md := NewMetaData(1, filepath.Join(root, "ghost.mesh"))

	assert.NoFileExists(t, md.MetaFilePath())
	assert.True(t, md.IsChanged())
	assert.Equal(t, "", md.ResourceModifyTime)
	assert.False(t, md.Save())
}

func TestMetaDataLoadsStoredFields(t *testing.T) {
	root := t.TempDir()
	resourcePath := filepath.Join(root, "brick.texture")
	sourcePath := filepath.Join(root, "brick.png")
	writeFile(t, resourcePath, "payload")
	writeFile(t, sourcePath, "png")

	md := NewMetaData(1, resourcePath)
	md.SetSourceMetaData(sourcePath, true)
	assert.False(t, md.IsChanged())

	stored := NewMetaData(2, resourcePath)
	assert.Equal(t, float64(1), stored.ResourceVersion)
	assert.Equal(t, sourcePath, stored.SourceFilePath)
	assert.Equal(t, md.SourceModifyTime, stored.SourceModifyTime)
	assert.False(t, stored.IsSourceFileChanged())
}

func TestMetaDataDetectsFileChanges(t *testing.T) {
	root := t.TempDir()
	resourcePath := filepath.Join(root, "a.mesh")
	writeFile(t, resourcePath, "payload")

	md := NewMetaData(1, resourcePath)
	assert.False(t, md.IsResourceFileChanged())

	touch(t, resourcePath, time.Hour)
	assert.True(t, md.IsResourceFileChanged())

	md.SetResourceMetaData(resourcePath, true)
	assert.False(t, md.IsResourceFileChanged())
	assert.False(t, md.IsChanged())
}

func TestMetaDataIncludeFiles(t *testing.T) {
	root := t.TempDir()
	include := filepath.Join(root, "common.glsl")
	writeFile(t, include, "// common")

	md := NewMetaData(1, filepath.Join(root, "x.mat"))
	md.IncludeFiles[include] = ModifyTimeOfFile(include)
	assert.False(t, md.IsIncludeFileChanged())

	touch(t, include, time.Hour)
	assert.True(t, md.IsIncludeFileChanged())
}

func TestMetaDataDelete(t *testing.T) {
	root := t.TempDir()
	resourcePath := filepath.Join(root, "a.mesh")
	writeFile(t, resourcePath, "payload")

	md := NewMetaData(1, resourcePath)
	require.FileExists(t, md.MetaFilePath())
	require.NoError(t, md.Delete())
	assert.NoFileExists(t, md.MetaFilePath())
	assert.NoError(t, md.Delete())
}

func TestNormalizeResourcePath(t *testing.T) {
	sep := string(filepath.Separator)
	assert.Equal(t, "", NormalizeResourcePath(""))
	assert.Equal(t, filepath.Join("Textures", "env", "sky")+".texture", NormalizeResourcePath("Textures"+sep+"env.sky.texture"))
	assert.Equal(t, filepath.Join("Meshes", "cube")+".mesh", NormalizeResourcePath(filepath.Join("Meshes", "cube.mesh")))
}
