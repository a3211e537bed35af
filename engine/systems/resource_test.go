package systems

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/resources"
	"github.com/spaghettifunk/prism/engine/scene"
)

func init() {
	core.SetLogOutput(io.Discard)
}

const defaultShader = `#ifdef MATERIAL_COMPONENTS
uniform vec4 base_color = vec4(1.0, 1.0, 1.0, 1.0);
#endif

#ifdef GL_VERTEX_SHADER
void main() {}
#endif

#ifdef GL_FRAGMENT_SHADER
void main() {}
#endif
`

func newResourceSystem(t *testing.T, root string) *ResourceSystem {
	t.Helper()
	r, err := renderer.New("test", renderer.Headless)
	require.NoError(t, err)
	rs, err := NewResourceSystem(&ResourceSystemConfig{RootPath: root}, core.NewEventSystem(), core.NewMetrics(), r, scene.NewManager())
	require.NoError(t, err)
	require.NoError(t, rs.Initialize())
	t.Cleanup(func() { rs.Shutdown() })
	return rs
}

func writePNG(t *testing.T, path string, size int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.Set(0, 0, color.NRGBA{R: 1, A: 255})
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()
	require.NoError(t, png.Encode(file, img))
}

func later(t *testing.T, path string) {
	t.Helper()
	ts := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, ts, ts))
}

func TestNewResourceSystemRequiresConfig(t *testing.T) {
	_, err := NewResourceSystem(nil, nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestResourceSystemRoutesByTypeName(t *testing.T) {
	rs := newResourceSystem(t, t.TempDir())

	_, err := rs.FindResourceLoader("Sound")
	assert.True(t, errors.Is(err, core.ErrUnknownResourceType))
	assert.False(t, rs.LoadResource("anything", "Sound"))
	assert.Nil(t, rs.GetResourceData("anything", "Sound"))

	l, err := rs.FindResourceLoader(metadata.ResourceTypeMesh)
	require.NoError(t, err)
	assert.Equal(t, metadata.ResourceTypeMesh, l.TypeName())

	mesh, ok := rs.GetResourceData("Cube", metadata.ResourceTypeMesh).(*metadata.Mesh)
	require.True(t, ok)
	assert.Equal(t, mesh, rs.GetMesh("Cube"))
}

func TestResourceNameAndTypeList(t *testing.T) {
	rs := newResourceSystem(t, t.TempDir())

	list := rs.GetResourceNameAndTypeList()
	assert.Contains(t, list, ResourceInfo{Name: "Cube", TypeName: metadata.ResourceTypeMesh})
	assert.Contains(t, list, ResourceInfo{Name: metadata.DefaultTextureName, TypeName: metadata.ResourceTypeTexture})
	assert.Contains(t, list, ResourceInfo{Name: "Quad", TypeName: metadata.ResourceTypeModel})
}

func TestRenameResourceThroughSystem(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "Externals", "Textures", "brick.png"), 2)
	rs := newResourceSystem(t, root)

	require.True(t, rs.RenameResource("brick", metadata.ResourceTypeTexture, "wall"))
	assert.NotNil(t, rs.GetTexture("wall"))
	assert.Contains(t, rs.GetTextureNameList(), "wall")
	assert.NotContains(t, rs.GetTextureNameList(), "brick")
	assert.FileExists(t, filepath.Join(root, "Textures", "wall.texture"))
	assert.NoFileExists(t, filepath.Join(root, "Textures", "brick.texture"))
}

func TestPrepareProjectDirectory(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "Externals", "Textures", "brick.png"), 2)
	rs := newResourceSystem(t, root)

	project := filepath.Join(t.TempDir(), "project")
	require.NoError(t, rs.PrepareProjectDirectory(project))
	assert.FileExists(t, filepath.Join(project, "Externals", "Textures", "brick.png"))
	assert.FileExists(t, filepath.Join(project, "Textures", "brick.texture"))
	assert.DirExists(t, filepath.Join(project, "Meshes"))
}

func TestOnFileChangedConvertsNewExternalFile(t *testing.T) {
	root := t.TempDir()
	rs := newResourceSystem(t, root)

	source := filepath.Join(root, "Externals", "Textures", "stone.png")
	writePNG(t, source, 2)
	assert.Equal(t, 1, rs.OnFileChanged(source))
	texture := rs.GetTexture("stone")
	require.NotNil(t, texture)
	assert.Equal(t, uint32(2), texture.Width)

	// nothing changed since the conversion
	assert.Equal(t, 0, rs.OnFileChanged(source))

	writePNG(t, source, 4)
	later(t, source)
	assert.Equal(t, 1, rs.OnFileChanged(source))
	assert.Equal(t, uint32(4), rs.GetTexture("stone").Width)
}

func TestOnFileChangedSkipsUndecodableFile(t *testing.T) {
	root := t.TempDir()
	rs := newResourceSystem(t, root)

	source := filepath.Join(root, "Externals", "Textures", "broken.png")
	require.NoError(t, os.MkdirAll(filepath.Dir(source), 0o755))
	require.NoError(t, os.WriteFile(source, []byte("not an image"), 0o644))

	assert.Equal(t, 0, rs.OnFileChanged(source))
	assert.NotContains(t, rs.GetTextureNameList(), "broken")
	assert.Nil(t, rs.GetTexture("broken"))

	// fixed file: converted on the next change
	writePNG(t, source, 2)
	assert.Equal(t, 1, rs.OnFileChanged(source))
	assert.NotNil(t, rs.GetTexture("broken"))
}

func TestOnFileChangedAssemblesCubes(t *testing.T) {
	root := t.TempDir()
	rs := newResourceSystem(t, root)

	for _, face := range metadata.CubeFaceNames {
		source := filepath.Join(root, "Externals", "Textures", "sky_"+face+".png")
		writePNG(t, source, 2)
		rs.OnFileChanged(source)
	}
	cube := rs.GetTexture("sky")
	require.NotNil(t, cube)
	assert.Equal(t, metadata.TextureTypeCube, cube.TextureType)
}

func TestOnFileChangedReloadsShaderCascade(t *testing.T) {
	root := t.TempDir()
	shaderPath := filepath.Join(root, "Shaders", "default.glsl")
	require.NoError(t, os.MkdirAll(filepath.Dir(shaderPath), 0o755))
	require.NoError(t, os.WriteFile(shaderPath, []byte(defaultShader), 0o644))
	rs := newResourceSystem(t, root)

	ref := rs.GetDefaultMaterialInstance(false)
	require.True(t, ref.IsAlive())
	before := rs.Metrics().Reloads()

	later(t, shaderPath)
	assert.Equal(t, 1, rs.OnFileChanged(shaderPath))
	// the shader, the material generated from it and the instance using it
	assert.Equal(t, before+3, rs.Metrics().Reloads())

	skeletal, ok := resources.RefAs[*metadata.MaterialInstance](rs.GetDefaultMaterialInstance(true))
	require.True(t, ok)
	assert.Equal(t, metadata.DefaultSkeletalMaterialInstanceName, skeletal.Name)
}
