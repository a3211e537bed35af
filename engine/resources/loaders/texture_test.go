package loaders

import (
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/resources"
)

func TestNextPowerOfTwo(t *testing.T) {
	assert.Equal(t, 4, nextPowerOfTwo(1))
	assert.Equal(t, 4, nextPowerOfTwo(4))
	assert.Equal(t, 8, nextPowerOfTwo(5))
	assert.Equal(t, 256, nextPowerOfTwo(256))
	assert.Equal(t, 512, nextPowerOfTwo(257))
}

func TestTextureBuiltins(t *testing.T) {
	env := newTestEnv(t, t.TempDir())

	empty := env.reg.Textures.GetTexture(metadata.DefaultTextureName)
	require.NotNil(t, empty)
	assert.Equal(t, metadata.TextureType2d, empty.TextureType)

	texture3d := env.reg.Textures.GetTexture(default3DTextureName)
	require.NotNil(t, texture3d)
	assert.Equal(t, metadata.TextureType3d, texture3d.TextureType)
	assert.Equal(t, metadata.TextureFilterModeNearest, texture3d.MinFilter)
	assert.Equal(t, metadata.TextureFilterModeNearest, texture3d.MagFilter)
}

func TestTextureConvertsExternalImage(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "Externals", "Textures", "brick.png"), 3, 2, color.NRGBA{R: 200, A: 255})
	env := newTestEnv(t, root)

	texture := env.reg.Textures.GetTexture("brick")
	require.NotNil(t, texture)
	assert.Equal(t, uint32(3), texture.Width)
	assert.Equal(t, uint32(2), texture.Height)
	assert.Equal(t, "RGBA", texture.ImageMode)
	require.Len(t, texture.Data, 3*2*4)
	assert.Equal(t, []byte{200, 0, 0, 255}, texture.Data[:4])
	assert.FileExists(t, filepath.Join(root, "Textures", "brick.texture"))

	metaData := env.reg.Textures.GetMetaData("brick")
	require.NotNil(t, metaData)
	assert.Equal(t, resources.NormalizeResourcePath(filepath.Join(root, "Externals", "Textures", "brick.png")), metaData.SourceFilePath)
}

func TestTextureDropsUndecodableSource(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Externals", "Textures", "broken.png"), "not an image")
	writeFile(t, filepath.Join(root, "Externals", "Textures", "rock.tga"), "\x00\x00\x02")
	env := newTestEnv(t, root)

	names := env.reg.Textures.GetResourceNameList()
	assert.NotContains(t, names, "broken")
	assert.NotContains(t, names, "rock")
	assert.Nil(t, env.reg.Textures.FindResource("broken"))
	assert.Nil(t, env.reg.Textures.GetTexture("broken"))
	assert.NoFileExists(t, filepath.Join(root, "Textures", "broken.texture"))
	assert.NoFileExists(t, filepath.Join(root, "Textures", "broken.meta"))
}

func TestTextureResizesToPowerOfTwo(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "Externals", "Textures", "odd.png"), 5, 3, color.NRGBA{G: 255, A: 255})
	env := newTestEnv(t, root)
	env.reg.Options.TexturePowerOfTwo = true

	resource := env.reg.Textures.FindResource("odd")
	require.NotNil(t, resource)
	require.True(t, env.reg.Textures.ConvertResource(resource, filepath.Join(root, "Externals", "Textures", "odd.png")))

	texture := env.reg.Textures.GetTexture("odd")
	require.NotNil(t, texture)
	assert.Equal(t, uint32(8), texture.Width)
	assert.Equal(t, uint32(4), texture.Height)
	assert.Len(t, texture.Data, 8*4*4)
}

func TestTextureReconvertsChangedSource(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "Externals", "Textures", "brick.png")
	writePNG(t, source, 2, 2, color.NRGBA{R: 255, A: 255})
	newTestEnv(t, root)

	writePNG(t, source, 4, 4, color.NRGBA{B: 255, A: 255})
	touch(t, source, time.Hour)
	env := newTestEnv(t, root)

	texture := env.reg.Textures.GetTexture("brick")
	require.NotNil(t, texture)
	assert.Equal(t, uint32(4), texture.Width)
}

func TestCubeTextureAssembly(t *testing.T) {
	root := t.TempDir()
	for _, face := range metadata.CubeFaceNames {
		writePNG(t, filepath.Join(root, "Externals", "Textures", "sky_"+face+".png"), 2, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	}
	// an incomplete cube is ignored
	writePNG(t, filepath.Join(root, "Externals", "Textures", "half_top.png"), 2, 2, color.White)
	env := newTestEnv(t, root)

	cube := env.reg.Textures.GetTexture("sky")
	require.NotNil(t, cube)
	assert.Equal(t, metadata.TextureTypeCube, cube.TextureType)
	assert.Equal(t, metadata.TextureRepeatClampToEdge, cube.Wrap)
	assert.Equal(t, uint32(2), cube.Width)
	require.Len(t, cube.Faces, len(metadata.CubeFaceNames))
	for i, face := range metadata.CubeFaceNames {
		texture, ok := resources.RefAs[*metadata.Texture](cube.Faces[i])
		require.True(t, ok, face)
		assert.Equal(t, "sky_"+face, texture.Name)
	}
	assert.Nil(t, env.reg.Textures.FindResource("half"))
	assert.FileExists(t, filepath.Join(root, "Textures", "sky.texture"))

	// the saved cube resolves its faces again after a restart
	restarted := newTestEnv(t, root)
	cube = restarted.reg.Textures.GetTexture("sky")
	require.NotNil(t, cube)
	top, ok := resources.RefAs[*metadata.Texture](cube.Faces[2])
	require.True(t, ok)
	assert.Equal(t, "sky_top", top.Name)
}

func TestOpenTextureSetsDebugTexture(t *testing.T) {
	env := newTestEnv(t, t.TempDir())
	require.True(t, env.reg.Textures.OpenResource(metadata.DefaultTextureName))
	require.NotNil(t, env.renderer.debugTexture)
	assert.Equal(t, metadata.DefaultTextureName, env.renderer.debugTexture.Name)
}
