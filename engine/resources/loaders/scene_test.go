package loaders

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/resources"
)

func TestSceneSaveAndLoad(t *testing.T) {
	root := t.TempDir()
	writeShaders(t, root)
	env := newTestEnv(t, root)

	env.scenes.NewScene("level")
	require.True(t, env.reg.Models.OpenResource(quadMeshName))
	require.True(t, env.reg.Scenes.SaveResource("level"))
	assert.False(t, env.reg.Scenes.SaveResource("other"))
	assert.FileExists(t, filepath.Join(root, "Scenes", "level.scene"))

	env.scenes.CloseScene()
	require.True(t, env.reg.Scenes.OpenResource("level"))
	assert.Equal(t, "level", env.scenes.CurrentSceneName())

	current := env.scenes.CurrentScene()
	require.Len(t, current.StaticActors, 1)
	actor := current.StaticActors[0]
	assert.Equal(t, quadMeshName, actor.Name)
	model, ok := resources.RefAs[*metadata.Model](actor.Model)
	require.True(t, ok)
	assert.Equal(t, quadMeshName, model.Name)
	assert.InDelta(t, 1.0, actor.Transform.Scale.Y, 1e-6)
}

func TestSceneKeepsUnknownModelNames(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Scenes", "ruins.scene"),
		"name: ruins\nstatic_actors:\n  - name: pillar\n    model: pillar\n")
	env := newTestEnv(t, root)

	require.True(t, env.reg.Scenes.LoadResource("ruins"))
	current := env.scenes.CurrentScene()
	require.NotNil(t, current)
	assert.Equal(t, []string{"pillar"}, current.ModelNames())
	assert.False(t, current.StaticActors[0].Model.IsAlive())
}

func TestFontConvertsTrueType(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "Externals", "Fonts", "go.ttf")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, goregular.TTF, 0o644))
	env := newTestEnv(t, root)

	f := env.reg.Fonts.GetFont("go")
	require.NotNil(t, f)
	// the Go font has no hangul glyph
	assert.Equal(t, []string{"ascii"}, f.Languages())

	atlas := f["ascii"]
	require.NotNil(t, atlas.Texture)
	assert.Equal(t, "go_Basic Latin", atlas.Texture.Name)
	assert.Equal(t, uint32(metadata.FontSize), atlas.FontSize)
	assert.Equal(t, int(atlas.ImageWidth*atlas.ImageHeight*4), len(atlas.ImageData))
	assert.Greater(t, atlas.LineHeight, int32(0))

	var space *metadata.FontGlyph
	for i := range atlas.Glyphs {
		if atlas.Glyphs[i].Codepoint == ' ' {
			space = &atlas.Glyphs[i]
		}
	}
	require.NotNil(t, space)
	assert.Greater(t, space.XAdvance, int16(0))
	assert.FileExists(t, filepath.Join(root, "Fonts", "go.font"))
}

func TestFontLoadReplacesPayload(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "Externals", "Fonts", "go.ttf")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, goregular.TTF, 0o644))
	env := newTestEnv(t, root)

	first := env.reg.Fonts.GetFont("go")
	require.NotNil(t, first)
	require.True(t, env.reg.Fonts.LoadResource("go"))
	second := env.reg.Fonts.GetFont("go")
	require.NotNil(t, second)
	assert.NotSame(t, first["ascii"], second["ascii"])
	assert.Equal(t, first.Languages(), second.Languages())
}
