package loaders

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
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/resources"
	"github.com/spaghettifunk/prism/engine/scene"
)

func init() {
	core.SetLogOutput(io.Discard)
}

const testShaderSource = `#version 430 core
#include "common.glsl"

#ifdef MATERIAL_COMPONENTS
uniform vec4 base_color = vec4(1.0, 1.0, 1.0, 1.0);
uniform float roughness;
#endif

#ifdef GL_VERTEX_SHADER
void main() {}
#endif

#ifdef GL_FRAGMENT_SHADER
void main() {}
#endif
`

type fakeProgram struct {
	binary   []byte
	released bool
}

func (p *fakeProgram) Binary() (int, []byte, bool) {
	return 1, p.binary, true
}

func (p *fakeProgram) Release() {
	p.released = true
}

type fakeRenderer struct {
	compiles     int
	fail         bool
	debugTexture *metadata.Texture
}

func (r *fakeRenderer) CompileProgram(name string, codes map[string]string, binaryFormat int, binary []byte) (metadata.Program, error) {
	if r.fail || len(codes) == 0 {
		return nil, errors.Errorf("cannot compile %s", name)
	}
	r.compiles++
	return &fakeProgram{binary: []byte(name)}, nil
}

func (r *fakeRenderer) SetDebugTexture(texture *metadata.Texture) {
	r.debugTexture = texture
}

type testEnv struct {
	root     string
	reg      *Registry
	renderer *fakeRenderer
	scenes   *scene.Manager
	metrics  *core.Metrics
}

// newTestEnv builds and initializes every loader over root.
func newTestEnv(t *testing.T, root string) *testEnv {
	t.Helper()
	env := &testEnv{
		root:     root,
		renderer: &fakeRenderer{},
		scenes:   scene.NewManager(),
		metrics:  core.NewMetrics(),
	}
	env.reg = NewRegistry(resources.Environment{RootPath: root, Metrics: env.metrics}, env.renderer, env.scenes, DefaultOptions())
	env.reg.CreateLoaders()
	for _, l := range env.reg.Loaders() {
		require.NoError(t, l.Initialize())
	}
	return env
}

// writeShaders writes the default shader and the file it includes.
func writeShaders(t *testing.T, root string) (string, string) {
	t.Helper()
	common := filepath.Join(root, "Shaders", "common.glsl")
	writeFile(t, common, "uniform vec3 camera_position;\n")
	shader := filepath.Join(root, "Shaders", "default.glsl")
	writeFile(t, shader, testShaderSource)
	return shader, common
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writePNG(t *testing.T, path string, width, height int, c color.Color) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()
	require.NoError(t, png.Encode(file, img))
}

// touch moves the modification time of path forward so that time based
// checks see a change even on coarse filesystems.
func touch(t *testing.T, path string, offset time.Duration) {
	t.Helper()
	ts := time.Now().Add(offset)
	require.NoError(t, os.Chtimes(path, ts, ts))
}
