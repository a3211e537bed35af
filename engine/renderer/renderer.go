package renderer

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/**
 * @brief Front end of the renderer used by the loaders. It owns the backend
 * and the texture shown by the debug view.
 */
type Renderer struct {
	backend RendererBackend

	mu           sync.RWMutex
	debugTexture *metadata.Texture
}

func New(appName string, rendererType RendererType) (*Renderer, error) {
	var backend RendererBackend
	switch rendererType {
	case Headless:
		backend = NewHeadlessBackend()
	default:
		return nil, errors.Errorf("renderer backend %d is not available in this build", rendererType)
	}
	return NewWithBackend(appName, backend)
}

func NewWithBackend(appName string, backend RendererBackend) (*Renderer, error) {
	if err := backend.Initialize(appName); err != nil {
		return nil, errors.Wrap(err, "failed to initialize the renderer backend")
	}
	return &Renderer{backend: backend}, nil
}

func (r *Renderer) Backend() RendererBackend {
	return r.backend
}

func (r *Renderer) Shutdown() error {
	return r.backend.Shutdown()
}

func (r *Renderer) CompileProgram(name string, codes map[string]string, binaryFormat int, binary []byte) (metadata.Program, error) {
	program, err := r.backend.CompileProgram(name, codes, binaryFormat, binary)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to compile %s", name)
	}
	return program, nil
}

func (r *Renderer) TextureCreate(texture *metadata.Texture) bool {
	return r.backend.TextureCreate(texture)
}

func (r *Renderer) TextureDestroy(texture *metadata.Texture) {
	r.backend.TextureDestroy(texture)
}

// SetDebugTexture selects the texture the debug view displays.
func (r *Renderer) SetDebugTexture(texture *metadata.Texture) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debugTexture = texture
	if texture != nil {
		core.LogDebug("debug texture : %s", texture.Name)
	}
}

func (r *Renderer) DebugTexture() *metadata.Texture {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.debugTexture
}
