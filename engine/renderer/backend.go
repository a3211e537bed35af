package renderer

import "github.com/spaghettifunk/prism/engine/renderer/metadata"

// RendererBackend is the part of a graphics backend the resource pipeline
// talks to.
type RendererBackend interface {
	Initialize(appName string) error
	Shutdown() error
	// CompileProgram links the stage codes of a material. A non empty binary
	// is tried first and the codes are compiled when the driver rejects it.
	CompileProgram(name string, codes map[string]string, binaryFormat int, binary []byte) (metadata.Program, error)
	TextureCreate(texture *metadata.Texture) bool
	TextureDestroy(texture *metadata.Texture)
}

type RendererType uint8

const (
	Headless RendererType = iota
	OpenGL
	Vulkan
)

var rendererTypeNames = map[string]RendererType{
	"headless": Headless,
	"opengl":   OpenGL,
	"vulkan":   Vulkan,
}

func ParseRendererType(name string) (RendererType, bool) {
	t, ok := rendererTypeNames[name]
	return t, ok
}
