package renderer

import (
	"crypto/sha1"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// HeadlessBinaryFormat tags the program binaries produced by the headless backend.
const HeadlessBinaryFormat = 0x7A11

type headlessProgram struct {
	name   string
	binary []byte
}

func (p *headlessProgram) Binary() (int, []byte, bool) {
	return HeadlessBinaryFormat, p.binary, true
}

func (p *headlessProgram) Release() {}

/**
 * @brief A backend without a GPU. Programs are validated and fingerprinted,
 * textures are only counted.
 */
type HeadlessBackend struct {
	mu       sync.Mutex
	programs int
	textures map[*metadata.Texture]struct{}
}

func NewHeadlessBackend() *HeadlessBackend {
	return &HeadlessBackend{
		textures: make(map[*metadata.Texture]struct{}),
	}
}

func (b *HeadlessBackend) Initialize(appName string) error {
	core.LogInfo("%s uses the headless renderer backend", appName)
	return nil
}

func (b *HeadlessBackend) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.textures = make(map[*metadata.Texture]struct{})
	return nil
}

func fingerprint(codes map[string]string) []byte {
	h := sha1.New()
	for _, stage := range metadata.ShaderStages {
		if code, ok := codes[stage]; ok {
			h.Write([]byte(stage))
			h.Write([]byte(code))
		}
	}
	return h.Sum(nil)
}

func (b *HeadlessBackend) CompileProgram(name string, codes map[string]string, binaryFormat int, binary []byte) (metadata.Program, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	expected := fingerprint(codes)
	if binaryFormat == HeadlessBinaryFormat && string(binary) == string(expected) {
		b.programs++
		return &headlessProgram{name: name, binary: binary}, nil
	}

	if len(codes) == 0 {
		return nil, errors.Errorf("%s has no shader stage", name)
	}
	for stage, code := range codes {
		if !strings.Contains(metadata.PreprocessedSource(code), "main") {
			return nil, errors.Errorf("%s: %s has no entry point", name, stage)
		}
	}
	b.programs++
	return &headlessProgram{name: name, binary: expected}, nil
}

func (b *HeadlessBackend) TextureCreate(texture *metadata.Texture) bool {
	if texture == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.textures[texture] = struct{}{}
	return true
}

func (b *HeadlessBackend) TextureDestroy(texture *metadata.Texture) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.textures, texture)
}

func (b *HeadlessBackend) ProgramCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.programs
}
