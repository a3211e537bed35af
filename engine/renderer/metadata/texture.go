package metadata

import (
	"strings"

	"github.com/spaghettifunk/prism/engine/resources"
)

/**
 * @brief Represents various types of textures.
 */
type TextureType int

const (
	/** @brief A standard two-dimensional texture. */
	TextureType2d TextureType = iota
	/** @brief A volume texture. */
	TextureType3d
	/** @brief A cube texture, used for cubemaps. */
	TextureTypeCube
)

var textureTypeNames = []string{"2D", "3D", "Cube"}

func (t TextureType) String() string {
	if int(t) < len(textureTypeNames) {
		return textureTypeNames[t]
	}
	return "unknown"
}

/** @brief Represents supported texture filtering modes. */
type TextureFilter int

const (
	/** @brief Nearest-neighbor filtering. */
	TextureFilterModeNearest TextureFilter = 0x0
	/** @brief Linear (i.e. bilinear) filtering.*/
	TextureFilterModeLinear TextureFilter = 0x1
)

type TextureRepeat int

const (
	TextureRepeatRepeat         TextureRepeat = 0x1
	TextureRepeatMirroredRepeat TextureRepeat = 0x2
	TextureRepeatClampToEdge    TextureRepeat = 0x3
	TextureRepeatClampToBorder  TextureRepeat = 0x4
)

// CubeFaceNames are the file name suffixes of the six cube faces, in the
// order positive x, negative x, positive y, negative y, positive z, negative z.
var CubeFaceNames = [6]string{"right", "left", "top", "bottom", "front", "back"}

// CubeFaceSuffix returns the cube name and face index of a texture called
// <cube>_<face>, or false.
func CubeFaceSuffix(textureName string) (string, int, bool) {
	for i, face := range CubeFaceNames {
		suffix := "_" + face
		if strings.HasSuffix(textureName, suffix) && len(textureName) > len(suffix) {
			return strings.TrimSuffix(textureName, suffix), i, true
		}
	}
	return "", 0, false
}

/**
 * @brief The saved form of a texture.
 */
type TextureData struct {
	TextureType TextureType
	/** @brief The channel layout of Data, RGBA or RGB. */
	ImageMode string
	Width     uint32
	Height    uint32
	Depth     uint32
	/** @brief The raw pixels, empty for a cube texture. */
	Data      []byte
	MinFilter TextureFilter
	MagFilter TextureFilter
	Wrap      TextureRepeat
	/** @brief The names of the face textures of a cube texture. */
	CubeFaces []string
	/** @brief Whether the texture was resized to a power of two. */
	PowerOfTwo bool
}

/**
 * @brief Represents a texture.
 */
type Texture struct {
	Name string
	TextureData
	/** @brief The resolved face textures of a cube texture. */
	Faces []resources.Ref
}

// Face returns the current payload of the cube face at index.
func (t *Texture) Face(index int) *Texture {
	if index < 0 || index >= len(t.Faces) {
		return nil
	}
	face, _ := resources.RefAs[*Texture](t.Faces[index])
	return face
}

func NewTexture(name string, data TextureData) *Texture {
	if data.ImageMode == "" {
		data.ImageMode = "RGBA"
	}
	if data.Depth == 0 {
		data.Depth = 1
	}
	if data.Wrap == 0 {
		data.Wrap = TextureRepeatRepeat
	}
	return &Texture{Name: name, TextureData: data}
}

// ChannelCount returns the bytes per pixel of the image mode.
func (t *Texture) ChannelCount() int {
	return len(t.ImageMode)
}

func (t *Texture) SaveData() any {
	return t.TextureData
}

func (t *Texture) SetResourceName(name string) {
	t.Name = name
}

func (t *Texture) Attributes() []resources.Attribute {
	attributes := []resources.Attribute{
		{Name: "name", Value: resources.StringValue(t.Name)},
		{Name: "texture_type", Value: resources.StringValue(t.TextureType.String()), ReadOnly: true},
		{Name: "image_mode", Value: resources.StringValue(t.ImageMode), ReadOnly: true},
		{Name: "width", Value: resources.IntValue(int64(t.Width)), ReadOnly: true},
		{Name: "height", Value: resources.IntValue(int64(t.Height)), ReadOnly: true},
		{Name: "depth", Value: resources.IntValue(int64(t.Depth)), ReadOnly: true},
		{Name: "min_filter", Value: resources.IntValue(int64(t.MinFilter))},
		{Name: "mag_filter", Value: resources.IntValue(int64(t.MagFilter))},
		{Name: "wrap", Value: resources.IntValue(int64(t.Wrap))},
	}
	if t.TextureType == TextureTypeCube {
		attributes = append(attributes, resources.Attribute{Name: "cube_faces", Value: resources.StringListValue(t.CubeFaces), ReadOnly: true})
	}
	return attributes
}

func (t *Texture) SetAttribute(name string, value resources.AttributeValue, index int) bool {
	if value.Kind != resources.AttributeKindInt {
		return false
	}
	switch name {
	case "min_filter":
		t.MinFilter = TextureFilter(value.Int)
	case "mag_filter":
		t.MagFilter = TextureFilter(value.Int)
	case "wrap":
		t.Wrap = TextureRepeat(value.Int)
	default:
		return false
	}
	return true
}

// GenerateCheckerboardTexture creates a blue/white checkerboard, used when a
// texture cannot be resolved.
func GenerateCheckerboardTexture(name string, dimension uint32) *Texture {
	const channels = 4
	pixels := make([]uint8, dimension*dimension*channels)
	for i := range pixels {
		pixels[i] = 255
	}
	for row := uint32(0); row < dimension; row++ {
		for col := uint32(0); col < dimension; col++ {
			index := ((row * dimension) + col) * channels
			if (row%2 != 0) == (col%2 != 0) {
				pixels[index+0] = 0
				pixels[index+1] = 0
			}
		}
	}
	return NewTexture(name, TextureData{
		TextureType: TextureType2d,
		ImageMode:   "RGBA",
		Width:       dimension,
		Height:      dimension,
		Data:        pixels,
		MinFilter:   TextureFilterModeNearest,
		MagFilter:   TextureFilterModeNearest,
	})
}

// GenerateGradient3DTexture creates a size^3 RGBA volume whose channels ramp
// along x, y and z.
func GenerateGradient3DTexture(name string, size uint32) *Texture {
	const channels = 4
	pixels := make([]uint8, size*size*size*channels)
	scale := float32(255)
	if size > 1 {
		scale = 255 / float32(size-1)
	}
	for z := uint32(0); z < size; z++ {
		for y := uint32(0); y < size; y++ {
			for x := uint32(0); x < size; x++ {
				index := (((z*size)+y)*size + x) * channels
				pixels[index+0] = uint8(float32(x) * scale)
				pixels[index+1] = uint8(float32(y) * scale)
				pixels[index+2] = uint8(float32(z) * scale)
				pixels[index+3] = 255
			}
		}
	}
	return NewTexture(name, TextureData{
		TextureType: TextureType3d,
		ImageMode:   "RGBA",
		Width:       size,
		Height:      size,
		Depth:       size,
		Data:        pixels,
		MinFilter:   TextureFilterModeLinear,
		MagFilter:   TextureFilterModeLinear,
		Wrap:        TextureRepeatClampToEdge,
	})
}
