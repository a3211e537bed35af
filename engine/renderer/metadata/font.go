package metadata

import (
	"sort"

	"github.com/spaghettifunk/prism/engine/resources"
)

// FontSize is the pixel size glyphs are rasterized at.
const FontSize = 20

/** @brief A unicode block a font atlas is generated for. */
type FontLanguage struct {
	Name        string
	UnicodeName string
	RangeMin    int32
	RangeMax    int32
}

var FontLanguages = []FontLanguage{
	{Name: "ascii", UnicodeName: "Basic Latin", RangeMin: 0x20, RangeMax: 0x7F},
	{Name: "korean", UnicodeName: "Hangul Syllables", RangeMin: 0xAC00, RangeMax: 0xD7AF},
}

type FontGlyph struct {
	Codepoint int32
	X         uint16
	Y         uint16
	Width     uint16
	Height    uint16
	XOffset   int16
	YOffset   int16
	XAdvance  int16
	PageID    uint8
}

type FontKerning struct {
	Codepoint0 int32
	Codepoint1 int32
	Amount     int16
}

/**
 * @brief The atlas of one language of a font.
 */
type FontLanguageData struct {
	UnicodeName string
	RangeMin    int32
	RangeMax    int32
	FontSize    uint32
	LineHeight  int32
	Baseline    int32
	/** @brief Glyph cells per atlas row. */
	CountOfHorizontal int32
	ImageMode         string
	ImageWidth        uint32
	ImageHeight       uint32
	ImageData         []byte
	Glyphs            []FontGlyph
	Kernings          []FontKerning
}

// TextureName is the name of the atlas texture of a language.
func (d *FontLanguageData) TextureName(fontName string) string {
	return fontName + "_" + d.UnicodeName
}

/** @brief The saved form of a font: atlas data by language name. */
type FontData map[string]*FontLanguageData

/** @brief An atlas with its texture attached. */
type FontAtlas struct {
	*FontLanguageData
	Texture *Texture
}

/**
 * @brief A font payload maps a language name to its atlas. It is replaced as
 * a whole on every load.
 */
type Font map[string]*FontAtlas

func (f Font) Languages() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f Font) SaveData() any {
	data := make(FontData, len(f))
	for name, atlas := range f {
		data[name] = atlas.FontLanguageData
	}
	return data
}

func (f Font) Attributes() []resources.Attribute {
	attributes := []resources.Attribute{
		{Name: "languages", Value: resources.StringListValue(f.Languages()), ReadOnly: true},
	}
	for _, name := range f.Languages() {
		atlas := f[name]
		attributes = append(attributes, resources.Attribute{
			Name:     name,
			Value:    resources.VectorValue(float32(atlas.ImageWidth), float32(atlas.ImageHeight)),
			ReadOnly: true,
		})
	}
	return attributes
}

func (f Font) SetAttribute(name string, value resources.AttributeValue, index int) bool {
	return false
}
