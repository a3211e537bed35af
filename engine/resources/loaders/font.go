package loaders

import (
	"image"
	"image/draw"
	stdmath "math"
	"os"
	"path/filepath"
	"strings"

	"github.com/fzipp/bmfont"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/resources"
)

const (
	fontPadding = 1
	// kerning pairs are only collected for small ranges
	maxKerningGlyphs = 256
)

/**
 * @brief Converts TrueType, OpenType and BMFont files into per-language
 * glyph atlases.
 */
type FontLoader struct {
	*resources.BaseLoader
	reg *Registry
}

func NewFontLoader(reg *Registry) *FontLoader {
	l := &FontLoader{reg: reg}
	l.BaseLoader = resources.NewBaseLoader(resources.LoaderConfig{
		Name:             "FontLoader",
		ResourceDirName:  "Fonts",
		ResourceTypeName: metadata.ResourceTypeFont,
		FileExt:          ".font",
		ExternalDirNames: []string{filepath.Join(resources.ExternalsDirName, "Fonts")},
		ExternalFileExt: map[string]string{
			"TTF": ".ttf",
			"OTF": ".otf",
			"FNT": ".fnt",
		},
		Encoding: resources.EncodingCompressed,
	}, reg.Env, l)
	reg.Fonts = l
	return l
}

func isVectorFont(sourceFilePath string) bool {
	ext := strings.ToLower(filepath.Ext(sourceFilePath))
	return ext == ".ttf" || ext == ".otf"
}

// checkFontData generates the languages missing from data and saves the
// result when anything was added.
func (l *FontLoader) checkFontData(data metadata.FontData, resource *resources.Resource, sourceFilePath string) metadata.FontData {
	if !isVectorFont(sourceFilePath) {
		return data
	}
	var missing []metadata.FontLanguage
	for _, language := range metadata.FontLanguages {
		if _, ok := data[language.Name]; !ok {
			missing = append(missing, language)
		}
	}
	if len(missing) == 0 {
		return data
	}

	generated, err := generateFontData(sourceFilePath, l.reg.Options.FontSize, missing)
	if err != nil {
		core.LogFailure(err, "Failed to generate font data : %s", sourceFilePath)
		l.Metrics().AddFailure()
		return data
	}
	for name, languageData := range generated {
		data[name] = languageData
	}
	if len(generated) > 0 {
		l.SaveResourceData(resource, data, sourceFilePath)
	}
	return data
}

func (l *FontLoader) ConvertResource(resource *resources.Resource, sourceFilePath string) bool {
	core.LogInfo("Convert Resource : %s", sourceFilePath)
	data := metadata.FontData{}
	if !isVectorFont(sourceFilePath) {
		languageData, err := importFNTFile(sourceFilePath)
		if err != nil {
			core.LogFailure(err, "Failed to convert resource : %s", sourceFilePath)
			l.Metrics().AddFailure()
			return false
		}
		data[metadata.FontLanguages[0].Name] = languageData
		l.Metrics().AddConversion()
		return l.SaveResourceData(resource, data, sourceFilePath)
	}
	data = l.checkFontData(data, resource, sourceFilePath)
	if len(data) == 0 {
		return false
	}
	l.Metrics().AddConversion()
	return true
}

func (l *FontLoader) LoadResource(name string) bool {
	resource := l.GetResource(name)
	if resource == nil {
		core.LogError("%s failed to load %s", l.Config().Name, name)
		return false
	}
	data := metadata.FontData{}
	if !l.LoadResourceData(resource, &data) || len(data) == 0 {
		core.LogError("%s failed to load %s", l.Config().Name, name)
		return false
	}
	data = l.checkFontData(data, resource, resource.MetaData.SourceFilePath)

	payload := make(metadata.Font, len(data))
	for language, languageData := range data {
		atlas := &metadata.FontAtlas{FontLanguageData: languageData}
		if languageData != nil && languageData.ImageData != nil {
			atlas.Texture = metadata.NewTexture(languageData.TextureName(resource.Name), metadata.TextureData{
				TextureType: metadata.TextureType2d,
				ImageMode:   languageData.ImageMode,
				Width:       languageData.ImageWidth,
				Height:      languageData.ImageHeight,
				Data:        languageData.ImageData,
				MinFilter:   metadata.TextureFilterModeLinear,
				MagFilter:   metadata.TextureFilterModeLinear,
			})
		}
		payload[language] = atlas
	}
	resource.SetData(payload)
	markLoaded(resource, l.Metrics())
	return true
}

// GetFont returns the font payload called name, loading it when needed.
func (l *FontLoader) GetFont(name string) metadata.Font {
	f, _ := resources.DataAs[metadata.Font](l.FindResource(name))
	return f
}

func parseVectorFont(sourceFilePath string) (*sfnt.Font, error) {
	fontBytes, err := os.ReadFile(sourceFilePath)
	if err != nil {
		return nil, errors.Wrapf(core.ErrFileNotFound, "%s: %v", sourceFilePath, err)
	}
	collection, err := opentype.ParseCollection(fontBytes)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", sourceFilePath)
	}
	f, err := collection.Font(0)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read the first face of %s", sourceFilePath)
	}
	return f, nil
}

/**
 * @brief Rasterizes the glyphs of every language into an RGBA atlas. Glyphs
 * the font does not have are skipped and a language without any glyph is
 * left out of the result.
 */
func generateFontData(sourceFilePath string, fontSize uint32, languages []metadata.FontLanguage) (metadata.FontData, error) {
	f, err := parseVectorFont(sourceFilePath)
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(fontSize),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create a face of %s", sourceFilePath)
	}
	defer face.Close()

	data := metadata.FontData{}
	var buf sfnt.Buffer
	for _, language := range languages {
		var runes []rune
		for r := rune(language.RangeMin); r <= rune(language.RangeMax); r++ {
			if index, err := f.GlyphIndex(&buf, r); err == nil && index != 0 {
				runes = append(runes, r)
			}
		}
		if len(runes) == 0 {
			core.LogWarn("%s has no glyph of %s", sourceFilePath, language.UnicodeName)
			continue
		}
		data[language.Name] = rasterizeAtlas(face, language, fontSize, runes)
		core.LogInfo("Generate font atlas %s : %s (%d glyphs)", language.UnicodeName, sourceFilePath, len(runes))
	}
	return data, nil
}

func rasterizeAtlas(face font.Face, language metadata.FontLanguage, fontSize uint32, runes []rune) *metadata.FontLanguageData {
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	lineHeight := metrics.Height.Ceil()
	if h := ascent + metrics.Descent.Ceil(); h > lineHeight {
		lineHeight = h
	}
	cell := lineHeight + fontPadding*2

	countOfHorizontal := int(stdmath.Ceil(stdmath.Sqrt(float64(len(runes)))))
	rows := (len(runes) + countOfHorizontal - 1) / countOfHorizontal
	atlas := image.NewAlpha(image.Rect(0, 0, countOfHorizontal*cell, rows*cell))

	data := &metadata.FontLanguageData{
		UnicodeName:       language.UnicodeName,
		RangeMin:          language.RangeMin,
		RangeMax:          language.RangeMax,
		FontSize:          fontSize,
		LineHeight:        int32(lineHeight),
		Baseline:          int32(ascent),
		CountOfHorizontal: int32(countOfHorizontal),
		ImageMode:         "RGBA",
		ImageWidth:        uint32(atlas.Bounds().Dx()),
		ImageHeight:       uint32(atlas.Bounds().Dy()),
	}

	for i, r := range runes {
		x := (i % countOfHorizontal) * cell
		y := (i / countOfHorizontal) * cell
		dot := fixed.P(x+fontPadding, y+fontPadding+ascent)
		dr, mask, maskp, advance, ok := face.Glyph(dot, r)
		if ok {
			draw.DrawMask(atlas, dr, image.Opaque, image.Point{}, mask, maskp, draw.Over)
		}
		data.Glyphs = append(data.Glyphs, metadata.FontGlyph{
			Codepoint: int32(r),
			X:         uint16(x),
			Y:         uint16(y),
			Width:     uint16(cell),
			Height:    uint16(cell),
			XAdvance:  int16(advance.Round()),
		})
	}

	if len(runes) <= maxKerningGlyphs {
		for _, r0 := range runes {
			for _, r1 := range runes {
				if amount := face.Kern(r0, r1).Round(); amount != 0 {
					data.Kernings = append(data.Kernings, metadata.FontKerning{
						Codepoint0: int32(r0),
						Codepoint1: int32(r1),
						Amount:     int16(amount),
					})
				}
			}
		}
	}

	// white glyphs, the coverage goes to the alpha channel
	data.ImageData = make([]byte, len(atlas.Pix)*4)
	for i, coverage := range atlas.Pix {
		data.ImageData[i*4] = 0xFF
		data.ImageData[i*4+1] = 0xFF
		data.ImageData[i*4+2] = 0xFF
		data.ImageData[i*4+3] = coverage
	}
	return data
}

/**
 * @brief Imports a BMFont descriptor and its first page sheet as an ascii
 * atlas.
 */
func importFNTFile(fntFileName string) (*metadata.FontLanguageData, error) {
	f, err := bmfont.Load(fntFileName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", fntFileName)
	}
	desc := f.Descriptor
	ascii := metadata.FontLanguages[0]

	size := desc.Info.Size
	if size < 0 {
		size = -size
	}
	data := &metadata.FontLanguageData{
		UnicodeName: ascii.UnicodeName,
		RangeMin:    ascii.RangeMin,
		RangeMax:    ascii.RangeMax,
		FontSize:    uint32(size),
		LineHeight:  int32(desc.Common.LineHeight),
		Baseline:    int32(desc.Common.Base),
		ImageMode:   "RGBA",
		ImageWidth:  uint32(desc.Common.ScaleW),
		ImageHeight: uint32(desc.Common.ScaleH),
	}

	for _, g := range desc.Chars {
		data.Glyphs = append(data.Glyphs, metadata.FontGlyph{
			Codepoint: int32(g.ID),
			X:         uint16(g.X),
			Y:         uint16(g.Y),
			Width:     uint16(g.Width),
			Height:    uint16(g.Height),
			XOffset:   int16(g.XOffset),
			YOffset:   int16(g.YOffset),
			XAdvance:  int16(g.XAdvance),
			PageID:    uint8(g.Page),
		})
	}
	for p, k := range desc.Kerning {
		data.Kernings = append(data.Kernings, metadata.FontKerning{
			Codepoint0: int32(p.First),
			Codepoint1: int32(p.Second),
			Amount:     int16(k.Amount),
		})
	}

	for _, page := range desc.Pages {
		if page.ID != 0 {
			continue
		}
		sheet, err := readPageSheet(filepath.Join(filepath.Dir(fntFileName), page.File))
		if err != nil {
			return nil, err
		}
		data.ImageWidth = uint32(sheet.Bounds().Dx())
		data.ImageHeight = uint32(sheet.Bounds().Dy())
		data.ImageData = sheet.Pix
	}
	return data, nil
}

func readPageSheet(path string) (*image.RGBA, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(core.ErrFileNotFound, "%s: %v", path, err)
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba, nil
}
