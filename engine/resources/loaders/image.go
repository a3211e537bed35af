package loaders

import (
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/anthonynsimon/bild/transform"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// edge bounds of a power of two texture
const (
	minPowerOfTwoSize = 4
	maxPowerOfTwoSize = 8192
)

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n && p < maxPowerOfTwoSize {
		p <<= 1
	}
	return math.Clamp(p, minPowerOfTwoSize, maxPowerOfTwoSize)
}

func isGray(model color.Model) bool {
	return model == color.GrayModel || model == color.Gray16Model
}

/**
 * @brief Decodes an image file into an RGBA texture. Rows are stored bottom
 * up and grayscale images are expanded to RGBA.
 * @param powerOfTwo Resize the image to the next power of two edges.
 */
func createTextureFromFile(textureName, sourceFilePath string, powerOfTwo bool) (*metadata.Texture, error) {
	file, err := os.Open(sourceFilePath)
	if err != nil {
		return nil, errors.Wrapf(core.ErrFileNotFound, "%s: %v", sourceFilePath, err)
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", sourceFilePath)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if powerOfTwo {
		width2, height2 := nextPowerOfTwo(width), nextPowerOfTwo(height)
		if width != width2 || height != height2 {
			core.LogInfo("Image Resized (%d, %d) -> (%d, %d) : %s", width, height, width2, height2, sourceFilePath)
			img = transform.Resize(img, width2, height2, transform.Linear)
			width, height = width2, height2
		}
	}
	if isGray(img.ColorModel()) {
		core.LogInfo("Convert Grayscale image to RGBA : %s", sourceFilePath)
	}

	// FlipV also normalises every color model to RGBA.
	flipped := transform.FlipV(img)
	core.LogDebug("decoded %s image %s (%dx%d)", format, sourceFilePath, width, height)

	return metadata.NewTexture(textureName, metadata.TextureData{
		TextureType: metadata.TextureType2d,
		ImageMode:   "RGBA",
		Width:       uint32(width),
		Height:      uint32(height),
		Data:        flipped.Pix,
		MinFilter:   metadata.TextureFilterModeLinear,
		MagFilter:   metadata.TextureFilterModeLinear,
		PowerOfTwo:  powerOfTwo,
	}), nil
}
