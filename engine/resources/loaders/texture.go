package loaders

import (
	"path/filepath"

	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/resources"
)

const (
	defaultTextureDimension = 16
	default3DTextureSize    = 64
	default3DTextureName    = "default_3d"
)

/**
 * @brief Converts images into compressed texture files and assembles cube
 * textures from six face textures named <cube>_<face>.
 */
type TextureLoader struct {
	*resources.BaseLoader
	reg *Registry

	/** @brief Textures converted since the cube textures were last assembled. */
	newTextureList []string
}

func NewTextureLoader(reg *Registry) *TextureLoader {
	l := &TextureLoader{reg: reg}
	l.BaseLoader = resources.NewBaseLoader(resources.LoaderConfig{
		Name:             "TextureLoader",
		ResourceDirName:  "Textures",
		ResourceTypeName: metadata.ResourceTypeTexture,
		ResourceVersion:  2,
		FileExt:          ".texture",
		ExternalDirNames: []string{filepath.Join(resources.ExternalsDirName, "Textures")},
		ExternalFileExt: map[string]string{
			"GIF":  ".gif",
			"JPG":  ".jpg",
			"JPEG": ".jpeg",
			"PNG":  ".png",
			"BMP":  ".bmp",
			"TIF":  ".tif",
			"TIFF": ".tiff",
			"WEBP": ".webp",
		},
		Encoding: resources.EncodingCompressed,
	}, reg.Env, l)
	reg.Textures = l
	return l
}

func (l *TextureLoader) Initialize() error {
	if err := l.BaseLoader.Initialize(); err != nil {
		return err
	}
	l.registBuiltin(metadata.GenerateCheckerboardTexture(metadata.DefaultTextureName, defaultTextureDimension))
	l.GenerateCubeTextures()

	texture3d := metadata.GenerateGradient3DTexture(default3DTextureName, default3DTextureSize)
	texture3d.MinFilter = metadata.TextureFilterModeNearest
	texture3d.MagFilter = metadata.TextureFilterModeNearest
	l.registBuiltin(texture3d)
	return nil
}

// registBuiltin registers a generated texture unless a saved one exists.
func (l *TextureLoader) registBuiltin(texture *metadata.Texture) {
	if l.FindResource(texture.Name) != nil {
		return
	}
	l.CreateResource(texture.Name, texture, "")
}

// GetTexture returns the texture payload called name, loading it when needed.
func (l *TextureLoader) GetTexture(name string) *metadata.Texture {
	texture, _ := resources.DataAs[*metadata.Texture](l.FindResource(name))
	return texture
}

func (l *TextureLoader) OpenResource(name string) bool {
	texture, ok := resources.DataAs[*metadata.Texture](l.GetResource(name))
	if !ok {
		return false
	}
	l.reg.Renderer.SetDebugTexture(texture)
	return true
}

func (l *TextureLoader) LoadResource(name string) bool {
	resource := l.GetResource(name)
	if resource == nil {
		core.LogError("%s failed to load %s", l.Config().Name, name)
		return false
	}
	metaData := resource.MetaData
	if l.IsNewExternalData(metaData, metaData.SourceFilePath) && l.ConvertResource(resource, metaData.SourceFilePath) {
		l.Metrics().AddLoad()
		return true
	}

	var data metadata.TextureData
	if !l.LoadResourceData(resource, &data) {
		core.LogError("%s failed to load %s", l.Config().Name, name)
		return false
	}
	texture := metadata.NewTexture(resource.Name, data)
	if data.TextureType == metadata.TextureTypeCube {
		texture.Faces = l.resolveFaces(data.CubeFaces)
	}
	resource.SetData(texture)
	markLoaded(resource, l.Metrics())
	return true
}

// resolveFaces returns the face references of a cube, substituting the
// default texture for faces that cannot be loaded.
func (l *TextureLoader) resolveFaces(names []string) []resources.Ref {
	empty, _ := loadedRef(l.FindResource(metadata.DefaultTextureName))
	faces := make([]resources.Ref, len(metadata.CubeFaceNames))
	for i := range faces {
		faces[i] = empty
		if i >= len(names) {
			continue
		}
		if ref, ok := loadedRef(l.FindResource(names[i])); ok && ref.Value() != nil {
			faces[i] = ref
		}
	}
	return faces
}

/**
 * @brief Assembles a cube texture for every complete set of six faces. A
 * cube is rebuilt when one of its faces was converted since the last call or
 * when it does not exist yet.
 */
func (l *TextureLoader) GenerateCubeTextures() {
	cubeTextureMap := make(map[string][]string)
	var cubeNames []string
	for _, name := range l.GetResourceNameList() {
		cubeName, index, ok := metadata.CubeFaceSuffix(name)
		if !ok {
			continue
		}
		faces, found := cubeTextureMap[cubeName]
		if !found {
			faces = make([]string, len(metadata.CubeFaceNames))
			cubeNames = append(cubeNames, cubeName)
		}
		faces[index] = name
		cubeTextureMap[cubeName] = faces
	}

	for _, cubeName := range cubeNames {
		faces := cubeTextureMap[cubeName]
		if slices.Contains(faces, "") {
			continue
		}
		isCreateCube := false
		for _, face := range faces {
			if slices.Contains(l.newTextureList, face) {
				isCreateCube = true
			}
		}
		cubeResource := l.FindResource(cubeName)
		if cubeResource == nil {
			cubeResource = l.CreateResource(cubeName, nil, "")
			isCreateCube = true
		}
		if !isCreateCube {
			continue
		}

		faceRefs := l.resolveFaces(faces)
		data := metadata.TextureData{TextureType: metadata.TextureTypeCube, CubeFaces: faces}
		if front, ok := resources.RefAs[*metadata.Texture](faceRefs[4]); ok {
			data.ImageMode = front.ImageMode
			data.Width = front.Width
			data.Height = front.Height
			data.MinFilter = front.MinFilter
			data.MagFilter = front.MagFilter
		}
		data.Wrap = metadata.TextureRepeatClampToEdge
		cube := metadata.NewTexture(cubeResource.Name, data)
		cube.Faces = faceRefs
		cubeResource.SetData(cube)
		core.LogInfo("Generate cube texture : %s", cubeResource.Name)
		l.SaveResourceData(cubeResource, cube.SaveData(), "")
	}
	l.newTextureList = nil
}

func (l *TextureLoader) ConvertResource(resource *resources.Resource, sourceFilePath string) bool {
	core.LogInfo("Convert Resource : %s", sourceFilePath)
	texture, err := createTextureFromFile(resource.Name, sourceFilePath, l.reg.Options.TexturePowerOfTwo)
	if err != nil {
		core.LogFailure(err, "Failed to convert resource : %s", sourceFilePath)
		l.Metrics().AddFailure()
		return false
	}
	if !slices.Contains(l.newTextureList, resource.Name) {
		l.newTextureList = append(l.newTextureList, resource.Name)
	}
	resource.SetData(texture)
	l.Metrics().AddConversion()
	return l.SaveResourceData(resource, texture.SaveData(), sourceFilePath)
}
