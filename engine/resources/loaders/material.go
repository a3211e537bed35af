package loaders

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/resources"
)

/**
 * @brief Generates and caches the macro variants of shaders. A material is
 * named after its shader and the macros that are in effect after
 * preprocessing, so two requests for the same variant share one resource.
 */
type MaterialLoader struct {
	*resources.BaseLoader
	reg *Registry

	/** @brief Requested variant name to the name it was generated under. */
	linkedMaterialMap map[string]string
	/** @brief Shader paths whose dependents are being reloaded. */
	reloading map[string]bool
}

func NewMaterialLoader(reg *Registry) *MaterialLoader {
	l := &MaterialLoader{
		reg:               reg,
		linkedMaterialMap: make(map[string]string),
		reloading:         make(map[string]bool),
	}
	l.BaseLoader = resources.NewBaseLoader(resources.LoaderConfig{
		Name:             "MaterialLoader",
		ResourceDirName:  "Materials",
		ResourceTypeName: metadata.ResourceTypeMaterial,
		ResourceVersion:  0.6,
		FileExt:          ".mat",
		Encoding:         resources.EncodingReadable,
	}, reg.Env, l)
	reg.Materials = l
	return l
}

// GenerateMaterialName returns the deterministic name of the variant of
// shaderName built with macros.
func GenerateMaterialName(shaderName string, macros metadata.Macros) string {
	if len(macros) == 0 {
		return shaderName
	}
	id := uuid.NewMD5(uuid.NameSpaceDNS, []byte(strings.Join(macros.Pairs(), "_")))
	return shaderName + "_" + strings.ReplaceAll(id.String(), "-", "_")
}

// LinkedMaterialName follows the link map for a requested variant name.
func (l *MaterialLoader) LinkedMaterialName(name string) string {
	if linked, ok := l.linkedMaterialMap[name]; ok {
		return linked
	}
	return name
}

func (l *MaterialLoader) OpenResource(name string) bool {
	material, ok := resources.DataAs[*metadata.Material](l.GetResource(name))
	if !ok {
		return false
	}
	return l.reg.MaterialInstances.CreateMaterialInstance(material.ShaderName, material.ShaderName, material.Macros) != nil
}

/**
 * @brief Reloads every material generated from shaderFilePath or including
 * it, then the material instances of the affected shaders. A reload
 * triggered while the same path is already being processed is skipped.
 */
func (l *MaterialLoader) ReloadMaterials(shaderFilePath string) {
	shaderFilePath = resources.NormalizeResourcePath(shaderFilePath)
	if l.reloading[shaderFilePath] {
		return
	}
	l.reloading[shaderFilePath] = true
	defer delete(l.reloading, shaderFilePath)

	var reloadShaderNames []string
	for _, name := range l.GetResourceNameList() {
		resource := l.FindResource(name)
		if resource == nil || resource.MetaData == nil {
			continue
		}
		metaData := resource.MetaData
		reload := metaData.SourceFilePath == shaderFilePath
		if !reload {
			_, reload = metaData.IncludeFiles[shaderFilePath]
		}
		if !reload {
			continue
		}

		core.LogInfo("Reload material %s for %s", name, shaderFilePath)
		l.LoadResource(name)
		l.Metrics().AddReload()
		resource = l.FindResource(name)
		if resource == nil {
			continue
		}
		if material, ok := resource.Data().(*metadata.Material); ok {
			if !slices.Contains(reloadShaderNames, material.ShaderName) {
				reloadShaderNames = append(reloadShaderNames, material.ShaderName)
			}
		}
	}

	for _, shaderName := range reloadShaderNames {
		l.reg.MaterialInstances.ReloadMaterialInstances(shaderName)
	}
}

// RenameResource renames a material and links its variant name to the new
// name, so requests for the variant keep resolving to it.
func (l *MaterialLoader) RenameResource(name, newName string) bool {
	resource := l.MoveResource(name, newName)
	if resource == nil {
		return false
	}
	for requested, linked := range l.linkedMaterialMap {
		if linked == name {
			l.linkedMaterialMap[requested] = resource.Name
		}
	}
	l.linkedMaterialMap[name] = resource.Name
	if material, ok := resource.Data().(*metadata.Material); ok {
		l.linkedMaterialMap[GenerateMaterialName(material.ShaderName, material.Macros)] = resource.Name
	}
	return true
}

func (l *MaterialLoader) DeleteResource(name string) bool {
	if !l.BaseLoader.DeleteResource(name) {
		return false
	}
	for requested, linked := range l.linkedMaterialMap {
		if linked == name {
			delete(l.linkedMaterialMap, requested)
		}
	}
	return true
}

func (l *MaterialLoader) LoadResource(name string) bool {
	resource := l.GetResource(name)
	if resource == nil {
		core.LogError("%s failed to load %s", l.Config().Name, name)
		return false
	}
	var data metadata.MaterialData
	if !l.LoadResourceData(resource, &data) {
		core.LogError("%s failed to load %s", l.Config().Name, name)
		return false
	}

	if generated := GenerateMaterialName(data.ShaderName, data.Macros); generated != resource.Name {
		l.linkedMaterialMap[generated] = resource.Name
	}

	metaData := resource.MetaData
	generate := l.IsNewExternalData(metaData, metaData.SourceFilePath)
	metaData.IncludeFiles = make(map[string]string, len(data.IncludeFiles))
	for path, modifyTime := range data.IncludeFiles {
		metaData.IncludeFiles[path] = modifyTime
	}
	if metaData.IsIncludeFileChanged() {
		generate = true
	}

	if generate {
		l.GenerateNewMaterial(resource.Name, data.ShaderName, data.Macros)
		return true
	}

	l.publish(resource, l.buildMaterial(resource.Name, data))
	markLoaded(resource, l.Metrics())
	return true
}

// buildMaterial compiles data through the renderer. A failed compile yields
// an invalid material.
func (l *MaterialLoader) buildMaterial(name string, data metadata.MaterialData) *metadata.Material {
	program, err := l.reg.Renderer.CompileProgram(name, data.ShaderCodes, data.BinaryFormat, data.BinaryData)
	if err != nil {
		core.LogFailure(err, "%s cannot build %s", l.Config().Name, name)
		l.Metrics().AddFailure()
		program = nil
	}
	return metadata.NewMaterial(name, data, program)
}

// publish swaps the payload of resource and releases the program it replaced.
func (l *MaterialLoader) publish(resource *resources.Resource, material *metadata.Material) {
	previous, _ := resource.Data().(*metadata.Material)
	resource.SetData(material)
	if previous != nil && previous != material && previous.Program != nil && previous.Program != material.Program {
		previous.Program.Release()
	}
}

/**
 * @brief Builds the variant of shaderName for macros and saves it under the
 * name derived from the macros in effect after preprocessing. When that name
 * differs from materialName the request is linked to it and the resource
 * under materialName is removed.
 * @return The new material, or nil on failure.
 */
func (l *MaterialLoader) GenerateNewMaterial(materialName, shaderName string, macros metadata.Macros) *metadata.Material {
	core.LogInfo("Generate new material : %s", materialName)
	shader := l.reg.Shaders.GetShader(shaderName)
	if shader == nil {
		core.LogFailure(errors.Wrapf(core.ErrShaderNotFound, "shader %s", shaderName), "Failed to generate_new_material %s.", materialName)
		l.Metrics().AddFailure()
		return nil
	}

	codes, includeFiles, err := shader.GenerateShaderCodes(l.reg.Options.ShaderVersion, macros)
	if err != nil {
		core.LogFailure(err, "Failed to generate_new_material %s.", materialName)
		l.Metrics().AddFailure()
		return nil
	}
	finalMacros := metadata.ParseMacros(codes)
	// a renamed variant keeps its name
	finalName := l.LinkedMaterialName(GenerateMaterialName(shaderName, finalMacros))

	if materialName != finalName {
		core.LogWarn("Generated material name is changed. : %s", finalName)
		l.linkedMaterialMap[materialName] = finalName
		if l.FindResource(materialName) != nil {
			l.DeleteResource(materialName)
		}
	}

	includeModifyTimes := make(map[string]string, len(includeFiles))
	for _, includeFile := range includeFiles {
		includeModifyTimes[includeFile] = resources.ModifyTimeOfFile(includeFile)
	}
	data := metadata.MaterialData{
		ShaderName:         shaderName,
		Macros:             finalMacros,
		ShaderCodes:        codes,
		Uniforms:           metadata.ParseUniforms(codes),
		MaterialComponents: metadata.ParseMaterialComponents(codes),
		IncludeFiles:       includeModifyTimes,
	}

	material := l.buildMaterial(finalName, data)
	if !material.Valid {
		core.LogError("Failed to generate_new_material %s.", materialName)
		return nil
	}

	resource := l.FindResource(finalName)
	if resource == nil {
		resource = l.CreateResource(finalName, nil, "")
	}
	resource.MetaData.IncludeFiles = includeModifyTimes

	sourceFilePath := ""
	if shaderMetaData := l.reg.Shaders.GetMetaData(shaderName); shaderMetaData != nil {
		sourceFilePath = shaderMetaData.ResourceFilePath
	}

	if format, binary, ok := material.Program.Binary(); ok {
		material.BinaryFormat = format
		material.BinaryData = binary
	}

	l.SaveResourceData(resource, material.MaterialData, sourceFilePath)
	l.publish(resource, material)
	l.Metrics().AddConversion()
	return material
}

/**
 * @brief Returns the resource of the variant of shaderName for macros,
 * generating it when it is not cached.
 */
func (l *MaterialLoader) GetMaterial(shaderName string, macros metadata.Macros) *resources.Resource {
	if shaderName == "" {
		core.LogError("Error : Cannot create material. Because material name is empty.")
		return nil
	}

	name := l.LinkedMaterialName(GenerateMaterialName(shaderName, macros))
	if resource := l.FindResource(name); resource != nil {
		if _, ok := resources.DataAs[*metadata.Material](resource); ok {
			return resource
		}
	}
	if l.GenerateNewMaterial(name, shaderName, macros) == nil {
		return nil
	}
	return l.FindResource(l.LinkedMaterialName(name))
}
