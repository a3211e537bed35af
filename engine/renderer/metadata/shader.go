package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/resources"
)

// ShaderVersion is the version directive prepended to every generated stage.
const ShaderVersion = "#version 430 core"

// MaterialComponentsMacro guards the uniforms a material instance can override.
const MaterialComponentsMacro = "MATERIAL_COMPONENTS"

/** @brief The stage tokens a shader source uses to select its stages. */
const (
	VertexShader   = "GL_VERTEX_SHADER"
	GeometryShader = "GL_GEOMETRY_SHADER"
	FragmentShader = "GL_FRAGMENT_SHADER"
	ComputeShader  = "GL_COMPUTE_SHADER"
)

var ShaderStages = []string{VertexShader, GeometryShader, FragmentShader, ComputeShader}

var (
	includePattern = regexp.MustCompile(`^\s*#include\s+["<]([^">]+)[">]`)
	versionPattern = regexp.MustCompile(`^\s*#version\b`)
	uniformPattern = regexp.MustCompile(`^\s*(?:layout\s*\([^)]*\)\s*)?uniform\s+(?:(?:lowp|mediump|highp)\s+)?(\w+)\s+(\w+)\s*(\[\s*\w*\s*\])?\s*(?:=\s*([^;]+))?;`)
)

/**
 * @brief A GLSL source holding every stage behind its stage token.
 */
type Shader struct {
	Name string
	/** @brief The raw text of the shader file. */
	Source string
	/** @brief The file the source was read from, used to resolve includes. */
	FilePath string
	/** @brief Additional directories searched for included files. */
	IncludeDirs []string
}

func NewShader(name, source, filePath string, includeDirs ...string) *Shader {
	return &Shader{
		Name:        name,
		Source:      source,
		FilePath:    filePath,
		IncludeDirs: includeDirs,
	}
}

func (s *Shader) SaveData() any {
	return s.Source
}

func (s *Shader) SetResourceName(name string) {
	s.Name = name
}

func (s *Shader) Attributes() []resources.Attribute {
	return []resources.Attribute{
		{Name: "name", Value: resources.StringValue(s.Name)},
		{Name: "file_path", Value: resources.StringValue(s.FilePath), ReadOnly: true},
		{Name: "stages", Value: resources.StringListValue(s.Stages()), ReadOnly: true},
	}
}

func (s *Shader) SetAttribute(name string, value resources.AttributeValue, index int) bool {
	return false
}

// Stages returns the stage tokens referenced by the source, in pipeline order.
func (s *Shader) Stages() []string {
	source, _, err := s.ResolveIncludes()
	if err != nil {
		source = s.Source
	}
	return stagesOf(source)
}

func stagesOf(source string) []string {
	var stages []string
	for _, stage := range ShaderStages {
		if strings.Contains(source, stage) {
			stages = append(stages, stage)
		}
	}
	return stages
}

// ResolveIncludes expands every #include directive recursively. Each file is
// included once. The returned paths are the included files in the order they
// were first met.
func (s *Shader) ResolveIncludes() (string, []string, error) {
	var includeFiles []string
	visited := map[string]bool{}
	dir := ""
	if s.FilePath != "" {
		dir = filepath.Dir(s.FilePath)
	}
	source, err := s.resolve(s.Source, dir, visited, &includeFiles)
	return source, includeFiles, err
}

func (s *Shader) resolve(source, dir string, visited map[string]bool, includeFiles *[]string) (string, error) {
	var b strings.Builder
	for _, line := range strings.Split(source, "\n") {
		match := includePattern.FindStringSubmatch(line)
		if match == nil {
			b.WriteString(line)
			b.WriteByte('\n')
			continue
		}
		includePath, err := s.findInclude(match[1], dir)
		if err != nil {
			return "", err
		}
		if visited[includePath] {
			continue
		}
		visited[includePath] = true
		*includeFiles = append(*includeFiles, includePath)

		content, err := os.ReadFile(includePath)
		if err != nil {
			return "", errors.Wrapf(err, "failed to read %s", includePath)
		}
		resolved, err := s.resolve(string(content), filepath.Dir(includePath), visited, includeFiles)
		if err != nil {
			return "", err
		}
		b.WriteString(resolved)
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

func (s *Shader) findInclude(name, dir string) (string, error) {
	candidates := []string{}
	if dir != "" {
		candidates = append(candidates, filepath.Join(dir, name))
	}
	for _, includeDir := range s.IncludeDirs {
		candidates = append(candidates, filepath.Join(includeDir, name))
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return filepath.Clean(candidate), nil
		}
	}
	return "", errors.Wrapf(core.ErrFileNotFound, "%s includes %s", s.Name, name)
}

/**
 * @brief Generates the code of every stage the shader uses.
 *
 * @param version The version directive placed on the first line.
 * @param macros Definitions injected before the source.
 * @return The code by stage token and the included files.
 */
func (s *Shader) GenerateShaderCodes(version string, macros Macros) (map[string]string, []string, error) {
	source, includeFiles, err := s.ResolveIncludes()
	if err != nil {
		return nil, nil, err
	}

	lines := strings.Split(source, "\n")
	body := make([]string, 0, len(lines))
	for _, line := range lines {
		if !versionPattern.MatchString(line) {
			body = append(body, line)
		}
	}
	source = strings.Join(body, "\n")

	stages := stagesOf(source)
	if len(stages) == 0 {
		return nil, includeFiles, errors.Errorf("%s does not use any shader stage", s.Name)
	}

	codes := make(map[string]string, len(stages))
	for _, stage := range stages {
		var b strings.Builder
		b.WriteString(version + "\n")
		fmt.Fprintf(&b, "#define %s\n", stage)
		fmt.Fprintf(&b, "#define %s\n", MaterialComponentsMacro)
		for _, key := range macros.SortedKeys() {
			fmt.Fprintf(&b, "#define %s %s\n", key, macros[key])
		}
		b.WriteString(source)
		codes[stage] = b.String()
	}
	return codes, includeFiles, nil
}

func isReservedMacro(name string) bool {
	if name == MaterialComponentsMacro {
		return true
	}
	for _, stage := range ShaderStages {
		if stage == name {
			return true
		}
	}
	return false
}

// ParseMacros returns the definitions in effect at the end of the generated
// codes, without the stage tokens.
func ParseMacros(codes map[string]string) Macros {
	macros := Macros{}
	for _, stage := range ShaderStages {
		code, ok := codes[stage]
		if !ok {
			continue
		}
		_, defs := preprocess(code, nil)
		for name, value := range defs {
			if !isReservedMacro(name) {
				macros[name] = value
			}
		}
	}
	return macros
}

/** @brief A uniform declared in an active region of a stage. */
type UniformDecl struct {
	Type      string `yaml:"type"`
	Name      string `yaml:"name"`
	ArraySize string `yaml:"array_size,omitempty"`
}

func ParseUniforms(codes map[string]string) []UniformDecl {
	var uniforms []UniformDecl
	seen := map[string]bool{}
	for _, stage := range ShaderStages {
		code, ok := codes[stage]
		if !ok {
			continue
		}
		lines, _ := preprocess(code, nil)
		for _, line := range lines {
			match := uniformPattern.FindStringSubmatch(line)
			if match == nil || seen[match[2]] {
				continue
			}
			seen[match[2]] = true
			arraySize := strings.Trim(match[3], "[] \t")
			uniforms = append(uniforms, UniformDecl{Type: match[1], Name: match[2], ArraySize: arraySize})
		}
	}
	return uniforms
}

/** @brief A uniform the material instances can override. */
type MaterialComponent struct {
	Type    string `yaml:"type"`
	Name    string `yaml:"name"`
	Default string `yaml:"default"`
}

// ParseMaterialComponents collects the uniforms declared inside
// #ifdef MATERIAL_COMPONENTS blocks of the active code.
func ParseMaterialComponents(codes map[string]string) []MaterialComponent {
	var components []MaterialComponent
	seen := map[string]bool{}
	for _, stage := range ShaderStages {
		code, ok := codes[stage]
		if !ok {
			continue
		}
		depth := 0
		inBlock := false
		for _, line := range strings.Split(code, "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "#") {
				directive, rest := splitDirective(trimmed[1:])
				switch directive {
				case "ifdef", "ifndef", "if":
					if inBlock {
						depth++
					} else if directive == "ifdef" && firstIdentifier(rest) == MaterialComponentsMacro {
						inBlock = true
						depth = 0
					}
				case "endif":
					if inBlock {
						if depth == 0 {
							inBlock = false
						} else {
							depth--
						}
					}
				}
				continue
			}
			if !inBlock {
				continue
			}
			match := uniformPattern.FindStringSubmatch(line)
			if match == nil || seen[match[2]] {
				continue
			}
			seen[match[2]] = true
			defaultValue := strings.TrimSpace(match[4])
			if defaultValue == "" {
				defaultValue = DefaultComponentValue(match[1])
			}
			components = append(components, MaterialComponent{Type: match[1], Name: match[2], Default: defaultValue})
		}
	}
	return components
}

// PreprocessedSource returns the active lines of code.
func PreprocessedSource(code string) string {
	lines, _ := preprocess(code, nil)
	return strings.Join(lines, "\n")
}
