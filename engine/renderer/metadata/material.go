package metadata

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/spaghettifunk/prism/engine/resources"
)

/**
 * @brief A linked shader program owned by the renderer backend.
 */
type Program interface {
	// Binary returns the program binary format and data when the backend supports it.
	Binary() (int, []byte, bool)
	Release()
}

/**
 * @brief The saved form of a material. A material is a shader specialised by
 * a set of macros.
 */
type MaterialData struct {
	ShaderName         string              `yaml:"shader_name"`
	Macros             Macros              `yaml:"macros"`
	ShaderCodes        map[string]string   `yaml:"shader_codes"`
	Uniforms           []UniformDecl       `yaml:"uniforms"`
	MaterialComponents []MaterialComponent `yaml:"material_components"`
	/** @brief Included file path to modify time at generation. */
	IncludeFiles map[string]string `yaml:"include_files"`
	BinaryFormat int               `yaml:"binary_format"`
	BinaryData   []byte            `yaml:"binary_data,omitempty"`
}

type Material struct {
	Name string
	MaterialData
	Program Program
	/** @brief Whether every stage compiled and linked. */
	Valid bool
}

func NewMaterial(name string, data MaterialData, program Program) *Material {
	if data.Macros == nil {
		data.Macros = Macros{}
	}
	return &Material{
		Name:         name,
		MaterialData: data,
		Program:      program,
		Valid:        program != nil,
	}
}

// Component returns the material component called name.
func (m *Material) Component(name string) (MaterialComponent, bool) {
	for _, c := range m.MaterialComponents {
		if c.Name == name {
			return c, true
		}
	}
	return MaterialComponent{}, false
}

func (m *Material) SaveData() any {
	return m.MaterialData
}

func (m *Material) SetResourceName(name string) {
	m.Name = name
}

func (m *Material) Attributes() []resources.Attribute {
	uniforms := make([]string, 0, len(m.Uniforms))
	for _, u := range m.Uniforms {
		uniforms = append(uniforms, u.Type+" "+u.Name)
	}
	components := make([]string, 0, len(m.MaterialComponents))
	for _, c := range m.MaterialComponents {
		components = append(components, c.Type+" "+c.Name)
	}
	macros := make([]string, 0, len(m.Macros))
	for _, key := range m.Macros.SortedKeys() {
		macros = append(macros, key+"="+m.Macros[key])
	}
	return []resources.Attribute{
		{Name: "name", Value: resources.StringValue(m.Name)},
		{Name: "shader_name", Value: resources.StringValue(m.ShaderName), ReadOnly: true},
		{Name: "macros", Value: resources.StringListValue(macros), ReadOnly: true},
		{Name: "uniforms", Value: resources.StringListValue(uniforms), ReadOnly: true},
		{Name: "material_components", Value: resources.StringListValue(components), ReadOnly: true},
		{Name: "valid", Value: resources.BoolValue(m.Valid), ReadOnly: true},
	}
}

func (m *Material) SetAttribute(name string, value resources.AttributeValue, index int) bool {
	return false
}

var (
	numberPattern      = regexp.MustCompile(`[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`)
	constructorPattern = regexp.MustCompile(`[A-Za-z_]\w*\s*\(`)
)

// vectorSize returns N for the GLSL vector types vecN, ivecN, uvecN, bvecN and dvecN.
func vectorSize(glslType string) int {
	if !strings.Contains(glslType, "vec") || len(glslType) < 4 {
		return 0
	}
	n, err := strconv.Atoi(glslType[len(glslType)-1:])
	if err != nil {
		return 0
	}
	return n
}

// DefaultComponentValue is the text used for a component declared without initializer.
func DefaultComponentValue(glslType string) string {
	switch {
	case strings.HasPrefix(glslType, "sampler"):
		return DefaultTextureName
	case glslType == "float" || glslType == "double":
		return "0.0"
	case glslType == "int" || glslType == "uint":
		return "0"
	case glslType == "bool":
		return "false"
	}
	if n := vectorSize(glslType); n > 0 {
		return strings.TrimSpace(strings.Repeat("0.0 ", n))
	}
	return ""
}

// ComponentValue converts the text of a component to an attribute value of
// the matching kind.
func ComponentValue(glslType, text string) resources.AttributeValue {
	text = strings.TrimSpace(text)
	numbers := numberPattern.FindAllString(constructorPattern.ReplaceAllString(text, " "), -1)
	switch {
	case strings.HasPrefix(glslType, "sampler"):
		return resources.StringValue(text)
	case glslType == "float" || glslType == "double":
		if len(numbers) > 0 {
			f, _ := strconv.ParseFloat(numbers[0], 64)
			return resources.FloatValue(f)
		}
		return resources.FloatValue(0)
	case glslType == "int" || glslType == "uint":
		if len(numbers) > 0 {
			f, _ := strconv.ParseFloat(numbers[0], 64)
			return resources.IntValue(int64(f))
		}
		return resources.IntValue(0)
	case glslType == "bool":
		return resources.BoolValue(text == "true" || text == "1")
	}
	if n := vectorSize(glslType); n > 0 {
		vector := make([]float32, n)
		for i := 0; i < n; i++ {
			switch {
			case i < len(numbers):
				f, _ := strconv.ParseFloat(numbers[i], 32)
				vector[i] = float32(f)
			case len(numbers) == 1:
				vector[i] = vector[0]
			}
		}
		return resources.VectorValue(vector...)
	}
	return resources.StringValue(text)
}
