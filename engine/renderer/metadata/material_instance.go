package metadata

import (
	"github.com/spaghettifunk/prism/engine/resources"
)

/**
 * @brief The saved form of a material instance.
 */
type MaterialInstanceData struct {
	ShaderName string `yaml:"shader_name"`
	Macros     Macros `yaml:"macros"`
	/** @brief Material component name to value text. */
	Components map[string]string `yaml:"components"`
}

/**
 * @brief A material with per-instance component values.
 */
type MaterialInstance struct {
	Name       string
	ShaderName string
	Macros     Macros
	Components map[string]string
	/** @brief The material payload slot, followed across reloads. */
	Material resources.Ref
	/** @brief Set when components were added from the material and the file is stale. */
	NeedToSave bool
}

func NewMaterialInstance(name string, data MaterialInstanceData, material resources.Ref) *MaterialInstance {
	mi := &MaterialInstance{
		Name:       name,
		ShaderName: data.ShaderName,
		Macros:     data.Macros,
		Components: make(map[string]string, len(data.Components)),
	}
	if mi.Macros == nil {
		mi.Macros = Macros{}
	}
	for k, v := range data.Components {
		mi.Components[k] = v
	}
	mi.SetMaterial(material)
	return mi
}

// GetMaterial returns the current material payload, or nil.
func (mi *MaterialInstance) GetMaterial() *Material {
	material, _ := resources.RefAs[*Material](mi.Material)
	return material
}

// IsValid reports whether the bound material compiled.
func (mi *MaterialInstance) IsValid() bool {
	material := mi.GetMaterial()
	return material != nil && material.Valid
}

// SetMaterial binds the instance to material and adds the components the
// instance does not override yet.
func (mi *MaterialInstance) SetMaterial(material resources.Ref) {
	mi.Material = material
	m := mi.GetMaterial()
	if m == nil {
		return
	}
	for _, component := range m.MaterialComponents {
		if _, ok := mi.Components[component.Name]; !ok {
			mi.Components[component.Name] = component.Default
			mi.NeedToSave = true
		}
	}
}

func (mi *MaterialInstance) SaveData() any {
	return MaterialInstanceData{
		ShaderName: mi.ShaderName,
		Macros:     mi.Macros,
		Components: mi.Components,
	}
}

func (mi *MaterialInstance) SetResourceName(name string) {
	mi.Name = name
}

func (mi *MaterialInstance) Attributes() []resources.Attribute {
	attributes := []resources.Attribute{
		{Name: "name", Value: resources.StringValue(mi.Name)},
		{Name: "shader_name", Value: resources.StringValue(mi.ShaderName), ReadOnly: true},
		{Name: "material", Value: resources.StringValue(mi.Material.Name()), ReadOnly: true},
	}
	if m := mi.GetMaterial(); m != nil {
		for _, component := range m.MaterialComponents {
			attributes = append(attributes, resources.Attribute{
				Name:  component.Name,
				Value: ComponentValue(component.Type, mi.Components[component.Name]),
			})
		}
	}
	return attributes
}

func (mi *MaterialInstance) SetAttribute(name string, value resources.AttributeValue, index int) bool {
	m := mi.GetMaterial()
	if m == nil {
		return false
	}
	if _, ok := m.Component(name); !ok {
		return false
	}
	mi.Components[name] = value.Text()
	return true
}
