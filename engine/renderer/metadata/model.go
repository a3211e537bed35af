package metadata

import (
	"github.com/spaghettifunk/prism/engine/resources"
)

/**
 * @brief The saved form of a model.
 */
type ModelData struct {
	ObjectType        string   `yaml:"object_type"`
	Mesh              string   `yaml:"mesh"`
	MaterialInstances []string `yaml:"material_instances"`
}

// ModelResolver looks up the resources a model refers to by name.
type ModelResolver interface {
	ResolveMesh(name string) (resources.Ref, bool)
	ResolveMaterialInstance(name string) (resources.Ref, bool)
	DefaultMaterialInstance(skeletal bool) resources.Ref
}

/**
 * @brief A mesh with one material instance per geometry.
 */
type Model struct {
	Name              string
	Mesh              resources.Ref
	MaterialInstances []resources.Ref

	resolver ModelResolver
}

func NewModel(name string, resolver ModelResolver) *Model {
	return &Model{Name: name, resolver: resolver}
}

// GetMesh returns the current mesh payload, or nil.
func (m *Model) GetMesh() *Mesh {
	mesh, _ := resources.RefAs[*Mesh](m.Mesh)
	return mesh
}

/**
 * @brief Binds the mesh and sizes the material instance list to its
 * geometries. Existing instances are kept, missing ones get the default.
 */
func (m *Model) SetMesh(mesh resources.Ref) {
	m.Mesh = mesh
	count := 0
	skeletal := false
	if payload := m.GetMesh(); payload != nil {
		count = payload.GeometryCount()
		skeletal = payload.HasBone()
	}

	instances := make([]resources.Ref, count)
	for i := range instances {
		if i < len(m.MaterialInstances) && m.MaterialInstances[i].IsAlive() {
			instances[i] = m.MaterialInstances[i]
		} else if m.resolver != nil {
			instances[i] = m.resolver.DefaultMaterialInstance(skeletal)
		}
	}
	m.MaterialInstances = instances
}

// SetMaterialInstance replaces the instance of the geometry at index.
func (m *Model) SetMaterialInstance(instance resources.Ref, index int) bool {
	if index < 0 || index >= len(m.MaterialInstances) {
		return false
	}
	m.MaterialInstances[index] = instance
	return true
}

// GetMaterialInstance returns the instance payload of the geometry at index.
func (m *Model) GetMaterialInstance(index int) *MaterialInstance {
	if index < 0 || index >= len(m.MaterialInstances) {
		return nil
	}
	mi, _ := resources.RefAs[*MaterialInstance](m.MaterialInstances[index])
	return mi
}

func (m *Model) MaterialInstanceNames() []string {
	names := make([]string, len(m.MaterialInstances))
	for i, ref := range m.MaterialInstances {
		if mi, ok := resources.RefAs[*MaterialInstance](ref); ok {
			names[i] = mi.Name
		} else {
			names[i] = ref.Name()
		}
	}
	return names
}

func (m *Model) MeshName() string {
	if mesh := m.GetMesh(); mesh != nil {
		return mesh.Name
	}
	return m.Mesh.Name()
}

func (m *Model) SaveData() any {
	return ModelData{
		ObjectType:        ObjectTypeModel,
		Mesh:              m.MeshName(),
		MaterialInstances: m.MaterialInstanceNames(),
	}
}

func (m *Model) SetResourceName(name string) {
	m.Name = name
}

func (m *Model) Attributes() []resources.Attribute {
	return []resources.Attribute{
		{Name: "name", Value: resources.StringValue(m.Name)},
		{Name: "mesh", Value: resources.StringValue(m.MeshName())},
		{Name: "material_instances", Value: resources.StringListValue(m.MaterialInstanceNames())},
	}
}

func (m *Model) SetAttribute(name string, value resources.AttributeValue, index int) bool {
	if m.resolver == nil {
		return false
	}
	switch name {
	case "mesh":
		mesh, ok := m.resolver.ResolveMesh(value.Text())
		if !ok {
			return false
		}
		m.SetMesh(mesh)
		return true
	case "material_instances":
		instance, ok := m.resolver.ResolveMaterialInstance(value.ListItem(index))
		if !ok {
			return false
		}
		return m.SetMaterialInstance(instance, index)
	}
	return false
}
