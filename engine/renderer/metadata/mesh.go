package metadata

import (
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/resources"
)

/** @brief A named bone hierarchy referenced by skinned geometry. */
type SkeletonData struct {
	Name      string
	BoneNames []string
	Parents   []int32
}

/**
 * @brief The saved form of a mesh.
 */
type MeshData struct {
	Geometries []GeometryData
	Skeletons  []SkeletonData
}

/**
 * @brief A mesh is a list of geometries sharing one name.
 */
type Mesh struct {
	Name       string
	Geometries []GeometryData
	Skeletons  []SkeletonData
	Extents    math.Extents3D
}

func NewMesh(name string, data MeshData) *Mesh {
	m := &Mesh{
		Name:       name,
		Geometries: data.Geometries,
		Skeletons:  data.Skeletons,
	}
	for i, g := range m.Geometries {
		if i == 0 {
			m.Extents = g.Extents
			continue
		}
		m.Extents.Min = m.Extents.Min.Min(g.Extents.Min)
		m.Extents.Max = m.Extents.Max.Max(g.Extents.Max)
	}
	return m
}

// HasBone reports whether the mesh carries skinning data.
func (m *Mesh) HasBone() bool {
	if len(m.Skeletons) > 0 {
		return true
	}
	for _, g := range m.Geometries {
		if len(g.BoneIndices) > 0 {
			return true
		}
	}
	return false
}

func (m *Mesh) GeometryCount() int {
	return len(m.Geometries)
}

func (m *Mesh) VertexCount() int {
	count := 0
	for _, g := range m.Geometries {
		count += len(g.Vertices)
	}
	return count
}

func (m *Mesh) SaveData() any {
	return MeshData{Geometries: m.Geometries, Skeletons: m.Skeletons}
}

func (m *Mesh) SetResourceName(name string) {
	m.Name = name
}

func (m *Mesh) Attributes() []resources.Attribute {
	return []resources.Attribute{
		{Name: "name", Value: resources.StringValue(m.Name)},
		{Name: "geometry_count", Value: resources.IntValue(int64(m.GeometryCount())), ReadOnly: true},
		{Name: "vertex_count", Value: resources.IntValue(int64(m.VertexCount())), ReadOnly: true},
		{Name: "has_bone", Value: resources.BoolValue(m.HasBone()), ReadOnly: true},
	}
}

func (m *Mesh) SetAttribute(name string, value resources.AttributeValue, index int) bool {
	return false
}
