package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/resources"
)

func newRef(arena *resources.Arena, name, typeName string, data any) (*resources.Resource, resources.Ref) {
	r := resources.NewResource(name, typeName, arena, nil, nil)
	r.SetData(data)
	return r, r.Ref()
}

func TestBuiltinGeometries(t *testing.T) {
	triangle := GenerateTriangleGeometry("Triangle")
	assert.Len(t, triangle.Vertices, 3)
	assert.Equal(t, []uint32{0, 1, 2}, triangle.Indices)

	quad := GeneratePlaneGeometry(2, 2, 1, 1, 1, 1, "Quad")
	assert.Len(t, quad.Vertices, 4)
	assert.Len(t, quad.Indices, 6)
	assert.InDelta(t, -1.0, quad.Extents.Min.X, 1e-6)
	assert.InDelta(t, 1.0, quad.Extents.Max.Y, 1e-6)

	cube := GenerateCubeGeometry(1, 1, 1, 1, 1, "Cube")
	assert.Len(t, cube.Vertices, 24)
	assert.Len(t, cube.Indices, 36)
	assert.InDelta(t, 0.0, cube.Center.X, 1e-6)
	assert.InDelta(t, 0.5, cube.Extents.Max.Z, 1e-6)
	for _, v := range cube.Vertices {
		assert.InDelta(t, 1.0, v.Normal.Length(), 1e-5)
	}
}

func TestMeshHasBone(t *testing.T) {
	mesh := NewMesh("cube", MeshData{Geometries: []GeometryData{GenerateCubeGeometry(1, 1, 1, 1, 1, "cube")}})
	assert.False(t, mesh.HasBone())
	assert.Equal(t, 1, mesh.GeometryCount())

	skinned := NewMesh("skin", MeshData{
		Geometries: []GeometryData{GenerateTriangleGeometry("skin")},
		Skeletons:  []SkeletonData{{Name: "root", BoneNames: []string{"hip"}}},
	})
	assert.True(t, skinned.HasBone())
}

func TestMaterialInstanceComponents(t *testing.T) {
	arena := resources.NewArena()
	material := NewMaterial("default", MaterialData{
		ShaderName: "default",
		MaterialComponents: []MaterialComponent{
			{Type: "vec4", Name: "base_color", Default: "1 1 1 1"},
			{Type: "sampler2D", Name: "texture_diffuse", Default: "empty"},
		},
	}, nil)
	material.Valid = true
	_, materialRef := newRef(arena, "default", ResourceTypeMaterial, material)

	mi := NewMaterialInstance("stone", MaterialInstanceData{
		ShaderName: "default",
		Components: map[string]string{"texture_diffuse": "stone_diffuse"},
	}, materialRef)
	assert.True(t, mi.IsValid())
	assert.True(t, mi.NeedToSave)
	assert.Equal(t, "stone_diffuse", mi.Components["texture_diffuse"])
	assert.Equal(t, "1 1 1 1", mi.Components["base_color"])

	assert.True(t, mi.SetAttribute("base_color", resources.VectorValue(0.5, 0.5, 0.5, 1), 0))
	assert.Equal(t, "0.5 0.5 0.5 1", mi.Components["base_color"])
	assert.False(t, mi.SetAttribute("unknown", resources.StringValue("x"), 0))

	saved := mi.SaveData().(MaterialInstanceData)
	assert.Equal(t, "default", saved.ShaderName)
	assert.Len(t, saved.Components, 2)
}

func TestMaterialInstanceFollowsMaterialSlot(t *testing.T) {
	arena := resources.NewArena()
	first := NewMaterial("default", MaterialData{}, nil)
	resource, materialRef := newRef(arena, "default", ResourceTypeMaterial, first)
	mi := NewMaterialInstance("inst", MaterialInstanceData{}, materialRef)
	assert.Same(t, first, mi.GetMaterial())

	second := NewMaterial("default", MaterialData{}, nil)
	resource.SetData(second)
	assert.Same(t, second, mi.GetMaterial())
}

type testModelResolver struct {
	meshes    map[string]resources.Ref
	instances map[string]resources.Ref
	defaults  map[bool]resources.Ref
}

func (r *testModelResolver) ResolveMesh(name string) (resources.Ref, bool) {
	ref, ok := r.meshes[name]
	return ref, ok
}

func (r *testModelResolver) ResolveMaterialInstance(name string) (resources.Ref, bool) {
	ref, ok := r.instances[name]
	return ref, ok
}

func (r *testModelResolver) DefaultMaterialInstance(skeletal bool) resources.Ref {
	return r.defaults[skeletal]
}

func TestModelMaterialInstances(t *testing.T) {
	arena := resources.NewArena()
	_, quadRef := newRef(arena, "Quad", ResourceTypeMesh, NewMesh("Quad", MeshData{Geometries: []GeometryData{GeneratePlaneGeometry(1, 1, 1, 1, 1, 1, "Quad")}}))
	_, twoRef := newRef(arena, "two", ResourceTypeMesh, NewMesh("two", MeshData{Geometries: []GeometryData{GenerateTriangleGeometry("a"), GenerateTriangleGeometry("b")}}))
	_, defaultRef := newRef(arena, "default", ResourceTypeMaterialInstance, &MaterialInstance{Name: "default"})
	_, stoneRef := newRef(arena, "stone", ResourceTypeMaterialInstance, &MaterialInstance{Name: "stone"})

	resolver := &testModelResolver{
		meshes:    map[string]resources.Ref{"Quad": quadRef, "two": twoRef},
		instances: map[string]resources.Ref{"stone": stoneRef},
		defaults:  map[bool]resources.Ref{false: defaultRef},
	}
	model := NewModel("Quad", resolver)
	model.SetMesh(quadRef)
	assert.Equal(t, []string{"default"}, model.MaterialInstanceNames())

	require.True(t, model.SetAttribute("material_instances", resources.StringListValue([]string{"stone"}), 0))
	assert.Equal(t, []string{"stone"}, model.MaterialInstanceNames())

	require.True(t, model.SetAttribute("mesh", resources.StringValue("two"), 0))
	assert.Equal(t, []string{"stone", "default"}, model.MaterialInstanceNames())
	assert.False(t, model.SetAttribute("mesh", resources.StringValue("missing"), 0))
	assert.False(t, model.SetAttribute("material_instances", resources.StringValue("stone"), 5))

	saved := model.SaveData().(ModelData)
	assert.Equal(t, ModelData{ObjectType: ObjectTypeModel, Mesh: "two", MaterialInstances: []string{"stone", "default"}}, saved)
}

func TestFontSaveData(t *testing.T) {
	data := &FontLanguageData{UnicodeName: "Basic Latin", ImageWidth: 64, ImageHeight: 32}
	font := Font{"ascii": {FontLanguageData: data}}
	saved := font.SaveData().(FontData)
	assert.Same(t, data, saved["ascii"])
	assert.Equal(t, "arial_Basic Latin", data.TextureName("arial"))
}

func TestCubeFaceSuffix(t *testing.T) {
	name, index, ok := CubeFaceSuffix("skybox_top")
	require.True(t, ok)
	assert.Equal(t, "skybox", name)
	assert.Equal(t, 2, index)

	_, _, ok = CubeFaceSuffix("_front")
	assert.False(t, ok)
}
