package metadata

import (
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
)

/**
 * @brief A single drawable part of a mesh.
 */
type GeometryData struct {
	/** @brief The name of the geometry. */
	Name string
	/** @brief The vertices of the geometry. */
	Vertices []math.Vertex3D
	/** @brief The triangle list indices. */
	Indices []uint32
	/** @brief The extents of the geometry in local coordinates. */
	Extents math.Extents3D
	/** @brief The center of the geometry in local coordinates. */
	Center math.Vec3
	/** @brief Bone indices per vertex, empty for static geometry. */
	BoneIndices [][4]uint32
	/** @brief Bone weights per vertex, empty for static geometry. */
	BoneWeights [][4]float32
}

// NewGeometryData computes the extents and center of the given triangles.
func NewGeometryData(name string, vertices []math.Vertex3D, indices []uint32) GeometryData {
	g := GeometryData{
		Name:     name,
		Vertices: vertices,
		Indices:  indices,
	}
	g.Extents = math.GeometryCalculateExtents(vertices)
	g.Center = g.Extents.Min.Add(g.Extents.Max).MulScalar(0.5)
	return g
}

func GenerateTriangleGeometry(name string) GeometryData {
	verts := make([]math.Vertex3D, 3)
	verts[0].Position = math.NewVec3(-1.0, -1.0, 0.0)
	verts[1].Position = math.NewVec3(1.0, -1.0, 0.0)
	verts[2].Position = math.NewVec3(0.0, 1.0, 0.0)
	verts[0].Texcoord = math.NewVec2(0.0, 0.0)
	verts[1].Texcoord = math.NewVec2(1.0, 0.0)
	verts[2].Texcoord = math.NewVec2(0.5, 1.0)
	for i := range verts {
		verts[i].Normal = math.NewVec3(0.0, 0.0, 1.0)
		verts[i].Colour = math.NewVec4One()
	}
	indices := []uint32{0, 1, 2}
	verts = math.GeometryGenerateTangents(verts, indices)
	return NewGeometryData(name, verts, indices)
}

/**
 * @brief Generates a plane facing +z.
 *
 * @param width The overall width of the plane. Must be non-zero.
 * @param height The overall height of the plane. Must be non-zero.
 * @param xSegmentCount The number of segments along the x-axis in the plane. Must be non-zero.
 * @param ySegmentCount The number of segments along the y-axis in the plane. Must be non-zero.
 * @param tileX The number of times the texture should tile across the plane on the x-axis. Must be non-zero.
 * @param tileY The number of times the texture should tile across the plane on the y-axis. Must be non-zero.
 * @param name The name of the generated geometry.
 */
func GeneratePlaneGeometry(width, height float32, xSegmentCount, ySegmentCount uint32, tileX, tileY float32, name string) GeometryData {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1.0
	}
	if height == 0 {
		core.LogWarn("Height must be nonzero. Defaulting to one.")
		height = 1.0
	}
	if xSegmentCount < 1 {
		core.LogWarn("xSegmentCount must be a positive number. Defaulting to one.")
		xSegmentCount = 1
	}
	if ySegmentCount < 1 {
		core.LogWarn("ySegmentCount must be a positive number. Defaulting to one.")
		ySegmentCount = 1
	}
	if tileX == 0 {
		core.LogWarn("tileX must be nonzero. Defaulting to one.")
		tileX = 1.0
	}
	if tileY == 0 {
		core.LogWarn("tileY must be nonzero. Defaulting to one.")
		tileY = 1.0
	}

	verts := make([]math.Vertex3D, xSegmentCount*ySegmentCount*4)
	indices := make([]uint32, xSegmentCount*ySegmentCount*6)

	segWidth := width / float32(xSegmentCount)
	segHeight := height / float32(ySegmentCount)
	halfWidth := width * 0.5
	halfHeight := height * 0.5
	for y := uint32(0); y < ySegmentCount; y++ {
		for x := uint32(0); x < xSegmentCount; x++ {
			minX := (float32(x) * segWidth) - halfWidth
			minY := (float32(y) * segHeight) - halfHeight
			maxX := minX + segWidth
			maxY := minY + segHeight
			minUVX := (float32(x) / float32(xSegmentCount)) * tileX
			minUVY := (float32(y) / float32(ySegmentCount)) * tileY
			maxUVX := (float32(x+1) / float32(xSegmentCount)) * tileX
			maxUVY := (float32(y+1) / float32(ySegmentCount)) * tileY

			vOffset := ((y * xSegmentCount) + x) * 4
			verts[vOffset+0].Position = math.NewVec3(minX, minY, 0)
			verts[vOffset+0].Texcoord = math.NewVec2(minUVX, minUVY)
			verts[vOffset+1].Position = math.NewVec3(maxX, maxY, 0)
			verts[vOffset+1].Texcoord = math.NewVec2(maxUVX, maxUVY)
			verts[vOffset+2].Position = math.NewVec3(minX, maxY, 0)
			verts[vOffset+2].Texcoord = math.NewVec2(minUVX, maxUVY)
			verts[vOffset+3].Position = math.NewVec3(maxX, minY, 0)
			verts[vOffset+3].Texcoord = math.NewVec2(maxUVX, minUVY)
			for i := vOffset; i < vOffset+4; i++ {
				verts[i].Normal = math.NewVec3(0.0, 0.0, 1.0)
				verts[i].Colour = math.NewVec4One()
			}

			iOffset := ((y * xSegmentCount) + x) * 6
			indices[iOffset+0] = vOffset + 0
			indices[iOffset+1] = vOffset + 1
			indices[iOffset+2] = vOffset + 2
			indices[iOffset+3] = vOffset + 0
			indices[iOffset+4] = vOffset + 3
			indices[iOffset+5] = vOffset + 1
		}
	}

	verts = math.GeometryGenerateTangents(verts, indices)
	return NewGeometryData(name, verts, indices)
}

// cube faces in the order front, back, left, right, bottom, top
var cubeFaceNormals = [6]math.Vec3{
	{X: 0, Y: 0, Z: 1},
	{X: 0, Y: 0, Z: -1},
	{X: -1, Y: 0, Z: 0},
	{X: 1, Y: 0, Z: 0},
	{X: 0, Y: -1, Z: 0},
	{X: 0, Y: 1, Z: 0},
}

func GenerateCubeGeometry(width, height, depth, tileX, tileY float32, name string) GeometryData {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1.0
	}
	if height == 0 {
		core.LogWarn("Height must be nonzero. Defaulting to one.")
		height = 1.0
	}
	if depth == 0 {
		core.LogWarn("Depth must be nonzero. Defaulting to one.")
		depth = 1
	}
	if tileX == 0 {
		core.LogWarn("tileX must be nonzero. Defaulting to one.")
		tileX = 1.0
	}
	if tileY == 0 {
		core.LogWarn("tileY must be nonzero. Defaulting to one.")
		tileY = 1.0
	}

	minX, maxX := -width*0.5, width*0.5
	minY, maxY := -height*0.5, height*0.5
	minZ, maxZ := -depth*0.5, depth*0.5

	positions := [6][4]math.Vec3{
		{{X: minX, Y: minY, Z: maxZ}, {X: maxX, Y: maxY, Z: maxZ}, {X: minX, Y: maxY, Z: maxZ}, {X: maxX, Y: minY, Z: maxZ}},
		{{X: maxX, Y: minY, Z: minZ}, {X: minX, Y: maxY, Z: minZ}, {X: maxX, Y: maxY, Z: minZ}, {X: minX, Y: minY, Z: minZ}},
		{{X: minX, Y: minY, Z: minZ}, {X: minX, Y: maxY, Z: maxZ}, {X: minX, Y: maxY, Z: minZ}, {X: minX, Y: minY, Z: maxZ}},
		{{X: maxX, Y: minY, Z: maxZ}, {X: maxX, Y: maxY, Z: minZ}, {X: maxX, Y: maxY, Z: maxZ}, {X: maxX, Y: minY, Z: minZ}},
		{{X: maxX, Y: minY, Z: maxZ}, {X: minX, Y: minY, Z: minZ}, {X: maxX, Y: minY, Z: minZ}, {X: minX, Y: minY, Z: maxZ}},
		{{X: minX, Y: maxY, Z: maxZ}, {X: maxX, Y: maxY, Z: minZ}, {X: minX, Y: maxY, Z: minZ}, {X: maxX, Y: maxY, Z: maxZ}},
	}
	texcoords := [4]math.Vec2{
		{X: 0, Y: 0}, {X: tileX, Y: tileY}, {X: 0, Y: tileY}, {X: tileX, Y: 0},
	}

	verts := make([]math.Vertex3D, 4*6)
	indices := make([]uint32, 6*6)
	for face := 0; face < 6; face++ {
		vOffset := face * 4
		for i := 0; i < 4; i++ {
			verts[vOffset+i].Position = positions[face][i]
			verts[vOffset+i].Texcoord = texcoords[i]
			verts[vOffset+i].Normal = cubeFaceNormals[face]
			verts[vOffset+i].Colour = math.NewVec4One()
		}
		iOffset := face * 6
		indices[iOffset+0] = uint32(vOffset + 0)
		indices[iOffset+1] = uint32(vOffset + 1)
		indices[iOffset+2] = uint32(vOffset + 2)
		indices[iOffset+3] = uint32(vOffset + 0)
		indices[iOffset+4] = uint32(vOffset + 3)
		indices[iOffset+5] = uint32(vOffset + 1)
	}

	verts = math.GeometryGenerateTangents(verts, indices)
	return NewGeometryData(name, verts, indices)
}
