package math

import "github.com/spaghettifunk/prism/engine/core"

// GeometryGenerateNormals writes a face normal into every vertex of each triangle.
func GeometryGenerateNormals(vertices []Vertex3D, indices []uint32) {
	for i := 0; i+2 < len(indices); i += 3 {
		i0 := indices[i+0]
		i1 := indices[i+1]
		i2 := indices[i+2]

		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)

		c := edge1.Cross(edge2)
		normal := c.Normalized()

		// NOTE: This just generates a face normal. Smoothing out should be done in a separate pass if desired.
		vertices[i0].Normal = normal
		vertices[i1].Normal = normal
		vertices[i2].Normal = normal
	}
}

func GeometryGenerateTangents(vertices []Vertex3D, indices []uint32) []Vertex3D {
	for i := 0; i+2 < len(indices); i += 3 {
		i0 := indices[i+0]
		i1 := indices[i+1]
		i2 := indices[i+2]

		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)

		deltaU1 := vertices[i1].Texcoord.X - vertices[i0].Texcoord.X
		deltaV1 := vertices[i1].Texcoord.Y - vertices[i0].Texcoord.Y

		deltaU2 := vertices[i2].Texcoord.X - vertices[i0].Texcoord.X
		deltaV2 := vertices[i2].Texcoord.Y - vertices[i0].Texcoord.Y

		dividend := (deltaU1*deltaV2 - deltaU2*deltaV1)
		if dividend == 0 {
			continue
		}
		fc := 1.0 / dividend

		tangent := Vec3{
			(fc * (deltaV2*edge1.X - deltaV1*edge2.X)),
			(fc * (deltaV2*edge1.Y - deltaV1*edge2.Y)),
			(fc * (deltaV2*edge1.Z - deltaV1*edge2.Z))}

		tangent = tangent.Normalized()

		sx := deltaU1
		sy := deltaU2
		tx := deltaV1
		ty := deltaV2

		handedness := 1.0
		if (tx*sy - ty*sx) < 0.0 {
			handedness = -1.0
		}

		t4 := tangent.MulScalar(float32(handedness))
		vertices[i0].Tangent = t4
		vertices[i1].Tangent = t4
		vertices[i2].Tangent = t4
	}
	return vertices
}

func Vertex3dEqual(vert0 Vertex3D, vert1 Vertex3D) bool {
	return vert0.Position.Compare(vert1.Position, K_FLOAT_EPSILON) &&
		vert0.Normal.Compare(vert1.Normal, K_FLOAT_EPSILON) &&
		vert0.Texcoord.Compare(vert1.Texcoord, K_FLOAT_EPSILON) &&
		vert0.Colour.Compare(vert1.Colour, K_FLOAT_EPSILON) &&
		vert0.Tangent.Compare(vert1.Tangent, K_FLOAT_EPSILON)
}

// GeometryCalculateExtents returns the axis aligned bounds of the vertices.
func GeometryCalculateExtents(vertices []Vertex3D) Extents3D {
	if len(vertices) == 0 {
		return Extents3D{}
	}
	extents := Extents3D{Min: vertices[0].Position, Max: vertices[0].Position}
	for _, v := range vertices[1:] {
		extents.Min = extents.Min.Min(v.Position)
		extents.Max = extents.Max.Max(v.Position)
	}
	return extents
}

// GeometryDeduplicateVertices merges vertices that compare equal and rewrites the indices.
func GeometryDeduplicateVertices(vertices []Vertex3D, indices []uint32) ([]Vertex3D, []uint32) {
	unique := make([]Vertex3D, 0, len(vertices))
	remap := make([]uint32, len(vertices))

	for v := range vertices {
		found := false
		for u := range unique {
			if Vertex3dEqual(vertices[v], unique[u]) {
				remap[v] = uint32(u)
				found = true
				break
			}
		}
		if !found {
			remap[v] = uint32(len(unique))
			unique = append(unique, vertices[v])
		}
	}

	outIndices := make([]uint32, len(indices))
	for i, index := range indices {
		outIndices[i] = remap[index]
	}

	core.LogDebug("geometry_deduplicate_vertices: removed %d vertices, orig/now %d/%d.", len(vertices)-len(unique), len(vertices), len(unique))
	return unique, outIndices
}
