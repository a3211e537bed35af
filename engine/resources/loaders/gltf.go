package loaders

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// loadGLTF converts every mesh primitive of a .gltf or .glb file into one
// geometry, and every skin into a skeleton.
func loadGLTF(sourceFilePath string) (metadata.MeshData, error) {
	doc, err := gltf.Open(sourceFilePath)
	if err != nil {
		return metadata.MeshData{}, errors.Wrapf(err, "failed to open %s", sourceFilePath)
	}

	var data metadata.MeshData
	for meshIndex, mesh := range doc.Meshes {
		meshName := mesh.Name
		if meshName == "" {
			meshName = "mesh" + strconv.Itoa(meshIndex)
		}
		for primitiveIndex, primitive := range mesh.Primitives {
			name := meshName
			if len(mesh.Primitives) > 1 {
				name += "_" + strconv.Itoa(primitiveIndex)
			}
			geometry, err := gltfGeometry(doc, primitive, name)
			if err != nil {
				return metadata.MeshData{}, errors.Wrapf(err, "failed to read %s of %s", name, sourceFilePath)
			}
			data.Geometries = append(data.Geometries, geometry)
		}
	}
	data.Skeletons = gltfSkeletons(doc)
	return data, nil
}

func gltfGeometry(doc *gltf.Document, primitive *gltf.Primitive, name string) (metadata.GeometryData, error) {
	positionIndex, ok := primitive.Attributes["POSITION"]
	if !ok {
		return metadata.GeometryData{}, errors.Wrap(core.ErrInvalidPayload, "primitive without positions")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[positionIndex], nil)
	if err != nil {
		return metadata.GeometryData{}, errors.Wrap(err, "failed to read mesh vertices")
	}

	vertices := make([]math.Vertex3D, len(positions))
	for i, p := range positions {
		vertices[i].Position = math.NewVec3(p[0], p[1], p[2])
		vertices[i].Colour = math.NewVec4One()
	}

	var indices []uint32
	if primitive.Indices != nil {
		if indices, err = modeler.ReadIndices(doc, doc.Accessors[*primitive.Indices], nil); err != nil {
			return metadata.GeometryData{}, errors.Wrap(err, "failed to read mesh indices")
		}
	} else {
		indices = make([]uint32, len(vertices))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	if texcoordIndex, ok := primitive.Attributes["TEXCOORD_0"]; ok {
		texcoords, err := modeler.ReadTextureCoord(doc, doc.Accessors[texcoordIndex], nil)
		if err != nil {
			return metadata.GeometryData{}, errors.Wrap(err, "failed to read texture coordinates")
		}
		for i := 0; i < len(texcoords) && i < len(vertices); i++ {
			// glTF puts the texture origin at the top left
			vertices[i].Texcoord = math.NewVec2(texcoords[i][0], 1.0-texcoords[i][1])
		}
	}

	if normalIndex, ok := primitive.Attributes["NORMAL"]; ok {
		normals, err := modeler.ReadNormal(doc, doc.Accessors[normalIndex], nil)
		if err != nil {
			return metadata.GeometryData{}, errors.Wrap(err, "failed to read normals")
		}
		for i := 0; i < len(normals) && i < len(vertices); i++ {
			vertices[i].Normal = math.NewVec3(normals[i][0], normals[i][1], normals[i][2])
		}
	} else {
		math.GeometryGenerateNormals(vertices, indices)
	}
	vertices = math.GeometryGenerateTangents(vertices, indices)

	geometry := metadata.NewGeometryData(name, vertices, indices)

	jointIndex, hasJoints := primitive.Attributes["JOINTS_0"]
	weightIndex, hasWeights := primitive.Attributes["WEIGHTS_0"]
	if hasJoints && hasWeights {
		joints, err := modeler.ReadJoints(doc, doc.Accessors[jointIndex], nil)
		if err != nil {
			return metadata.GeometryData{}, errors.Wrap(err, "failed to read joints")
		}
		weights, err := modeler.ReadWeights(doc, doc.Accessors[weightIndex], nil)
		if err != nil {
			return metadata.GeometryData{}, errors.Wrap(err, "failed to read weights")
		}
		geometry.BoneIndices = make([][4]uint32, len(joints))
		for i, j := range joints {
			geometry.BoneIndices[i] = [4]uint32{uint32(j[0]), uint32(j[1]), uint32(j[2]), uint32(j[3])}
		}
		geometry.BoneWeights = weights
	}
	return geometry, nil
}

func gltfSkeletons(doc *gltf.Document) []metadata.SkeletonData {
	parents := make(map[int]int, len(doc.Nodes))
	for nodeIndex, node := range doc.Nodes {
		for _, child := range node.Children {
			parents[int(child)] = nodeIndex
		}
	}

	var skeletons []metadata.SkeletonData
	for skinIndex, skin := range doc.Skins {
		skeleton := metadata.SkeletonData{Name: skin.Name}
		if skeleton.Name == "" {
			skeleton.Name = "skeleton" + strconv.Itoa(skinIndex)
		}
		jointSlots := make(map[int]int32, len(skin.Joints))
		for slot, joint := range skin.Joints {
			jointSlots[int(joint)] = int32(slot)
		}
		for _, joint := range skin.Joints {
			node := doc.Nodes[int(joint)]
			skeleton.BoneNames = append(skeleton.BoneNames, node.Name)
			parent := int32(-1)
			if nodeIndex, ok := parents[int(joint)]; ok {
				if slot, ok := jointSlots[nodeIndex]; ok {
					parent = slot
				}
			}
			skeleton.Parents = append(skeleton.Parents, parent)
		}
		skeletons = append(skeletons, skeleton)
	}
	return skeletons
}
