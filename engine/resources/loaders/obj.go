package loaders

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

const invalidIndex = -1

type objCorner struct {
	position int
	texcoord int
	normal   int
}

type objObject struct {
	name  string
	faces [][]objCorner
}

/**
 * @brief Decodes WaveFront OBJ files. Every object or group becomes one
 * geometry; polygons are triangulated as fans.
 */
type objDecoder struct {
	positions []math.Vec3
	normals   []math.Vec3
	texcoords []math.Vec2
	objects   []objObject
	current   *objObject
	line      int
}

func loadOBJ(sourceFilePath string) (metadata.MeshData, error) {
	file, err := os.Open(sourceFilePath)
	if err != nil {
		return metadata.MeshData{}, errors.Wrapf(core.ErrFileNotFound, "%s: %v", sourceFilePath, err)
	}
	defer file.Close()

	dec := &objDecoder{}
	if err := dec.parse(file); err != nil {
		return metadata.MeshData{}, errors.Wrapf(err, "failed to parse %s", sourceFilePath)
	}
	return dec.meshData(), nil
}

func (dec *objDecoder) parse(reader io.Reader) error {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		dec.line++
		if err := dec.parseLine(strings.TrimSpace(scanner.Text())); err != nil {
			return errors.Wrapf(err, "line %d", dec.line)
		}
	}
	return scanner.Err()
}

func (dec *objDecoder) parseLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}
	switch fields[0] {
	case "o", "g":
		name := "unnamed" + strconv.Itoa(dec.line)
		if len(fields) > 1 {
			name = fields[1]
		}
		dec.objects = append(dec.objects, objObject{name: name})
		dec.current = &dec.objects[len(dec.objects)-1]
	case "v":
		v, err := parseFloats(fields[1:], 3)
		if err != nil {
			return err
		}
		dec.positions = append(dec.positions, math.NewVec3(v[0], v[1], v[2]))
	case "vn":
		v, err := parseFloats(fields[1:], 3)
		if err != nil {
			return err
		}
		dec.normals = append(dec.normals, math.NewVec3(v[0], v[1], v[2]))
	case "vt":
		v, err := parseFloats(fields[1:], 2)
		if err != nil {
			return err
		}
		dec.texcoords = append(dec.texcoords, math.NewVec2(v[0], v[1]))
	case "f":
		return dec.parseFace(fields[1:])
	}
	// mtllib, usemtl and smoothing groups do not affect the geometry
	return nil
}

func parseFloats(fields []string, count int) ([]float32, error) {
	if len(fields) < count {
		return nil, errors.Errorf("expected %d values, got %d", count, len(fields))
	}
	values := make([]float32, count)
	for i := 0; i < count; i++ {
		v, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid number %q", fields[i])
		}
		values[i] = float32(v)
	}
	return values, nil
}

// resolveIndex converts a one based, possibly negative, OBJ index.
func resolveIndex(field string, count int) (int, error) {
	if field == "" {
		return invalidIndex, nil
	}
	val, err := strconv.Atoi(field)
	if err != nil {
		return invalidIndex, errors.Wrapf(err, "invalid index %q", field)
	}
	switch {
	case val > 0:
		val--
	case val < 0:
		val += count
	default:
		return invalidIndex, errors.New("face index value equal to 0")
	}
	if val < 0 || val >= count {
		return invalidIndex, errors.Errorf("face index %s out of range", field)
	}
	return val, nil
}

func (dec *objDecoder) parseFace(fields []string) error {
	if len(fields) < 3 {
		return errors.New("face line with less than 3 fields")
	}
	if dec.current == nil {
		dec.objects = append(dec.objects, objObject{name: "unnamed" + strconv.Itoa(dec.line)})
		dec.current = &dec.objects[len(dec.objects)-1]
	}

	face := make([]objCorner, len(fields))
	for i, field := range fields {
		parts := strings.Split(field, "/")
		var err error
		if face[i].position, err = resolveIndex(parts[0], len(dec.positions)); err != nil {
			return err
		}
		if face[i].position == invalidIndex {
			return errors.New("face vertex without position")
		}
		face[i].texcoord = invalidIndex
		if len(parts) > 1 {
			if face[i].texcoord, err = resolveIndex(parts[1], len(dec.texcoords)); err != nil {
				return err
			}
		}
		face[i].normal = invalidIndex
		if len(parts) > 2 {
			if face[i].normal, err = resolveIndex(parts[2], len(dec.normals)); err != nil {
				return err
			}
		}
	}
	dec.current.faces = append(dec.current.faces, face)
	return nil
}

func (dec *objDecoder) meshData() metadata.MeshData {
	var data metadata.MeshData
	for _, object := range dec.objects {
		if len(object.faces) == 0 {
			continue
		}
		data.Geometries = append(data.Geometries, dec.geometry(object))
	}
	return data
}

func (dec *objDecoder) geometry(object objObject) metadata.GeometryData {
	var vertices []math.Vertex3D
	var indices []uint32
	lookup := make(map[objCorner]uint32)
	hasNormals := true

	vertexIndex := func(c objCorner) uint32 {
		if index, ok := lookup[c]; ok {
			return index
		}
		vertex := math.Vertex3D{
			Position: dec.positions[c.position],
			Colour:   math.NewVec4One(),
		}
		if c.texcoord != invalidIndex {
			vertex.Texcoord = dec.texcoords[c.texcoord]
		}
		if c.normal != invalidIndex {
			vertex.Normal = dec.normals[c.normal]
		} else {
			hasNormals = false
		}
		index := uint32(len(vertices))
		vertices = append(vertices, vertex)
		lookup[c] = index
		return index
	}

	for _, face := range object.faces {
		first := vertexIndex(face[0])
		for i := 1; i+1 < len(face); i++ {
			indices = append(indices, first, vertexIndex(face[i]), vertexIndex(face[i+1]))
		}
	}

	if !hasNormals {
		math.GeometryGenerateNormals(vertices, indices)
	}
	vertices = math.GeometryGenerateTangents(vertices, indices)
	// files repeating v/vt/vn lines still index equal corners separately
	vertices, indices = math.GeometryDeduplicateVertices(vertices, indices)
	return metadata.NewGeometryData(object.name, vertices, indices)
}
