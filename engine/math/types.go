package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
	Z float32 `yaml:"z"`
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
	Z float32 `yaml:"z"`
	W float32 `yaml:"w"`
}

/**
 * @brief Represents the extents of a 3d object.
 */
type Extents3D struct {
	/** @brief The minimum extents of the object. */
	Min Vec3
	/** @brief The maximum extents of the object. */
	Max Vec3
}

/**
 * @brief Represents a single vertex in 3D space.
 */
type Vertex3D struct {
	/** @brief The position of the vertex */
	Position Vec3
	/** @brief The normal of the vertex. */
	Normal Vec3
	/** @brief The texture coordinate of the vertex. */
	Texcoord Vec2
	/** @brief The colour of the vertex. */
	Colour Vec4
	/** @brief The tangent of the vertex. */
	Tangent Vec3
}

/** @brief Position, euler rotation in degrees and scale of a placed object. */
type Transform struct {
	Position Vec3 `yaml:"position"`
	Rotation Vec3 `yaml:"rotation"`
	Scale    Vec3 `yaml:"scale"`
}

func NewTransform() Transform {
	return Transform{Scale: NewVec3One()}
}
