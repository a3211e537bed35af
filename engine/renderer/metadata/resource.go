package metadata

/** @brief Resource type names used to route requests to loaders. */
const (
	ResourceTypeFont             = "Font"
	ResourceTypeTexture          = "Texture"
	ResourceTypeShader           = "Shader"
	ResourceTypeMaterial         = "Material"
	ResourceTypeMaterialInstance = "MaterialInstance"
	ResourceTypeMesh             = "Mesh"
	ResourceTypeModel            = "Model"
	ResourceTypeScene            = "Scene"
)

const (
	DefaultShaderName                   = "default"
	DefaultMaterialInstanceName         = "default"
	DefaultSkeletalMaterialInstanceName = "default_skeletal"
	DefaultTextureName                  = "empty"
	DefaultSceneName                    = "default"
)

// ObjectTypeModel is written as object_type into model files.
const ObjectTypeModel = "Model"
