package metadata

import (
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/resources"
)

/** @brief A placed model in the saved form of a scene. */
type ActorData struct {
	Name      string         `yaml:"name"`
	Model     string         `yaml:"model"`
	Transform math.Transform `yaml:"transform"`
}

type CameraData struct {
	Name      string         `yaml:"name"`
	Transform math.Transform `yaml:"transform"`
	Fov       float32        `yaml:"fov"`
	Near      float32        `yaml:"near"`
	Far       float32        `yaml:"far"`
}

type LightData struct {
	Name      string         `yaml:"name"`
	Transform math.Transform `yaml:"transform"`
	Colour    math.Vec4      `yaml:"colour"`
}

/**
 * @brief The saved form of a scene.
 */
type SceneData struct {
	Name           string       `yaml:"name"`
	Cameras        []CameraData `yaml:"cameras"`
	MainLight      *LightData   `yaml:"main_light,omitempty"`
	Lights         []LightData  `yaml:"lights"`
	StaticActors   []ActorData  `yaml:"static_actors"`
	SkeletonActors []ActorData  `yaml:"skeleton_actors"`
}

/** @brief An actor whose model name has been resolved. */
type Actor struct {
	ActorData
	Model resources.Ref
}

/**
 * @brief A scene payload with resolved actor models.
 */
type Scene struct {
	Name           string
	Data           SceneData
	StaticActors   []Actor
	SkeletonActors []Actor
}

func (s *Scene) SetResourceName(name string) {
	s.Name = name
	s.Data.Name = name
}

func (s *Scene) ModelNames() []string {
	var names []string
	for _, actors := range [][]Actor{s.StaticActors, s.SkeletonActors} {
		for _, actor := range actors {
			names = append(names, actor.Model.Name())
		}
	}
	return names
}

func (s *Scene) Attributes() []resources.Attribute {
	return []resources.Attribute{
		{Name: "name", Value: resources.StringValue(s.Name)},
		{Name: "static_actors", Value: resources.IntValue(int64(len(s.StaticActors))), ReadOnly: true},
		{Name: "skeleton_actors", Value: resources.IntValue(int64(len(s.SkeletonActors))), ReadOnly: true},
		{Name: "models", Value: resources.StringListValue(s.ModelNames()), ReadOnly: true},
	}
}

func (s *Scene) SetAttribute(name string, value resources.AttributeValue, index int) bool {
	return false
}
