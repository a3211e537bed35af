package scene

import (
	"strconv"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/resources"
)

/**
 * @brief Holds the scene that is currently open. Resources are resolved by
 * the scene loader before they reach the manager.
 */
type Manager struct {
	current *metadata.Scene
}

func NewManager() *Manager {
	return &Manager{}
}

// CurrentSceneName returns the name of the open scene, or "" when none is open.
func (m *Manager) CurrentSceneName() string {
	if m.current == nil {
		return ""
	}
	return m.current.Name
}

func (m *Manager) CurrentScene() *metadata.Scene {
	return m.current
}

// NewScene opens an empty scene called name.
func (m *Manager) NewScene(name string) *metadata.Scene {
	scene := &metadata.Scene{Name: name, Data: metadata.SceneData{Name: name}}
	m.OpenScene(scene)
	return scene
}

func (m *Manager) OpenScene(scene *metadata.Scene) {
	if scene == nil {
		return
	}
	core.LogInfo("Open scene : %s", scene.Name)
	m.current = scene
}

func (m *Manager) CloseScene() {
	m.current = nil
}

func (m *Manager) hasActor(name string) bool {
	for _, actors := range [][]metadata.Actor{m.current.StaticActors, m.current.SkeletonActors} {
		for _, actor := range actors {
			if actor.Name == name {
				return true
			}
		}
	}
	return false
}

func (m *Manager) uniqueActorName(name string) string {
	if !m.hasActor(name) {
		return name
	}
	for num := 0; ; num++ {
		candidate := name + "_" + strconv.Itoa(num)
		if !m.hasActor(candidate) {
			return candidate
		}
	}
}

/**
 * @brief Places the model at the origin of the current scene. A model whose
 * mesh has bones becomes a skeleton actor.
 * @return The actor name, or "" when no scene is open or the model is unknown.
 */
func (m *Manager) AddObject(model resources.Ref) string {
	if m.current == nil {
		core.LogWarn("Cannot add %s, no scene is open.", model.Name())
		return ""
	}
	payload, ok := resources.RefAs[*metadata.Model](model)
	if !ok {
		core.LogError("Cannot add %s, it is not a model.", model.Name())
		return ""
	}

	actor := metadata.Actor{
		ActorData: metadata.ActorData{
			Name:      m.uniqueActorName(payload.Name),
			Model:     payload.Name,
			Transform: math.NewTransform(),
		},
		Model: model,
	}
	if mesh := payload.GetMesh(); mesh != nil && mesh.HasBone() {
		m.current.SkeletonActors = append(m.current.SkeletonActors, actor)
	} else {
		m.current.StaticActors = append(m.current.StaticActors, actor)
	}
	core.LogInfo("Add %s to %s", actor.Name, m.current.Name)
	return actor.Name
}

func actorSaveData(actors []metadata.Actor) []metadata.ActorData {
	data := make([]metadata.ActorData, 0, len(actors))
	for _, actor := range actors {
		saved := actor.ActorData
		if model, ok := resources.RefAs[*metadata.Model](actor.Model); ok {
			saved.Model = model.Name
		}
		data = append(data, saved)
	}
	return data
}

// SaveData returns the saved form of the current scene.
func (m *Manager) SaveData() metadata.SceneData {
	if m.current == nil {
		return metadata.SceneData{}
	}
	data := m.current.Data
	data.Name = m.current.Name
	data.StaticActors = actorSaveData(m.current.StaticActors)
	data.SkeletonActors = actorSaveData(m.current.SkeletonActors)
	return data
}
