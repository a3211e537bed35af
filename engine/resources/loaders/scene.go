package loaders

import (
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/resources"
)

/**
 * @brief Loads scene files and hands them to the scene manager. Only the
 * scene that is currently open can be saved.
 */
type SceneLoader struct {
	*resources.BaseLoader
	reg *Registry
}

func NewSceneLoader(reg *Registry) *SceneLoader {
	l := &SceneLoader{reg: reg}
	l.BaseLoader = resources.NewBaseLoader(resources.LoaderConfig{
		Name:             "SceneLoader",
		ResourceDirName:  "Scenes",
		ResourceTypeName: metadata.ResourceTypeScene,
		FileExt:          ".scene",
		Encoding:         resources.EncodingReadable,
	}, reg.Env, l)
	reg.Scenes = l
	return l
}

func (l *SceneLoader) resolveActors(actors []metadata.ActorData) []metadata.Actor {
	resolved := make([]metadata.Actor, 0, len(actors))
	for _, actor := range actors {
		model, ok := l.reg.ResolveModel(actor.Model)
		if !ok {
			core.LogWarn("model %s of actor %s not found", actor.Model, actor.Name)
			model = resources.NamedRef(actor.Model)
		}
		resolved = append(resolved, metadata.Actor{ActorData: actor, Model: model})
	}
	return resolved
}

func (l *SceneLoader) LoadResource(name string) bool {
	resource := l.GetResource(name)
	if resource == nil {
		core.LogError("%s failed to load %s", l.Config().Name, name)
		return false
	}
	var data metadata.SceneData
	if !l.LoadResourceData(resource, &data) {
		core.LogError("%s failed to load %s", l.Config().Name, name)
		return false
	}
	data.Name = resource.Name
	scene := &metadata.Scene{
		Name:           resource.Name,
		Data:           data,
		StaticActors:   l.resolveActors(data.StaticActors),
		SkeletonActors: l.resolveActors(data.SkeletonActors),
	}
	resource.SetData(scene)
	markLoaded(resource, l.Metrics())
	l.reg.Scene.OpenScene(scene)
	return true
}

func (l *SceneLoader) OpenResource(name string) bool {
	return l.LoadResource(name)
}

func (l *SceneLoader) SaveResource(name string) bool {
	if name != l.reg.Scene.CurrentSceneName() {
		core.LogWarn("%s is not the current scene, skip saving.", name)
		return false
	}
	resource := l.FindResource(name)
	if resource == nil {
		resource = l.CreateResource(name, nil, "")
	}
	return l.SaveResourceData(resource, l.reg.Scene.SaveData(), "")
}
