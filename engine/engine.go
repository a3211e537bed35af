package engine

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/spaghettifunk/prism/engine/assets"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/editor"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/resources/loaders"
	"github.com/spaghettifunk/prism/engine/scene"
	"github.com/spaghettifunk/prism/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

/**
 * @brief The engine context. It owns every manager and is the only
 * goroutine touching the loaders; the watcher and the editor reach them
 * through the command queue drained once per tick.
 */
type Engine struct {
	currentStage Stage
	config       *ApplicationConfig

	events         *core.EventSystem
	metrics        *core.Metrics
	renderer       *renderer.Renderer
	sceneManager   *scene.Manager
	resourceSystem *systems.ResourceSystem
	watcher        *assets.Watcher
	hub            *editor.Hub
	server         *editor.Server

	commands     chan systems.Command
	done         chan struct{}
	shutdownOnce sync.Once

	mutex  sync.Mutex
	cancel context.CancelFunc

	clock    *core.Clock
	lastTime float64
}

/**
 * @brief Builds the managers in dependency order. A nil backend selects the
 * one named by the configuration.
 */
func New(config *ApplicationConfig, backend renderer.RendererBackend) (*Engine, error) {
	if config == nil {
		config = DefaultApplicationConfig()
		if err := config.normalize(); err != nil {
			return nil, err
		}
	}
	core.SetLogLevel(config.Level())

	e := &Engine{
		currentStage: EngineStageBooting,
		config:       config,
		commands:     make(chan systems.Command, config.CommandQueueSize),
		done:         make(chan struct{}),
		clock:        core.NewClock(),
	}

	e.events = core.NewEventSystem()
	e.metrics = core.NewMetrics()

	var err error
	if backend != nil {
		e.renderer, err = renderer.NewWithBackend(config.Name, backend)
	} else {
		rendererType, ok := renderer.ParseRendererType(config.Renderer)
		if !ok {
			return nil, errors.Errorf("unknown renderer %q", config.Renderer)
		}
		e.renderer, err = renderer.New(config.Name, rendererType)
	}
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	e.sceneManager = scene.NewManager()

	e.resourceSystem, err = systems.NewResourceSystem(&systems.ResourceSystemConfig{
		RootPath: config.RootPath,
		Options: loaders.Options{
			ShaderVersion:     config.ShaderVersion,
			TexturePowerOfTwo: config.TexturePowerOfTwo,
			FontSize:          config.FontSize,
		},
	}, e.events, e.metrics, e.renderer, e.sceneManager)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	if config.Watcher.Enabled {
		debounce, _ := config.DebounceDuration()
		e.watcher, err = assets.NewWatcher(config.RootPath, debounce, e.onFileChanged)
		if err != nil {
			core.LogError(err.Error())
			return nil, err
		}
	}

	if config.Editor.Enabled {
		e.hub = editor.NewHub(config.Editor.Backlog)
		e.server = editor.NewServer(editor.ServerConfig{Address: config.Editor.Address}, e.commands, e.metrics, e.hub)
	}

	e.currentStage = EngineStageBootComplete
	return e, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	if e.hub != nil {
		e.hub.Attach(e.events)
	}

	if err := e.resourceSystem.Initialize(); err != nil {
		return err
	}
	if e.watcher != nil {
		if err := e.watcher.Initialize(); err != nil {
			return errors.Wrap(err, "failed to watch the resource tree")
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

/**
 * @brief Runs the engine loop next to the watcher and the editor server
 * until ctx is done, Stop is called or the quit event fires.
 */
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return errors.New("the engine must be initialized before it runs")
	}
	ctx, cancel := context.WithCancel(ctx)
	e.mutex.Lock()
	e.cancel = cancel
	e.mutex.Unlock()
	defer cancel()

	e.currentStage = EngineStageRunning
	g, ctx := errgroup.WithContext(ctx)
	if e.watcher != nil {
		g.Go(func() error { return e.watcher.Run(ctx) })
	}
	if e.server != nil {
		g.Go(func() error { return e.server.Run(ctx) })
	}
	g.Go(func() error {
		// the other services follow the loop
		defer cancel()
		return e.loop(ctx)
	})
	return g.Wait()
}

func (e *Engine) loop(ctx context.Context) error {
	interval, _ := e.config.TickDuration()
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.clock.Update()
			currentTime := e.clock.Elapsed()
			delta := currentTime - e.lastTime
			if err := e.Update(delta); err != nil {
				return err
			}
			e.lastTime = currentTime
		}
	}
}

/**
 * @brief Executes the commands queued since the previous tick.
 * @param deltaTime The seconds elapsed since the previous tick.
 */
func (e *Engine) Update(deltaTime float64) error {
	for {
		select {
		case cmd := <-e.commands:
			result := e.resourceSystem.Execute(cmd)
			if cmd.Kind == systems.CommandFileChanged && result.OK {
				e.events.Fire(e, core.EventContext{Type: core.EVENT_CODE_FILE_CHANGED, Data: cmd.Path})
			}
		default:
			e.metrics.Update(deltaTime)
			return nil
		}
	}
}

// Submit queues cmd for the engine loop. It fails once the engine shut down.
func (e *Engine) Submit(cmd systems.Command) bool {
	select {
	case e.commands <- cmd:
		return true
	case <-e.done:
		return false
	}
}

func (e *Engine) onFileChanged(path string) {
	e.Submit(systems.Command{Kind: systems.CommandFileChanged, Path: path})
}

// Stop makes Run return after the current tick.
func (e *Engine) Stop() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) Shutdown() error {
	var err error
	e.shutdownOnce.Do(func() {
		e.currentStage = EngineStageShuttingDown
		close(e.done)
		e.Stop()

		if e.watcher != nil {
			if err = e.watcher.Close(); err != nil {
				return
			}
		}
		if e.hub != nil {
			e.hub.Detach(e.events)
			e.hub.Close()
		}
		if err = e.resourceSystem.Shutdown(); err != nil {
			return
		}
		if err = e.renderer.Shutdown(); err != nil {
			return
		}
		err = e.events.Shutdown()
	})
	return err
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Config() *ApplicationConfig {
	return e.config
}

func (e *Engine) Events() *core.EventSystem {
	return e.events
}

func (e *Engine) Metrics() *core.Metrics {
	return e.metrics
}

func (e *Engine) ResourceSystem() *systems.ResourceSystem {
	return e.resourceSystem
}

func (e *Engine) SceneManager() *scene.Manager {
	return e.sceneManager
}

func (e *Engine) Renderer() *renderer.Renderer {
	return e.renderer
}

func (e *Engine) onEvent(sender interface{}, listener interface{}, context core.EventContext) bool {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT recieved, shutting down.")
		e.Stop()
		return true
	}
	return false
}
