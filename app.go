package ecs

import (
	"context"
	"fmt"
	"runtime"
)

// Plugin bundles related stages, systems, resources, and events into one
// reusable unit an App installs by name.
type Plugin interface {
	Name() string
	Build(app *App)
}

// App is the user-facing façade: it owns a Runner, the default stage
// layout, and the main loop that drives it until an AppExit event is
// written.
type App struct {
	runner      *Runner
	plugins     map[string]bool
	loopEnabled bool
	exitCode    int
}

// NewApp constructs an App with the default stage layout (see
// registerDefaultStages) against a single "app" SubApp, worker pools sized
// to the host's concurrency.
func NewApp() *App {
	a := &App{
		runner:      NewRunner(runtime.NumCPU()),
		plugins:     make(map[string]bool),
		loopEnabled: true,
	}
	a.registerDefaultStages()
	return a
}

// registerDefaultStages lays out the full named stage sequence per category:
// PreStartup/Startup/PostStartup; First/PreUpdate/Update/PostUpdate/Last/
// Prepare/PreRender/Render/PostRender; StateTransit; PreShutdown/Shutdown/
// PostShutdown. Render stages run against "app" by default; a caller that
// registers a dedicated render SubApp can re-point them with AddStage.
func (a *App) registerDefaultStages() {
	const main = "app"
	r := a.runner
	r.AddStage(StageStartup, "PreStartup", main, main, nil, nil)
	r.AddStage(StageStartup, "Startup", main, main, nil, []string{"PreStartup"})
	r.AddStage(StageStartup, "PostStartup", main, main, nil, []string{"Startup"})

	r.AddStage(StageLoop, "First", main, main, nil, nil)
	r.AddStage(StageLoop, "PreUpdate", main, main, nil, []string{"First"})
	r.AddStage(StageLoop, "Update", main, main, nil, []string{"PreUpdate"})
	r.AddStage(StageLoop, "PostUpdate", main, main, nil, []string{"Update"})
	r.AddStage(StageLoop, "Last", main, main, nil, []string{"PostUpdate"})
	r.AddStage(StageLoop, "Prepare", main, main, nil, []string{"Last"})
	r.AddStage(StageLoop, "PreRender", main, main, nil, []string{"Prepare"})
	r.AddStage(StageLoop, "Render", main, main, nil, []string{"PreRender"})
	r.AddStage(StageLoop, "PostRender", main, main, nil, []string{"Render"})

	r.AddStage(StageStateTransition, "StateTransit", main, main, nil, nil)

	r.AddStage(StageExit, "PreShutdown", main, main, nil, nil)
	r.AddStage(StageExit, "Shutdown", main, main, nil, []string{"PreShutdown"})
	r.AddStage(StageExit, "PostShutdown", main, main, nil, []string{"Shutdown"})
}

// MainSubApp returns the app's default "app" SubApp.
func (a *App) MainSubApp() *SubApp { return a.runner.SubApp("app") }

// RegisterSubApp installs an additional SubApp (e.g. a render world fed via
// Extract-shaped systems), usable as a stage's src or dst.
func (a *App) RegisterSubApp(name string, sub *SubApp) { a.runner.RegisterSubApp(name, sub) }

// AddStage registers an additional stage under category, beyond the default
// loop layout (e.g. a render-extraction stage pulling from "app" into
// "render").
func (a *App) AddStage(category StageCategory, name, srcName, dstName string, before, after []string) *StageRunner {
	return a.runner.AddStage(category, name, srcName, dstName, before, after)
}

// AddSystem attaches a system built via NewSystem to the named stage and
// sub-stage.
func (a *App) AddSystem(stageName, subStageName string, sys *SystemBuilder) error {
	runner := a.runner.StageRunnerByName(stageName)
	if runner == nil {
		return fmt.Errorf("ecs: unknown stage %q", stageName)
	}
	runner.AddSystem(subStageName, sys.Build())
	return nil
}

// WithInstrumentation wires logging/tracing/metrics sinks.
func (a *App) WithInstrumentation(logger Logger, tracer Tracer, cfg InstrumentationConfig) *App {
	a.runner.WithInstrumentation(logger, tracer, cfg)
	return a
}

// AddPlugin installs p exactly once; a second registration of the same name
// is a no-op, mirroring the original engine's idempotent plugin guard.
func (a *App) AddPlugin(p Plugin) *App {
	if a.plugins[p.Name()] {
		return a
	}
	a.plugins[p.Name()] = true
	p.Build(a)
	return a
}

// SetLoopEnabled controls whether Run iterates the loop stages repeatedly
// (true, the default) or executes Startup/one loop pass/Exit and returns.
func (a *App) SetLoopEnabled(enabled bool) *App {
	a.loopEnabled = enabled
	return a
}

// Run executes Startup once, then the loop/state-transition categories
// repeatedly until an AppExit event is observed on the main SubApp (or the
// context is cancelled), then Exit once.
func (a *App) Run(ctx context.Context) error {
	a.runner.Build()
	a.runner.Bake()
	defer a.runner.Close()

	if err := a.runner.RunStartup(ctx); err != nil {
		return err
	}

	main := a.MainSubApp()
	AddEventType[AppExit](main)

	for {
		select {
		case <-ctx.Done():
			return a.runner.RunExit(context.Background())
		default:
		}

		if err := a.runner.Tick(ctx); err != nil {
			_ = a.runner.RunExit(context.Background())
			return err
		}

		if exits := ReadEvents[AppExit](main.World()); len(exits) > 0 {
			a.exitCode = exits[len(exits)-1].Code
			break
		}

		if !a.loopEnabled {
			break
		}
	}

	return a.runner.RunExit(context.Background())
}

// ExitCode returns the Code of the last observed AppExit event, or 0.
func (a *App) ExitCode() int { return a.exitCode }
