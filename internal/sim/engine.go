package sim

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"silkweaver/internal/geom"
	"silkweaver/internal/silk"
	"silkweaver/internal/telemetry"
	"silkweaver/internal/world"
	"silkweaver/logging"
)

var (
	// ErrUnknownRegion indicates a region id that is not loaded.
	ErrUnknownRegion = errors.New("sim: unknown region")
	// ErrDuplicateRegion indicates a region id that is already loaded.
	ErrDuplicateRegion = errors.New("sim: region already loaded")
	// ErrDuplicateActor indicates an actor id that is already registered.
	ErrDuplicateActor = errors.New("sim: actor already exists")
)

// EngineConfig configures NewEngine.
type EngineConfig struct {
	Silk silk.Config
	// StepBodies runs the stand-in body simulation before the silk pass.
	StepBodies bool
}

// Engine owns the regions, the bridge registry and one silk.Actor per actor
// id. All methods are safe for concurrent use; Step holds the lock for the
// whole tick.
type Engine struct {
	mu sync.Mutex

	cfg      EngineConfig
	deps     Deps
	registry *silk.Registry

	regions     map[string]*world.Region
	regionOrder []string
	actors      map[string]*silk.Actor
	actorOrder  []string
	intents     map[string]silk.Intent
	removed     []string
	breaks      []silk.BreakEvent

	tick    uint64
	impacts uint64
}

// NewEngine builds an empty engine.
func NewEngine(cfg EngineConfig, deps Deps) *Engine {
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	if deps.Logger == nil {
		deps.Logger = telemetry.WrapLogger(nil)
	}
	cfg.Silk = cfg.Silk.Normalized()
	return &Engine{
		cfg:      cfg,
		deps:     deps,
		registry: silk.NewRegistry(cfg.Silk, deps.Publisher),
		regions:  make(map[string]*world.Region),
		actors:   make(map[string]*silk.Actor),
		intents:  make(map[string]silk.Intent),
	}
}

// Deps returns the injected dependencies.
func (e *Engine) Deps() Deps {
	return e.deps
}

// Registry exposes the bridge registry. Callers must hold no expectations
// of thread safety beyond what the engine lock gives them.
func (e *Engine) Registry() *silk.Registry {
	return e.registry
}

// Tick returns the last completed tick.
func (e *Engine) Tick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// RegionLoaded builds a region from cfg and registers it with the bridge registry.
func (e *Engine) RegionLoaded(cfg world.Config) (*world.Region, error) {
	cfg = cfg.Normalized()
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.regions[cfg.ID]; ok {
		return nil, fmt.Errorf("load %q: %w", cfg.ID, ErrDuplicateRegion)
	}
	region := world.NewRegion(cfg)
	e.regions[cfg.ID] = region
	e.regionOrder = append(e.regionOrder, cfg.ID)
	sort.Strings(e.regionOrder)
	e.registry.RegionLoaded(region)
	return region, nil
}

// Region returns a loaded region.
func (e *Engine) Region(id string) *world.Region {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.regions[id]
}

// RegionIDs lists loaded regions in id order.
func (e *Engine) RegionIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.regionOrder...)
}

// RegionUnloaded detaches every actor in the region, disposes its bridges
// and marks it unloaded. Actors stay registered but inert.
func (e *Engine) RegionUnloaded(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	region, ok := e.regions[id]
	if !ok {
		return fmt.Errorf("unload %q: %w", id, ErrUnknownRegion)
	}
	e.unloadLocked(region)
	delete(e.regions, id)
	e.regionOrder = removeString(e.regionOrder, id)
	return nil
}

func (e *Engine) unloadLocked(region *world.Region) {
	for _, id := range e.actorOrder {
		if actor := e.actors[id]; actor.Body.Region == region {
			actor.Detach("region_unloaded")
		}
	}
	e.registry.RegionUnloaded(region)
	region.MarkUnloaded()
}

// Shutdown unloads every region.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range e.regionOrder {
		e.unloadLocked(e.regions[id])
	}
	e.registry.Shutdown()
	e.regions = make(map[string]*world.Region)
	e.regionOrder = nil
}

// AddActor spawns a two-part actor body at pos and gives it silk state.
func (e *Engine) AddActor(regionID, id string, pos geom.Vec2) (*silk.Actor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	region, ok := e.regions[regionID]
	if !ok {
		return nil, fmt.Errorf("add actor %q: %w", id, ErrUnknownRegion)
	}
	if _, exists := e.actors[id]; exists {
		return nil, fmt.Errorf("add actor %q: %w", id, ErrDuplicateActor)
	}
	body := world.NewActorBody(id, pos)
	region.AddBody(body)
	actor := silk.NewActor(body, e.registry)
	e.actors[id] = actor
	e.actorOrder = append(e.actorOrder, id)
	return actor, nil
}

// AddBody places a non-actor body such as a creature or a pullable object.
func (e *Engine) AddBody(regionID string, body *world.Body) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	region, ok := e.regions[regionID]
	if !ok {
		return fmt.Errorf("add body %q: %w", body.ID, ErrUnknownRegion)
	}
	region.AddBody(body)
	return nil
}

// Actor returns the silk state of an actor.
func (e *Engine) Actor(id string) *silk.Actor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.actors[id]
}

// RemoveActor releases the actor's silk state and drops its body.
func (e *Engine) RemoveActor(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.removeLocked(id)
}

func (e *Engine) removeLocked(id string) bool {
	actor, ok := e.actors[id]
	if !ok {
		return false
	}
	actor.Detach("removed")
	if actor.Body.Region != nil {
		actor.Body.Region.RemoveBody(actor.Body)
	}
	actor.Body.Removed = true
	delete(e.actors, id)
	delete(e.intents, id)
	e.actorOrder = removeString(e.actorOrder, id)
	e.removed = append(e.removed, id)
	return true
}

// RemovedActors drains the ids removed since the last call.
func (e *Engine) RemovedActors() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.removed
	e.removed = nil
	return out
}

// Apply stages commands for the next step. Input replaces the body's input.
// Silk intents for the same actor are merged so edge triggers are not lost;
// the held build flag and aim carry over to later ticks until replaced.
func (e *Engine) Apply(cmds []Command) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var errs []error
	for _, cmd := range cmds {
		actor, ok := e.actors[cmd.ActorID]
		if !ok {
			errs = append(errs, fmt.Errorf("command %s: unknown actor %q", cmd.Type, cmd.ActorID))
			continue
		}
		switch cmd.Type {
		case CommandInput:
			if cmd.Input != nil {
				actor.Body.SetInput(*cmd.Input)
			}
		case CommandSilk:
			if cmd.Silk != nil {
				e.intents[cmd.ActorID] = mergeIntent(e.intents[cmd.ActorID], *cmd.Silk)
			}
		default:
			errs = append(errs, fmt.Errorf("command %s: unsupported type", cmd.Type))
		}
	}
	return errors.Join(errs...)
}

func mergeIntent(prev, next silk.Intent) silk.Intent {
	next.Shoot = next.Shoot || prev.Shoot
	next.Release = next.Release || prev.Release
	next.Fire = next.Fire || prev.Fire
	next.Grab = next.Grab || prev.Grab
	if next.Target == nil {
		next.Target = prev.Target
	}
	return next
}

// Step advances every loaded region by one tick.
func (e *Engine) Step() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tick++
	e.registry.SetTick(e.tick)
	e.breaks = e.breaks[:0]
	for _, id := range e.regionOrder {
		e.updateLocked(e.regions[id])
	}
	for id, intent := range e.intents {
		e.intents[id] = silk.Intent{Build: intent.Build, Aim: intent.Aim}
	}
	if e.deps.Metrics != nil {
		e.deps.Metrics.Add(telemetry.MetricTicks, 1)
		e.deps.Metrics.Store(telemetry.MetricBridges, uint64(e.registry.Count()))
		e.deps.Metrics.Store(telemetry.MetricActors, uint64(len(e.actors)))
		e.deps.Metrics.Store(telemetry.MetricImpacts, e.impacts)
	}
}

// BridgeCount returns the number of live bridges across all regions.
func (e *Engine) BridgeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Count()
}

// Impacts returns the number of body impacts resolved so far.
func (e *Engine) Impacts() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.impacts
}

// Update advances a single region by one tick without advancing the tick
// counter.
func (e *Engine) Update(region *world.Region) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.updateLocked(region)
}

// updateLocked runs the region tick: bodies, bridges, impacts, then each
// actor's silk state, then cleanup of dead actors.
func (e *Engine) updateLocked(region *world.Region) {
	if !region.Loaded() {
		return
	}
	if e.cfg.StepBodies {
		for _, body := range region.Bodies() {
			region.Step(body)
		}
	}
	e.registry.Update(region)
	e.impacts += uint64(len(silk.ResolveImpacts(e.registry, region)))

	for _, id := range e.actorOrder {
		actor := e.actors[id]
		if actor.Body.Region != region {
			continue
		}
		actor.Update(e.tick, e.intents[id])
	}
	for _, id := range e.actorOrder {
		actor := e.actors[id]
		if actor.Body.Region == region && (actor.Body.Dead || actor.Body.Removed) {
			actor.Detach("actor_lost")
		}
	}
	e.breaks = append(e.breaks, e.registry.DrainBreaks()...)
}

func removeString(list []string, value string) []string {
	for i, v := range list {
		if v == value {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
