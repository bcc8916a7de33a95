package silk

import (
	"silkweaver/internal/geom"
	"silkweaver/internal/world"
)

// Intent is one tick of silk input for an actor. Directional input is read
// from the body's Input.
type Intent struct {
	// Shoot toggles the tether: shoot when retracted, release when attached.
	Shoot bool `json:"shoot,omitempty"`
	// Aim is the shoot and build direction.
	Aim geom.Vec2 `json:"aim"`
	// Release drops an attached tether immediately.
	Release bool `json:"release,omitempty"`
	// Build holds build mode while the tether is attached.
	Build bool `json:"build,omitempty"`
	// Fire launches the virtual silk while in build mode.
	Fire bool `json:"fire,omitempty"`
	// Target is an optional aim point for the virtual silk.
	Target *geom.Vec2 `json:"target,omitempty"`
	// Grab starts climbing the nearest bridge.
	Grab bool `json:"grab,omitempty"`
}

// Actor bundles the silk state of one actor.
type Actor struct {
	Body    *world.Body
	Tether  *Tether
	Builder *Builder
	Climber *Climber

	emit *emitter
}

// NewActor wires a tether, builder and climber to body. All three share the
// registry's publisher and the actor's tick.
func NewActor(body *world.Body, registry *Registry) *Actor {
	cfg := registry.Config()
	emit := newEmitter(registry.Publisher(), body)
	tether := NewTether(body, registry, cfg.Tether)
	tether.emit = emit
	builder := NewBuilder(body, tether, registry)
	builder.emit = emit
	climber := NewClimber(body, tether, registry, cfg.Climb)
	climber.emit = emit
	return &Actor{Body: body, Tether: tether, Builder: builder, Climber: climber, emit: emit}
}

// ID returns the body id.
func (a *Actor) ID() string {
	return a.Body.ID
}

// Update runs one tick: build mode D2 tracking, intent, tether, builder and
// climbing, in that order.
func (a *Actor) Update(tick uint64, intent Intent) {
	a.emit.tick = tick
	if a.Builder.Active() && a.Tether.Attached() {
		a.Builder.RefreshD2()
	}
	a.Apply(intent)
	a.Tether.Update()
	a.Builder.Update()
	a.Climber.Update()
}

// Apply maps one intent onto the tether, builder and climber.
func (a *Actor) Apply(intent Intent) {
	body := a.Body
	if !body.Valid() || body.Dead {
		return
	}
	in, prev := body.Input, body.PrevInput

	switch {
	case intent.Build && a.Tether.Attached():
		if !a.Builder.Active() {
			a.Builder.Activate(a.Tether.Tip)
		}
		if intent.Fire && a.Builder.Phase == BuilderActive {
			a.Builder.ShootVirtualSilk(a.aimDir(intent), a.Builder.D2(), body.Region, intent.Target)
			a.Tether.Release(false)
		}
	case a.Builder.Phase == BuilderActive:
		a.Builder.Deactivate()
	}
	if a.Builder.Active() {
		return
	}

	if prev.Y != 0 && in.Y == 0 && a.Tether.Attached() {
		a.Tether.PinLength()
	}
	if intent.Release && a.Tether.Attached() {
		a.Tether.Release(false)
		return
	}
	if intent.Shoot {
		switch {
		case a.Tether.Mode == TetherRetracted && !a.Climber.Climbing():
			a.Tether.Shoot(a.aimDir(intent))
		case a.Tether.Attached():
			a.Tether.Release(false)
		}
	}
	if a.Tether.Attached() {
		a.Tether.Reel(in.Y)
		a.Tether.Swing(in.X)
	}
	if intent.Grab {
		a.Climber.Grab()
	}
}

// aimDir picks the intent's aim, then the body's motion, then its input.
func (a *Actor) aimDir(intent Intent) geom.Vec2 {
	if d := geom.Normalize(intent.Aim); d != geom.Zero {
		return d
	}
	if part := a.Body.Part(0); part != nil && part.Vel.Len() > 0.5 {
		return geom.Normalize(part.Vel)
	}
	if d := geom.Normalize(geom.V(float64(a.Body.Input.X), float64(a.Body.Input.Y))); d != geom.Zero {
		return d
	}
	return geom.Right
}

// Detach drops every silk link of the actor: climb, tether and build mode.
func (a *Actor) Detach(reason string) {
	a.Climber.Detach(reason)
	if a.Builder.Active() {
		a.Builder.Deactivate()
	}
	if a.Tether.Mode != TetherRetracted {
		a.Tether.release(true, reason)
	}
}
