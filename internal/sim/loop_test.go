package sim

import (
	"testing"

	"silkweaver/internal/geom"
	"silkweaver/internal/silk"
	"silkweaver/internal/world"
)

func newLoopFixture(t *testing.T, cfg LoopConfig, hooks LoopHooks) *Loop {
	t.Helper()
	engine := NewEngine(EngineConfig{}, Deps{})
	if _, err := engine.RegionLoaded(world.Config{ID: "room", Columns: 40, Rows: 20, OriginX: -400, OriginY: -210}); err != nil {
		t.Fatalf("load region: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		if _, err := engine.AddActor("room", id, geom.Zero); err != nil {
			t.Fatalf("add actor %s: %v", id, err)
		}
	}
	return NewLoop(engine, cfg, hooks)
}

func TestLoopEnforcesPerActorLimit(t *testing.T) {
	var drops []string
	loop := newLoopFixture(t, LoopConfig{PerActorLimit: 2}, LoopHooks{
		OnCommandDrop: func(reason string, cmd Command) {
			drops = append(drops, reason+":"+cmd.ActorID)
		},
	})

	for i := 0; i < 2; i++ {
		if ok, reason := loop.Enqueue(Command{ActorID: "a", Type: CommandInput, Input: &world.Input{X: 1}}); !ok {
			t.Fatalf("command %d rejected: %s", i, reason)
		}
	}
	ok, reason := loop.Enqueue(Command{ActorID: "a", Type: CommandInput, Input: &world.Input{X: 1}})
	if ok || reason != CommandRejectQueueLimit {
		t.Fatalf("expected queue limit rejection, got ok=%v reason=%q", ok, reason)
	}
	if ok, _ := loop.Enqueue(Command{ActorID: "b", Type: CommandInput, Input: &world.Input{X: -1}}); !ok {
		t.Fatalf("expected other actors to be unaffected")
	}
	if len(drops) != 1 || drops[0] != "queue_limit:a" {
		t.Fatalf("unexpected drops %v", drops)
	}

	loop.Advance(LoopTickContext{})
	if ok, _ := loop.Enqueue(Command{ActorID: "a", Type: CommandInput, Input: &world.Input{}}); !ok {
		t.Fatalf("expected the limit to reset after a tick")
	}
}

func TestLoopRejectsWhenBufferFull(t *testing.T) {
	loop := newLoopFixture(t, LoopConfig{CommandCapacity: 2}, LoopHooks{})
	loop.Enqueue(Command{ActorID: "a", Type: CommandInput, Input: &world.Input{}})
	loop.Enqueue(Command{ActorID: "b", Type: CommandInput, Input: &world.Input{}})
	ok, reason := loop.Enqueue(Command{ActorID: "a", Type: CommandInput, Input: &world.Input{}})
	if ok || reason != CommandRejectQueueFull {
		t.Fatalf("expected full rejection, got ok=%v reason=%q", ok, reason)
	}
	if loop.Pending() != 2 {
		t.Fatalf("expected two pending commands, got %d", loop.Pending())
	}
}

func TestLoopAdvanceAppliesCommands(t *testing.T) {
	loop := newLoopFixture(t, LoopConfig{}, LoopHooks{})
	loop.Enqueue(Command{ActorID: "a", Type: CommandInput, Input: &world.Input{X: 1, Jump: true}})
	loop.Enqueue(Command{ActorID: "b", Type: CommandSilk, Silk: &silk.Intent{Shoot: true, Aim: geom.Up}})

	result := loop.Advance(LoopTickContext{Delta: 0.025})
	if result.Tick != 1 || loop.Engine().Tick() != 1 {
		t.Fatalf("expected tick 1, got %d", result.Tick)
	}
	if len(result.Commands) != 2 {
		t.Fatalf("expected two applied commands, got %d", len(result.Commands))
	}
	if loop.Pending() != 0 {
		t.Fatalf("expected the buffer to drain")
	}
	if got := loop.Engine().Actor("a").Body.Input; got.X != 1 || !got.Jump {
		t.Fatalf("unexpected input %+v", got)
	}
	if mode := loop.Engine().Actor("b").Tether.Mode; mode != silk.TetherShootingOut {
		t.Fatalf("expected b to be shooting, got %s", mode)
	}
}

func TestLoopAdvanceReportsRemovedActors(t *testing.T) {
	loop := newLoopFixture(t, LoopConfig{}, LoopHooks{})
	loop.Engine().RemoveActor("b")
	result := loop.Advance(LoopTickContext{})
	if len(result.Removed) != 1 || result.Removed[0] != "b" {
		t.Fatalf("unexpected removed list %v", result.Removed)
	}
}

func TestNilLoopIsInert(t *testing.T) {
	var loop *Loop
	if NewLoop(nil, LoopConfig{}, LoopHooks{}) != nil {
		t.Fatalf("expected nil loop without an engine")
	}
	if ok, reason := loop.Enqueue(Command{}); ok || reason != CommandRejectQueueFull {
		t.Fatalf("expected nil loop to reject")
	}
	if loop.Pending() != 0 || loop.Engine() != nil {
		t.Fatalf("expected nil loop to be empty")
	}
}
