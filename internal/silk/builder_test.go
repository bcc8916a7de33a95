package silk

import (
	"testing"

	"silkweaver/internal/geom"
	"silkweaver/internal/world"
	silklog "silkweaver/logging/silk"
	"silkweaver/logging/sinks"
)

type builderFixture struct {
	region  *world.Region
	reg     *Registry
	sink    *sinks.MemorySink
	body    *world.Body
	tether  *Tether
	builder *Builder
}

func newBuilderFixture(region *world.Region, cfg Config) builderFixture {
	sink := sinks.NewMemorySink()
	reg := NewRegistry(cfg, sink)
	reg.RegionLoaded(region)
	body := world.NewBody("weaver", world.KindActor, geom.V(-98.5, -60), 1, 8)
	region.AddBody(body)
	tether := NewTether(body, reg, reg.Config().Tether)
	return builderFixture{
		region:  region,
		reg:     reg,
		sink:    sink,
		body:    body,
		tether:  tether,
		builder: NewBuilder(body, tether, reg),
	}
}

func (f builderFixture) run(limit int) {
	for i := 0; i < limit && f.builder.Active(); i++ {
		f.builder.Update()
	}
}

func cancelReason(t *testing.T, sink *sinks.MemorySink) silklog.BuildCancelledPayload {
	t.Helper()
	events := sink.OfType(silklog.EventBuildCancelled)
	if len(events) != 1 {
		t.Fatalf("expected one cancel event, got %d", len(events))
	}
	payload, ok := events[0].Payload.(silklog.BuildCancelledPayload)
	if !ok {
		t.Fatalf("unexpected payload %T", events[0].Payload)
	}
	return payload
}

func TestBuilderCreatesBridgeOnTerrain(t *testing.T) {
	region := newTestRegion()
	wallAt(region, 110)
	f := newBuilderFixture(region, DefaultConfig())

	f.builder.Activate(geom.V(-98.5, 0))
	f.builder.ShootVirtualSilk(geom.Right, f.builder.D2(), region, nil)
	if !f.builder.Animating() {
		t.Fatalf("expected the projectile to be in flight")
	}
	f.run(10)

	bridge := f.builder.LastBridge
	if bridge == nil {
		t.Fatalf("expected a bridge, events %v", f.sink.Events())
	}
	d1 := bridge.Anchor1.Position()
	if !approx(d1.X(), 100, 0.01) || d1.Y() > -5 || d1.Y() < -10 {
		t.Fatalf("expected D1 on the wall face, got %v", d1)
	}
	if bridge.Anchor2.Position() != geom.V(-98.5, 0) {
		t.Fatalf("expected D2 at the activation point, got %v", bridge.Anchor2.Position())
	}
	if f.builder.Phase != BuilderInactive {
		t.Fatalf("expected build mode to end, got %s", f.builder.Phase)
	}
	if f.reg.Count() != 1 {
		t.Fatalf("expected one registered bridge, got %d", f.reg.Count())
	}
	if got := len(f.sink.OfType(silklog.EventBridgeCreated)); got != 1 {
		t.Fatalf("expected one created event, got %d", got)
	}
}

func TestBuilderSnapsToBeamMidline(t *testing.T) {
	region := newTestRegion()
	beam := region.TileOf(geom.V(30, 0))
	region.SetTile(beam, world.TileHorizontalBeam)
	f := newBuilderFixture(region, DefaultConfig())

	f.builder.Activate(geom.V(-98.5, 0))
	f.builder.ShootVirtualSilk(geom.Right, f.builder.D2(), region, nil)
	f.run(10)

	bridge := f.builder.LastBridge
	if bridge == nil {
		t.Fatalf("expected a bridge on the beam")
	}
	center := region.TileCenter(beam)
	d1 := bridge.Anchor1.Position()
	if d1.Y() != center.Y() {
		t.Fatalf("expected D1 on the beam midline %f, got %v", center.Y(), d1)
	}
	tol := f.reg.Config().Builder.BeamTolerance
	if d1.X() < center.X()-tol || d1.X() > center.X()+tol {
		t.Fatalf("expected D1 within beam tolerance of %v, got %v", center, d1)
	}
}

func TestBuilderAnchorsOnCrossedBridge(t *testing.T) {
	region := newTestRegion()
	f := newBuilderFixture(region, DefaultConfig())
	post := f.reg.CreateBridge(region, TerrainAnchor(geom.V(50, -60)), TerrainAnchor(geom.V(50, 60)))

	f.builder.Activate(geom.V(-98.5, 0))
	f.builder.ShootVirtualSilk(geom.Right, f.builder.D2(), region, nil)
	f.run(10)

	bridge := f.builder.LastBridge
	if bridge == nil {
		t.Fatalf("expected a bridge")
	}
	if bridge.Anchor1.Kind != AnchorBridge || bridge.Anchor1.Bridge != post {
		t.Fatalf("expected D1 to ride the crossed bridge, got %s", bridge.Anchor1.Kind)
	}
}

func TestBuilderActivateFollowsTetherBridge(t *testing.T) {
	region := newTestRegion()
	f := newBuilderFixture(region, DefaultConfig())
	post := f.reg.CreateBridge(region, TerrainAnchor(geom.V(-90, -60)), TerrainAnchor(geom.V(-90, 60)))
	f.tether.attachBridge(post, geom.V(-90, 0))

	f.builder.Activate(f.tether.Tip)
	if f.builder.d2.kind != AnchorBridge || f.builder.d2.bridge != post {
		t.Fatalf("expected D2 to copy the tether's bridge attachment")
	}
	if !vecApprox(f.builder.D2(), f.tether.Tip, 1e-6) {
		t.Fatalf("expected D2 at the tether tip, got %v", f.builder.D2())
	}

	post.TakeDamage(post.Health+1, f.tether.Tip)
	f.builder.RefreshD2()
	if f.builder.d2.kind != AnchorTerrain {
		t.Fatalf("expected D2 to fall back to terrain once the bridge is gone")
	}
}

func TestBuilderCancelsWhenProjectileTurnsBack(t *testing.T) {
	region := newTestRegion()
	cfg := DefaultConfig()
	cfg.Builder.ShootSpeed = 10
	f := newBuilderFixture(region, cfg)
	f.tether.attachTerrain(geom.V(-98.5, 0))

	f.builder.Activate(f.tether.Tip)
	f.builder.ShootVirtualSilk(geom.Up, f.builder.D2(), region, nil)
	f.run(100)

	if f.builder.Active() {
		t.Fatalf("expected the build to be cancelled")
	}
	if f.builder.LastBridge != nil || f.reg.Count() != 0 {
		t.Fatalf("expected no bridge")
	}
	if f.tether.Attached() {
		t.Fatalf("expected cancelling to drop the tether attachment")
	}
	if payload := cancelReason(t, f.sink); payload.Reason != "reversed" {
		t.Fatalf("expected reversed, got %q", payload.Reason)
	}
}

func TestBuilderCancelsBeyondMaxDistance(t *testing.T) {
	region := newTestRegion()
	wallAt(region, 110)
	cfg := DefaultConfig()
	cfg.Builder.MaxDistance = 100
	f := newBuilderFixture(region, cfg)

	f.builder.Activate(geom.V(-98.5, 0))
	f.builder.ShootVirtualSilk(geom.Right, f.builder.D2(), region, nil)
	f.run(10)

	if f.builder.LastBridge != nil || f.reg.Count() != 0 {
		t.Fatalf("expected no bridge beyond the distance cap")
	}
	payload := cancelReason(t, f.sink)
	if payload.Reason != "out_of_range" || payload.Distance <= 100 {
		t.Fatalf("expected out_of_range with the distance, got %+v", payload)
	}
}

func TestBuilderCancelsWhenRegionUnloads(t *testing.T) {
	region := newTestRegion()
	f := newBuilderFixture(region, DefaultConfig())
	f.builder.Activate(geom.V(-98.5, 0))
	f.builder.ShootVirtualSilk(geom.Right, f.builder.D2(), region, nil)

	region.MarkUnloaded()
	f.builder.Update()
	if f.builder.Active() {
		t.Fatalf("expected the build to stop")
	}
	if payload := cancelReason(t, f.sink); payload.Reason != "region_lost" {
		t.Fatalf("expected region_lost, got %q", payload.Reason)
	}
}

func TestBuilderShootRequiresActivePhase(t *testing.T) {
	region := newTestRegion()
	f := newBuilderFixture(region, DefaultConfig())
	f.builder.ShootVirtualSilk(geom.Right, geom.Zero, region, nil)
	if f.builder.Active() {
		t.Fatalf("expected shooting outside build mode to be ignored")
	}
}

func TestBuilderAimDecidesTerrainOrBridgeFirst(t *testing.T) {
	near := geom.V(110, 0)
	far := geom.V(400, 0)
	cases := []struct {
		name string
		aim  *geom.Vec2
		kind AnchorKind
		x    float64
	}{
		{name: "aim inside wall", aim: &near, kind: AnchorTerrain, x: 100},
		{name: "no aim", aim: nil, kind: AnchorBridge, x: 75},
		{name: "aim out of reach", aim: &far, kind: AnchorBridge, x: 75},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			region := newTestRegion()
			wallAt(region, 110)
			f := newBuilderFixture(region, DefaultConfig())
			if f.reg.CreateBridge(region, TerrainAnchor(geom.V(75, -100)), TerrainAnchor(geom.V(75, 100))) == nil {
				t.Fatalf("expected the crossing bridge to be created")
			}

			f.builder.Activate(geom.Zero)
			f.builder.ShootVirtualSilk(geom.Right, f.builder.D2(), region, tc.aim)
			f.run(10)

			bridge := f.builder.LastBridge
			if bridge == nil {
				t.Fatalf("expected a bridge, events %v", f.sink.Events())
			}
			if bridge.Anchor1.Kind != tc.kind {
				t.Fatalf("expected D1 on %s, got %s", tc.kind, bridge.Anchor1.Kind)
			}
			if d1 := bridge.Anchor1.Position(); !approx(d1.X(), tc.x, 0.01) {
				t.Fatalf("expected D1 at x=%f, got %v", tc.x, d1)
			}
		})
	}
}
