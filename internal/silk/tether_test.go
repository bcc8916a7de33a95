package silk

import (
	"math"
	"testing"

	"silkweaver/internal/geom"
	"silkweaver/internal/world"
	silklog "silkweaver/logging/silk"
	"silkweaver/logging/sinks"
)

type tetherFixture struct {
	region *world.Region
	body   *world.Body
	reg    *Registry
	sink   *sinks.MemorySink
	tether *Tether
}

func newTetherFixture(region *world.Region) tetherFixture {
	body := world.NewBody("spider", world.KindActor, geom.Zero, 1, 8)
	region.AddBody(body)
	reg, sink := newTestRegistry(region)
	tether := NewTether(body, reg, reg.Config().Tether)
	tether.emit = newEmitter(sink, body)
	return tetherFixture{region: region, body: body, reg: reg, sink: sink, tether: tether}
}

func TestTetherShootAttachesToWall(t *testing.T) {
	region := newTestRegion()
	wallAt(region, 110)
	f := newTetherFixture(region)

	f.tether.Shoot(geom.Right)
	if f.tether.Mode != TetherShootingOut {
		t.Fatalf("expected shooting out, got %s", f.tether.Mode)
	}
	ticks := 0
	for ticks < 5 && !f.tether.Attached() {
		f.tether.Update()
		ticks++
	}
	if f.tether.Mode != TetherAttachedToTerrain {
		t.Fatalf("expected terrain attachment, got %s", f.tether.Mode)
	}
	if ticks != 2 {
		t.Fatalf("expected attachment on the second tick, got %d", ticks)
	}
	if !vecApprox(f.tether.Tip, geom.V(98.5, -2.7), 0.01) {
		t.Fatalf("expected tip pushed off the wall face, got %v", f.tether.Tip)
	}
	if !approx(f.tether.RequestedLength, geom.Dist(geom.Zero, f.tether.Tip), 0.01) {
		t.Fatalf("expected rope length to match attach distance, got %f", f.tether.RequestedLength)
	}
	events := f.sink.OfType(silklog.EventTetherAttached)
	if len(events) != 1 {
		t.Fatalf("expected one attach event, got %d", len(events))
	}
	if events[0].Actor.ID != "spider" {
		t.Fatalf("expected attach event for spider, got %q", events[0].Actor.ID)
	}
}

func TestTetherShootIgnoredUnlessRetracted(t *testing.T) {
	f := newTetherFixture(newTestRegion())
	f.tether.Shoot(geom.Right)
	f.tether.Update()
	tip, vel := f.tether.Tip, f.tether.Vel

	f.tether.Shoot(geom.Left)
	if f.tether.Tip != tip || f.tether.Vel != vel {
		t.Fatalf("expected a second shot to be ignored while in flight")
	}
}

func TestTetherReleaseCollapsesRope(t *testing.T) {
	region := newTestRegion()
	wallAt(region, 110)
	f := newTetherFixture(region)
	f.tether.Shoot(geom.Right)
	for i := 0; i < 5 && !f.tether.Attached(); i++ {
		f.tether.Update()
	}
	if !f.tether.Attached() {
		t.Fatalf("expected the tether to attach")
	}

	f.tether.Release(false)
	if f.tether.Mode != TetherRetracted {
		t.Fatalf("expected retracted after release, got %s", f.tether.Mode)
	}
	path := f.tether.RopePath()
	if len(path) != 2 || path[0] != f.body.Pos() || path[1] != f.body.Pos() {
		t.Fatalf("expected a collapsed rope at the actor, got %v", path)
	}
	released := f.sink.OfType(silklog.EventTetherReleased)
	if len(released) != 1 {
		t.Fatalf("expected one release event, got %d", len(released))
	}

	f.tether.Release(false)
	if got := len(f.sink.OfType(silklog.EventTetherReleased)); got != 1 {
		t.Fatalf("expected releasing a retracted tether to stay silent, got %d events", got)
	}
}

func TestTetherFlightAlwaysTerminates(t *testing.T) {
	for i := 0; i < 16; i++ {
		angle := float64(i) * math.Pi / 8
		f := newTetherFixture(newTestRegion())
		f.tether.Shoot(geom.V(math.Cos(angle), math.Sin(angle)))
		limit := f.reg.Config().Tether.MaxFlightTicks + 1
		for tick := 0; tick < limit && f.tether.Mode == TetherShootingOut; tick++ {
			f.tether.Update()
		}
		if f.tether.Mode != TetherRetracted {
			t.Fatalf("angle %d: expected flight into open space to end retracted, got %s", i, f.tether.Mode)
		}
	}
}

func TestTetherViaPointWrapsAndUnwraps(t *testing.T) {
	region := newTestRegion()
	wallAt(region, 210)
	f := newTetherFixture(region)
	f.tether.attachTerrain(geom.V(198.5, 0))
	f.tether.Update()
	if f.tether.ViaPointCount() != 0 {
		t.Fatalf("expected a straight rope, got %d via points", f.tether.ViaPointCount())
	}
	before := f.tether.RopePath()

	obstacle := region.TileOf(geom.V(110, 0))
	region.SetTile(obstacle, world.TileSolid)
	f.tether.Update()
	if f.tether.ViaPointCount() != 1 {
		t.Fatalf("expected the rope to wrap the obstacle, got %d via points", f.tether.ViaPointCount())
	}
	if via := f.tether.RopePath()[1]; !vecApprox(via, geom.V(98.5, 0), 0.01) {
		t.Fatalf("expected via point off the obstacle face, got %v", via)
	}

	region.SetTile(obstacle, world.TileEmpty)
	cooldown := f.reg.Config().Tether.ViaPointCooldown
	for i := 0; i <= cooldown; i++ {
		f.tether.Update()
	}
	if f.tether.ViaPointCount() != 0 {
		t.Fatalf("expected the via point to be removed once the line is clear, got %d", f.tether.ViaPointCount())
	}
	after := f.tether.RopePath()
	if len(after) != len(before) {
		t.Fatalf("expected path %v, got %v", before, after)
	}
	for i := range before {
		if !vecApprox(before[i], after[i], 1e-6) {
			t.Fatalf("expected path %v, got %v", before, after)
		}
	}
}

func TestTetherViaPointKeptDuringCooldown(t *testing.T) {
	region := newTestRegion()
	wallAt(region, 210)
	f := newTetherFixture(region)
	f.tether.attachTerrain(geom.V(198.5, 0))
	obstacle := region.TileOf(geom.V(110, 0))
	region.SetTile(obstacle, world.TileSolid)
	f.tether.Update()
	region.SetTile(obstacle, world.TileEmpty)

	f.tether.Update()
	if f.tether.ViaPointCount() != 1 {
		t.Fatalf("expected a fresh via point to survive its cooldown, got %d", f.tether.ViaPointCount())
	}
}

func TestTetherPullsObject(t *testing.T) {
	region := newTestRegion()
	crate := world.NewBody("crate", world.KindItem, geom.V(200, 0), 1, 10)
	crate.Pullable = true
	region.AddBody(crate)
	f := newTetherFixture(region)

	f.tether.Shoot(geom.Right)
	for i := 0; i < 6 && !f.tether.Attached(); i++ {
		f.tether.Update()
	}
	if f.tether.AttachedObject() != crate {
		t.Fatalf("expected the tether to hold the crate, mode %s", f.tether.Mode)
	}

	f.tether.Reel(1)
	if !f.tether.Pulling {
		t.Fatalf("expected reeling in on an object to start pulling")
	}
	f.tether.Update()
	if crate.Parts[0].Vel.X() >= 0 {
		t.Fatalf("expected the crate to move toward the actor, got %v", crate.Parts[0].Vel)
	}
}

func TestTetherRetractsWhenObjectRemoved(t *testing.T) {
	region := newTestRegion()
	crate := world.NewBody("crate", world.KindItem, geom.V(200, 0), 1, 10)
	crate.Pullable = true
	region.AddBody(crate)
	f := newTetherFixture(region)
	f.tether.Shoot(geom.Right)
	for i := 0; i < 6 && !f.tether.Attached(); i++ {
		f.tether.Update()
	}
	if f.tether.AttachedObject() != crate {
		t.Fatalf("expected the tether to hold the crate")
	}

	region.RemoveBody(crate)
	f.tether.Update()
	if f.tether.Mode != TetherRetracting {
		t.Fatalf("expected retracting after the object vanished, got %s", f.tether.Mode)
	}
	f.tether.Update()
	if f.tether.Mode != TetherRetracted {
		t.Fatalf("expected retracted one tick later, got %s", f.tether.Mode)
	}
	released := f.sink.OfType(silklog.EventTetherReleased)
	if len(released) != 1 {
		t.Fatalf("expected one release event, got %d", len(released))
	}
}

func TestTetherRidesBridgeUntilItBreaks(t *testing.T) {
	region := newTestRegion()
	f := newTetherFixture(region)
	bridge := f.reg.CreateBridge(region, TerrainAnchor(geom.V(90, -60)), TerrainAnchor(geom.V(90, 60)))
	if bridge == nil {
		t.Fatalf("expected bridge to be created")
	}

	f.tether.Shoot(geom.Right)
	for i := 0; i < 5 && !f.tether.Attached(); i++ {
		f.tether.Update()
	}
	got, _, _ := f.tether.AttachedBridge()
	if got != bridge {
		t.Fatalf("expected the tether to ride the bridge, mode %s", f.tether.Mode)
	}

	bridge.TakeDamage(bridge.Health+1, f.tether.Tip)
	f.tether.Update()
	if f.tether.Mode != TetherRetracting {
		t.Fatalf("expected retracting after the bridge broke, got %s", f.tether.Mode)
	}
	f.tether.Update()
	if f.tether.Mode != TetherRetracted {
		t.Fatalf("expected retracted, got %s", f.tether.Mode)
	}
}

func TestTetherReelAdjustsIdealLength(t *testing.T) {
	region := newTestRegion()
	wallAt(region, 210)
	f := newTetherFixture(region)
	f.tether.attachTerrain(geom.V(198.5, 0))
	start := f.tether.IdealLength

	f.tether.Reel(1)
	if f.tether.IdealLength >= start {
		t.Fatalf("expected reeling in to shorten the rope, got %f", f.tether.IdealLength)
	}
	if f.tether.Pulling {
		t.Fatalf("expected no pull while anchored to plain terrain")
	}
	f.tether.Reel(-1)
	f.tether.Reel(-1)
	if f.tether.IdealLength <= start {
		t.Fatalf("expected reeling out to lengthen the rope, got %f", f.tether.IdealLength)
	}
}

func TestTetherReleasesWhenActorRemoved(t *testing.T) {
	region := newTestRegion()
	wallAt(region, 210)
	f := newTetherFixture(region)
	f.tether.attachTerrain(geom.V(198.5, 0))

	region.RemoveBody(f.body)
	f.tether.Update()
	if f.tether.Mode != TetherRetracted {
		t.Fatalf("expected release when the actor is gone, got %s", f.tether.Mode)
	}
	released := f.sink.OfType(silklog.EventTetherReleased)
	if len(released) != 1 {
		t.Fatalf("expected one release event, got %d", len(released))
	}
}

func TestTetherSwingAndPinLength(t *testing.T) {
	region := newTestRegion()
	wallAt(region, 210)
	f := newTetherFixture(region)
	f.tether.attachTerrain(geom.V(198.5, 0))

	f.tether.Swing(1)
	vel := f.body.Parts[0].Vel
	if vel.X() != 0 || vel.Y() >= 0 {
		t.Fatalf("expected a sideways push with a downward bias, got %v", vel)
	}

	f.tether.Reel(1)
	f.tether.PinLength()
	if !approx(f.tether.IdealLength, f.tether.RequestedLength, 1e-9) {
		t.Fatalf("expected pinning to restore the requested length, got %f vs %f", f.tether.IdealLength, f.tether.RequestedLength)
	}
}

func TestTetherDetachPhysicsOnlyIsSilent(t *testing.T) {
	region := newTestRegion()
	wallAt(region, 210)
	f := newTetherFixture(region)
	f.tether.attachTerrain(geom.V(198.5, 0))
	f.tether.Elastic = 0.5
	f.tether.Vel = geom.V(3, 4)
	f.tether.bridgeSeg, f.tether.bridgeFrac = 2, 0.75

	f.tether.DetachPhysicsOnly()
	if f.tether.Mode != TetherRetracted {
		t.Fatalf("expected retracted, got %s", f.tether.Mode)
	}
	if f.tether.Elastic != 0 || f.tether.Vel != geom.Zero {
		t.Fatalf("expected rope motion cleared, elastic %f vel %v", f.tether.Elastic, f.tether.Vel)
	}
	if f.tether.bridgeSeg != 0 || f.tether.bridgeFrac != 0 {
		t.Fatalf("expected bridge attachment cleared, got %d/%f", f.tether.bridgeSeg, f.tether.bridgeFrac)
	}
	if f.tether.Tip != f.body.Pos() {
		t.Fatalf("expected the tip back at the body, got %v", f.tether.Tip)
	}
	if got := len(f.sink.OfType(silklog.EventTetherReleased)); got != 0 {
		t.Fatalf("expected no release event, got %d", got)
	}
}

func TestTetherElasticityPullsTowardAnchor(t *testing.T) {
	region := newTestRegion()
	wallAt(region, 210)
	f := newTetherFixture(region)
	f.tether.attachTerrain(geom.V(198.5, 0))
	f.tether.IdealLength = 150
	f.tether.RequestedLength = 100
	f.body.Parts[0].Vel = geom.V(-5, 0)

	f.tether.Update()
	cfg := f.reg.Config().Tether
	if pos := f.body.Parts[0].Pos; !vecApprox(pos, geom.V(cfg.ElasticMaxPull, 0), 1e-9) {
		t.Fatalf("expected a capped pull toward the anchor, got %v", pos)
	}
	if vel := f.body.Parts[0].Vel; !vecApprox(vel, geom.V(-3, 0), 1e-9) {
		t.Fatalf("expected the outward velocity damped, got %v", vel)
	}
	if want := cfg.ElasticGain - cfg.ElasticDecay; !approx(f.tether.Elastic, want, 1e-9) {
		t.Fatalf("expected elastic %f, got %f", want, f.tether.Elastic)
	}
	step := (1 - f.tether.Elastic) * cfg.LengthRate
	if !approx(f.tether.RequestedLength, 100+step, 1e-9) {
		t.Fatalf("expected requested length to relax by %f, got %f", step, f.tether.RequestedLength)
	}
}

func TestTetherElasticityCaps(t *testing.T) {
	region := newTestRegion()
	wallAt(region, 210)
	f := newTetherFixture(region)
	f.tether.attachTerrain(geom.V(198.5, 0))
	f.tether.RequestedLength = 10

	for i := 0; i < 20; i++ {
		f.tether.applyElasticity()
	}
	if limit := f.reg.Config().Tether.ElasticMax; f.tether.Elastic != limit {
		t.Fatalf("expected elastic capped at %f, got %f", limit, f.tether.Elastic)
	}
}

func TestTetherRequestedLengthRelaxation(t *testing.T) {
	region := newTestRegion()
	wallAt(region, 210)
	f := newTetherFixture(region)
	f.tether.attachTerrain(geom.V(198.5, 0))
	cfg := f.reg.Config().Tether

	f.tether.Pulling = true
	f.tether.Elastic = 0.5
	f.tether.IdealLength = 50
	f.tether.RequestedLength = 120
	f.tether.updateRopeLength()
	if f.tether.RequestedLength != 120 || f.tether.Elastic != 0.5 {
		t.Fatalf("expected no relaxation while pulling, got %f elastic %f", f.tether.RequestedLength, f.tether.Elastic)
	}

	f.tether.Pulling = false
	f.tether.IdealLength = 2 * cfg.MaxLength
	f.tether.RequestedLength = cfg.MaxLength - 1
	f.tether.updateRopeLength()
	if f.tether.RequestedLength != cfg.MaxLength {
		t.Fatalf("expected requested length clamped to %f, got %f", cfg.MaxLength, f.tether.RequestedLength)
	}

	f.tether.Elastic = 0
	f.tether.IdealLength = -50
	f.tether.RequestedLength = 2
	f.tether.updateRopeLength()
	if f.tether.RequestedLength != 0 {
		t.Fatalf("expected requested length clamped to zero, got %f", f.tether.RequestedLength)
	}
}

func TestTetherViaPointSlidesOutOfNewTerrain(t *testing.T) {
	region := newTestRegion()
	wallAt(region, 210)
	f := newTetherFixture(region)
	f.tether.attachTerrain(geom.V(198.5, 0))
	cooldown := uint64(f.reg.Config().Tether.ViaPointCooldown)
	f.tether.frame = 10
	f.tether.via = []viaPoint{
		{pos: geom.V(95, 0), born: 0},
		{pos: geom.V(85, 5), born: f.tether.frame - cooldown + 1},
	}
	region.SetTile(region.TileOf(geom.V(95, 0)), world.TileSolid)

	f.tether.slideViaPoints()
	if got := f.tether.via[0].pos; !vecApprox(got, geom.V(96, 0), 1e-9) {
		t.Fatalf("expected the settled via point pushed away from the tile centre, got %v", got)
	}
	if got := f.tether.via[1].pos; !vecApprox(got, geom.V(85, 5), 1e-9) {
		t.Fatalf("expected a fresh via point left in place, got %v", got)
	}

	for i := 0; i < 10; i++ {
		f.tether.slideViaPoints()
	}
	if region.SolidAt(f.tether.via[0].pos) {
		t.Fatalf("expected the via point to leave the solid tile, at %v", f.tether.via[0].pos)
	}
}
