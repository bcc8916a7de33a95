package silk

import (
	"context"

	"silkweaver/logging"
)

const (
	// EventTetherAttached is emitted when a tether tip fixes onto terrain, an object or a bridge.
	EventTetherAttached logging.EventType = "silk.tether_attached"
	// EventTetherReleased is emitted when a tether returns to the retracted state.
	EventTetherReleased logging.EventType = "silk.tether_released"
	// EventBridgeCreated is emitted when a build attempt produces a bridge.
	EventBridgeCreated logging.EventType = "silk.bridge_created"
	// EventBridgeBroken is emitted once when a bridge's health is exhausted.
	EventBridgeBroken logging.EventType = "silk.bridge_broken"
	// EventBridgeCollapsed is emitted when a bridge is removed because an anchor became invalid.
	EventBridgeCollapsed logging.EventType = "silk.bridge_collapsed"
	// EventBuildCancelled is emitted when a build attempt ends without a bridge.
	EventBuildCancelled logging.EventType = "silk.build_cancelled"
	// EventClimbAttached is emitted when an actor starts climbing a surface.
	EventClimbAttached logging.EventType = "silk.climb_attached"
	// EventClimbDetached is emitted when an actor stops climbing.
	EventClimbDetached logging.EventType = "silk.climb_detached"
)

// Point is a world position in event payloads.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TetherAttachedPayload describes where a tether tip attached.
type TetherAttachedPayload struct {
	Target   string  `json:"target"`
	Tip      Point   `json:"tip"`
	BridgeID string  `json:"bridgeId,omitempty"`
	Length   float64 `json:"length"`
}

// TetherReleasedPayload records why a tether was released.
type TetherReleasedPayload struct {
	Reason  string `json:"reason"`
	Instant bool   `json:"instant"`
}

// BridgeCreatedPayload summarises a new bridge.
type BridgeCreatedPayload struct {
	BridgeID  string  `json:"bridgeId"`
	Nodes     int     `json:"nodes"`
	MaxLength float64 `json:"maxLength"`
	Start     Point   `json:"start"`
	End       Point   `json:"end"`
	StartKind string  `json:"startKind"`
	EndKind   string  `json:"endKind"`
}

// BridgeBrokenPayload carries the full path and the two fragments split at the break point.
type BridgeBrokenPayload struct {
	BridgeID   string  `json:"bridgeId"`
	BreakPoint Point   `json:"breakPoint"`
	Path       []Point `json:"path"`
	Fragment1  []Point `json:"fragment1"`
	Fragment2  []Point `json:"fragment2"`
}

// BridgeCollapsedPayload records a bridge removed through anchor loss.
type BridgeCollapsedPayload struct {
	BridgeID string `json:"bridgeId"`
	Reason   string `json:"reason"`
}

// BuildCancelledPayload records why a build attempt ended without a bridge.
type BuildCancelledPayload struct {
	Reason   string  `json:"reason"`
	Distance float64 `json:"distance,omitempty"`
}

// ClimbAttachedPayload records the surface and traversal mode of a climb.
type ClimbAttachedPayload struct {
	SurfaceID string  `json:"surfaceId"`
	Segment   int     `json:"segment"`
	Fraction  float64 `json:"fraction"`
	Mode      string  `json:"mode"`
	Hanging   bool    `json:"hanging"`
}

// ClimbDetachedPayload records why a climb ended.
type ClimbDetachedPayload struct {
	SurfaceID string `json:"surfaceId,omitempty"`
	Reason    string `json:"reason"`
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	if event.Category == "" {
		event.Category = logging.CategorySilk
	}
	pub.Publish(ctx, event)
}

// TetherAttached publishes a tether attachment.
func TetherAttached(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload TetherAttachedPayload) {
	var targets []logging.EntityRef
	if payload.BridgeID != "" {
		targets = []logging.EntityRef{{ID: payload.BridgeID, Kind: logging.EntityKindBridge}}
	}
	publish(ctx, pub, logging.Event{
		Type:     EventTetherAttached,
		Tick:     tick,
		Actor:    actor,
		Targets:  targets,
		Severity: logging.SeverityDebug,
		Payload:  payload,
	})
}

// TetherReleased publishes a tether release.
func TetherReleased(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload TetherReleasedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventTetherReleased,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Payload:  payload,
	})
}

// BridgeCreated publishes a new bridge.
func BridgeCreated(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload BridgeCreatedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventBridgeCreated,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{{ID: payload.BridgeID, Kind: logging.EntityKindBridge}},
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

// BridgeBroken publishes a bridge break.
func BridgeBroken(ctx context.Context, pub logging.Publisher, tick uint64, payload BridgeBrokenPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventBridgeBroken,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: payload.BridgeID, Kind: logging.EntityKindBridge},
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

// BridgeCollapsed publishes a bridge removed after anchor loss.
func BridgeCollapsed(ctx context.Context, pub logging.Publisher, tick uint64, payload BridgeCollapsedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventBridgeCollapsed,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: payload.BridgeID, Kind: logging.EntityKindBridge},
		Severity: logging.SeverityWarn,
		Payload:  payload,
	})
}

// BuildCancelled publishes an abandoned build attempt.
func BuildCancelled(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload BuildCancelledPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventBuildCancelled,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Payload:  payload,
	})
}

// ClimbAttached publishes the start of a climb.
func ClimbAttached(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ClimbAttachedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventClimbAttached,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{{ID: payload.SurfaceID, Kind: logging.EntityKindBridge}},
		Severity: logging.SeverityDebug,
		Payload:  payload,
	})
}

// ClimbDetached publishes the end of a climb.
func ClimbDetached(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ClimbDetachedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventClimbDetached,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Payload:  payload,
	})
}
