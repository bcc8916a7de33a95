package silk

import (
	"context"
	"testing"

	"silkweaver/logging"
)

func TestHelpersTolerateNilPublisher(t *testing.T) {
	TetherReleased(context.Background(), nil, 1, logging.EntityRef{}, TetherReleasedPayload{Reason: "test"})
	BridgeBroken(context.Background(), nil, 1, BridgeBrokenPayload{BridgeID: "b"})
}

func TestBridgeCreatedTargetsBridge(t *testing.T) {
	var got logging.Event
	pub := logging.PublisherFunc(func(_ context.Context, event logging.Event) { got = event })
	BridgeCreated(context.Background(), pub, 9, logging.EntityRef{ID: "a", Kind: logging.EntityKindActor}, BridgeCreatedPayload{BridgeID: "bridge-1", Nodes: 5})

	if got.Type != EventBridgeCreated {
		t.Fatalf("unexpected type %q", got.Type)
	}
	if got.Category != logging.CategorySilk {
		t.Fatalf("expected silk category, got %q", got.Category)
	}
	if len(got.Targets) != 1 || got.Targets[0].ID != "bridge-1" {
		t.Fatalf("expected bridge target, got %v", got.Targets)
	}
	if got.Tick != 9 {
		t.Fatalf("expected tick 9, got %d", got.Tick)
	}
}
