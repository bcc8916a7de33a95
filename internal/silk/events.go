package silk

import (
	"silkweaver/internal/world"
	"silkweaver/logging"
)

// emitter carries the publisher, actor reference and current tick shared by
// the per-actor controllers.
type emitter struct {
	pub   logging.Publisher
	actor logging.EntityRef
	tick  uint64
}

func newEmitter(pub logging.Publisher, body *world.Body) *emitter {
	if pub == nil {
		pub = logging.NopPublisher()
	}
	ref := logging.EntityRef{Kind: logging.EntityKindActor}
	if body != nil {
		ref.ID = body.ID
	}
	return &emitter{pub: pub, actor: ref}
}
