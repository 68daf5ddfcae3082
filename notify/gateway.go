// Package notify defines the boundary to the notification dispatch
// gateway. The engine decides THAT somebody must be notified and to
// whom; delivery over email/SMS/in-app is an external collaborator's
// job and stays behind this interface.
package notify

import (
	"context"
	"log"

	"github.com/warp/treasury-engine/finance"
)

// Gateway accepts escalation events for delivery. Implementations own
// transport, retries, and provider plumbing; the engine never sees any
// of that.
type Gateway interface {
	// Dispatch hands one event off for delivery on the event's channels.
	Dispatch(ctx context.Context, ev finance.EscalationEvent) error
}

// =============================================================================
// LOG GATEWAY - Default no-transport implementation
// =============================================================================

// LogGateway writes each directive to the standard logger. Used in
// development and as the default when no real gateway is wired.
type LogGateway struct{}

func (LogGateway) Dispatch(_ context.Context, ev finance.EscalationEvent) error {
	log.Printf("[Notify] rule=%s ref=%s entity=%s tier=%s channels=%v measured=%s %s",
		ev.RuleID, ev.ReferenceID, ev.EntityID, ev.EscalateToTier, ev.Channels,
		ev.ContextSnapshot.Value, ev.ContextSnapshot.Unit)
	return nil
}

var _ Gateway = LogGateway{}
