// Package tasks dispatches action items to external trackers. Each
// dispatcher issues one create call per item and records per-item outcomes;
// a single failing item never aborts the batch.
package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/nocode-ecosdeliderazgo/Realtime-Meeting-Copilot/internal/domain"
)

// Dispatcher sends a batch of action items to one tracker. Results match
// the input batch one-to-one, in input order.
type Dispatcher interface {
	Dispatch(ctx context.Context, items []domain.ActionItem, sessionID string) []domain.DispatchResult
}

// buildDescription appends session provenance to an item's description the
// same way on both trackers: session id, extraction source, and the offset
// into the meeting as minutes:seconds.
func buildDescription(item domain.ActionItem, sessionID string) string {
	var b strings.Builder
	b.WriteString(item.Description)

	if sessionID != "" {
		fmt.Fprintf(&b, "\n\nCreado desde sesión: %s", sessionID)
	}
	if item.Source != "" {
		fmt.Fprintf(&b, "\nFuente: %s", item.Source)
	}
	if item.TimestampSec > 0 {
		fmt.Fprintf(&b, "\nTiempo: %d:%02d", item.TimestampSec/60, item.TimestampSec%60)
	}

	return strings.TrimSpace(b.String())
}
