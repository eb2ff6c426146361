// Package ratelimit implements per-tenant fixed-window admission control.
//
// Two counters per tenant (rate-limit:{tenant}:minute and :hour) are read
// before any increment: if either unexpired counter is at its limit the call
// is rejected without incrementing. Counters are created with an expiry equal
// to their window and reset by key expiry, never by explicit zeroing. Fixed
// windows permit up to a 2x burst across a window boundary; that is accepted
// behavior, not a defect.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store decides whether a tenant-scoped operation is admitted. Both backends
// share these semantics; they differ only in cross-instance visibility and
// crash persistence.
type Store interface {
	Allow(ctx context.Context, tenantID uuid.UUID, maxPerMinute, maxPerHour int) (bool, error)
}

func minuteKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("rate-limit:%s:minute", tenantID)
}

func hourKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("rate-limit:%s:hour", tenantID)
}

const (
	minuteWindow = time.Minute
	hourWindow   = time.Hour
)
