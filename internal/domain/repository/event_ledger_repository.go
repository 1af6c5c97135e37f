package repository

import (
	"context"
	"time"
)

// ClaimResult is the outcome of claiming an event id.
type ClaimResult int

const (
	// ClaimFirst: this caller inserted the entry and must process the event.
	ClaimFirst ClaimResult = iota + 1
	// ClaimAlreadyClaimed: the id was seen before; the event must be skipped.
	ClaimAlreadyClaimed
)

func (r ClaimResult) String() string {
	switch r {
	case ClaimFirst:
		return "first"
	case ClaimAlreadyClaimed:
		return "already_claimed"
	}
	return "unknown"
}

// EventLedgerRepository records processed event ids.
type EventLedgerRepository interface {
	// Claim atomically inserts the id if absent.
	Claim(ctx context.Context, eventID, eventType string) (ClaimResult, error)
	// Release drops a claim so a redelivery is processed again.
	Release(ctx context.Context, eventID string) error
	// PurgeExpired deletes entries whose retention ended before now.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
