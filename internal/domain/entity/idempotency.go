package entity

import (
	"encoding/json"
	"time"
)

type IdempotencyState string

const (
	IdempotencyPending  IdempotencyState = "pending"
	IdempotencyComplete IdempotencyState = "complete"
)

// IdempotencyRecord is the stored outcome of a client request keyed by its
// idempotency token.
type IdempotencyRecord struct {
	State      IdempotencyState `json:"state"`
	StatusCode int              `json:"status_code,omitempty"`
	Body       json.RawMessage  `json:"body,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

