package domain

import (
	"context"
	"errors"
	"time"
)

// ErrUnauthorized marks a roster source failure caused by expired or rejected
// credentials. Callers may re-authorize once and retry.
var ErrUnauthorized = errors.New("roster source: unauthorized")

// RosterSource reads the raw roster rows from an external tabular store.
type RosterSource interface {
	// FetchRecords returns the rows of sheetName in storeID, header excluded,
	// in sheet order.
	FetchRecords(ctx context.Context, storeID, sheetName string) ([]RawRecord, error)

	// Reauthorize rebuilds the source's credentials/session.
	Reauthorize(ctx context.Context) error
}

// RosterSnapshot is the full roster as of FetchedAt. Snapshots are replaced
// wholesale on refresh.
type RosterSnapshot struct {
	ID        string         `json:"id"`
	Records   []WorkerRecord `json:"records"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Age returns how old the snapshot is at now.
func (s RosterSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}
