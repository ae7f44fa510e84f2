package domain

import (
	"fmt"
	"time"
)

// Board is the dashboard payload: the week header and the site cards built
// from one roster snapshot.
type Board struct {
	SnapshotID string      `json:"snapshot_id"`
	Week       string      `json:"week"`
	FetchedAt  time.Time   `json:"fetched_at"`
	Filters    Filters     `json:"filters"`
	Sites      []SiteGroup `json:"sites"`
}

// BuildBoard aggregates snap with the given filters and priority, labelling
// the board with the working week containing now.
func BuildBoard(snap RosterSnapshot, f Filters, priority []string, now time.Time) Board {
	return Board{
		SnapshotID: snap.ID,
		Week:       WeekLabel(now),
		FetchedAt:  snap.FetchedAt,
		Filters:    f,
		Sites:      Aggregate(snap.Records, f, priority),
	}
}

// WeekLabel renders the ISO week number and its Monday–Saturday range, e.g.
// "Semana 42 - 13/10/2025 até 18/10/2025".
func WeekLabel(now time.Time) string {
	_, week := now.ISOWeek()
	offset := (int(now.Weekday()) + 6) % 7 // days since Monday
	monday := time.Date(now.Year(), now.Month(), now.Day()-offset, 0, 0, 0, 0, now.Location())
	saturday := monday.AddDate(0, 0, 5)
	return fmt.Sprintf("Semana %d - %s até %s", week, monday.Format("02/01/2006"), saturday.Format("02/01/2006"))
}
