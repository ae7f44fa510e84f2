package domain

import (
	"strconv"
	"strings"
)

// RawRecord is one roster row as returned by the roster source: header name
// to cell value.
type RawRecord map[string]string

// Column aliases accepted for each roster field, Portuguese header first.
var (
	nameColumns         = []string{"Nome", "Name"}
	disciplineColumns   = []string{"Disciplina", "Discipline"}
	siteColumns         = []string{"Local Atual", "Current Site", "Site"}
	contractorColumns   = []string{"Empreiteira", "Contractor"}
	municipalityColumns = []string{"Município", "Municipio", "Municipality"}
	stateColumns        = []string{"Estado", "UF", "State"}
	latitudeColumns     = []string{"Latitude", "Lat"}
)

// WorkerRecord is a validated roster row.
type WorkerRecord struct {
	Name         string   `json:"name,omitempty"`
	Discipline   string   `json:"discipline,omitempty"`
	CurrentSite  string   `json:"current_site,omitempty"`
	Contractor   string   `json:"contractor,omitempty"`
	Municipality string   `json:"municipality,omitempty"`
	State        string   `json:"state,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
}

// HasLocation reports whether the row carries both municipality and state.
func (r WorkerRecord) HasLocation() bool {
	return r.Municipality != "" && r.State != ""
}

// Displayable reports whether the row can be listed as a worker on a site card.
func (r WorkerRecord) Displayable() bool {
	return r.Name != "" && r.Discipline != ""
}

// WithLatitude returns a copy of the record carrying lat.
func (r WorkerRecord) WithLatitude(lat float64) WorkerRecord {
	r.Latitude = &lat
	return r
}

// ParseWorkerRecord converts a raw row into a WorkerRecord. It returns false
// when the row has no value in any known column.
func ParseWorkerRecord(raw RawRecord) (WorkerRecord, bool) {
	rec := WorkerRecord{
		Name:         lookup(raw, nameColumns),
		Discipline:   lookup(raw, disciplineColumns),
		CurrentSite:  lookup(raw, siteColumns),
		Contractor:   lookup(raw, contractorColumns),
		Municipality: lookup(raw, municipalityColumns),
		State:        lookup(raw, stateColumns),
	}
	if lat, ok := parseLatitude(lookup(raw, latitudeColumns)); ok {
		rec.Latitude = &lat
	}

	if rec == (WorkerRecord{}) {
		return rec, false
	}
	return rec, true
}

// ParseRoster converts raw rows into records, dropping blank rows. Row order
// is preserved.
func ParseRoster(rows []RawRecord) []WorkerRecord {
	records := make([]WorkerRecord, 0, len(rows))
	for _, raw := range rows {
		if rec, ok := ParseWorkerRecord(raw); ok {
			records = append(records, rec)
		}
	}
	return records
}

func lookup(raw RawRecord, columns []string) string {
	for _, col := range columns {
		if v, ok := raw[col]; ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// parseLatitude accepts both "-8.05" and the Brazilian "-8,05" notation.
func parseLatitude(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || v < -90 || v > 90 {
		return 0, false
	}
	return v, true
}
