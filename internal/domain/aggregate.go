package domain

import (
	"slices"
	"sort"
)

// FolgaContractor labels a site with no contractor in any of its rows.
const FolgaContractor = "Folga"

// DefaultDisciplinePriority is the display order of disciplines within a site:
// leadership, the two production fronts, land, safety, quality, health,
// supply, geology.
var DefaultDisciplinePriority = []string{
	"Liderança",
	"Produção - LT",
	"Produção - SE",
	"Fundiário",
	"Segurança",
	"Qualidade",
	"Saúde",
	"Fornecimento",
	"Geologia",
}

// Filters restricts a board to the given disciplines, sites and contractors.
// An empty list places no restriction; non-empty lists combine with AND.
type Filters struct {
	Disciplines []string `json:"disciplines,omitempty"`
	Sites       []string `json:"sites,omitempty"`
	Contractors []string `json:"contractors,omitempty"`
}

// Empty reports whether no filter is set.
func (f Filters) Empty() bool {
	return len(f.Disciplines) == 0 && len(f.Sites) == 0 && len(f.Contractors) == 0
}

// Match reports whether rec passes every non-empty filter.
func (f Filters) Match(rec WorkerRecord) bool {
	return matchAny(f.Disciplines, rec.Discipline) &&
		matchAny(f.Sites, rec.CurrentSite) &&
		matchAny(f.Contractors, rec.Contractor)
}

func matchAny(set []string, v string) bool {
	return len(set) == 0 || slices.Contains(set, v)
}

// Worker is one entry of a site card.
type Worker struct {
	Name       string `json:"name"`
	Discipline string `json:"discipline"`
}

// SiteGroup is a site card: its contractor, disciplines in display order and
// the workers flattened in discipline-then-name order.
type SiteGroup struct {
	Site        string   `json:"site"`
	Contractor  string   `json:"contractor"`
	Idle        bool     `json:"idle"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Disciplines []string `json:"disciplines"`
	Workers     []Worker `json:"workers"`
	WorkerCount int      `json:"worker_count"`
}

// Aggregate filters records and groups them into site cards.
//
// Sites appear in row order after latitude sorting: rows with a latitude come
// first, north to south, followed by rows without one in their original
// order. The result is deterministic for identical input.
func Aggregate(records []WorkerRecord, f Filters, priority []string) []SiteGroup {
	rows := make([]WorkerRecord, 0, len(records))
	for _, rec := range records {
		if rec.CurrentSite != "" && f.Match(rec) {
			rows = append(rows, rec)
		}
	}
	if len(rows) == 0 {
		return []SiteGroup{}
	}

	rows = orderByLatitude(rows)

	var sites []string
	bySite := make(map[string][]WorkerRecord)
	for _, rec := range rows {
		if _, seen := bySite[rec.CurrentSite]; !seen {
			sites = append(sites, rec.CurrentSite)
		}
		bySite[rec.CurrentSite] = append(bySite[rec.CurrentSite], rec)
	}

	rank := priorityRank(priority)
	groups := make([]SiteGroup, 0, len(sites))
	for _, site := range sites {
		groups = append(groups, buildSiteGroup(site, bySite[site], rank))
	}
	return groups
}

// orderByLatitude moves rows carrying a latitude to the front, sorted
// descending, and keeps the remaining rows in their original order. Rows are
// left untouched when none has a latitude.
func orderByLatitude(rows []WorkerRecord) []WorkerRecord {
	withLat := make([]WorkerRecord, 0, len(rows))
	withoutLat := make([]WorkerRecord, 0, len(rows))
	for _, rec := range rows {
		if rec.Latitude != nil {
			withLat = append(withLat, rec)
		} else {
			withoutLat = append(withoutLat, rec)
		}
	}
	if len(withLat) == 0 {
		return rows
	}

	sort.SliceStable(withLat, func(i, j int) bool {
		return *withLat[i].Latitude > *withLat[j].Latitude
	})
	return append(withLat, withoutLat...)
}

func priorityRank(priority []string) map[string]int {
	rank := make(map[string]int, len(priority))
	for i, d := range priority {
		if _, dup := rank[d]; !dup {
			rank[d] = i
		}
	}
	return rank
}

func buildSiteGroup(site string, rows []WorkerRecord, rank map[string]int) SiteGroup {
	group := SiteGroup{Site: site, Contractor: FolgaContractor}

	for _, rec := range rows {
		if rec.Contractor != "" {
			group.Contractor = rec.Contractor
			break
		}
	}
	group.Idle = group.Contractor == FolgaContractor

	for _, rec := range rows {
		if rec.Latitude != nil {
			lat := *rec.Latitude
			group.Latitude = &lat
			break
		}
	}

	var seen []string
	names := make(map[string][]string)
	for _, rec := range rows {
		if !rec.Displayable() {
			continue
		}
		if _, ok := names[rec.Discipline]; !ok {
			seen = append(seen, rec.Discipline)
		}
		names[rec.Discipline] = append(names[rec.Discipline], rec.Name)
	}

	group.Disciplines = orderDisciplines(seen, rank)
	group.Workers = make([]Worker, 0, len(rows))
	for _, d := range group.Disciplines {
		list := names[d]
		slices.Sort(list)
		for _, n := range list {
			group.Workers = append(group.Workers, Worker{Name: n, Discipline: d})
		}
	}
	group.WorkerCount = len(group.Workers)
	return group
}

// orderDisciplines sorts ranked disciplines by priority and appends unranked
// ones in first-seen order.
func orderDisciplines(seen []string, rank map[string]int) []string {
	ranked := make([]string, 0, len(seen))
	unranked := make([]string, 0, len(seen))
	for _, d := range seen {
		if _, ok := rank[d]; ok {
			ranked = append(ranked, d)
		} else {
			unranked = append(unranked, d)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return rank[ranked[i]] < rank[ranked[j]]
	})
	return append(ranked, unranked...)
}

// FilterOptions lists the distinct values offered by the dashboard filters.
type FilterOptions struct {
	Disciplines []string `json:"disciplines"`
	Sites       []string `json:"sites"`
	Contractors []string `json:"contractors"`
}

// Options collects distinct non-empty disciplines, sites and contractors in
// first-appearance order.
func Options(records []WorkerRecord) FilterOptions {
	return FilterOptions{
		Disciplines: distinct(records, func(r WorkerRecord) string { return r.Discipline }),
		Sites:       distinct(records, func(r WorkerRecord) string { return r.CurrentSite }),
		Contractors: distinct(records, func(r WorkerRecord) string { return r.Contractor }),
	}
}

func distinct(records []WorkerRecord, field func(WorkerRecord) string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, rec := range records {
		v := field(rec)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
