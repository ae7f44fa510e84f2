package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testLeadership = "Liderança"
	testSafety     = "Segurança"
	testQuality    = "Qualidade"
)

func lat(v float64) *float64 { return &v }

func sampleRoster() []WorkerRecord {
	return []WorkerRecord{
		{Name: "Carla", Discipline: testSafety, CurrentSite: "Utinga", Contractor: "Tabocas"},
		{Name: "Bruno", Discipline: "Produção - LT", CurrentSite: "Utinga", Contractor: "Tabocas"},
		{Name: "Ana", Discipline: testSafety, CurrentSite: "Utinga", Contractor: "Tabocas"},
		{Name: "Davi", Discipline: testLeadership, CurrentSite: "Poções", Contractor: "Planova"},
		{Name: "Elis", Discipline: "Topografia", CurrentSite: "Poções", Contractor: "Planova"},
		{Name: "Fabio", Discipline: testQuality, CurrentSite: "Poções", Contractor: "Planova"},
		{Name: "Gil", Discipline: "Arqueologia", CurrentSite: "Poções", Contractor: "Planova"},
		{Name: "Hugo", Discipline: testSafety, CurrentSite: "Base"},
	}
}

func TestAggregate_TwoSiteScenario(t *testing.T) {
	roster := []WorkerRecord{
		{Name: "Ana", Discipline: testSafety, CurrentSite: "A", Contractor: "X"},
		{Name: "Beto", Discipline: testLeadership, CurrentSite: "A", Contractor: "X"},
	}

	got := Aggregate(roster, Filters{}, []string{testLeadership, testSafety})

	want := []SiteGroup{{
		Site:        "A",
		Contractor:  "X",
		Disciplines: []string{testLeadership, testSafety},
		Workers: []Worker{
			{Name: "Beto", Discipline: testLeadership},
			{Name: "Ana", Discipline: testSafety},
		},
		WorkerCount: 2,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Aggregate mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregate_DisciplinePriorityThenUnknownInFirstSeenOrder(t *testing.T) {
	got := Aggregate(sampleRoster(), Filters{Sites: []string{"Poções"}}, DefaultDisciplinePriority)

	require.Len(t, got, 1)
	assert.Equal(t, []string{testLeadership, testQuality, "Topografia", "Arqueologia"}, got[0].Disciplines)
	assert.Equal(t, []Worker{
		{Name: "Davi", Discipline: testLeadership},
		{Name: "Fabio", Discipline: testQuality},
		{Name: "Elis", Discipline: "Topografia"},
		{Name: "Gil", Discipline: "Arqueologia"},
	}, got[0].Workers)
}

func TestAggregate_NamesSortedWithinDiscipline(t *testing.T) {
	got := Aggregate(sampleRoster(), Filters{Sites: []string{"Utinga"}}, DefaultDisciplinePriority)

	require.Len(t, got, 1)
	assert.Equal(t, []Worker{
		{Name: "Bruno", Discipline: "Produção - LT"},
		{Name: "Ana", Discipline: testSafety},
		{Name: "Carla", Discipline: testSafety},
	}, got[0].Workers)
	assert.Equal(t, 3, got[0].WorkerCount)
}

func TestAggregate_CaseSensitiveNameOrder(t *testing.T) {
	roster := []WorkerRecord{
		{Name: "ana", Discipline: testSafety, CurrentSite: "A"},
		{Name: "Zeca", Discipline: testSafety, CurrentSite: "A"},
		{Name: "Ana", Discipline: testSafety, CurrentSite: "A"},
	}

	got := Aggregate(roster, Filters{}, nil)

	require.Len(t, got, 1)
	names := make([]string, 0, len(got[0].Workers))
	for _, w := range got[0].Workers {
		names = append(names, w.Name)
	}
	assert.Equal(t, []string{"Ana", "Zeca", "ana"}, names)
}

func TestAggregate_FolgaWhenNoContractor(t *testing.T) {
	got := Aggregate(sampleRoster(), Filters{Sites: []string{"Base"}}, DefaultDisciplinePriority)

	require.Len(t, got, 1)
	assert.Equal(t, FolgaContractor, got[0].Contractor)
	assert.True(t, got[0].Idle)
}

func TestAggregate_ContractorFromFirstNonEmptyRow(t *testing.T) {
	roster := []WorkerRecord{
		{Discipline: testSafety, CurrentSite: "A"},
		{CurrentSite: "A", Contractor: "Enind"},
		{Name: "Ana", Discipline: testSafety, CurrentSite: "A", Contractor: "Tabocas"},
	}

	got := Aggregate(roster, Filters{}, DefaultDisciplinePriority)

	require.Len(t, got, 1)
	assert.Equal(t, "Enind", got[0].Contractor, "invalid rows still count for the contractor")
	assert.False(t, got[0].Idle)
	assert.Equal(t, []Worker{{Name: "Ana", Discipline: testSafety}}, got[0].Workers)
}

func TestAggregate_RowWithoutNameExcludedSiteKept(t *testing.T) {
	roster := []WorkerRecord{
		{Discipline: testSafety, CurrentSite: "A", Contractor: "X"},
		{Name: "Beto", Discipline: testLeadership, CurrentSite: "A", Contractor: "X"},
	}

	got := Aggregate(roster, Filters{}, DefaultDisciplinePriority)

	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Site)
	assert.Equal(t, []string{testLeadership}, got[0].Disciplines)
	assert.Equal(t, 1, got[0].WorkerCount)
}

func TestAggregate_RowsWithoutSiteDropped(t *testing.T) {
	roster := []WorkerRecord{
		{Name: "Ana", Discipline: testSafety},
		{Name: "Beto", Discipline: testSafety, CurrentSite: "A"},
	}

	got := Aggregate(roster, Filters{}, nil)

	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Site)
}

func TestAggregate_EmptyInput(t *testing.T) {
	got := Aggregate(nil, Filters{}, DefaultDisciplinePriority)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got = Aggregate(sampleRoster(), Filters{Sites: []string{"Nowhere"}}, DefaultDisciplinePriority)
	assert.Empty(t, got, "sites with no rows after filtering are omitted")
}

func TestAggregate_Filters(t *testing.T) {
	roster := sampleRoster()

	cases := []struct {
		name    string
		filters Filters
		sites   []string
	}{
		{name: "no filters", filters: Filters{}, sites: []string{"Utinga", "Poções", "Base"}},
		{name: "discipline", filters: Filters{Disciplines: []string{testSafety}}, sites: []string{"Utinga", "Base"}},
		{name: "site", filters: Filters{Sites: []string{"Base", "Poções"}}, sites: []string{"Poções", "Base"}},
		{name: "contractor", filters: Filters{Contractors: []string{"Planova"}}, sites: []string{"Poções"}},
		{name: "contractor excludes blank contractor rows", filters: Filters{Contractors: []string{FolgaContractor}}, sites: []string{}},
		{
			name:    "combined with AND",
			filters: Filters{Disciplines: []string{testSafety}, Contractors: []string{"Tabocas"}},
			sites:   []string{"Utinga"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Aggregate(roster, tc.filters, DefaultDisciplinePriority)

			sites := make([]string, 0, len(got))
			for _, g := range got {
				sites = append(sites, g.Site)
				if len(tc.filters.Sites) > 0 {
					assert.Contains(t, tc.filters.Sites, g.Site)
				}
				if len(tc.filters.Contractors) > 0 {
					assert.Contains(t, tc.filters.Contractors, g.Contractor)
				}
				for _, w := range g.Workers {
					if len(tc.filters.Disciplines) > 0 {
						assert.Contains(t, tc.filters.Disciplines, w.Discipline)
					}
				}
			}
			assert.Equal(t, tc.sites, sites)
		})
	}
}

func TestAggregate_LatitudeOrdering(t *testing.T) {
	t.Run("latitude site precedes site without latitude", func(t *testing.T) {
		roster := []WorkerRecord{
			{Name: "Ana", Discipline: testSafety, CurrentSite: "Sem GPS"},
			{Name: "Beto", Discipline: testSafety, CurrentSite: "Recife", Latitude: lat(-8.0)},
		}

		got := Aggregate(roster, Filters{}, nil)

		require.Len(t, got, 2)
		assert.Equal(t, "Recife", got[0].Site)
		require.NotNil(t, got[0].Latitude)
		assert.InDelta(t, -8.0, *got[0].Latitude, 1e-9)
		assert.Equal(t, "Sem GPS", got[1].Site)
		assert.Nil(t, got[1].Latitude)
	})

	t.Run("north to south then original order", func(t *testing.T) {
		roster := []WorkerRecord{
			{Name: "A", Discipline: testSafety, CurrentSite: "S1"},
			{Name: "B", Discipline: testSafety, CurrentSite: "Salvador", Latitude: lat(-12.97)},
			{Name: "C", Discipline: testSafety, CurrentSite: "S2"},
			{Name: "D", Discipline: testSafety, CurrentSite: "Fortaleza", Latitude: lat(-3.73)},
			{Name: "E", Discipline: testSafety, CurrentSite: "Vitoria", Latitude: lat(-20.31)},
		}

		got := Aggregate(roster, Filters{}, nil)

		sites := make([]string, 0, len(got))
		for _, g := range got {
			sites = append(sites, g.Site)
		}
		assert.Equal(t, []string{"Fortaleza", "Salvador", "Vitoria", "S1", "S2"}, sites)

		var prev *float64
		for _, g := range got {
			if g.Latitude == nil {
				break
			}
			if prev != nil {
				assert.LessOrEqual(t, *g.Latitude, *prev)
			}
			prev = g.Latitude
		}
	})

	t.Run("no latitude keeps row order", func(t *testing.T) {
		got := Aggregate(sampleRoster(), Filters{}, nil)

		require.Len(t, got, 3)
		assert.Equal(t, "Utinga", got[0].Site)
		assert.Equal(t, "Poções", got[1].Site)
		assert.Equal(t, "Base", got[2].Site)
	})
}

func TestAggregate_Idempotent(t *testing.T) {
	roster := sampleRoster()
	roster[0].Latitude = lat(-11.0)
	roster[4].Latitude = lat(-14.5)
	f := Filters{Disciplines: []string{testSafety, testLeadership, "Topografia"}}

	first := Aggregate(roster, f, DefaultDisciplinePriority)
	second := Aggregate(roster, f, DefaultDisciplinePriority)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Aggregate is not idempotent (-first +second):\n%s", diff)
	}
}

func TestAggregate_DoesNotMutateInput(t *testing.T) {
	roster := []WorkerRecord{
		{Name: "Beto", Discipline: testSafety, CurrentSite: "A"},
		{Name: "Ana", Discipline: testSafety, CurrentSite: "B", Latitude: lat(-2)},
	}
	before := append([]WorkerRecord(nil), roster...)

	Aggregate(roster, Filters{}, nil)

	assert.Equal(t, before, roster)
}

func TestAggregate_DuplicatePriorityEntries(t *testing.T) {
	roster := []WorkerRecord{
		{Name: "Ana", Discipline: testSafety, CurrentSite: "A"},
		{Name: "Beto", Discipline: testLeadership, CurrentSite: "A"},
	}

	got := Aggregate(roster, Filters{}, []string{testLeadership, testSafety, testLeadership})

	require.Len(t, got, 1)
	assert.Equal(t, []string{testLeadership, testSafety}, got[0].Disciplines)
}

func TestOptions(t *testing.T) {
	opts := Options(sampleRoster())

	assert.Equal(t, []string{testSafety, "Produção - LT", testLeadership, "Topografia", testQuality, "Arqueologia"}, opts.Disciplines)
	assert.Equal(t, []string{"Utinga", "Poções", "Base"}, opts.Sites)
	assert.Equal(t, []string{"Tabocas", "Planova"}, opts.Contractors)
}

func TestOptions_Empty(t *testing.T) {
	opts := Options(nil)
	assert.NotNil(t, opts.Disciplines)
	assert.Empty(t, opts.Sites)
}
