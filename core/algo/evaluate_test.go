package algo

import (
	"testing"
	"time"

	"github.com/huangsam/leadscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func optionsFor(t *testing.T, fw schema.FrameworkID, key schema.DimensionKey) (schema.EvaluatorKind, schema.DimensionOptions) {
	t.Helper()
	spec, ok := schema.LookupDimension(fw, key)
	require.True(t, ok, "%s/%s", fw, key)
	return spec.Kind, spec.Options.Clone()
}

func TestContainsKeyword(t *testing.T) {
	tests := []struct {
		text, keyword string
		want          bool
	}{
		{"Missed SLAs every month", "sla", true},
		{"close in FY25Q4", "q4", true},
		{"planning for Q3", "q3", true},
		{"Head of Growth", "head of", true},
		{"Budget is tight, need ASAP", "asap", true},
		{"We NEED a solution", "need", true},
		{"Director of Engineering", "cto", true},
		{"Sales Manager", "vp", false},
		{"anything", "", false},
		{"", "vp", false},
	}
	for _, tt := range tests {
		t.Run(tt.text+"/"+tt.keyword, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsKeyword(tt.text, tt.keyword))
		})
	}
}

func TestContainsWord(t *testing.T) {
	tests := []struct {
		text, keyword string
		want          bool
	}{
		{"VP of Sales", "vp", true},
		{"SVP, Revenue", "svp", true},
		{"Director of Engineering", "cto", false},
		{"Micro Finance Analyst", "cro", false},
		{"CTO", "cto", true},
		{"cto/co-founder", "cto", true},
		{"Sr. Engineer", "sr", true},
		{"SRE on call", "sr", false},
		{"Head of Growth", "head of", true},
		{"anything", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text+"/"+tt.keyword, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsWord(tt.text, tt.keyword))
		})
	}
}

func TestFirstKeywordMatchModes(t *testing.T) {
	kw, ok := FirstKeyword("Missed SLAs every month", []string{"sla"}, "")
	assert.True(t, ok)
	assert.Equal(t, "sla", kw)

	_, ok = FirstKeyword("Missed SLAs every month", []string{"sla"}, schema.WordMatch)
	assert.False(t, ok)

	kw, ok = FirstKeyword("close in FY25Q4", []string{"q3", "q4"}, schema.SubstringMatch)
	assert.True(t, ok)
	assert.Equal(t, "q4", kw)
}

func TestEvaluateKeywordPresenceSubstringByDefault(t *testing.T) {
	opts := schema.DimensionOptions{
		Fields:   []schema.PayloadField{schema.FieldNotes},
		Keywords: []string{"sla"},
		Floor:    20,
	}
	ev := EvaluateKeywordPresence(&schema.EnrichmentPayload{Notes: "Missed SLAs every month"}, opts, now)
	assert.Equal(t, 100, ev.Score)

	opts.Keywords = []string{"q4"}
	ev = EvaluateKeywordPresence(&schema.EnrichmentPayload{Notes: "close in FY25Q4"}, opts, now)
	assert.Equal(t, 100, ev.Score)

	opts.Keywords = []string{"sla"}
	opts.Match = schema.WordMatch
	ev = EvaluateKeywordPresence(&schema.EnrichmentPayload{Notes: "Missed SLAs every month"}, opts, now)
	assert.Equal(t, 20, ev.Score)
	assert.False(t, ev.Degraded)
}

func TestEvaluateTitleTier(t *testing.T) {
	kind, opts := optionsFor(t, schema.BANT, schema.DimAuthority)

	tests := []struct {
		name      string
		payload   schema.EnrichmentPayload
		want      int
		degraded  bool
		wantMatch string
	}{
		{"chief", schema.EnrichmentPayload{Title: "Chief Revenue Officer"}, 100, false, "Executive"},
		{"ceo acronym", schema.EnrichmentPayload{Title: "CEO"}, 100, false, "Executive"},
		{"vp", schema.EnrichmentPayload{Title: "VP of Sales"}, 80, false, "Director"},
		{"vice president", schema.EnrichmentPayload{Title: "Vice President, Marketing"}, 80, false, "Director"},
		{"director is not cto", schema.EnrichmentPayload{Title: "Director of Engineering"}, 80, false, "Director"},
		{"sre is not sr", schema.EnrichmentPayload{Title: "SRE"}, 20, false, "unrecognized"},
		{"cofounder", schema.EnrichmentPayload{Title: "Cofounder"}, 100, false, "Executive"},
		{"manager", schema.EnrichmentPayload{Title: "Sales Manager"}, 60, false, "Manager"},
		{"seniority only", schema.EnrichmentPayload{Seniority: "senior"}, 60, false, "Manager"},
		{"individual", schema.EnrichmentPayload{Title: "Account Executive"}, 40, false, "Individual"},
		{"unrecognized", schema.EnrichmentPayload{Title: "Wizard"}, 20, false, "unrecognized"},
		{"missing", schema.EnrichmentPayload{}, 20, true, "no title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Evaluate(kind, &tt.payload, opts, now)
			assert.Equal(t, tt.want, ev.Score)
			assert.Equal(t, tt.degraded, ev.Degraded)
			assert.Contains(t, ev.Detail, tt.wantMatch)
		})
	}
}

func TestEvaluateNumericRange(t *testing.T) {
	opts := schema.DimensionOptions{
		Fields: []schema.PayloadField{schema.FieldBudget, schema.FieldDealValue},
		Min:    10_000,
		Max:    250_000,
		Steps:  []int{40, 60, 80},
		Floor:  30,
	}

	tests := []struct {
		name     string
		payload  schema.EnrichmentPayload
		want     int
		degraded bool
	}{
		{"missing", schema.EnrichmentPayload{}, 30, true},
		{"below min", schema.EnrichmentPayload{Budget: ptr(5_000.0)}, 30, false},
		{"at min", schema.EnrichmentPayload{Budget: ptr(10_000.0)}, 40, false},
		{"middle bucket", schema.EnrichmentPayload{Budget: ptr(100_000.0)}, 60, false},
		{"top bucket", schema.EnrichmentPayload{Budget: ptr(200_000.0)}, 80, false},
		{"at max", schema.EnrichmentPayload{Budget: ptr(250_000.0)}, 100, false},
		{"above max", schema.EnrichmentPayload{Budget: ptr(9_000_000.0)}, 100, false},
		{"fallback field", schema.EnrichmentPayload{DealValue: ptr(180_000.0)}, 80, false},
		{"first field wins", schema.EnrichmentPayload{Budget: ptr(1.0), DealValue: ptr(900_000.0)}, 30, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := EvaluateNumericRange(&tt.payload, opts, now)
			assert.Equal(t, tt.want, ev.Score)
			assert.Equal(t, tt.degraded, ev.Degraded)
		})
	}
}

func TestEvaluateNumericRangeCompanySizeBucket(t *testing.T) {
	kind, opts := optionsFor(t, schema.MDCP, schema.DimCompany)

	ev := Evaluate(kind, &schema.EnrichmentPayload{CompanySize: "1000+"}, opts, now)
	assert.Equal(t, 100, ev.Score)
	assert.False(t, ev.Degraded)

	ev = Evaluate(kind, &schema.EnrichmentPayload{CompanySize: "startup"}, opts, now)
	assert.Equal(t, 30, ev.Score)
	assert.True(t, ev.Degraded)
}

func TestEvaluateKeywordPresence(t *testing.T) {
	kind, opts := optionsFor(t, schema.BANT, schema.DimTimeline)

	ev := Evaluate(kind, &schema.EnrichmentPayload{Timeline: "Need this live ASAP"}, opts, now)
	assert.Equal(t, 100, ev.Score)
	assert.Equal(t, "asap", ev.Detail)

	ev = Evaluate(kind, &schema.EnrichmentPayload{Notes: "budget decision by Q3"}, opts, now)
	assert.Equal(t, 100, ev.Score)

	ev = Evaluate(kind, &schema.EnrichmentPayload{Timeline: "sometime next year maybe"}, opts, now)
	assert.Equal(t, 20, ev.Score)
	assert.False(t, ev.Degraded)

	ev = Evaluate(kind, &schema.EnrichmentPayload{Title: "CEO"}, opts, now)
	assert.Equal(t, 20, ev.Score)
	assert.True(t, ev.Degraded)
}

func TestEvaluateRecencyWindow(t *testing.T) {
	kind, opts := optionsFor(t, schema.APEX, schema.DimEngagement)

	tests := []struct {
		name     string
		at       *time.Time
		want     int
		degraded bool
	}{
		{"yesterday", ptr(now.AddDate(0, 0, -1)), 100, false},
		{"edge of window", ptr(now.AddDate(0, 0, -30)), 100, false},
		{"outside window", ptr(now.AddDate(0, 0, -31)), 30, false},
		{"future", ptr(now.Add(time.Hour)), 30, true},
		{"missing", nil, 30, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Evaluate(kind, &schema.EnrichmentPayload{LastEngagedAt: tt.at}, opts, now)
			assert.Equal(t, tt.want, ev.Score)
			assert.Equal(t, tt.degraded, ev.Degraded)
		})
	}
}

func TestEvaluateUnknownKind(t *testing.T) {
	ev := Evaluate("sentiment", &schema.EnrichmentPayload{}, schema.DimensionOptions{Floor: 25}, now)
	assert.Equal(t, 25, ev.Score)
	assert.True(t, ev.Degraded)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	p := schema.EnrichmentPayload{Title: "Head of Ops", PainPoints: "manual process", Budget: ptr(42_000.0)}
	for _, fw := range schema.AllFrameworks {
		specs, err := schema.Dimensions(fw)
		require.NoError(t, err)
		for _, s := range specs {
			first := Evaluate(s.Kind, &p, s.Options, now)
			second := Evaluate(s.Kind, &p, s.Options, now)
			assert.Equal(t, first, second, "%s/%s", fw, s.Key)
			assert.GreaterOrEqual(t, first.Score, 0)
			assert.LessOrEqual(t, first.Score, 100)
		}
	}
}

func BenchmarkEvaluateTitleTier(b *testing.B) {
	spec, _ := schema.LookupDimension(schema.BANT, schema.DimAuthority)
	p := schema.EnrichmentPayload{Title: "Senior Director of Strategic Partnerships", Seniority: "director"}

	for b.Loop() {
		Evaluate(spec.Kind, &p, spec.Options, now)
	}
}
