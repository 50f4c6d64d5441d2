package schema

import "fmt"

// Dimension keys of every framework.
const (
	DimBudget    DimensionKey = "budget"
	DimAuthority DimensionKey = "authority"
	DimNeed      DimensionKey = "need"
	DimTimeline  DimensionKey = "timeline"

	DimAbility    DimensionKey = "ability"
	DimPriority   DimensionKey = "priority"
	DimEngagement DimensionKey = "engagement"
	DimExecutive  DimensionKey = "executive"

	DimMarket        DimensionKey = "market"
	DimDecisionMaker DimensionKey = "decision_maker"
	DimCompany       DimensionKey = "company"
	DimPain          DimensionKey = "pain"

	DimSituation     DimensionKey = "situation"
	DimImpact        DimensionKey = "impact"
	DimCriticalEvent DimensionKey = "critical_event"
	DimDecision      DimensionKey = "decision"
)

const (
	defaultNumericFloor = 30
	defaultKeywordFloor = 20
	defaultTitleFloor   = 20
	defaultRecencyFloor = 30
	defaultWindowDays   = 30
)

// DefaultSteps are the bucket scores between a numeric range's min and max.
var DefaultSteps = []int{40, 60, 80}

// DefaultTitleTiers rank job titles, highest first. Acronyms sit in their
// own word-matched tiers so "cto" never hits "director" and "sr" never hits "sre".
var DefaultTitleTiers = []TitleTier{
	{Name: "Executive", Score: 100, Match: WordMatch, Keywords: []string{"ceo", "cfo", "cto", "coo", "cmo", "cro", "cio", "ciso"}},
	{Name: "Executive", Score: 100, Keywords: []string{"chief", "founder", "c-level", "managing partner"}},
	{Name: "Director", Score: 80, Match: WordMatch, Keywords: []string{"vp", "svp", "evp"}},
	{Name: "Director", Score: 80, Keywords: []string{"vice president", "head of", "director", "partner"}},
	{Name: "Manager", Score: 60, Match: WordMatch, Keywords: []string{"sr"}},
	{Name: "Manager", Score: 60, Keywords: []string{"manager", "lead", "senior", "principal", "supervisor"}},
	{Name: "Individual", Score: 40, Keywords: []string{"specialist", "analyst", "engineer", "associate", "coordinator", "representative", "consultant", "developer", "assistant", "administrator", "executive"}},
}

var (
	needKeywords = []string{
		"need", "looking for", "struggling", "challenge", "problem", "evaluating",
		"requirement", "bottleneck", "inefficient", "manual process", "pain",
	}
	urgencyKeywords = []string{
		"asap", "urgent", "immediately", "right away", "this quarter", "this month",
		"next quarter", "deadline", "end of quarter", "within 30 days", "q1", "q2", "q3", "q4",
	}
	priorityKeywords = []string{
		"priority", "urgent", "initiative", "mandate", "budget approved", "strategic", "critical",
	}
	marketKeywords = []string{
		"software", "saas", "technology", "fintech", "financial services", "healthcare",
		"manufacturing", "logistics", "e-commerce", "retail", "telecommunications",
	}
	painKeywords = []string{
		"pain", "struggling", "challenge", "problem", "frustrated", "bottleneck",
		"churn", "losing", "inefficient", "manual", "costly", "slow",
	}
	criticalEventKeywords = []string{
		"deadline", "renewal", "contract ends", "compliance", "audit", "launch", "go-live",
		"merger", "acquisition", "funding", "expiring", "end of quarter",
	}
)

func titleDimension(key DimensionKey, description string) DimensionSpec {
	return DimensionSpec{
		Key:         key,
		Kind:        TitleTierEvaluator,
		Description: description,
		Options: DimensionOptions{
			Fields:     []PayloadField{FieldTitle, FieldSeniority},
			TitleTiers: DefaultTitleTiers,
			Floor:      defaultTitleFloor,
		},
	}
}

func keywordDimension(key DimensionKey, description string, keywords []string, fields ...PayloadField) DimensionSpec {
	return DimensionSpec{
		Key:         key,
		Kind:        KeywordPresenceEvaluator,
		Description: description,
		Options:     DimensionOptions{Fields: fields, Keywords: keywords, Floor: defaultKeywordFloor},
	}
}

func numericDimension(key DimensionKey, description string, lo, hi float64, fields ...PayloadField) DimensionSpec {
	return DimensionSpec{
		Key:         key,
		Kind:        NumericRangeEvaluator,
		Description: description,
		Options:     DimensionOptions{Fields: fields, Min: lo, Max: hi, Steps: DefaultSteps, Floor: defaultNumericFloor},
	}
}

func recencyDimension(key DimensionKey, description string, fields ...PayloadField) DimensionSpec {
	return DimensionSpec{
		Key:         key,
		Kind:        RecencyWindowEvaluator,
		Description: description,
		Options:     DimensionOptions{Fields: fields, WindowDays: defaultWindowDays, Floor: defaultRecencyFloor},
	}
}

// frameworkTable is the single source of truth for framework shapes.
// Default weights are equal and filled in by withEqualWeights.
var frameworkTable = map[FrameworkID][]DimensionSpec{
	BANT: withEqualWeights(
		numericDimension(DimBudget, "Budget available for the purchase", 10_000, 250_000, FieldBudget, FieldDealValue),
		titleDimension(DimAuthority, "Decision authority of the contact"),
		keywordDimension(DimNeed, "Expressed business need", needKeywords, FieldPainPoints, FieldNotes, FieldSignals),
		keywordDimension(DimTimeline, "Urgency of the buying timeline", urgencyKeywords, FieldTimeline, FieldNotes, FieldSignals),
	),
	APEX: withEqualWeights(
		numericDimension(DimAbility, "Ability to pay based on company revenue", 1_000_000, 50_000_000, FieldRevenue),
		keywordDimension(DimPriority, "Whether the problem is a current priority", priorityKeywords, FieldPainPoints, FieldSignals, FieldNotes),
		recencyDimension(DimEngagement, "Recent engagement with the contact", FieldLastEngagedAt),
		titleDimension(DimExecutive, "Executive sponsorship"),
	),
	MDCP: withEqualWeights(
		keywordDimension(DimMarket, "Fit with the target market", marketKeywords, FieldIndustry),
		titleDimension(DimDecisionMaker, "Contact is a decision maker"),
		numericDimension(DimCompany, "Company size fit", 10, 1_000, FieldEmployeeCount, FieldCompanySize),
		keywordDimension(DimPain, "Evidence of pain", painKeywords, FieldPainPoints, FieldNotes, FieldSignals),
	),
	SPICE: withEqualWeights(
		numericDimension(DimSituation, "Organizational situation by headcount", 10, 1_000, FieldEmployeeCount, FieldCompanySize),
		keywordDimension(DimPain, "Evidence of pain", painKeywords, FieldPainPoints, FieldNotes),
		numericDimension(DimImpact, "Financial impact of the deal", 10_000, 250_000, FieldDealValue, FieldBudget),
		keywordDimension(DimCriticalEvent, "A dated event forcing a decision", criticalEventKeywords, FieldTimeline, FieldSignals, FieldNotes),
		titleDimension(DimDecision, "Role in the decision process"),
	),
}

var frameworkDescriptions = map[FrameworkID]string{
	APEX:  "Ability, Priority, Engagement, Executive",
	MDCP:  "Market, Decision maker, Company, Pain",
	BANT:  "Budget, Authority, Need, Timeline",
	SPICE: "Situation, Pain, Impact, Critical event, Decision",
}

func withEqualWeights(specs ...DimensionSpec) []DimensionSpec {
	share := WeightTotal / len(specs)
	rem := WeightTotal - share*len(specs)
	for i := range specs {
		specs[i].Weight = share
		if i < rem {
			specs[i].Weight++
		}
	}
	return specs
}

// Dimensions returns a copy of the framework's dimension definitions in order.
func Dimensions(fw FrameworkID) ([]DimensionSpec, error) {
	specs, ok := frameworkTable[fw]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFramework, fw)
	}
	out := make([]DimensionSpec, len(specs))
	for i, s := range specs {
		out[i] = s
		out[i].Options = s.Options.Clone()
	}
	return out, nil
}

// LookupDimension returns the definition of one framework dimension.
func LookupDimension(fw FrameworkID, key DimensionKey) (DimensionSpec, bool) {
	for _, s := range frameworkTable[fw] {
		if s.Key == key {
			return s, true
		}
	}
	return DimensionSpec{}, false
}

// FrameworkDescription returns the expanded acronym of a framework.
func FrameworkDescription(fw FrameworkID) string {
	return frameworkDescriptions[fw]
}

// DefaultWeights returns the framework's default weight set.
func DefaultWeights(fw FrameworkID) (WeightSet, error) {
	specs, err := Dimensions(fw)
	if err != nil {
		return WeightSet{}, err
	}
	entries := make([]WeightEntry, 0, len(specs))
	for _, s := range specs {
		entries = append(entries, WeightEntry{Key: s.Key, Value: s.Weight})
	}
	return NewWeightSet(entries...), nil
}

// DefaultFrameworkConfig seeds a configuration from the framework table.
func DefaultFrameworkConfig(fw FrameworkID, thresholds ThresholdSet) (FrameworkConfig, error) {
	specs, err := Dimensions(fw)
	if err != nil {
		return FrameworkConfig{}, err
	}
	weights, _ := DefaultWeights(fw)
	dims := make(map[DimensionKey]DimensionOptions, len(specs))
	for _, s := range specs {
		dims[s.Key] = s.Options
	}
	return FrameworkConfig{
		Framework:  fw,
		Weights:    weights,
		Thresholds: thresholds,
		Dimensions: dims,
	}, nil
}
