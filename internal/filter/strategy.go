package filter

// Mode names a filtering strategy preset.
type Mode string

const (
	ModeStrict   Mode = "strict"
	ModeModerate Mode = "moderate"
	ModeLenient  Mode = "lenient"
	ModeCustom   Mode = "custom"
)

// Signal categories, used as penalty audit keys.
const (
	CategoryTimeRange  = "time_range"
	CategoryTopicMatch = "topic_match"
	CategoryQuality    = "quality"
	CategoryAuthority  = "authority"
)

// CategoryRule configures one signal category: candidates scoring below
// Threshold are either excluded outright (UseHardFilter) or retained with
// their score multiplied by (1 - PenaltyFactor).
type CategoryRule struct {
	Threshold     float64 `json:"threshold"`
	PenaltyFactor float64 `json:"penalty_factor"`
	UseHardFilter bool    `json:"use_hard_filter"`
}

// Strategy is a full filtering policy. Presets are data, not behavior: a
// custom strategy is just a Strategy literal with ModeCustom.
type Strategy struct {
	Mode Mode `json:"mode"`

	TimeRange  CategoryRule `json:"time_range"`
	TopicMatch CategoryRule `json:"topic_match"`
	Quality    CategoryRule `json:"quality"`
	Authority  CategoryRule `json:"authority"`

	// MissingDatePenalty is the time-range score assigned indirectly to
	// candidates without a publish date: their score is 1-MissingDatePenalty.
	MissingDatePenalty float64 `json:"missing_date_penalty"`

	// MaxPerDomain caps results per originating domain.
	MaxPerDomain int `json:"max_per_domain"`

	// MinDomainRatio is the minimum unique-domains ÷ total-results ratio;
	// when unmet, excluded candidates from unrepresented domains are
	// backfilled.
	MinDomainRatio float64 `json:"min_domain_ratio"`
}

// StrategyFor returns the preset for mode, defaulting to moderate for
// unknown modes.
func StrategyFor(mode Mode) Strategy {
	switch mode {
	case ModeStrict:
		return StrictStrategy()
	case ModeLenient:
		return LenientStrategy()
	default:
		return ModerateStrategy()
	}
}

// StrictStrategy excludes aggressively: every category is a hard filter with
// high thresholds, and missing publish dates are penalized heavily.
func StrictStrategy() Strategy {
	return Strategy{
		Mode:               ModeStrict,
		TimeRange:          CategoryRule{Threshold: 0.7, PenaltyFactor: 0.5, UseHardFilter: true},
		TopicMatch:         CategoryRule{Threshold: 0.5, PenaltyFactor: 0.5, UseHardFilter: true},
		Quality:            CategoryRule{Threshold: 0.7, PenaltyFactor: 0.5, UseHardFilter: true},
		Authority:          CategoryRule{Threshold: 0.6, PenaltyFactor: 0.5, UseHardFilter: true},
		MissingDatePenalty: 0.6,
		MaxPerDomain:       2,
		MinDomainRatio:     0.5,
	}
}

// ModerateStrategy retains everything but downweights weak signals.
func ModerateStrategy() Strategy {
	return Strategy{
		Mode:               ModeModerate,
		TimeRange:          CategoryRule{Threshold: 0.5, PenaltyFactor: 0.3},
		TopicMatch:         CategoryRule{Threshold: 0.3, PenaltyFactor: 0.3},
		Quality:            CategoryRule{Threshold: 0.5, PenaltyFactor: 0.3},
		Authority:          CategoryRule{Threshold: 0.4, PenaltyFactor: 0.3},
		MissingDatePenalty: 0.3,
		MaxPerDomain:       3,
		MinDomainRatio:     0.3,
	}
}

// LenientStrategy applies only light penalties with low thresholds.
func LenientStrategy() Strategy {
	return Strategy{
		Mode:               ModeLenient,
		TimeRange:          CategoryRule{Threshold: 0.3, PenaltyFactor: 0.15},
		TopicMatch:         CategoryRule{Threshold: 0.2, PenaltyFactor: 0.15},
		Quality:            CategoryRule{Threshold: 0.3, PenaltyFactor: 0.15},
		Authority:          CategoryRule{Threshold: 0.2, PenaltyFactor: 0.15},
		MissingDatePenalty: 0.1,
		MaxPerDomain:       5,
		MinDomainRatio:     0.2,
	}
}

// normalize clamps strategy values into their valid ranges. Invalid
// configuration is repaired rather than rejected so the pipeline stays
// available.
func (s Strategy) normalize() Strategy {
	s.TimeRange = s.TimeRange.normalize()
	s.TopicMatch = s.TopicMatch.normalize()
	s.Quality = s.Quality.normalize()
	s.Authority = s.Authority.normalize()
	s.MissingDatePenalty = clamp01(s.MissingDatePenalty)
	if s.MaxPerDomain <= 0 {
		s.MaxPerDomain = ModerateStrategy().MaxPerDomain
	}
	s.MinDomainRatio = clamp01(s.MinDomainRatio)
	return s
}

func (r CategoryRule) normalize() CategoryRule {
	r.Threshold = clamp01(r.Threshold)
	r.PenaltyFactor = clamp01(r.PenaltyFactor)
	return r
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
