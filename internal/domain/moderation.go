package domain

import "time"

// Moderation categories in verdict-evaluation order. Ties among exceeded
// thresholds are broken by this order, not by score magnitude.
const (
	CategoryNSFW         = "nsfw"
	CategoryViolence     = "violence"
	CategoryHate         = "hate"
	CategoryChildSafety  = "child_safety"
	CategorySpam         = "spam"
	CategoryDrugsWeapons = "drugs_weapons"
)

// CategoryOrder is the fixed evaluation order for verdict decisions.
var CategoryOrder = []string{
	CategoryNSFW,
	CategoryViolence,
	CategoryHate,
	CategoryChildSafety,
	CategorySpam,
	CategoryDrugsWeapons,
}

// ScoreVector holds per-category safety scores, conventionally in [0, 10].
// Scores are produced fresh per request and never persisted here.
type ScoreVector struct {
	NSFW         float64 `json:"nsfw"`
	Violence     float64 `json:"violence"`
	Hate         float64 `json:"hate"`
	ChildSafety  float64 `json:"child_safety"`
	Spam         float64 `json:"spam"`
	DrugsWeapons float64 `json:"drugs_weapons"`
}

// Get returns the score for a named category.
func (s ScoreVector) Get(category string) float64 {
	switch category {
	case CategoryNSFW:
		return s.NSFW
	case CategoryViolence:
		return s.Violence
	case CategoryHate:
		return s.Hate
	case CategoryChildSafety:
		return s.ChildSafety
	case CategorySpam:
		return s.Spam
	case CategoryDrugsWeapons:
		return s.DrugsWeapons
	}
	return 0
}

// Max returns the highest score across all categories.
func (s ScoreVector) Max() float64 {
	m := s.NSFW
	for _, c := range CategoryOrder[1:] {
		if v := s.Get(c); v > m {
			m = v
		}
	}
	return m
}

// Verdict is the moderation outcome.
type Verdict string

// Moderation verdicts.
const (
	VerdictAllow Verdict = "allow"
	VerdictWarn  Verdict = "warn"
	VerdictBlock Verdict = "block"
)

// ThresholdTable maps every category to its block threshold. Immutable
// configuration: every ScoreVector category has exactly one entry.
type ThresholdTable map[string]float64

// DefaultThresholds is the production block-threshold table.
func DefaultThresholds() ThresholdTable {
	return ThresholdTable{
		CategoryNSFW:         7,
		CategoryViolence:     6,
		CategoryHate:         5,
		CategoryChildSafety:  3,
		CategorySpam:         7,
		CategoryDrugsWeapons: 6,
	}
}

// warnFraction is the share of a block threshold above which content warns.
const warnFraction = 0.6

// DetermineVerdict evaluates scores against thresholds in CategoryOrder.
// The first category strictly exceeding its threshold blocks and is reported;
// otherwise any category above 60% of its threshold warns (no category
// attached); otherwise the content is allowed.
func DetermineVerdict(scores ScoreVector, thresholds ThresholdTable) (Verdict, string) {
	for _, c := range CategoryOrder {
		if scores.Get(c) > thresholds[c] {
			return VerdictBlock, c
		}
	}
	for _, c := range CategoryOrder {
		if scores.Get(c) > thresholds[c]*warnFraction {
			return VerdictWarn, ""
		}
	}
	return VerdictAllow, ""
}

// HashCheck is the outcome of a blocked-hash lookup. The zero value means
// the hash is not known bad.
type HashCheck struct {
	KnownBad  bool
	Reason    string
	BlockedAt time.Time
}

// ModerationResult bundles the engine's output for one request.
type ModerationResult struct {
	Verdict          Verdict
	Scores           ScoreVector
	MaxScore         float64
	Explanation      string
	ProcessingTimeMS int64
	BlockedCategory  string
}
