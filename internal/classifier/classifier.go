// Package classifier assigns an intent category to free-text wizard requests.
// It is a pure, table-driven scoring function: no I/O, no model calls, fully
// deterministic. The result is a steering hint for the command agent, never a
// gate; the agent sees the raw text regardless.
package classifier

import (
	"regexp"
	"strconv"
	"strings"
)

// Category is a coarse intent bucket.
type Category string

const (
	CategoryAction   Category = "action"
	CategoryQuery    Category = "query"
	CategoryInsight  Category = "insight"
	CategoryAdvisory Category = "advisory"
)

// Entities carries values extracted from the text. Unmatched fields stay at
// their zero value with the matching Has flag false: absent, not zero.
type Entities struct {
	Timeframe    string // "this week" or "next week"
	HasTimeframe bool
	Hours        float64
	HasHours     bool
}

// Classification is the classifier's full verdict.
type Classification struct {
	Category   Category
	Confidence float64 // fraction of the winning category's patterns that matched
	Entities   Entities
}

// categoryPatterns pairs a category with its pattern set. Declaration order
// is the tie-break rule: action > query > insight > advisory.
type categoryPatterns struct {
	category Category
	patterns []*regexp.Regexp
}

var categories = []categoryPatterns{
	{CategoryAction, compileAll(
		`(?i)\b(add|assign|allocate|book|put)\b.*\b(hours?|hrs?|h)\b`,
		`(?i)\b(move|shift|transfer|swap|reassign)\b`,
		`(?i)\b(remove|unassign|deallocate|clear|drop)\b.*\b(from|allocation)\b`,
		`(?i)\b(increase|decrease|bump|reduce|set)\b.*\b(hours?|allocation)\b`,
	)},
	{CategoryQuery, compileAll(
		`(?i)\b(show|list|display|give) (me|us)?\b`,
		`(?i)\bwho('s| is| are| has)\b`,
		`(?i)\bavailab(le|ility)\b`,
		`(?i)\b(how (many|much)|what('s| is| are))\b`,
		`(?i)\b(status|schedule|workload|allocations?) (of|for|on)\b`,
	)},
	{CategoryInsight, compileAll(
		`(?i)\b(insights?|problems?|issues?|risks?|conflicts?)\b`,
		`(?i)\bover.?(allocat|book)`,
		`(?i)\bunder.?utiliz`,
		`(?i)\b(budget|burn).*(warning|alert|trouble)\b`,
		`(?i)\b(anything|what) (i|we) should (know|watch)\b`,
	)},
	{CategoryAdvisory, compileAll(
		`(?i)\bshould (i|we)\b`,
		`(?i)\b(recommend|advice|advise|suggest)\b`,
		`(?i)\b(good|bad) idea\b`,
		`(?i)\bwhat (if|would happen)\b`,
		`(?i)\bmakes? sense\b`,
	)},
}

var (
	timeframePattern = regexp.MustCompile(`(?i)\b(this week|next week)\b`)
	hoursPattern     = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:hours?|hrs?|h)\b`)
)

func compileAll(exprs ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		compiled[i] = regexp.MustCompile(e)
	}
	return compiled
}

// Classify scores text against every category's pattern set and returns the
// winner. Confidence is the fraction of the winning category's patterns that
// matched. Ties (including the all-zero case) go to the earliest declared
// category.
func Classify(text string) Classification {
	best := Classification{Category: categories[0].category}
	for _, cp := range categories {
		matched := 0
		for _, re := range cp.patterns {
			if re.MatchString(text) {
				matched++
			}
		}
		score := 0.0
		if len(cp.patterns) > 0 {
			score = float64(matched) / float64(len(cp.patterns))
		}
		if score > best.Confidence {
			best.Category = cp.category
			best.Confidence = score
		}
	}
	best.Entities = extractEntities(text)
	return best
}

func extractEntities(text string) Entities {
	var e Entities
	if m := timeframePattern.FindStringSubmatch(text); m != nil {
		// Lower-cased so callers compare against fixed values.
		e.Timeframe = strings.ToLower(m[1])
		e.HasTimeframe = true
	}
	if m := hoursPattern.FindStringSubmatch(text); m != nil {
		if h, err := strconv.ParseFloat(m[1], 64); err == nil {
			e.Hours = h
			e.HasHours = true
		}
	}
	return e
}
