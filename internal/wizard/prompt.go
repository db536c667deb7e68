package wizard

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/crewplan/crewplan/internal/classifier"
	"github.com/crewplan/crewplan/pkg/models"
)

// idToken matches the [ID: ...] markers embedded in the serialized snapshot.
// They exist so the model can quote exact identifiers as tool arguments; they
// must never reach a human.
var idToken = regexp.MustCompile(`\s*\[ID:\s*[^\]]+\]`)

// StripIDs removes [ID: ...] tokens from user-visible text.
func StripIDs(s string) string {
	return strings.TrimSpace(idToken.ReplaceAllString(s, ""))
}

// systemPrompt builds the instruction text for one command: role, rules, and
// the serialized snapshot the model reasons over.
func systemPrompt(snap *models.OrgSnapshot, hint classifier.Classification) string {
	var b strings.Builder

	// Everything the model learns about "now" comes from the snapshot, so
	// the same snapshot always produces the same prompt.
	fmt.Fprintf(&b, `You are the resource-planning assistant for %s, a creative agency with %d people. You help managers allocate people to projects week by week.

The current week starts Monday %s and the planning window covers %d weeks. Weeks always start on a Monday.

Rules:
- Use the tools to read or change allocations. Never invent users, projects or IDs; only use IDs that appear in the context below.
- For changes, call the appropriate mutation tool. For questions, call a query tool or answer directly from the context.
- week_start arguments must be a Monday in YYYY-MM-DD format.
- Keep answers short and concrete. Refer to people and projects by name.
`,
		snap.OrgName, snap.HeadCount,
		snap.WeekStart.Format("2006-01-02"), snap.WindowWeeks)

	if hint.Category != "" && hint.Confidence > 0 {
		fmt.Fprintf(&b, "\nThe request looks like a %s request", hint.Category)
		if hint.Entities.HasTimeframe {
			fmt.Fprintf(&b, " about %s", hint.Entities.Timeframe)
		}
		if hint.Entities.HasHours {
			fmt.Fprintf(&b, " involving %g hours", hint.Entities.Hours)
		}
		b.WriteString(".\n")
	}

	b.WriteString("\n")
	b.WriteString(renderSnapshot(snap))
	return b.String()
}

// renderSnapshot serializes the snapshot as human-readable text with
// [ID: ...] tokens for everything the model may need to reference in a tool
// call.
func renderSnapshot(snap *models.OrgSnapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Team (%d people)\n", len(snap.Users))
	for i := range snap.Users {
		u := &snap.Users[i]
		fmt.Fprintf(&b, "- %s [ID: %s], %s, %.0fh/week", u.Name, u.ID, u.Role, u.WeeklyCapacity)
		if u.Freelance {
			b.WriteString(", freelance")
		}
		if u.Location != "" {
			fmt.Fprintf(&b, ", %s", u.Location)
		}
		b.WriteString("\n")
		if len(u.Allocations) == 0 {
			b.WriteString("  no allocations in the window\n")
		} else {
			for _, line := range allocationLines(u) {
				fmt.Fprintf(&b, "  %s\n", line)
			}
		}
		if len(u.TimeOff) > 0 {
			days := make([]string, 0, len(u.TimeOff))
			for _, d := range u.TimeOff {
				days = append(days, d.Format("2006-01-02"))
			}
			fmt.Fprintf(&b, "  time off: %s\n", strings.Join(days, ", "))
		}
	}

	fmt.Fprintf(&b, "\n## Active projects (%d)\n", len(snap.Projects))
	for i := range snap.Projects {
		p := &snap.Projects[i]
		fmt.Fprintf(&b, "- %s [ID: %s] for %s", p.Name, p.ID, p.Client)
		if p.BudgetHours > 0 {
			fmt.Fprintf(&b, ", %.0fh of %.0fh budget used (%.0f%%)",
				p.ConsumedHours, p.BudgetHours, p.ConsumedHours/p.BudgetHours*100)
		}
		b.WriteString("\n")
		for _, ph := range p.Phases {
			fmt.Fprintf(&b, "  phase %s [ID: %s]: %.0fh of %.0fh used\n",
				ph.Name, ph.ID, ph.ConsumedHours, ph.BudgetHours)
		}
	}
	return b.String()
}

// allocationLines groups a user's allocations per week, ordered by week.
func allocationLines(u *models.UserView) []string {
	byWeek := make(map[time.Time][]string)
	for _, a := range u.Allocations {
		byWeek[a.WeekStart] = append(byWeek[a.WeekStart],
			fmt.Sprintf("%.0fh on %s [ID: %s]", a.Hours, a.ProjectName, a.ProjectID))
	}
	weeks := make([]time.Time, 0, len(byWeek))
	for w := range byWeek {
		weeks = append(weeks, w)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })

	lines := make([]string, 0, len(weeks))
	for _, w := range weeks {
		sort.Strings(byWeek[w])
		lines = append(lines, fmt.Sprintf("week of %s: %s", w.Format("2006-01-02"), strings.Join(byWeek[w], ", ")))
	}
	return lines
}
