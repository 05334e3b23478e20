package scheduler

import (
	"fmt"
	"sort"
	"strings"

	"jobmate/jobalert-service/internal/model"
)

// FormatReport renders job store statistics as the weekly report body.
// Sources are listed by descending count, then name.
func FormatReport(st model.Stats) string {
	var b strings.Builder
	b.WriteString("Weekly Job Market Report\n\n")
	fmt.Fprintf(&b, "Total Jobs: %d\n", st.TotalActive)
	fmt.Fprintf(&b, "New Jobs This Week: %d\n", st.RecentCount)

	if len(st.BySource) == 0 {
		b.WriteString("Jobs by Source: none\n")
		return b.String()
	}
	names := make([]string, 0, len(st.BySource))
	for name := range st.BySource {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if st.BySource[names[i]] != st.BySource[names[j]] {
			return st.BySource[names[i]] > st.BySource[names[j]]
		}
		return names[i] < names[j]
	})
	b.WriteString("Jobs by Source:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %s: %d\n", name, st.BySource[name])
	}
	return b.String()
}
