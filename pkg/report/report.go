// Package report derives the run summary from the outcome sequence.
// The summary is computed, never maintained as separate counters, so it
// always equals the aggregate of the outcomes it was derived from.
package report

import (
	"fmt"
	"sort"
	"strings"

	"traffic-gen/pkg/probe"
)

// Row is one summary line: pass/fail tallies for a single test type.
type Row struct {
	Type probe.TestType
	Pass int
	Fail int
}

// Total returns the number of outcomes behind this row.
func (r Row) Total() int {
	return r.Pass + r.Fail
}

// order fixes the summary row order to match the run order.
var order = []probe.TestType{
	probe.TestPing,
	probe.TestDNSQuery,
	probe.TestWebRequest,
	probe.TestGeoIPWeb,
}

// Summarize groups outcomes by test type. Every known test type gets a
// row even when it saw no outcomes; unknown types (future probes) are
// appended in name order so no outcome is ever dropped from the tally.
func Summarize(outcomes []probe.Outcome) []Row {
	counts := make(map[probe.TestType]*Row)
	for _, tt := range order {
		counts[tt] = &Row{Type: tt}
	}

	var extra []probe.TestType
	for _, o := range outcomes {
		row, ok := counts[o.Type]
		if !ok {
			row = &Row{Type: o.Type}
			counts[o.Type] = row
			extra = append(extra, o.Type)
		}
		if o.Passed {
			row.Pass++
		} else {
			row.Fail++
		}
	}

	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })

	rows := make([]Row, 0, len(counts))
	for _, tt := range order {
		rows = append(rows, *counts[tt])
	}
	for _, tt := range extra {
		rows = append(rows, *counts[tt])
	}
	return rows
}

// Render formats the summary rows as an aligned text table with an
// overall total line.
func Render(rows []Row) string {
	var b strings.Builder

	totalPass, totalFail := 0, 0
	for _, row := range rows {
		fmt.Fprintf(&b, "%-12s %3d passed, %3d failed (%d total)\n",
			string(row.Type)+":", row.Pass, row.Fail, row.Total())
		totalPass += row.Pass
		totalFail += row.Fail
	}

	fmt.Fprintf(&b, "%-12s %3d passed, %3d failed out of %d tests\n",
		"TOTAL:", totalPass, totalFail, totalPass+totalFail)

	return b.String()
}
