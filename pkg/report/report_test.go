package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traffic-gen/pkg/probe"
)

func outcomes() []probe.Outcome {
	return []probe.Outcome{
		{Type: probe.TestPing, Passed: true},
		{Type: probe.TestPing, Passed: false, Detail: "no response"},
		{Type: probe.TestDNSQuery, Passed: true},
		{Type: probe.TestDNSQuery, Passed: true},
		{Type: probe.TestWebRequest, Passed: false, Detail: "status 503"},
		{Type: probe.TestGeoIPWeb, Passed: true},
	}
}

func TestSummarizeCounts(t *testing.T) {
	rows := Summarize(outcomes())
	require.Len(t, rows, 4)

	byType := make(map[probe.TestType]Row)
	for _, r := range rows {
		byType[r.Type] = r
	}

	assert.Equal(t, Row{Type: probe.TestPing, Pass: 1, Fail: 1}, byType[probe.TestPing])
	assert.Equal(t, Row{Type: probe.TestDNSQuery, Pass: 2, Fail: 0}, byType[probe.TestDNSQuery])
	assert.Equal(t, Row{Type: probe.TestWebRequest, Pass: 0, Fail: 1}, byType[probe.TestWebRequest])
	assert.Equal(t, Row{Type: probe.TestGeoIPWeb, Pass: 1, Fail: 0}, byType[probe.TestGeoIPWeb])

	// Row totals must account for every outcome
	total := 0
	for _, r := range rows {
		total += r.Total()
	}
	assert.Equal(t, len(outcomes()), total)
}

func TestSummarizeIsIdempotent(t *testing.T) {
	outs := outcomes()
	first := Summarize(outs)
	second := Summarize(outs)
	assert.Equal(t, first, second)
}

func TestSummarizeEmptySequence(t *testing.T) {
	rows := Summarize(nil)
	require.Len(t, rows, 4)
	for _, r := range rows {
		assert.Equal(t, 0, r.Pass)
		assert.Equal(t, 0, r.Fail)
		assert.Equal(t, 0, r.Total())
	}
}

func TestSummarizeUnknownType(t *testing.T) {
	outs := append(outcomes(), probe.Outcome{Type: "SMTP", Passed: false, Detail: "x"})
	rows := Summarize(outs)
	require.Len(t, rows, 5)
	assert.Equal(t, probe.TestType("SMTP"), rows[4].Type)
	assert.Equal(t, 1, rows[4].Fail)
}

func TestRowOrder(t *testing.T) {
	rows := Summarize(outcomes())
	want := []probe.TestType{
		probe.TestPing,
		probe.TestDNSQuery,
		probe.TestWebRequest,
		probe.TestGeoIPWeb,
	}
	for i, r := range rows {
		assert.Equal(t, want[i], r.Type)
	}
}

func TestRender(t *testing.T) {
	out := Render(Summarize(outcomes()))

	assert.Contains(t, out, "PING:")
	assert.Contains(t, out, "DNS QUERY:")
	assert.Contains(t, out, "WEB REQUEST:")
	assert.Contains(t, out, "GEO-IP WEB:")
	assert.Contains(t, out, "TOTAL:")
	assert.Contains(t, out, "out of 6 tests")
}
