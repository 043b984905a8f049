package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowFromValuesPadsShortRows(t *testing.T) {
	row := RowFromValues([]string{"Build DWH", "desc", "BI", "DE"}, 4)

	assert.Equal(t, "Build DWH", row.Name)
	assert.Equal(t, "DE", row.Executor)
	assert.Empty(t, row.Priority)
	assert.Empty(t, string(row.Type))
	assert.Equal(t, 4, row.Row)
}

func TestValuesRoundTripsThroughRowFromValues(t *testing.T) {
	in := TaskRow{
		Name:        "Ingest partners feed",
		Description: "DoD: daily load",
		Requester:   "BI",
		Executor:    "DE",
		Client:      "Partners",
		Priority:    P1.Label(),
		Type:        IncomingBlocker,
	}

	out := RowFromValues(in.Values(), 0)
	assert.Equal(t, in, out)
	assert.True(t, out.IsDependency())
}

func TestCellsKeepsEstimateNumeric(t *testing.T) {
	own := TaskRow{Name: "a", Estimate: "5", Type: OwnTask}
	assert.Equal(t, 5.0, own.Cells()[IdxEstimate])
	assert.Equal(t, "Own Task", own.Cells()[IdxType])

	dep := TaskRow{Name: "b", Type: IncomingEnabler}
	assert.Equal(t, "", dep.Cells()[IdxEstimate])

	for _, raw := range []string{"NaN", "inf", "1e400"} {
		odd := TaskRow{Name: "c", Estimate: raw, Type: OwnTask}
		assert.Equal(t, raw, odd.Cells()[IdxEstimate], "non-finite estimate %q stays text", raw)
	}
}

func TestHeadersMatch(t *testing.T) {
	assert.True(t, HeadersMatch(append([]string(nil), Headers...)))
	assert.False(t, HeadersMatch(Headers[:7]))

	old := append([]string(nil), Headers...)
	old[6] = "Estimate"
	assert.False(t, HeadersMatch(old))
}

func TestParseEstimate(t *testing.T) {
	cases := map[string]float64{
		"":          0,
		"  ":        0,
		"5":         5,
		"2.5":       2.5,
		"2,5":       2.5,
		"TBD":       0,
		" 13 ":      13,
		"NaN":       0,
		"nan":       0,
		"inf":       0,
		"-Infinity": 0,
		"1e400":     0,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseEstimate(in), "estimate %q", in)
	}
}

func TestPriorityLabels(t *testing.T) {
	p, err := ParsePriority("P0 (Critical)")
	require.NoError(t, err)
	assert.Equal(t, P0, p)

	p, err = ParsePriority("P2")
	require.NoError(t, err)
	assert.Equal(t, P2, p)

	_, err = ParsePriority("urgent")
	assert.Error(t, err)

	assert.Equal(t, "Highest", JiraPriority(P0.Label()))
	assert.Equal(t, "Low", JiraPriority(P3.Label()))
	assert.Equal(t, "Medium", JiraPriority(""))
	assert.Equal(t, "Medium", JiraPriority("P9 (Whenever)"))
}

func TestFormatPoints(t *testing.T) {
	assert.Equal(t, "8", FormatPoints(8))
	assert.Equal(t, "2.5", FormatPoints(2.5))
}
