package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertsoden/ontario-environmental-data/internal/report"
)

func TestSerializeReport(t *testing.T) {
	ts := time.Date(2025, 8, 26, 14, 30, 0, 0, time.UTC)
	rep := &report.Report{
		Timestamp: ts,
		Selected:  []string{"provincial_parks", "inaturalist"},
		Sources: map[string]report.Source{
			"provincial_parks": {Status: report.StatusSuccess, Count: 330},
			"inaturalist":      {Status: report.StatusNoData},
		},
		Verdict: report.VerdictOKWithWarnings,
	}

	msg, err := serializeReport(rep)
	require.NoError(t, err)

	assert.Equal(t, []byte("2025-08-26T14:30:00Z"), msg.Key)
	assert.Contains(t, string(msg.Value), `"verdict":"ok_with_warnings"`)
	assert.Contains(t, string(msg.Value), `"provincial_parks"`)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "verdict", msg.Headers[0].Key)
	assert.Equal(t, []byte("ok_with_warnings"), msg.Headers[0].Value)
	assert.Equal(t, "source_count", msg.Headers[1].Key)
	assert.Equal(t, []byte("2"), msg.Headers[1].Value)
}
