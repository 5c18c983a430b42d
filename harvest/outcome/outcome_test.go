package outcome

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/vidharvest/harvest/videoref"
)

func TestMarshal_EmptyLinksIsArray(t *testing.T) {
	o := RunOutcome{ID: "run_1", Status: StatusFailed, Reason: ReasonAuthFailed}
	data, err := Marshal(&o)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"links":[]`)
	assert.Contains(t, string(data), `"reason":"auth_failed"`)

	back, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, ReasonAuthFailed, back.Reason)
	assert.False(t, back.OK())
}

func TestRunOutcome_Helpers(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	o := RunOutcome{
		Status:     StatusSuccess,
		Links:      []videoref.Ref{"https://www.youtube.com/watch?v=a1"},
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
	}
	assert.True(t, o.OK())
	assert.Equal(t, []string{"https://www.youtube.com/watch?v=a1"}, o.LinkStrings())
	assert.Equal(t, 90*time.Second, o.Duration())
	assert.Zero(t, RunOutcome{StartedAt: start}.Duration())
}
