package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/tornado-bigday/internal/observability"
)

func newTestPipeline(stages []Stage) *Pipeline {
	return New(stages, slog.Default(), observability.NewMetricsForTesting())
}

func TestRun_ExecutesStagesInOrder(t *testing.T) {
	var order []string
	stage := func(name string) Stage {
		return Stage{Name: name, Run: func(context.Context) error {
			order = append(order, name)
			return nil
		}}
	}

	p := newTestPipeline([]Stage{stage("ingest"), stage("events"), stage("fetch")})
	require.NoError(t, p.Run(t.Context()))

	assert.Equal(t, []string{"ingest", "events", "fetch"}, order)
	assert.Equal(t, []string{"ingest", "events", "fetch"}, p.Status().Completed)
	assert.False(t, p.Status().Running)
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	var ran []string
	boom := errors.New("boom")
	p := newTestPipeline([]Stage{
		{Name: "ingest", Run: func(context.Context) error { ran = append(ran, "ingest"); return nil }},
		{Name: "events", Run: func(context.Context) error { return boom }},
		{Name: "fetch", Run: func(context.Context) error { ran = append(ran, "fetch"); return nil }},
	})

	err := p.Run(t.Context())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "stage events")
	assert.Equal(t, []string{"ingest"}, ran)
}

func TestRun_CancellationIsNotAnError(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	p := newTestPipeline([]Stage{
		{Name: "ingest", Run: func(context.Context) error { cancel(); return nil }},
		{Name: "events", Run: func(context.Context) error {
			t.Fatal("stage after cancellation should not run")
			return nil
		}},
	})

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, []string{"ingest"}, p.Status().Completed)
}

func TestRun_StageErrorAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	p := newTestPipeline([]Stage{
		{Name: "fetch", Run: func(context.Context) error {
			cancel()
			return ctx.Err()
		}},
	})

	require.NoError(t, p.Run(ctx))
}

func TestCheckReadiness(t *testing.T) {
	p := newTestPipeline([]Stage{{Name: "ingest", Run: func(context.Context) error { return nil }}})

	require.Error(t, p.CheckReadiness(t.Context()))
	require.NoError(t, p.Run(t.Context()))
	require.NoError(t, p.CheckReadiness(t.Context()))
}
