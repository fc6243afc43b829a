package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAdd(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantErr bool
	}{
		{name: "daily", spec: "0 9 * * *"},
		{name: "descriptor", spec: "@hourly"},
		{name: "every", spec: "@every 10m"},
		{name: "seconds field rejected", spec: "0 0 9 * * *", wantErr: true},
		{name: "garbage", spec: "whenever", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(context.Background(), time.UTC, zap.NewNop())
			_, err := s.Add("job", tt.spec, func(ctx context.Context) error { return nil })
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, 0, s.Len())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, s.Len())
		})
	}
}

func TestNext(t *testing.T) {
	s := New(context.Background(), time.UTC, zap.NewNop())
	_, err := s.Add("reminders", "0 9 * * *", func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	_, err = s.Add("leaderboard", "30 18 * * 1", func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	next := s.Next()
	require.Len(t, next, 2)
	assert.Equal(t, 9, next["reminders"].Hour())
	assert.Equal(t, time.Monday, next["leaderboard"].Weekday())
	assert.True(t, next["reminders"].After(time.Now()))
}

func TestWrap_LogsOutcome(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "marker")
	s := New(ctx, time.UTC, zap.New(core))

	var seen any
	s.wrap("ok", func(ctx context.Context) error {
		seen = ctx.Value(ctxKey{})
		return nil
	})()
	s.wrap("broken", func(ctx context.Context) error { return errors.New("sheets unavailable") })()

	assert.Equal(t, "marker", seen, "jobs receive the scheduler context")
	assert.Equal(t, 1, logs.FilterMessage("Job finished").Len())

	failed := logs.FilterMessage("Job failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "broken", failed[0].ContextMap()["job"])
	assert.Equal(t, "sheets unavailable", failed[0].ContextMap()["error"])
}

func TestStartRunsJobs(t *testing.T) {
	s := New(context.Background(), time.UTC, zap.NewNop())
	ran := make(chan struct{}, 1)
	_, err := s.Add("tick", "@every 1s", func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}
