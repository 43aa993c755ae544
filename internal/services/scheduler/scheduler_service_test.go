package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestStart_InvalidSchedule(t *testing.T) {
	s := NewService("not a cron", func(ctx context.Context) error { return nil }, arbor.NewLogger())

	err := s.Start(false)

	assert.Error(t, err)
	assert.False(t, s.IsRunning())
}

func TestStartStop(t *testing.T) {
	s := NewService("0 21 * * *", func(ctx context.Context) error { return nil }, arbor.NewLogger())

	require.NoError(t, s.Start(false))
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start(false), "second start is rejected")

	status := s.Status()
	assert.Equal(t, "0 21 * * *", status.Schedule)
	assert.True(t, status.Running)
	assert.False(t, status.NextRun.IsZero())
	assert.Equal(t, 21, status.NextRun.Hour())
	assert.Nil(t, status.LastRun)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.NoError(t, s.Stop(), "stop is idempotent")
}

func TestRunOnStart(t *testing.T) {
	ran := make(chan struct{}, 1)
	s := NewService("0 21 * * *", func(ctx context.Context) error {
		ran <- struct{}{}
		return nil
	}, arbor.NewLogger())

	require.NoError(t, s.Start(true))
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("run on start did not execute")
	}
}

func TestTriggerNow_SkipsWhileRunning(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32

	s := NewService("0 21 * * *", func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-release
		}
		return nil
	}, arbor.NewLogger())

	firstDone := make(chan bool)
	go func() { firstDone <- s.TriggerNow() }()

	<-started
	assert.True(t, s.Status().IsProcessing)
	assert.False(t, s.TriggerNow(), "overlapping run is skipped")
	assert.Equal(t, 1, s.Status().Skipped)

	close(release)
	assert.True(t, <-firstDone)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	assert.True(t, s.TriggerNow(), "runs again once the first has finished")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestTriggerNow_RecordsOutcome(t *testing.T) {
	fail := true
	s := NewService("0 21 * * *", func(ctx context.Context) error {
		if fail {
			return errors.New("report dispatch failed")
		}
		return nil
	}, arbor.NewLogger())

	assert.True(t, s.TriggerNow())
	status := s.Status()
	require.NotNil(t, status.LastRun)
	assert.Equal(t, "report dispatch failed", status.LastError)
	assert.False(t, status.IsProcessing)

	fail = false
	assert.True(t, s.TriggerNow())
	assert.Empty(t, s.Status().LastError)
}

func TestTriggerNow_RecoversPanic(t *testing.T) {
	s := NewService("0 21 * * *", func(ctx context.Context) error {
		panic("boom")
	}, arbor.NewLogger())

	assert.NotPanics(t, func() {
		assert.True(t, s.TriggerNow())
	})

	status := s.Status()
	assert.Equal(t, "panic: boom", status.LastError)
	assert.False(t, status.IsProcessing)
}

func TestStop_CancelsRunAfterTimeout(t *testing.T) {
	cancelled := make(chan struct{})
	s := NewService("0 21 * * *", func(ctx context.Context) error {
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}, arbor.NewLogger())
	s.shutdownTimeout = 50 * time.Millisecond

	require.NoError(t, s.Start(true))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Stop())

	select {
	case <-cancelled:
	default:
		t.Fatal("in-flight run was not cancelled")
	}
	assert.Equal(t, context.Canceled.Error(), s.Status().LastError)
}
