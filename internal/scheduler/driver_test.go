package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-moderation-bot/internal/core/services"
)

type countingTicker struct {
	calls atomic.Int32
	block bool
}

func (c *countingTicker) Tick(ctx context.Context, _ time.Time) (services.TickReport, error) {
	c.calls.Add(1)
	if c.block {
		<-ctx.Done()
		return services.TickReport{RunID: "blocked"}, ctx.Err()
	}
	return services.TickReport{RunID: "ok", Sent: 1}, nil
}

func TestNewDriver_InvalidSchedule(t *testing.T) {
	_, err := NewDriver("not a schedule", &countingTicker{}, nil)
	assert.Error(t, err)
}

func TestDriver_RunOnce(t *testing.T) {
	ticker := &countingTicker{}
	d, err := NewDriver("@every 1h", ticker, nil)
	require.NoError(t, err)

	d.RunOnce()
	d.RunOnce()
	assert.Equal(t, int32(2), ticker.calls.Load())
}

func TestDriver_RunTicksUntilCancelled(t *testing.T) {
	ticker := &countingTicker{}
	d, err := NewDriver("@every 1s", ticker, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	assert.Eventually(t, func() bool { return ticker.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run не завершился после отмены контекста")
	}
}

func TestDriver_StopInterruptsRunningTick(t *testing.T) {
	ticker := &countingTicker{block: true}
	d, err := NewDriver("@every 1h", ticker, nil)
	require.NoError(t, err)

	finished := make(chan struct{})
	go func() {
		d.RunOnce()
		close(finished)
	}()
	assert.Eventually(t, func() bool { return ticker.calls.Load() == 1 }, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d.Stop(ctx)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("тик не был прерван")
	}
}
