package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_PreservesPerKeyOrder(t *testing.T) {
	d := NewDispatcher(4, 16, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	const perKey = 50
	keys := []string{"a", "b", "c", "d", "e"}
	var mu sync.Mutex
	seen := make(map[string][]int)
	var wg sync.WaitGroup
	wg.Add(perKey * len(keys))

	for i := 0; i < perKey; i++ {
		for _, key := range keys {
			key, i := key, i
			require.NoError(t, d.Submit(ctx, key, func(context.Context) {
				defer wg.Done()
				mu.Lock()
				seen[key] = append(seen[key], i)
				mu.Unlock()
			}))
		}
	}
	wg.Wait()
	cancel()
	<-done

	for _, key := range keys {
		require.Len(t, seen[key], perKey)
		for i, v := range seen[key] {
			assert.Equal(t, i, v, "порядок событий ключа %s нарушен", key)
		}
	}
}

func TestDispatcher_RecoversFromPanic(t *testing.T) {
	d := NewDispatcher(1, 4, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	require.NoError(t, d.Submit(ctx, "k", func(context.Context) { panic("boom") }))
	ran := make(chan struct{})
	require.NoError(t, d.Submit(ctx, "k", func(context.Context) { close(ran) }))

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("воркер остановился после паники")
	}
}

func TestDispatcher_SubmitRespectsContext(t *testing.T) {
	d := NewDispatcher(1, 1, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())

	// воркеры не запущены: первая задача займет очередь, вторая заблокируется
	require.NoError(t, d.Submit(ctx, "k", func(context.Context) {}))
	cancel()
	err := d.Submit(ctx, "k", func(context.Context) {})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDispatcher_ShardIsStable(t *testing.T) {
	d := NewDispatcher(8, 1, slog.New(slog.NewTextHandler(io.Discard, nil)))
	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("chat-%d", i)
		assert.Equal(t, d.shardFor(key), d.shardFor(key))
	}
}
