package bot

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
)

// Dispatcher распределяет события по фиксированному набору воркеров по ключу чата.
// События одного чата всегда попадают в один воркер и обрабатываются по порядку,
// разные чаты обрабатываются параллельно.
type Dispatcher struct {
	shards []chan func(context.Context)
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewDispatcher создает диспетчер с workers воркерами и очередью queueSize на каждый.
func NewDispatcher(workers, queueSize int, logger *slog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	d := &Dispatcher{
		shards: make([]chan func(context.Context), workers),
		logger: logger,
	}
	for i := range d.shards {
		d.shards[i] = make(chan func(context.Context), queueSize)
	}
	return d
}

func (d *Dispatcher) shardFor(key string) chan func(context.Context) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return d.shards[h.Sum32()%uint32(len(d.shards))]
}

// Submit ставит задачу в очередь воркера ключа. Блокируется, если очередь заполнена.
func (d *Dispatcher) Submit(ctx context.Context, key string, job func(context.Context)) error {
	select {
	case d.shardFor(key) <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run запускает воркеры и блокируется до отмены ctx и завершения текущих задач.
// Задачи, оставшиеся в очереди после отмены, отбрасываются.
func (d *Dispatcher) Run(ctx context.Context) {
	for i, shard := range d.shards {
		d.wg.Add(1)
		go d.work(ctx, i, shard)
	}
	d.wg.Wait()
}

func (d *Dispatcher) work(ctx context.Context, id int, jobs <-chan func(context.Context)) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-jobs:
			d.runJob(ctx, id, job)
		}
	}
}

func (d *Dispatcher) runJob(ctx context.Context, id int, job func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Event handler panicked", "worker", id, "panic", r)
		}
	}()
	job(ctx)
}
