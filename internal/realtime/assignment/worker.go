package assignment

import (
	"context"
	"strconv"
	"sync"

	"github.com/okian/huddle/pkg/metrics"
)

// worker drains the task queue and commits acceptances one at a time.
type worker struct {
	name  string
	coord *Coordinator
}

// startWorkers launches the coordinator's worker pool. Each worker shares
// the queue's dequeue channel, so tasks are spread without coordination.
func startWorkers(ctx context.Context, c *Coordinator, wg *sync.WaitGroup) {
	tasks := c.tasks.Dequeue(ctx)
	for i := 0; i < c.workerCount; i++ {
		w := &worker{name: "assign-" + strconv.Itoa(i), coord: c}
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.run(ctx, tasks)
		}()
	}
	metrics.UpdateWorkerCount(c.workerCount)
}

// run processes tasks until the queue closes or the context ends.
func (w *worker) run(ctx context.Context, tasks <-chan Task) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-tasks:
			if !ok {
				return
			}
			w.coord.process(ctx, t)
		}
	}
}
