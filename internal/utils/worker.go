package utils

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const taskChanSize = 100

type WorkerFunction = func(t *tomb.Tomb, task any) error

// WorkerPool fans tasks out over a fixed set of goroutines running under
// the owner's tomb.
type WorkerPool struct {
	n     uint     // number of workers
	tasks chan any // pending tasks
}

func NewWorkerPool(size uint) WorkerPool {
	return WorkerPool{
		n:     size,
		tasks: make(chan any, taskChanSize),
	}
}

// Setup starts the configured number of workers. Workers exit when the tomb
// dies or when the work function reports a fatal error.
func (pool *WorkerPool) Setup(t *tomb.Tomb, work WorkerFunction) {
	for i := uint(0); i < pool.n; i++ {
		id := int(i)
		t.Go(func() error {
			return pool.worker(t, id, work)
		})
	}
}

// AddTask queues a task for the next free worker.
func (pool *WorkerPool) AddTask(task any) {
	pool.tasks <- task
}

// Workers wait on tasks in the task channel and action them.
func (pool *WorkerPool) worker(t *tomb.Tomb, id int, work WorkerFunction) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-pool.tasks:
			if err := work(t, task); err != nil {
				log.Error().Err(err).Int("id", id).Msg("worker exiting")
				return err
			}
		}
	}
}
