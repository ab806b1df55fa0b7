package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// ErrClosed is returned by a closed worker.
var ErrClosed = errors.New("worker closed")

type task struct {
	ctx   context.Context
	req   Request
	reply chan Response
}

// Pool renders in a fixed set of goroutines fed from one task queue.
type Pool struct {
	renderer *Renderer
	logger   hclog.Logger

	tasks     chan task
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewPool starts size goroutines (at least one).
func NewPool(r *Renderer, size int, logger hclog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	p := &Pool{
		renderer: r,
		logger:   logger.Named("worker"),
		tasks:    make(chan task),
		done:     make(chan struct{}),
	}
	for i := range size {
		p.wg.Add(1)
		go p.run(i)
	}
	return p
}

func (p *Pool) run(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case t := <-p.tasks:
			p.logger.Trace("render", "worker", id, "token", t.req.Token, "slot", t.req.Job.SlotID())
			t.reply <- p.renderer.Render(t.ctx, t.req)
		}
	}
}

// Render implements Worker.
func (p *Pool) Render(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	t := task{ctx: ctx, req: req, reply: make(chan Response, 1)}
	select {
	case p.tasks <- t:
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case <-p.done:
		return Response{}, ErrClosed
	}

	select {
	case resp := <-t.reply:
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Close stops the goroutines after in-flight renders finish.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
	return nil
}
