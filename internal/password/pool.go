package password

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"newsletter-backend/internal/secret"
)

var ErrPoolClosed = errors.New("password pool closed")

// Pool runs hash computations on a fixed set of worker goroutines so that
// slow argon2/bcrypt work is bounded and never runs on request goroutines.
type Pool struct {
	params    Params
	jobs      chan job
	quit      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type job struct {
	fn   func() error
	done chan error
}

func NewPool(workers int, params Params) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	p := &Pool{
		params: params,
		jobs:   make(chan job),
		quit:   make(chan struct{}),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

func (p *Pool) Params() Params {
	return p.params
}

// Verify checks plain against encoded on a worker. The result is propagated
// unchanged; if ctx ends first the caller gets ctx.Err() and the job is left
// to finish on its own.
func (p *Pool) Verify(ctx context.Context, encoded string, plain secret.String) error {
	return p.run(ctx, func() error {
		return Verify(encoded, plain.Expose())
	})
}

// Hash computes a new argon2id hash on a worker.
func (p *Pool) Hash(ctx context.Context, plain secret.String) (string, error) {
	var out string
	err := p.run(ctx, func() error {
		var err error
		out, err = Hash(plain.Expose(), p.params)
		return err
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.quit)
	})
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, fn func() error) error {
	j := job{fn: fn, done: make(chan error, 1)}

	select {
	case p.jobs <- j:
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) work() {
	defer p.wg.Done()
	for {
		select {
		case j := <-p.jobs:
			j.done <- safeCall(j.fn)
		case <-p.quit:
			return
		}
	}
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("password worker panic: %v", rec)
		}
	}()
	return fn()
}
