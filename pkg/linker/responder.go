package linker

import (
	"context"
	"sync"
	"sync/atomic"
)

// Result is the HTTP answer committed for one linking request
type Result struct {
	Status int
	Body   interface{}
}

// Responder delivers exactly one Result per request. The first Commit wins,
// every later Commit is a no-op.
type Responder struct {
	once      sync.Once
	committed atomic.Bool
	status    atomic.Int32
	ch        chan Result
}

func NewResponder() *Responder {
	return &Responder{ch: make(chan Result, 1)}
}

// Commit reports whether this call was the one that completed the request
func (r *Responder) Commit(status int, body interface{}) bool {
	won := false
	r.once.Do(func() {
		r.status.Store(int32(status))
		r.committed.Store(true)
		r.ch <- Result{Status: status, Body: body}
		won = true
	})
	return won
}

func (r *Responder) Committed() bool {
	return r.committed.Load()
}

// Status is the committed HTTP status, zero before any Commit
func (r *Responder) Status() int {
	return int(r.status.Load())
}

// Wait blocks until a Result is committed or ctx is done
func (r *Responder) Wait(ctx context.Context) (Result, error) {
	select {
	case res := <-r.ch:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
