// Package sched implements resource admission control for concurrently
// executing task calls (spec.md §4.8/§4.9): before a call's command is
// submitted to a backend.Backend, it must be admitted against a shared
// cpu/memory/disk budget. Grounded on the teacher's pkg/budget
// proportional-allocation solver, repurposed from "derive static
// pipeline config from a memory budget" to "admit/release live task
// resource requests against a shared budget."
package sched

import (
	"context"
	"fmt"
	"sync"

	"github.com/wdlrun/wdlrun/pkg/backend"
)

// Pool is a shared cpu/memory/disk budget that task calls are admitted
// against before they run. Each release wakes every waiter, and each one
// re-checks whether its request fits; the order in which waiters are
// admitted is not defined, so a large request can be passed by smaller
// ones that arrived later.
type Pool struct {
	mu sync.Mutex

	totalCPU  float64
	totalMem  int64
	totalDisk int64

	usedCPU  float64
	usedMem  int64
	usedDisk int64

	waiters []chan struct{}
}

// NewPool builds a Pool with the given total resource envelope. A zero
// value for any field means that resource is unconstrained.
func NewPool(cpu float64, mem, disk int64) *Pool {
	return &Pool{totalCPU: cpu, totalMem: mem, totalDisk: disk}
}

// errResourcesExceedPool is returned by Admit when a single request asks
// for more than the pool could ever grant, even empty.
var errResourcesExceedPool = fmt.Errorf("sched: requested resources exceed pool capacity")

// Admit blocks until req's cpu/memory/disk can be reserved from the pool,
// or ctx is done. On success it returns a release func that must be
// called exactly once to give the resources back.
func (p *Pool) Admit(ctx context.Context, req backend.Resources) (func(), error) {
	if p.exceedsCapacity(req) {
		return nil, errResourcesExceedPool
	}

	for {
		p.mu.Lock()

		if p.fits(req) {
			p.reserve(req)
			p.mu.Unlock()

			return func() { p.release(req) }, nil
		}

		wake := make(chan struct{})
		p.waiters = append(p.waiters, wake)
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wake:
		}
	}
}

func (p *Pool) exceedsCapacity(req backend.Resources) bool {
	if p.totalCPU > 0 && req.CPUCores > p.totalCPU {
		return true
	}

	if p.totalMem > 0 && req.MemoryByte > p.totalMem {
		return true
	}

	if p.totalDisk > 0 && req.DiskByte > p.totalDisk {
		return true
	}

	return false
}

// fits reports whether req can be reserved right now (caller holds mu).
func (p *Pool) fits(req backend.Resources) bool {
	if p.totalCPU > 0 && p.usedCPU+req.CPUCores > p.totalCPU {
		return false
	}

	if p.totalMem > 0 && p.usedMem+req.MemoryByte > p.totalMem {
		return false
	}

	if p.totalDisk > 0 && p.usedDisk+req.DiskByte > p.totalDisk {
		return false
	}

	return true
}

func (p *Pool) reserve(req backend.Resources) {
	p.usedCPU += req.CPUCores
	p.usedMem += req.MemoryByte
	p.usedDisk += req.DiskByte
}

func (p *Pool) release(req backend.Resources) {
	p.mu.Lock()

	p.usedCPU -= req.CPUCores
	p.usedMem -= req.MemoryByte
	p.usedDisk -= req.DiskByte

	waiters := p.waiters
	p.waiters = nil

	p.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}
}

// Usage reports the pool's current reservation, for observability.
func (p *Pool) Usage() (cpu float64, mem, disk int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.usedCPU, p.usedMem, p.usedDisk
}
