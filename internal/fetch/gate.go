package fetch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// gate enforces the process-wide egress budget: a global in-flight cap plus
// a per-host cap and an optional per-host pacing interval. Retries acquire
// again, so they count against the budget like first attempts.
type gate struct {
	global  *semaphore.Weighted
	perHost int64
	every   time.Duration

	mu    sync.Mutex
	hosts map[string]*hostGate
}

type hostGate struct {
	sem *semaphore.Weighted
	lim *rate.Limiter
}

func newGate(global, perHost int64, every time.Duration) *gate {
	if global <= 0 {
		global = 32
	}
	if perHost <= 0 {
		perHost = 4
	}
	if perHost > global {
		perHost = global
	}
	return &gate{
		global:  semaphore.NewWeighted(global),
		perHost: perHost,
		every:   every,
		hosts:   make(map[string]*hostGate),
	}
}

func (g *gate) host(name string) *hostGate {
	g.mu.Lock()
	defer g.mu.Unlock()
	hg, ok := g.hosts[name]
	if !ok {
		lim := rate.NewLimiter(rate.Inf, 1)
		if g.every > 0 {
			lim = rate.NewLimiter(rate.Every(g.every), 1)
		}
		hg = &hostGate{sem: semaphore.NewWeighted(g.perHost), lim: lim}
		g.hosts[name] = hg
	}
	return hg
}

// acquire blocks until a slot for host and a global slot are both held,
// then waits out the host pacing interval. The returned release function
// must be called exactly once.
func (g *gate) acquire(ctx context.Context, host string) (func(), error) {
	hg := g.host(host)
	if err := hg.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if err := g.global.Acquire(ctx, 1); err != nil {
		hg.sem.Release(1)
		return nil, err
	}
	release := func() {
		g.global.Release(1)
		hg.sem.Release(1)
	}
	if err := hg.lim.Wait(ctx); err != nil {
		release()
		return nil, err
	}
	return release, nil
}
