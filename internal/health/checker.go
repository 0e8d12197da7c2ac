// Package health runs readiness probes against the process's dependencies.
package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Pinger is anything that can report its own reachability (*sql.DB, db.MongoPinger).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

// PingContext implements Pinger.
func (f PingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

// Report statuses.
const (
	StatusOK       = "ok"
	StatusNotReady = "not_ready"
)

// Report is the outcome of one readiness run.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Ready reports whether every probe passed.
func (r Report) Ready() bool { return r.Status == StatusOK }

type probe struct {
	name   string
	pinger Pinger
}

// Checker runs named probes concurrently, each bounded by the same timeout.
type Checker struct {
	timeout time.Duration
	probes  []probe
}

// NewChecker returns an empty Checker. timeout <= 0 uses 2s.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{timeout: timeout}
}

// Add registers p under name. A nil p is skipped so optional dependencies can be passed unchecked.
func (c *Checker) Add(name string, p Pinger) *Checker {
	if p != nil {
		c.probes = append(c.probes, probe{name: name, pinger: p})
	}
	return c
}

// Names returns the registered probe names, sorted.
func (c *Checker) Names() []string {
	out := make([]string, len(c.probes))
	for i, p := range c.probes {
		out[i] = p.name
	}
	sort.Strings(out)
	return out
}

// Check runs every probe and returns the combined report.
func (c *Checker) Check(ctx context.Context) Report {
	rep := Report{Status: StatusOK, Checks: make(map[string]string, len(c.probes))}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, p := range c.probes {
		wg.Add(1)
		go func(p probe) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			result := StatusOK
			if err := p.pinger.PingContext(pctx); err != nil {
				result = err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			rep.Checks[p.name] = result
			if result != StatusOK {
				rep.Status = StatusNotReady
			}
		}(p)
	}
	wg.Wait()
	return rep
}
