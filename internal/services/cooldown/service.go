package cooldown

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/mascota/mascota/internal/logger"
)

const DefaultSeconds = 30

// Gate keeps an independent countdown per action kind.
type Gate struct {
	mu        sync.Mutex
	clock     clock.Clock
	seconds   int
	deadlines map[string]time.Time

	listenersMu sync.Mutex
	listeners   []chan map[string]int
}

func NewGate(clk clock.Clock, defaultSeconds int) *Gate {
	if clk == nil {
		clk = clock.New()
	}
	if defaultSeconds <= 0 {
		defaultSeconds = DefaultSeconds
	}
	return &Gate{
		clock:     clk,
		seconds:   defaultSeconds,
		deadlines: make(map[string]time.Time),
	}
}

// Start arms kind with the default duration.
func (g *Gate) Start(kind string) {
	g.StartFor(kind, g.seconds)
}

// StartFor arms kind for the given seconds. Re-arming replaces the
// previous countdown.
func (g *Gate) StartFor(kind string, seconds int) {
	if seconds <= 0 {
		return
	}
	g.mu.Lock()
	g.deadlines[kind] = g.clock.Now().Add(time.Duration(seconds) * time.Second)
	g.mu.Unlock()

	l := logger.For(logger.COOLDOWN)
	l.Debug().Str("kind", kind).Int("seconds", seconds).Msg("Cooldown armed")
}

// Remaining returns whole seconds left for kind, 0 when inactive.
func (g *Gate) Remaining(kind string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remainingLocked(kind, g.clock.Now())
}

func (g *Gate) CanFire(kind string) bool {
	return g.Remaining(kind) == 0
}

// Active returns the remaining seconds of every armed kind.
func (g *Gate) Active() map[string]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.activeLocked(g.clock.Now())
}

func (g *Gate) remainingLocked(kind string, now time.Time) int {
	deadline, ok := g.deadlines[kind]
	if !ok {
		return 0
	}
	left := deadline.Sub(now)
	if left <= 0 {
		delete(g.deadlines, kind)
		return 0
	}
	// Counts down once per whole second.
	return int((left + time.Second - 1) / time.Second)
}

func (g *Gate) activeLocked(now time.Time) map[string]int {
	active := make(map[string]int, len(g.deadlines))
	for kind := range g.deadlines {
		if r := g.remainingLocked(kind, now); r > 0 {
			active[kind] = r
		}
	}
	return active
}

// Subscribe returns a channel receiving the active countdowns on every
// tick of Run. Slow receivers miss ticks.
func (g *Gate) Subscribe() (<-chan map[string]int, func()) {
	ch := make(chan map[string]int, 1)

	g.listenersMu.Lock()
	g.listeners = append(g.listeners, ch)
	g.listenersMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			g.listenersMu.Lock()
			defer g.listenersMu.Unlock()
			for i, c := range g.listeners {
				if c == ch {
					g.listeners = append(g.listeners[:i], g.listeners[i+1:]...)
					break
				}
			}
			close(ch)
		})
	}
}

// Run ticks once per second until ctx is done, pruning finished
// countdowns and publishing the active ones.
func (g *Gate) Run(ctx context.Context) {
	ticker := g.clock.Ticker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.mu.Lock()
			active := g.activeLocked(g.clock.Now())
			g.mu.Unlock()
			if len(active) > 0 {
				g.publish(active)
			}
		}
	}
}

func (g *Gate) publish(active map[string]int) {
	g.listenersMu.Lock()
	defer g.listenersMu.Unlock()

	for _, ch := range g.listeners {
		snapshot := make(map[string]int, len(active))
		for k, v := range active {
			snapshot[k] = v
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}
