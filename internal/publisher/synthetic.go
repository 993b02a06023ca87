// ABOUTME: Jittered performance and signal values for the periodic frames
// ABOUTME: Safe for concurrent use; seedable for deterministic tests

package publisher

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/2389/status-gateway/internal/status"
)

var signalSymbols = []string{"EURUSD", "GBPUSD", "USDJPY", "AUDUSD", "USDCAD"}

// Generator produces synthetic metric payloads.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator returns a generator seeded from seed. Equal seeds produce
// equal sequences.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Performance returns a performance_update payload.
func (g *Generator) Performance(now time.Time) status.PerformanceUpdate {
	g.mu.Lock()
	defer g.mu.Unlock()

	return status.PerformanceUpdate{
		Timestamp:      now,
		DailyEarnings:  2847.32 + g.rng.Float64()*100,
		ActiveTrades:   g.rng.IntN(10) + 5,
		WinRate:        73.5 + g.rng.Float64()*5,
		PortfolioValue: 156789.45 + g.rng.Float64()*1000,
	}
}

// Signal returns a new_signal payload.
func (g *Generator) Signal(now time.Time) status.Signal {
	g.mu.Lock()
	defer g.mu.Unlock()

	side := status.SignalBuy
	if g.rng.IntN(2) == 1 {
		side = status.SignalSell
	}
	return status.Signal{
		Symbol:     signalSymbols[g.rng.IntN(len(signalSymbols))],
		Type:       side,
		Confidence: 0.7 + g.rng.Float64()*0.3,
		Timestamp:  now,
	}
}
