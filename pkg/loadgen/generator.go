package loadgen

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/nikolaydubina/fpdecimal"

	"github.com/erain9/tickmatch/pkg/core"
	"github.com/erain9/tickmatch/pkg/engine"
)

// Generator produces a reproducible stream of engine commands. The same
// seed always yields the same stream, which makes load test runs comparable
// and lets a failing run be replayed exactly.
type Generator struct {
	cfg    *Config
	logger *slog.Logger
	rng    *rand.Rand

	nextID uint64
	live   []string
}

// NewGenerator creates a Generator seeded from the config
func NewGenerator(cfg *Config, logger *slog.Logger) *Generator {
	g := &Generator{
		cfg:    cfg,
		logger: logger.With("component", "Generator"),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}

	g.logger.Debug("Initialized command generator",
		"seed", cfg.Seed,
		"market_symbol", cfg.MarketSymbol,
		"mid_price", cfg.MidPrice)

	return g
}

// Next returns the next command of the stream. Cancels target order IDs the
// generator itself placed as GTC, so the stream never depends on engine
// state and stays reproducible.
func (g *Generator) Next() engine.Command {
	if len(g.live) > 0 && g.percent(g.cfg.CancelPercent) {
		return g.nextCancel()
	}
	return g.nextSubmit()
}

// LiveOrders returns how many GTC order IDs are still cancel candidates
func (g *Generator) LiveOrders() int {
	return len(g.live)
}

func (g *Generator) nextCancel() engine.Command {
	idx := g.rng.Intn(len(g.live))
	orderID := g.live[idx]
	g.live[idx] = g.live[len(g.live)-1]
	g.live = g.live[:len(g.live)-1]

	return engine.CancelCommand{OrderID: orderID}
}

func (g *Generator) nextSubmit() engine.Command {
	g.nextID++

	cmd := engine.SubmitCommand{
		OrderID:   fmt.Sprintf("%s-%d", g.cfg.ClientID, g.nextID),
		Submitter: fmt.Sprintf("trader-%02d", g.rng.Intn(g.cfg.NumTraders)+1),
		Quantity:  g.quantity(),
	}

	if g.rng.Intn(2) == 0 {
		cmd.Side = core.Buy
	} else {
		cmd.Side = core.Sell
	}

	if g.percent(g.cfg.MarketPercent) {
		cmd.Type = core.TypeMarket
		return cmd
	}

	cmd.Type = core.TypeLimit
	cmd.Price = g.price(cmd.Side)

	switch {
	case g.percent(g.cfg.IOCPercent):
		cmd.TIF = core.IOC
	case g.percent(g.cfg.FOKPercent):
		cmd.TIF = core.FOK
	default:
		cmd.TIF = core.GTC
		g.live = append(g.live, cmd.OrderID)
	}

	return cmd
}

// price draws a limit price inside the configured band around the mid.
// Buys normally land below the mid and sells above it, building depth on
// both sides; a CrossPercent fraction lands on the far side so the stream
// produces trades.
func (g *Generator) price(side core.Side) fpdecimal.Decimal {
	band := g.cfg.MidPrice * g.cfg.BandPercent / 100
	offset := g.rng.Float64() * band

	crossing := g.percent(g.cfg.CrossPercent)

	var raw float64
	if (side == core.Buy) != crossing {
		raw = g.cfg.MidPrice - offset
	} else {
		raw = g.cfg.MidPrice + offset
	}

	// Round to cents so generated prices cluster into shared levels.
	return fpdecimal.FromFloat(math.Round(raw*100) / 100)
}

func (g *Generator) quantity() fpdecimal.Decimal {
	steps := int(g.cfg.MaxOrderSize * 100)
	qty := float64(g.rng.Intn(steps)+1) / 100
	return fpdecimal.FromFloat(qty)
}

// percent draws true with probability p/100
func (g *Generator) percent(p float64) bool {
	return g.rng.Float64()*100 < p
}
