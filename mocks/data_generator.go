package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/shopspring/decimal"
)

// DataGenerator generates market snapshot series for tests.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how snapshots are generated.
type GeneratorConfig struct {
	// Symbol is the trading pair (e.g., "BTCUSDT")
	Symbol string
	// StartTime is the time of the first snapshot
	StartTime time.Time
	// Interval is the duration between snapshots
	Interval time.Duration
	// Count is the number of snapshots to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% per snapshot)
	Volatility float64
	// Trend is the total drift over the series (-0.1 to 0.1 for bearish to bullish)
	Trend float64
	// VolumeBase is the average 24h volume
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:         "BTCUSDT",
		StartTime:      time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		Interval:       time.Minute,
		Count:          1000,
		InitialPrice:   100.0,
		Volatility:     0.002,
		Trend:          0.0,
		VolumeBase:     10000,
		VolumeVariance: 0.3,
	}
}

// Generate creates snapshots following a geometric Brownian motion. The 24h
// high and low track the extremes seen within the trailing 24 hours.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.MarketSnapshot {
	data := make([]types.MarketSnapshot, config.Count)
	price := config.InitialPrice
	at := config.StartTime

	window := 1
	if config.Interval > 0 {
		window = max(1, int(24*time.Hour/config.Interval))
	}

	prices := make([]float64, 0, config.Count)

	for i := 0; i < config.Count; i++ {
		// Box-Muller transform for a normal draw
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		drift := config.Trend / float64(config.Count)

		next := price * (1 + config.Volatility*z + drift)
		if next <= 0 {
			next = price * 0.99
		}

		if i > 0 {
			price = next
		}

		prices = append(prices, price)

		start := max(0, len(prices)-window)
		high, low := price, price

		for _, p := range prices[start:] {
			high = math.Max(high, p)
			low = math.Min(low, p)
		}

		volume := config.VolumeBase * (1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance)
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		data[i] = types.MarketSnapshot{
			Symbol:    config.Symbol,
			Price:     decimal.NewFromFloat(price).Round(4),
			Volume24h: decimal.NewFromFloat(volume).Round(2),
			High24h:   decimal.NewFromFloat(high).Round(4),
			Low24h:    decimal.NewFromFloat(low).Round(4),
			Timestamp: at,
		}

		at = at.Add(config.Interval)
	}

	return data
}

// GenerateMultiSymbol generates a series per symbol and interleaves them by time.
func (g *DataGenerator) GenerateMultiSymbol(symbols []string, baseConfig GeneratorConfig) []types.MarketSnapshot {
	series := make([][]types.MarketSnapshot, 0, len(symbols))

	for _, symbol := range symbols {
		config := baseConfig
		config.Symbol = symbol
		// vary initial price and volatility slightly per symbol
		config.InitialPrice = baseConfig.InitialPrice * (0.8 + g.rng.Float64()*0.4)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)

		series = append(series, g.Generate(config))
	}

	out := make([]types.MarketSnapshot, 0, baseConfig.Count*len(symbols))

	for i := 0; i < baseConfig.Count; i++ {
		for _, s := range series {
			out = append(out, s[i])
		}
	}

	return out
}
