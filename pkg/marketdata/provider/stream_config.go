package provider

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// BinanceStreamConfig controls how the ticker feed reconnects.
type BinanceStreamConfig struct {
	// ReconnectDelay is the wait before the first reconnect; it doubles per failed attempt
	ReconnectDelay    time.Duration `json:"reconnectDelay" validate:"gt=0"`
	MaxReconnectDelay time.Duration `json:"maxReconnectDelay" validate:"gtefield=ReconnectDelay"`
	// MaxReconnects ends the stream after this many consecutive failures; zero retries forever
	MaxReconnects int `json:"maxReconnects" validate:"gte=0"`
}

// DefaultBinanceStreamConfig reconnects after 1s, backing off to 30s, forever.
func DefaultBinanceStreamConfig() BinanceStreamConfig {
	return BinanceStreamConfig{
		ReconnectDelay:    time.Second,
		MaxReconnectDelay: 30 * time.Second,
		MaxReconnects:     0,
	}
}

// Validate validates the BinanceStreamConfig.
func (c *BinanceStreamConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid stream config", err)
	}

	return nil
}

// backoff is the wait before reconnect attempt n, counting from 1.
func (c BinanceStreamConfig) backoff(attempt int) time.Duration {
	delay := c.ReconnectDelay
	for i := 1; i < attempt && delay < c.MaxReconnectDelay; i++ {
		delay *= 2
	}

	return min(delay, c.MaxReconnectDelay)
}
