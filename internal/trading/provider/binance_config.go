package tradingprovider

import (
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// BinanceProviderConfig contains configuration for Binance trading.
type BinanceProviderConfig struct {
	ApiKey    string `json:"apiKey" yaml:"api_key" jsonschema:"title=API Key,description=Binance API key" validate:"required"`
	SecretKey string `json:"secretKey" yaml:"secret_key" jsonschema:"title=Secret Key,description=Binance API secret key" validate:"required"`
	// BaseURL overrides the REST endpoint and takes precedence over the testnet flag
	BaseURL string `json:"baseUrl,omitempty" yaml:"base_url,omitempty" validate:"omitempty,url"`
	// QuoteAsset is the balance reported as account cash
	QuoteAsset string `json:"quoteAsset" yaml:"quote_asset" validate:"required"`
	// DecimalPrecision bounds quantity and price strings sent to the venue
	DecimalPrecision int32 `json:"decimalPrecision" yaml:"decimal_precision" validate:"gte=0,lte=16"`
}

// NewBinanceProviderConfig returns a config with the USDT quote asset and the
// default precision.
func NewBinanceProviderConfig(apiKey, secretKey string) BinanceProviderConfig {
	return BinanceProviderConfig{
		ApiKey:           apiKey,
		SecretKey:        secretKey,
		BaseURL:          "",
		QuoteAsset:       DefaultQuoteAsset,
		DecimalPrecision: BinanceDecimalPrecision,
	}
}

// Validate validates the BinanceProviderConfig struct.
func (c *BinanceProviderConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid binance provider config", err)
	}

	return nil
}
