package tradingprovider

import (
	"slices"

	"github.com/rxtech-lab/argo-autotrader/internal/dispatcher"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

type ProviderType string

const (
	ProviderBinancePaper ProviderType = "binance-paper"
	ProviderBinanceLive  ProviderType = "binance-live"
)

type ProviderInfo struct {
	Name           string `json:"name"`
	DisplayName    string `json:"displayName"`
	Description    string `json:"description"`
	IsPaperTrading bool   `json:"isPaperTrading"`
}

var providerRegistry = map[ProviderType]ProviderInfo{
	ProviderBinancePaper: {
		Name:           string(ProviderBinancePaper),
		DisplayName:    "Binance Testnet",
		Description:    "Binance testnet for paper trading cryptocurrency without real funds",
		IsPaperTrading: true,
	},
	ProviderBinanceLive: {
		Name:           string(ProviderBinanceLive),
		DisplayName:    "Binance Live",
		Description:    "Binance live environment for real-funds cryptocurrency trading",
		IsPaperTrading: false,
	},
}

// GetSupportedProviders returns the provider names in sorted order.
func GetSupportedProviders() []string {
	providers := make([]string, 0, len(providerRegistry))
	for providerType := range providerRegistry {
		providers = append(providers, string(providerType))
	}

	slices.Sort(providers)

	return providers
}

// GetProviderInfo returns metadata for a specific trading provider.
func GetProviderInfo(providerName string) (ProviderInfo, error) {
	info, exists := providerRegistry[ProviderType(providerName)]
	if !exists {
		return ProviderInfo{}, errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported trading provider: %s", providerName)
	}

	return info, nil
}

// ProviderFor picks the Binance environment matching the testnet flag.
func ProviderFor(testnet bool) ProviderType {
	if testnet {
		return ProviderBinancePaper
	}

	return ProviderBinanceLive
}

// NewExecutionClient creates the venue client for live trading.
func NewExecutionClient(providerType ProviderType, config BinanceProviderConfig, log *logger.Logger) (dispatcher.VenueClient, error) {
	if _, ok := providerRegistry[providerType]; !ok {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported trading provider: %s", providerType)
	}

	client, err := NewBinanceExecutionClient(config, providerType == ProviderBinancePaper, log)
	if err != nil {
		return nil, err
	}

	return client, nil
}

var _ dispatcher.VenueClient = (*BinanceExecutionClient)(nil)
