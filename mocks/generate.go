package mocks

//go:generate mockgen -destination=./mock_execution_client.go -package=mocks github.com/rxtech-lab/argo-autotrader/internal/dispatcher ExecutionClient,VenueClient
//go:generate mockgen -destination=./mock_strategy.go -package=mocks github.com/rxtech-lab/argo-autotrader/internal/strategy Strategy
//go:generate mockgen -destination=./mock_feed.go -package=mocks github.com/rxtech-lab/argo-autotrader/internal/bot MarketFeed
