package types

import "time"

// TradeStats counts order outcomes of a run.
type TradeStats struct {
	TotalOrders     int `json:"total_orders" yaml:"total_orders"`
	FilledOrders    int `json:"filled_orders" yaml:"filled_orders"`
	RejectedOrders  int `json:"rejected_orders" yaml:"rejected_orders"`
	CancelledOrders int `json:"cancelled_orders" yaml:"cancelled_orders"`
	// WinningTrades and LosingTrades count fills that realized profit or loss
	WinningTrades int `json:"winning_trades" yaml:"winning_trades"`
	LosingTrades  int `json:"losing_trades" yaml:"losing_trades"`
}

// WinRate is the share of winning closes among all closes, in [0, 1].
func (s TradeStats) WinRate() float64 {
	closed := s.WinningTrades + s.LosingTrades
	if closed == 0 {
		return 0
	}

	return float64(s.WinningTrades) / float64(closed)
}

// BotStatus is the live status snapshot returned to operators.
type BotStatus struct {
	Running            bool             `json:"running" yaml:"running"`
	DryRun             bool             `json:"dry_run" yaml:"dry_run"`
	StartedAt          time.Time        `json:"started_at" yaml:"started_at"`
	Uptime             time.Duration    `json:"uptime" yaml:"uptime"`
	Strategies         []StrategyStatus `json:"strategies" yaml:"strategies"`
	Orders             []Order          `json:"orders" yaml:"orders"`
	Account            AccountState     `json:"account" yaml:"account"`
	Stats              TradeStats       `json:"stats" yaml:"stats"`
	RiskLimitsBreached bool             `json:"risk_limits_breached" yaml:"risk_limits_breached"`
}
