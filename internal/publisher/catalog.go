// ABOUTME: Fixed report bodies served by the HTTP GET endpoints
// ABOUTME: Values are display data for the dashboard, not live figures

package publisher

import (
	"time"

	"github.com/2389/status-gateway/internal/status"
)

// SystemName is reported by GET /api/status.
const SystemName = "Autonomous Money-Making Ecosystem"

var performanceSummary = status.PerformanceSummary{
	DailyEarnings:     2847.32,
	MonthlyProjection: 85419.60,
	YearlyProjection:  1025035.20,
	ActiveStreams:     8,
	WinRate:           73.5,
	TotalTrades:       1247,
	SuccessfulTrades:  917,
}

// StatusReport builds the GET /api/status body from the current agent states.
func StatusReport(states map[string]status.AgentState, version string, uptime time.Duration, now time.Time) status.StatusReport {
	return status.StatusReport{
		Status:      "active",
		System:      SystemName,
		Version:     version,
		Timestamp:   now,
		Uptime:      uptime.Seconds(),
		Agents:      states,
		Performance: performanceSummary,
	}
}

// PerformanceReport builds the GET /api/performance body.
func PerformanceReport(now time.Time) status.PerformanceReport {
	return status.PerformanceReport{
		Timestamp:          now,
		TotalDailyEarnings: 2847.32,
		DailyTarget:        2500,
		DailyProgress:      113.89,
		MonthlyEarnings:    67234.50,
		MonthlyTarget:      75000,
		MonthlyProgress:    89.65,
		YearlyEarnings:     823456.78,
		YearlyTarget:       900000,
		YearlyProgress:     91.49,
		ActiveStreams:      8,
		TotalTrades:        1247,
		SuccessfulTrades:   917,
		WinRate:            73.5,
		AvgProfitPerTrade:  45.67,
		PortfolioValue:     156789.45,
		TotalROI:           56.79,
		RiskScore:          0.23,
		Uptime:             99.8,
		LastTrade: status.Trade{
			Symbol:    "EURUSD",
			Type:      status.SignalBuy,
			Profit:    234.56,
			Timestamp: now.Add(-5 * time.Minute),
		},
	}
}

// Signals builds the GET /api/signals body.
func Signals(now time.Time) []status.TradingSignal {
	return []status.TradingSignal{
		{
			ID:         1,
			Symbol:     "EURUSD",
			Type:       status.SignalBuy,
			Confidence: 0.87,
			EntryPrice: 1.0945,
			StopLoss:   1.0920,
			TakeProfit: 1.0995,
			RiskReward: 2.0,
			Status:     "active",
			CreatedAt:  now,
		},
		{
			ID:         2,
			Symbol:     "GBPUSD",
			Type:       status.SignalSell,
			Confidence: 0.82,
			EntryPrice: 1.2634,
			StopLoss:   1.2659,
			TakeProfit: 1.2584,
			RiskReward: 2.0,
			Status:     "pending",
			CreatedAt:  now,
		},
	}
}

// Mining builds the GET /api/mining body.
func Mining() status.MiningStatus {
	return status.MiningStatus{
		ActiveNetworks: []string{"Ethereum", "Polygon", "BSC", "Arbitrum"},
		TotalRewards:   1.234567,
		DailyMining:    0.045678,
		StakingPools: []status.StakingPool{
			{Name: "ETH 2.0", APY: 4.5, Staked: 32.0},
			{Name: "MATIC", APY: 7.8, Staked: 1500.0},
			{Name: "BNB", APY: 5.2, Staked: 25.0},
		},
		DefiPositions: []status.DefiPosition{
			{Protocol: "Uniswap V3", TVL: 5678.90, APY: 12.3},
			{Protocol: "Aave", TVL: 3456.78, APY: 8.7},
			{Protocol: "Compound", TVL: 2345.67, APY: 6.5},
		},
	}
}

// Airdrops builds the GET /api/airdrops body.
func Airdrops() []status.Airdrop {
	return []status.Airdrop{
		{
			Project:        "LayerZero",
			Network:        "Multi-chain",
			Status:         "active",
			EstimatedValue: 2500,
			TasksCompleted: 47,
			TotalTasks:     50,
			Deadline:       "2024-03-15",
		},
		{
			Project:        "Scroll",
			Network:        "Ethereum L2",
			Status:         "completed",
			EstimatedValue: 1800,
			TasksCompleted: 25,
			TotalTasks:     25,
			Deadline:       "2024-02-20",
		},
		{
			Project:        "zkSync Era",
			Network:        "Ethereum L2",
			Status:         "active",
			EstimatedValue: 3200,
			TasksCompleted: 32,
			TotalTasks:     40,
			Deadline:       "2024-04-30",
		},
	}
}
