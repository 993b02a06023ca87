// ABOUTME: Built-in eight-agent roster used when no roster is configured
// ABOUTME: Mirrors the records served by the legacy dashboard API

package agent

import "github.com/2389/status-gateway/internal/status"

// DefaultRoster returns a fresh copy of the built-in roster.
func DefaultRoster() []status.AgentStatus {
	return []status.AgentStatus{
		{
			ID:                "economic_analysis",
			Name:              "Economic Analysis Agent",
			Status:            status.StateActive,
			Capabilities:      []string{"market_intelligence", "forecasting"},
			Description:       "Market Intelligence & Forecasting",
			Icon:              "📈",
			DailyEarnings:     345.67,
			MonthlyProjection: 10370.10,
		},
		{
			ID:                "smart_money_trading",
			Name:              "Smart Money Trading Agent",
			Status:            status.StateActive,
			Capabilities:      []string{"ict_concepts", "smart_money"},
			Description:       "ICT & Smart Money Concepts",
			Icon:              "💹",
			DailyEarnings:     567.89,
			MonthlyProjection: 17036.70,
		},
		{
			ID:                "trading_execution",
			Name:              "Trading Execution Agent",
			Status:            status.StateActive,
			Capabilities:      []string{"order_management", "execution"},
			Description:       "Real-Time Order Management",
			Icon:              "⚡",
			DailyEarnings:     423.12,
			MonthlyProjection: 12693.60,
		},
		{
			ID:                "fundamental_analysis",
			Name:              "Fundamental Analysis Agent",
			Status:            status.StateActive,
			Capabilities:      []string{"financial_research", "valuation"},
			Description:       "Deep Financial Research",
			Icon:              "📊",
			DailyEarnings:     298.45,
			MonthlyProjection: 8953.50,
		},
		{
			ID:                "web3_mining",
			Name:              "Web3 Mining Agent",
			Status:            status.StateActive,
			Capabilities:      []string{"mining", "defi", "staking"},
			Description:       "Cryptocurrency & DeFi Automation",
			Icon:              "⛏️",
			DailyEarnings:     456.78,
			MonthlyProjection: 13703.40,
		},
		{
			ID:                "agent_creator",
			Name:              "Agent Creator Agent",
			Status:            status.StateActive,
			Capabilities:      []string{"agent_factory"},
			Description:       "AI Agent Factory",
			Icon:              "🏭",
			DailyEarnings:     234.56,
			MonthlyProjection: 7036.80,
		},
		{
			ID:                "ptc_clicking",
			Name:              "PTC Click Agent",
			Status:            status.StateActive,
			Capabilities:      []string{"click_automation"},
			Description:       "Automated Click Earnings",
			Icon:              "🖱️",
			DailyEarnings:     189.34,
			MonthlyProjection: 5680.20,
		},
		{
			ID:                "airdrop_hunting",
			Name:              "Airdrop Agent",
			Status:            status.StateActive,
			Capabilities:      []string{"airdrop_farming", "multi_chain"},
			Description:       "Multi-Chain Airdrop Farming",
			Icon:              "🪂",
			DailyEarnings:     331.51,
			MonthlyProjection: 9945.30,
		},
	}
}
