// ABOUTME: Payload shapes carried inside push-channel frames and HTTP replies
// ABOUTME: Synthetic metrics, signals, control results and report bodies

package status

import "time"

// SignalType is the direction of a trading signal.
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
)

// PerformanceUpdate is emitted on the metrics interval.
type PerformanceUpdate struct {
	Timestamp      time.Time `json:"timestamp"`
	DailyEarnings  float64   `json:"daily_earnings"`
	ActiveTrades   int       `json:"active_trades"`
	WinRate        float64   `json:"win_rate"`
	PortfolioValue float64   `json:"portfolio_value"`
}

// Signal is emitted on the signal interval.
type Signal struct {
	Symbol     string     `json:"symbol"`
	Type       SignalType `json:"type"`
	Confidence float64    `json:"confidence"`
	Timestamp  time.Time  `json:"timestamp"`
}

// ConnectionStatus greets every new push connection.
type ConnectionStatus struct {
	Status        string    `json:"status"`
	Message       string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
	SystemVersion string    `json:"system_version"`
}

// SubscriptionConfirmed acknowledges a room join.
type SubscriptionConfirmed struct {
	Message string `json:"message"`
	Room    string `json:"room"`
}

// DashboardMetrics is the aggregate block sent with initial_data and as
// the system_metrics reply.
type DashboardMetrics struct {
	ActiveAgents int     `json:"active_agents"`
	TotalAgents  int     `json:"total_agents"`
	TotalTasks   int     `json:"total_tasks"`
	Revenue      float64 `json:"revenue"`
	Threats      int     `json:"threats"`
	Backups      int     `json:"backups"`
	Campaigns    int     `json:"campaigns"`
}

// InitialData answers get_initial_data.
type InitialData struct {
	Agents    []AgentStatus    `json:"agents"`
	Metrics   DashboardMetrics `json:"metrics"`
	Timestamp time.Time        `json:"timestamp"`
}

// AgentActionRequest is the data of an agent_action command.
type AgentActionRequest struct {
	AgentID   string `json:"agent_id"`
	Action    string `json:"action"`
	RequestID string `json:"request_id,omitempty"`
}

// AgentActionResult answers agent_action.
type AgentActionResult struct {
	Success   bool       `json:"success"`
	AgentID   string     `json:"agent_id"`
	Action    string     `json:"action"`
	Status    AgentState `json:"status,omitempty"`
	Message   string     `json:"message,omitempty"`
	Error     string     `json:"error,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
	Duplicate bool       `json:"duplicate,omitempty"`
}

// AgentStatusUpdate is broadcast after a successful agent_action.
type AgentStatusUpdate struct {
	AgentID   string     `json:"agent_id"`
	Status    AgentState `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
}

// EmergencyStopResult answers emergency_stop.
type EmergencyStopResult struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	StoppedAgents []string `json:"stopped_agents"`
}

// RestartAllResult answers restart_all.
type RestartAllResult struct {
	Success         bool     `json:"success"`
	Message         string   `json:"message"`
	RestartedAgents []string `json:"restarted_agents"`
}

// Notice is the body of the *_broadcast events and error frames.
type Notice struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusReport is the body of GET /api/status.
type StatusReport struct {
	Status      string                `json:"status"`
	System      string                `json:"system"`
	Version     string                `json:"version"`
	Timestamp   time.Time             `json:"timestamp"`
	Uptime      float64               `json:"uptime"`
	Agents      map[string]AgentState `json:"agents"`
	Performance PerformanceSummary    `json:"performance"`
}

// PerformanceSummary is the performance block inside StatusReport.
type PerformanceSummary struct {
	DailyEarnings     float64 `json:"daily_earnings"`
	MonthlyProjection float64 `json:"monthly_projection"`
	YearlyProjection  float64 `json:"yearly_projection"`
	ActiveStreams     int     `json:"active_streams"`
	WinRate           float64 `json:"win_rate"`
	TotalTrades       int     `json:"total_trades"`
	SuccessfulTrades  int     `json:"successful_trades"`
}

// PerformanceReport is the body of GET /api/performance.
type PerformanceReport struct {
	Timestamp          time.Time `json:"timestamp"`
	TotalDailyEarnings float64   `json:"total_daily_earnings"`
	DailyTarget        float64   `json:"daily_target"`
	DailyProgress      float64   `json:"daily_progress"`
	MonthlyEarnings    float64   `json:"monthly_earnings"`
	MonthlyTarget      float64   `json:"monthly_target"`
	MonthlyProgress    float64   `json:"monthly_progress"`
	YearlyEarnings     float64   `json:"yearly_earnings"`
	YearlyTarget       float64   `json:"yearly_target"`
	YearlyProgress     float64   `json:"yearly_progress"`
	ActiveStreams      int       `json:"active_streams"`
	TotalTrades        int       `json:"total_trades"`
	SuccessfulTrades   int       `json:"successful_trades"`
	WinRate            float64   `json:"win_rate"`
	AvgProfitPerTrade  float64   `json:"avg_profit_per_trade"`
	PortfolioValue     float64   `json:"portfolio_value"`
	TotalROI           float64   `json:"total_roi"`
	RiskScore          float64   `json:"risk_score"`
	Uptime             float64   `json:"uptime"`
	LastTrade          Trade     `json:"last_trade"`
}

// Trade is a single executed trade.
type Trade struct {
	Symbol    string     `json:"symbol"`
	Type      SignalType `json:"type"`
	Profit    float64    `json:"profit"`
	Timestamp time.Time  `json:"timestamp"`
}

// TradingSignal is one entry of GET /api/signals.
type TradingSignal struct {
	ID         int        `json:"id"`
	Symbol     string     `json:"symbol"`
	Type       SignalType `json:"type"`
	Confidence float64    `json:"confidence"`
	EntryPrice float64    `json:"entry_price"`
	StopLoss   float64    `json:"stop_loss"`
	TakeProfit float64    `json:"take_profit"`
	RiskReward float64    `json:"risk_reward"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
}

// MiningStatus is the body of GET /api/mining under mining_status.
type MiningStatus struct {
	ActiveNetworks []string       `json:"active_networks"`
	TotalRewards   float64        `json:"total_rewards"`
	DailyMining    float64        `json:"daily_mining"`
	StakingPools   []StakingPool  `json:"staking_pools"`
	DefiPositions  []DefiPosition `json:"defi_positions"`
}

// StakingPool is a staked position.
type StakingPool struct {
	Name   string  `json:"name"`
	APY    float64 `json:"apy"`
	Staked float64 `json:"staked"`
}

// DefiPosition is a liquidity position.
type DefiPosition struct {
	Protocol string  `json:"protocol"`
	TVL      float64 `json:"tvl"`
	APY      float64 `json:"apy"`
}

// Airdrop is one entry of GET /api/airdrops.
type Airdrop struct {
	Project        string  `json:"project"`
	Network        string  `json:"network"`
	Status         string  `json:"status"`
	EstimatedValue float64 `json:"estimated_value"`
	TasksCompleted int     `json:"tasks_completed"`
	TotalTasks     int     `json:"total_tasks"`
	Deadline       string  `json:"deadline"`
}
