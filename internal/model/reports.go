package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BrokenPromise is a promise whose grace window elapsed without payment
type BrokenPromise struct {
	PromiseID    string          `json:"promise_id"`
	ClientID     string          `json:"client_id"`
	ClientName   string          `json:"client_name"`
	Amount       decimal.Decimal `json:"amount"`
	PromisedDate time.Time       `json:"promised_date"`
	DaysOverdue  int             `json:"days_overdue"`
}

// ClientBrokenPromises groups broken promises by client
type ClientBrokenPromises struct {
	ClientID    string          `json:"client_id"`
	ClientName  string          `json:"client_name"`
	Promises    []BrokenPromise `json:"promises"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Count       int             `json:"count"`
}

// BrokenPromisesSummary holds aggregate figures for a broken promises report
type BrokenPromisesSummary struct {
	TotalBrokenPromises int             `json:"total_broken_promises"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	AvgDaysOverdue      float64         `json:"avg_days_overdue"`
	UniqueClients       int             `json:"unique_clients"`
}

// BrokenPromisesReport represents the broken promises analytics response
type BrokenPromisesReport struct {
	DaysOverdueMinimum int                    `json:"days_overdue_minimum"`
	Summary            BrokenPromisesSummary  `json:"summary"`
	Promises           []BrokenPromise        `json:"promises"`
	ByClient           []ClientBrokenPromises `json:"by_client"`
}

// SlotRecommendation is a best-time slot shaped for display. SuccessRate
// is a percentage.
type SlotRecommendation struct {
	Bucket                 SlotKey `json:"bucket"`
	DayOfWeek              string  `json:"day_of_week"`
	Hour                   int     `json:"hour"`
	SuccessRate            float64 `json:"success_rate"`
	TotalInteractions      int     `json:"total_interactions"`
	SuccessfulInteractions int     `json:"successful_interactions"`
	Recommendation         string  `json:"recommendation"`
}

// BestSlotsSummary holds aggregate figures for a best slots report
type BestSlotsSummary struct {
	TotalTimeSlotsAnalyzed int                 `json:"total_time_slots_analyzed"`
	BestOverallSlot        *SlotRecommendation `json:"best_overall_slot"`
	AvgSuccessRate         float64             `json:"avg_success_rate"`
}

// BestSlotsReport represents the best contact slots analytics response
type BestSlotsReport struct {
	MinimumSampleSize int                             `json:"minimum_sample_size"`
	Summary           BestSlotsSummary                `json:"summary"`
	TimeSlots         []SlotRecommendation            `json:"time_slots"`
	ByDayOfWeek       map[string][]SlotRecommendation `json:"by_day_of_week"`
	PeakHours         []SlotRecommendation            `json:"peak_hours"`
	AvoidHours        []SlotRecommendation            `json:"avoid_hours"`
}

// PromiseDetail describes the promise attached to a timeline entry
type PromiseDetail struct {
	Amount       decimal.Decimal `json:"amount"`
	PromisedDate time.Time       `json:"promised_date"`
	Status       LinkStatus      `json:"status"`
	PaymentIDs   []string        `json:"payment_ids,omitempty"`
}

// PaymentDetail describes the payment attached to a timeline entry
type PaymentDetail struct {
	Amount decimal.Decimal `json:"amount"`
}

// TimelineEntry is one interaction in a client's history
type TimelineEntry struct {
	ID       string         `json:"id"`
	Datetime time.Time      `json:"datetime"`
	Channel  Channel        `json:"channel"`
	Outcome  Outcome        `json:"outcome"`
	AgentID  string         `json:"agent_id,omitempty"`
	Promise  *PromiseDetail `json:"promise,omitempty"`
	Payment  *PaymentDetail `json:"payment,omitempty"`
	Notes    string         `json:"notes,omitempty"`
}

// ClientTimeline represents a client's interaction history
type ClientTimeline struct {
	ClientID          string          `json:"client_id"`
	ClientName        string          `json:"client_name"`
	Timeline          []TimelineEntry `json:"timeline"`
	TotalInteractions int             `json:"total_interactions"`
	Debt              DebtInfo        `json:"debt"`
}

// AgentMetrics holds effectiveness figures. Rates are percentages.
type AgentMetrics struct {
	TotalInteractions         int     `json:"total_interactions"`
	SuccessfulInteractions    int     `json:"successful_interactions"`
	FailedInteractions        int     `json:"failed_interactions"`
	EffectivenessRate         float64 `json:"effectiveness_rate"`
	FailureRate               float64 `json:"failure_rate"`
	AvgInteractionsPerSuccess float64 `json:"avg_interactions_per_success"`
}

// AgentEffectiveness represents an agent's performance
type AgentEffectiveness struct {
	AgentID          string          `json:"agent_id"`
	Metrics          AgentMetrics    `json:"metrics"`
	PromisesKept     int             `json:"promises_kept"`
	PromisesTotal    int             `json:"promises_total"`
	AmountCollected  decimal.Decimal `json:"amount_collected"`
	PerformanceLevel string          `json:"performance_level"`
}

// DashboardKPIs represents the headline dashboard figures. Rates are percentages.
type DashboardKPIs struct {
	RecoveryRate       float64         `json:"recovery_rate"`
	PromisesKept       int             `json:"promises_kept"`
	PromisesBroken     int             `json:"promises_broken"`
	PromisesPending    int             `json:"promises_pending"`
	ContactRate        float64         `json:"contact_rate"`
	AveragePayment     decimal.Decimal `json:"average_payment"`
	ClientsAtRisk      int             `json:"clients_at_risk"`
	TotalDebt          decimal.Decimal `json:"total_debt"`
	TotalPaid          decimal.Decimal `json:"total_paid"`
	TotalPromised      decimal.Decimal `json:"total_promised"`
	SuccessfulContacts int             `json:"successful_contacts"`
	ImmediatePayments  int             `json:"immediate_payments"`
	Promises           int             `json:"promises"`
	TotalInteractions  int             `json:"total_interactions"`
}

// DashboardActivity counts interactions by outcome and channel
type DashboardActivity struct {
	TotalInteractions int             `json:"total_interactions"`
	ByOutcome         map[Outcome]int `json:"by_outcome"`
	ByChannel         map[Channel]int `json:"by_channel"`
}

// Funnel follows attempts through to payments
type Funnel struct {
	Attempts  int `json:"attempts"`
	Responses int `json:"responses"`
	Promises  int `json:"promises"`
	Payments  int `json:"payments"`
}

// PromiseRisk is an unfulfilled promise ranked by how close it is to breaking
type PromiseRisk struct {
	PromiseID     string          `json:"promise_id"`
	ClientID      string          `json:"client_id"`
	Amount        decimal.Decimal `json:"amount"`
	DueDate       time.Time       `json:"due_date"`
	DaysRemaining int             `json:"days_remaining"`
	Risk          string          `json:"risk"`
}

// GraphNode is a vertex of the force-directed graph view
type GraphNode struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// GraphEdge is a directed edge of the graph view
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// GraphView represents the graph payload for the frontend
type GraphView struct {
	Nodes      []GraphNode `json:"nodes"`
	Edges      []GraphEdge `json:"edges"`
	TotalNodes int         `json:"total_nodes"`
	TotalEdges int         `json:"total_edges"`
}

// ComponentStatus is the health of one dependency
type ComponentStatus struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// DataPipeline says which parts of the ingest/query path are usable
type DataPipeline struct {
	CanIngest bool `json:"can_ingest"`
	CanQuery  bool `json:"can_query"`
	HasData   bool `json:"has_data"`
}

// SystemStatus represents the system status response
type SystemStatus struct {
	Status          string                     `json:"status"`
	Components      map[string]ComponentStatus `json:"components"`
	DataPipeline    DataPipeline               `json:"data_pipeline"`
	Recommendations []string                   `json:"recommendations"`
	Clients         int                        `json:"clients"`
	Interactions    int                        `json:"interactions"`
	Timestamp       time.Time                  `json:"timestamp"`
}
