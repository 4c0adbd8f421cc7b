package domain

import "time"

// CostBreakdown is a derived, non-authoritative snapshot of what a session
// costs. Only a Session's FinalCost is authoritative.
type CostBreakdown struct {
	InstanceClass    InstanceClass `json:"instanceClass"`
	Duration         time.Duration `json:"duration"`
	ComputeCost      float64       `json:"computeCost"`
	StorageCost      float64       `json:"storageCost"`
	DataTransferCost float64       `json:"dataTransferCost"`
	TotalCost        float64       `json:"totalCost"`
}

// CostSummary aggregates finalized session costs over a time window
type CostSummary struct {
	WindowStart  time.Time `json:"windowStart"`
	WindowEnd    time.Time `json:"windowEnd"`
	SessionCount int       `json:"sessionCount"`
	TotalCost    float64   `json:"totalCost"`
	AverageCost  float64   `json:"averageCost"`
}
