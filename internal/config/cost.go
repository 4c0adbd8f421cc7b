package config

// CostCfg holds the pricing model for session cost accounting.
type CostCfg struct {
	// Hourly compute rates per instance class
	SmallHourlyRate       float64
	StandardHourlyRate    float64
	PerformanceHourlyRate float64

	// Provisioned storage, billed monthly and prorated per session
	StorageGB          float64
	StorageMonthlyRate float64 // per GB-month

	// Data transfer estimate
	TransferGBPerHour float64
	TransferFreeGB    float64
	TransferRatePerGB float64
	TransferCeiling   float64 // max transfer charge per session
}

func NewCostCfg() *CostCfg {
	return &CostCfg{
		SmallHourlyRate:       envFloat("COST_SMALL_HOURLY", 0.0416),
		StandardHourlyRate:    envFloat("COST_STANDARD_HOURLY", 0.17),
		PerformanceHourlyRate: envFloat("COST_PERFORMANCE_HOURLY", 0.34),
		StorageGB:             envFloat("COST_STORAGE_GB", 30),
		StorageMonthlyRate:    envFloat("COST_STORAGE_MONTHLY_RATE", 0.10),
		TransferGBPerHour:     envFloat("COST_TRANSFER_GB_PER_HOUR", 0.5),
		TransferFreeGB:        envFloat("COST_TRANSFER_FREE_GB", 1),
		TransferRatePerGB:     envFloat("COST_TRANSFER_RATE_PER_GB", 0.09),
		TransferCeiling:       envFloat("COST_TRANSFER_CEILING", 1.0),
	}
}

// HourlyRate returns the compute rate for an instance class. Unknown classes
// bill at the standard rate.
func (c *CostCfg) HourlyRate(class string) float64 {
	switch class {
	case "SMALL":
		return c.SmallHourlyRate
	case "PERFORMANCE":
		return c.PerformanceHourlyRate
	default:
		return c.StandardHourlyRate
	}
}
