package config

import "time"

// OrchestratorCfg bounds the session lifecycle loops: scheduling validation,
// readiness probing, completion detection and shutdown draining. All values
// are tunable per environment; defaults follow current production settings.
type OrchestratorCfg struct {
	// Scheduling validation
	MinSessionMinutes int
	MaxSessionMinutes int

	// Readiness probing
	ProbeInterval time.Duration
	ProbeBudget   time.Duration

	// Completion detection
	CheckInterval time.Duration
	MinDwell      time.Duration
	// TimeoutGraceFactor multiplies the estimated duration before a TIMEOUT
	// shutdown fires. 0 disables timeout shutdowns.
	TimeoutGraceFactor float64

	// Shutdown draining
	DrainPollInterval time.Duration
	DrainBudget       time.Duration
}

func NewOrchestratorCfg() *OrchestratorCfg {
	return &OrchestratorCfg{
		MinSessionMinutes:  envInt("SESSION_MIN_MINUTES", 10),
		MaxSessionMinutes:  envInt("SESSION_MAX_MINUTES", 480),
		ProbeInterval:      envSeconds("READINESS_PROBE_INTERVAL_SEC", 10*time.Second),
		ProbeBudget:        envSeconds("READINESS_PROBE_BUDGET_SEC", 600*time.Second),
		CheckInterval:      envSeconds("COMPLETION_CHECK_INTERVAL_SEC", 60*time.Second),
		MinDwell:           envSeconds("COMPLETION_MIN_DWELL_SEC", 300*time.Second),
		TimeoutGraceFactor: envFloat("SESSION_TIMEOUT_GRACE_FACTOR", 1.5),
		DrainPollInterval:  envSeconds("SHUTDOWN_DRAIN_POLL_SEC", 2*time.Second),
		DrainBudget:        envSeconds("SHUTDOWN_DRAIN_BUDGET_SEC", 120*time.Second),
	}
}
