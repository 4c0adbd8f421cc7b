package config

import "time"

// GatewayCfg bounds batch execution against the judging backend.
type GatewayCfg struct {
	// ChunkSize is the backend's maximum batch size.
	ChunkSize       int
	InterChunkDelay time.Duration

	// QuotaCeiling caps judge submission calls across all sessions.
	QuotaCeiling int

	// Rate-limit retries: delay grows as BackoffBase * attempt.
	RateLimitMaxAttempts int
	BackoffBase          time.Duration

	// Transport-timeout retries use a fixed delay.
	TimeoutMaxAttempts int
	TimeoutRetryDelay  time.Duration

	// Resolution polling
	PollInterval  time.Duration
	MonitorBudget time.Duration
	PollParallel  int

	// Per-unit limits for interactive probe runs
	ProbeCPUTimeSec float64
	ProbeMemoryKB   int
	ProbeCaseLimit  int

	// Per-unit limits for final grading runs
	FinalCPUTimeSec float64
	FinalMemoryKB   int
}

func NewGatewayCfg() *GatewayCfg {
	return &GatewayCfg{
		ChunkSize:            envInt("JUDGE_CHUNK_SIZE", 20),
		InterChunkDelay:      envSeconds("JUDGE_INTER_CHUNK_DELAY_SEC", 1*time.Second),
		QuotaCeiling:         envInt("JUDGE_QUOTA_CEILING", 10000),
		RateLimitMaxAttempts: envInt("JUDGE_RATE_LIMIT_ATTEMPTS", 3),
		BackoffBase:          envSeconds("JUDGE_BACKOFF_BASE_SEC", 2*time.Second),
		TimeoutMaxAttempts:   envInt("JUDGE_TIMEOUT_ATTEMPTS", 2),
		TimeoutRetryDelay:    envSeconds("JUDGE_TIMEOUT_RETRY_DELAY_SEC", 3*time.Second),
		PollInterval:         envSeconds("JUDGE_POLL_INTERVAL_SEC", 2*time.Second),
		MonitorBudget:        envSeconds("JUDGE_MONITOR_BUDGET_SEC", 300*time.Second),
		PollParallel:         envInt("JUDGE_POLL_PARALLEL", 8),
		ProbeCPUTimeSec:      envFloat("PROBE_CPU_TIME_SEC", 2),
		ProbeMemoryKB:        envInt("PROBE_MEMORY_KB", 128000),
		ProbeCaseLimit:       envInt("PROBE_CASE_LIMIT", 3),
		FinalCPUTimeSec:      envFloat("FINAL_CPU_TIME_SEC", 5),
		FinalMemoryKB:        envInt("FINAL_MEMORY_KB", 256000),
	}
}
