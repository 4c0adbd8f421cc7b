package config

import "time"

// JudgeCfg describes how to reach the judging backend on a provisioned
// instance.
type JudgeCfg struct {
	Port           int
	AuthToken      string
	RequestTimeout time.Duration
}

func NewJudgeCfg() *JudgeCfg {
	return &JudgeCfg{
		Port:           envInt("JUDGE_PORT", 2358),
		AuthToken:      envStr("JUDGE_AUTH_TOKEN", ""),
		RequestTimeout: envSeconds("JUDGE_REQUEST_TIMEOUT_SEC", 15*time.Second),
	}
}
