package config

import "os"

type AppConfig struct {
	DebugMode       bool
	OrchestratorCfg *OrchestratorCfg
	GatewayCfg      *GatewayCfg
	JudgeCfg        *JudgeCfg
	CloudCfg        *CloudCfg
	CostCfg         *CostCfg
	NotifyCfg       *NotifyCfg
	RedisConfig     *RedisConfig
	PostgresConfig  *PostgresConfig
	NatsConfig      *NatsConfig
	OperatorCfg     *OperatorCfg
	HTTPPort        int
}

func NewSystemConfig() *AppConfig {
	return &AppConfig{
		DebugMode:       os.Getenv("DEBUG_MODE") == "true",
		OrchestratorCfg: NewOrchestratorCfg(),
		GatewayCfg:      NewGatewayCfg(),
		JudgeCfg:        NewJudgeCfg(),
		CloudCfg:        NewCloudCfg(),
		CostCfg:         NewCostCfg(),
		NotifyCfg:       NewNotifyCfg(),
		RedisConfig:     NewRedisConfig(),
		PostgresConfig:  NewPostgresConfig(),
		NatsConfig:      NewNatsConfig(),
		OperatorCfg:     NewOperatorCfg(),
		HTTPPort:        envInt("HTTP_PORT", 8082),
	}
}
