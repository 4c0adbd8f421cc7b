package config

import "time"

// OperatorCfg configures the HMAC tokens that guard shutdown routes.
type OperatorCfg struct {
	Secret   string
	TokenTTL time.Duration
}

func NewOperatorCfg() *OperatorCfg {
	return &OperatorCfg{
		Secret:   envStr("OPERATOR_TOKEN_SECRET", ""),
		TokenTTL: envSeconds("OPERATOR_TOKEN_TTL_SEC", 3600*time.Second),
	}
}
