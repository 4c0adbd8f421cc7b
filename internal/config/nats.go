package config

type NatsConfig struct {
	Url string
}

func NewNatsConfig() *NatsConfig {
	return &NatsConfig{
		Url: envStr("NATS_URL", ""),
	}
}
