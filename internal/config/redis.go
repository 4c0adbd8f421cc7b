package config

type RedisConfig struct {
	DB       int
	Url      string
	Password string
}

func NewRedisConfig() *RedisConfig {
	return &RedisConfig{
		DB:       envInt("REDIS_DB", 0),
		Url:      envStr("REDIS_URL", "localhost:6379"),
		Password: envStr("REDIS_PASSWORD", ""),
	}
}
