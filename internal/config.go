package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=5000"`
	HealthPort           int           `env:"HEALTH_PORT,default=5001"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	CommandBufferSize    int           `env:"COMMAND_BUFFER_SIZE,default=256"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	PongWait             time.Duration `env:"PONG_WAIT,default=60s"`
	CallTimeout          time.Duration `env:"CALL_TIMEOUT,default=5s"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=5s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	CensoredWords        string        `env:"CENSORED_WORDS"`
	CharReplacement      string        `env:"CHARACTER_REPLACEMENT,default=*"`
	AllowedOrigin        string        `env:"ALLOWED_ORIGIN"`
	StaticDir            string        `env:"STATIC_DIR"`
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) HealthAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HealthPort)
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
