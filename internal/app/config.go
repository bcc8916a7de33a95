package app

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"

	"silkweaver/internal/silk"
	"silkweaver/internal/telemetry"
)

// Config controls the debug server.
type Config struct {
	Addr            string   `env:"SILK_ADDR"              envDefault:":8080"`
	TickRate        int      `env:"SILK_TICK_RATE"         envDefault:"40"`
	CatchupMaxTicks int      `env:"SILK_CATCHUP_MAX_TICKS" envDefault:"3"`
	CommandCapacity int      `env:"SILK_COMMAND_CAPACITY"  envDefault:"1024"`
	PerActorLimit   int      `env:"SILK_PER_ACTOR_LIMIT"   envDefault:"8"`
	LogSinks        []string `env:"SILK_LOG_SINKS"         envDefault:"console" envSeparator:","`
	LogJSONPath     string   `env:"SILK_LOG_JSON_PATH"`
	LogLevel        string   `env:"SILK_LOG_LEVEL"         envDefault:"info"`
	TuningFile      string   `env:"SILK_TUNING_FILE"`
	DemoActor       string   `env:"SILK_DEMO_ACTOR"        envDefault:"weaver"`

	Logger telemetry.Logger `env:"-"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadTuning decodes a JSON tuning file over the default silk config. An
// empty path yields the defaults.
func LoadTuning(path string) (silk.Config, error) {
	cfg := silk.DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return silk.Config{}, fmt.Errorf("open tuning file: %w", err)
	}
	defer file.Close()
	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return silk.Config{}, fmt.Errorf("decode tuning file %s: %w", path, err)
	}
	return cfg.Normalized(), nil
}
