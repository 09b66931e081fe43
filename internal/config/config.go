package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/abhisek/mathlab/internal/mastery"
	"github.com/abhisek/mathlab/internal/selector"
)

// EnvPrefix namespaces environment overrides, e.g. MATHLAB_HTTP_ADDR.
const EnvPrefix = "MATHLAB"

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env         string      `mapstructure:"env"` // local, dev, prod
	Database    Database    `mapstructure:"database"`
	HTTP        HTTP        `mapstructure:"http"`
	Redis       Redis       `mapstructure:"redis"`
	Curriculum  Curriculum  `mapstructure:"curriculum"`
	Progression Progression `mapstructure:"progression"`
	Selector    Selector    `mapstructure:"selector"`
	Rewards     Rewards     `mapstructure:"rewards"`
}

// Database configures the SQLite store.
type Database struct {
	Path string `mapstructure:"path"` // empty means the XDG data dir default
}

// HTTP configures the API server.
type HTTP struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Redis enables the shared lock and leaderboard when Addr is set.
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// Enabled reports whether a Redis server is configured.
func (r Redis) Enabled() bool {
	return r.Addr != ""
}

// Curriculum points at an authored content bundle.
type Curriculum struct {
	Path string `mapstructure:"path"` // empty means the embedded default
}

// Progression holds the mastery parameters.
type Progression struct {
	MasteryThreshold   float64 `mapstructure:"mastery_threshold"`
	ZeroExercisePolicy string  `mapstructure:"zero_exercise_policy"`
}

// Selector holds the daily queue bounds.
type Selector struct {
	ReviewAfter  time.Duration `mapstructure:"review_after"`
	MaxShown     int           `mapstructure:"max_shown"`
	MaxPool      int           `mapstructure:"max_pool"`
	NewTopics    int           `mapstructure:"new_topics"`
	ReviewTopics int           `mapstructure:"review_topics"`
}

// Rewards holds reward parameters.
type Rewards struct {
	TimeBonusUnder time.Duration `mapstructure:"time_bonus_under"`
}

// Load reads configuration from a .env file, an optional YAML file and
// MATHLAB_* environment variables, in increasing priority. When path is
// empty, ./config/config.yaml is used if it exists.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	sel := selector.DefaultConfig()
	prog := mastery.DefaultConfig()
	return &Config{
		Env: "local",
		HTTP: HTTP{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Redis: Redis{Prefix: "mathlab"},
		Progression: Progression{
			MasteryThreshold:   prog.MasteryThreshold,
			ZeroExercisePolicy: string(prog.ZeroExercisePolicy),
		},
		Selector: Selector{
			ReviewAfter:  sel.ReviewAfter,
			MaxShown:     sel.MaxShown,
			MaxPool:      sel.MaxPool,
			NewTopics:    sel.NewTopics,
			ReviewTopics: sel.ReviewTopics,
		},
		Rewards: Rewards{TimeBonusUnder: 60 * time.Second},
	}
}

// setDefaults registers every key so env overrides work without a file.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("env", d.Env)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.read_timeout", d.HTTP.ReadTimeout.String())
	v.SetDefault("http.shutdown_timeout", d.HTTP.ShutdownTimeout.String())
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.prefix", d.Redis.Prefix)
	v.SetDefault("curriculum.path", d.Curriculum.Path)
	v.SetDefault("progression.mastery_threshold", d.Progression.MasteryThreshold)
	v.SetDefault("progression.zero_exercise_policy", d.Progression.ZeroExercisePolicy)
	v.SetDefault("selector.review_after", d.Selector.ReviewAfter.String())
	v.SetDefault("selector.max_shown", d.Selector.MaxShown)
	v.SetDefault("selector.max_pool", d.Selector.MaxPool)
	v.SetDefault("selector.new_topics", d.Selector.NewTopics)
	v.SetDefault("selector.review_topics", d.Selector.ReviewTopics)
	v.SetDefault("rewards.time_bonus_under", d.Rewards.TimeBonusUnder.String())
}

// Validate checks every section that has constraints.
func (c *Config) Validate() error {
	if _, err := c.MasteryConfig(); err != nil {
		return fmt.Errorf("progression: %w", err)
	}
	if err := c.SelectorConfig().Validate(); err != nil {
		return fmt.Errorf("selector: %w", err)
	}
	if c.Rewards.TimeBonusUnder < 0 {
		return fmt.Errorf("rewards: time bonus cutoff must not be negative")
	}
	return nil
}

// MasteryConfig converts the progression section.
func (c *Config) MasteryConfig() (mastery.Config, error) {
	policy, err := mastery.ParseZeroExercisePolicy(c.Progression.ZeroExercisePolicy)
	if err != nil {
		return mastery.Config{}, err
	}
	mc := mastery.Config{
		MasteryThreshold:   c.Progression.MasteryThreshold,
		ZeroExercisePolicy: policy,
	}
	return mc, mc.Validate()
}

// SelectorConfig converts the selector section.
func (c *Config) SelectorConfig() selector.Config {
	return selector.Config{
		MaxShown:     c.Selector.MaxShown,
		MaxPool:      c.Selector.MaxPool,
		NewTopics:    c.Selector.NewTopics,
		ReviewTopics: c.Selector.ReviewTopics,
		ReviewAfter:  c.Selector.ReviewAfter,
	}
}
