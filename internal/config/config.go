package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Profile is the deployment environment.
type Profile string

const (
	ProfileLocal Profile = "LOCAL"
	ProfileDev   Profile = "DEV"
	ProfileProd  Profile = "PROD"
)

// ProfileFor maps a NAIS cluster name to a profile.
func ProfileFor(cluster string) Profile {
	switch cluster {
	case "dev-fss":
		return ProfileDev
	case "prod-fss":
		return ProfileProd
	default:
		return ProfileLocal
	}
}

type Config struct {
	Profile Profile `mapstructure:"-"`
	Cluster string  `mapstructure:"cluster"`

	Server  ServerConfig  `mapstructure:"server"`
	NATS    NATSConfig    `mapstructure:"nats"`
	Topic   TopicConfig   `mapstructure:"topic"`
	Inntekt InntektConfig `mapstructure:"inntekt"`
	STS     STSConfig     `mapstructure:"sts"`
	DLQ     DLQConfig     `mapstructure:"dlq"`
	Toggles TogglesConfig `mapstructure:"toggles"`
	Logging LoggingConfig `mapstructure:"logging"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type NATSConfig struct {
	URL      string `mapstructure:"url"`
	Name     string `mapstructure:"name"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Token    string `mapstructure:"token"`
}

// TopicConfig describes the partitioned behov topic.
type TopicConfig struct {
	Name          string        `mapstructure:"name"`
	Stream        string        `mapstructure:"stream"`
	Partitions    int           `mapstructure:"partitions"`
	DurablePrefix string        `mapstructure:"durable_prefix"`
	AckWait       time.Duration `mapstructure:"ack_wait"`
	NakDelay      time.Duration `mapstructure:"nak_delay"`
	PauseDelay    time.Duration `mapstructure:"pause_delay"`

	// RequiredTask, when set, limits the stage to packets whose tasks array lists it.
	RequiredTask string `mapstructure:"required_task"`
}

type InntektConfig struct {
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type STSConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	URL      string        `mapstructure:"url"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type DLQConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// TogglesConfig points at the Redis instance holding feature toggles.
// With Enabled false every toggle is on.
type TogglesConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	RedisURL       string `mapstructure:"redis_url"`
	DefaultEnabled bool   `mapstructure:"default_enabled"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	ServiceName string  `mapstructure:"service_name"`
}

// Load reads configuration from defaults, an optional YAML file and the environment.
// An empty configPath falls back to DATALASTER_CONFIG, then to config.yaml in the
// working directory or /etc/datalaster.
func Load(configPath string) (*Config, error) {
	profile := ProfileFor(os.Getenv("NAIS_CLUSTER_NAME"))
	if profile == ProfileLocal {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
		// .env may have set the cluster
		profile = ProfileFor(os.Getenv("NAIS_CLUSTER_NAME"))
	}

	v := viper.New()
	setDefaults(v, profile)

	if configPath == "" {
		configPath = os.Getenv("DATALASTER_CONFIG")
	}
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/datalaster")
	}

	// Environment variables override
	v.SetEnvPrefix("DATALASTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindPlatformEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Profile = profile

	return &cfg, nil
}

func setDefaults(v *viper.Viper, profile Profile) {
	v.SetDefault("cluster", "")
	v.SetDefault("server.port", 8094)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.name", "dp-datalaster-inntekt")
	v.SetDefault("nats.username", "")
	v.SetDefault("nats.password", "")
	v.SetDefault("nats.token", "")
	v.SetDefault("topic.name", "dagpenger.behov.packet")
	v.SetDefault("topic.stream", "DAGPENGER_BEHOV")
	v.SetDefault("topic.partitions", 3)
	v.SetDefault("topic.durable_prefix", "dp-datalaster-inntekt")
	v.SetDefault("topic.ack_wait", "30s")
	v.SetDefault("topic.nak_delay", "5s")
	v.SetDefault("topic.pause_delay", "30s")
	v.SetDefault("topic.required_task", "")
	v.SetDefault("inntekt.timeout", "30s")
	v.SetDefault("sts.timeout", "10s")
	v.SetDefault("dlq.enabled", true)
	v.SetDefault("toggles.enabled", false)
	v.SetDefault("toggles.redis_url", "redis://localhost:6379/0")
	v.SetDefault("toggles.default_enabled", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("tracing.service_name", "dp-datalaster-inntekt")

	switch profile {
	case ProfileDev:
		v.SetDefault("inntekt.url", "http://dp-inntekt-api//")
		v.SetDefault("inntekt.api_key", "")
		v.SetDefault("sts.enabled", true)
		v.SetDefault("sts.url", "")
		v.SetDefault("sts.username", "")
		v.SetDefault("sts.password", "")
	case ProfileProd:
		v.SetDefault("inntekt.url", "http://dp-inntekt-api/")
		v.SetDefault("inntekt.api_key", "")
		v.SetDefault("sts.enabled", true)
		v.SetDefault("sts.url", "")
		v.SetDefault("sts.username", "")
		v.SetDefault("sts.password", "")
	default:
		v.SetDefault("inntekt.url", "http://localhost/")
		v.SetDefault("inntekt.api_key", "dp-datalaster-inntekt")
		v.SetDefault("sts.enabled", false)
		v.SetDefault("sts.url", "http://localhost/")
		v.SetDefault("sts.username", "username")
		v.SetDefault("sts.password", "password")
	}
}

// bindPlatformEnv maps the variables set by the NAIS platform. The prefixed
// variable is listed first so it wins when both are set.
func bindPlatformEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"cluster":         {"DATALASTER_CLUSTER", "NAIS_CLUSTER_NAME"},
		"inntekt.url":     {"DATALASTER_INNTEKT_URL", "DAGPENGER_INNTEKT_API_REST_URL"},
		"inntekt.api_key": {"DATALASTER_INNTEKT_API_KEY", "DP_INNTEKT_API_KEY"},
		"sts.url":         {"DATALASTER_STS_URL", "OIDC_STS_ISSUERURL"},
		"sts.username":    {"DATALASTER_STS_USERNAME", "SRVDP_DATALASTER_INNTEKT_USERNAME"},
		"sts.password":    {"DATALASTER_STS_PASSWORD", "SRVDP_DATALASTER_INNTEKT_PASSWORD"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Inntekt.URL == "" {
		errs = append(errs, errors.New("inntekt.url is required"))
	}
	if c.Inntekt.APIKey == "" {
		errs = append(errs, errors.New("inntekt.api_key is required"))
	}
	if c.Inntekt.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("inntekt.timeout must be positive, got %s", c.Inntekt.Timeout))
	}
	if c.Topic.Name == "" || c.Topic.Stream == "" {
		errs = append(errs, errors.New("topic.name and topic.stream are required"))
	}
	if c.Topic.Partitions < 1 {
		errs = append(errs, fmt.Errorf("topic.partitions must be at least 1, got %d", c.Topic.Partitions))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.STS.Enabled && (c.STS.URL == "" || c.STS.Username == "" || c.STS.Password == "") {
		errs = append(errs, errors.New("sts.url, sts.username and sts.password are required when sts is enabled"))
	}
	if c.Toggles.Enabled && c.Toggles.RedisURL == "" {
		errs = append(errs, errors.New("toggles.redis_url is required when toggles are enabled"))
	}
	return errors.Join(errs...)
}
