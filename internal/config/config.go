// Package config loads and watches the service configuration.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	cfg *Config
	mu  sync.RWMutex
)

// Config represents the application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	SLA       SLAConfig       `mapstructure:"sla"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	Timezone string `mapstructure:"timezone"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SLAConfig holds the tracker and escalation-engine tunables.
type SLAConfig struct {
	// OpenStatuses is the "open-like" set scanned each escalation cycle.
	OpenStatuses []string `mapstructure:"open_statuses"`
	// BatchSize caps tickets examined per cycle.
	BatchSize int `mapstructure:"batch_size"`
	// SystemUserID authors automated escalation comments.
	SystemUserID int `mapstructure:"system_user_id"`
	// SeedFile optionally bootstraps configurations and rules at startup.
	SeedFile string `mapstructure:"seed_file"`
}

type SchedulerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// EscalationSchedule is the cron expression for the escalation cycle.
	EscalationSchedule string `mapstructure:"escalation_schedule"`
	// DispatchSchedule is the cron expression for notification dispatch.
	DispatchSchedule string `mapstructure:"dispatch_schedule"`
	// CycleTimeout bounds one escalation cycle.
	CycleTimeout time.Duration `mapstructure:"cycle_timeout"`
}

// Load reads configuration from the given file, applies environment
// overrides (SLAKIT_ prefix), and watches the file for changes.
func Load(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("SLAKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	loaded := &Config{}
	if err := v.Unmarshal(loaded); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	mu.Lock()
	cfg = loaded
	mu.Unlock()

	v.OnConfigChange(func(fsnotify.Event) {
		reloaded := &Config{}
		if err := v.Unmarshal(reloaded); err != nil {
			return // keep the last good config
		}
		mu.Lock()
		cfg = reloaded
		mu.Unlock()
	})
	v.WatchConfig()

	return nil
}

// Get returns the current configuration, or defaults when Load was never
// called (tests, ad hoc CLI use).
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	if cfg == nil {
		return Defaults()
	}
	return cfg
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)
	c := &Config{}
	_ = v.Unmarshal(c)
	return c
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "slakit")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.timezone", "UTC")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "slakit")
	v.SetDefault("database.user", "slakit")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("sla.open_statuses", []string{"new", "open", "pending"})
	v.SetDefault("sla.batch_size", 50)
	v.SetDefault("sla.system_user_id", 1)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.escalation_schedule", "*/5 * * * *")
	v.SetDefault("scheduler.dispatch_schedule", "* * * * *")
	v.SetDefault("scheduler.cycle_timeout", "2m")
}
