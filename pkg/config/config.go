package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// GlobalConfig global configuration instance
var GlobalConfig *Config

// Config application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	MySQL        MySQLConfig        `yaml:"mysql"`
	Redis        RedisConfig        `yaml:"redis"`
	Logger       LoggerConfig       `yaml:"logger"`
	Notification NotificationConfig `yaml:"notification"`
	Monitor      MonitorConfig      `yaml:"monitor"`
}

// ServerConfig HTTP server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"` // gin mode: debug, release, test
}

// MySQLConfig MySQL connection configuration
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RedisConfig Redis connection configuration
// An empty Addr disables Redis; the sweep leader lock then runs in
// single-instance mode.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LoggerConfig logging configuration
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Output string `yaml:"output"` // console, file, both
	File   struct {
		Path string `yaml:"path"`
	} `yaml:"file"`
}

// NotificationConfig alert delivery configuration
type NotificationConfig struct {
	SlackWebhookURL string `yaml:"slack_webhook_url"`
}

// MonitorConfig staleness sweep configuration
type MonitorConfig struct {
	SweepIntervalSeconds      int `yaml:"sweep_interval_seconds"`      // pause between sweep cycles
	StalenessThresholdMinutes int `yaml:"staleness_threshold_minutes"` // silence age before an instance counts as stale
	MaxNotifications          int `yaml:"max_notifications"`           // warnings before a stale instance is marked crashed
	FailureBackoffSeconds     int `yaml:"failure_backoff_seconds"`     // shortened pause after a failed cycle
}

// SweepInterval returns the sweep period as a duration.
func (c MonitorConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// StalenessThreshold returns the heartbeat silence threshold as a duration.
func (c MonitorConfig) StalenessThreshold() time.Duration {
	return time.Duration(c.StalenessThresholdMinutes) * time.Minute
}

// FailureBackoff returns the post-failure pause as a duration.
func (c MonitorConfig) FailureBackoff() time.Duration {
	return time.Duration(c.FailureBackoffSeconds) * time.Second
}

// DefaultServerConfig returns the default HTTP server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host: "0.0.0.0",
		Port: 5001,
		Mode: "release",
	}
}

// DefaultMySQLConfig returns the default MySQL configuration.
func DefaultMySQLConfig() MySQLConfig {
	return MySQLConfig{
		Host:     "127.0.0.1",
		Port:     3306,
		User:     "root",
		Database: "vigil",
	}
}

// DefaultLoggerConfig returns the default logging configuration.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:  "info",
		Output: "console",
	}
}

// DefaultMonitorConfig returns the default staleness sweep configuration.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		SweepIntervalSeconds:      300,
		StalenessThresholdMinutes: 10,
		MaxNotifications:          3,
		FailureBackoffSeconds:     60,
	}
}

// Init initializes global configuration.
// Order: config file (CONFIG_PATH, default config/config.yaml, missing file is
// fine), then environment overrides, then defaults for anything still unset or
// invalid.
func Init() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg := &Config{}
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	case os.IsNotExist(err):
		// Run on env vars and defaults alone.
	default:
		return fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	applyEnvOverrides(cfg)
	validateAndApplyDefaults(cfg)

	GlobalConfig = cfg
	return nil
}

// applyEnvOverrides lets environment variables override file values.
// Unparseable numeric values are ignored and resolved by
// validateAndApplyDefaults.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v, ok := envInt("PORT"); ok {
		cfg.Server.Port = v
	}
	if v := os.Getenv("MYSQL_HOST"); v != "" {
		cfg.MySQL.Host = v
	}
	if v, ok := envInt("MYSQL_PORT"); ok {
		cfg.MySQL.Port = v
	}
	if v := os.Getenv("MYSQL_USER"); v != "" {
		cfg.MySQL.User = v
	}
	if v := os.Getenv("MYSQL_PASSWORD"); v != "" {
		cfg.MySQL.Password = v
	}
	if v := os.Getenv("MYSQL_DATABASE"); v != "" {
		cfg.MySQL.Database = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Notification.SlackWebhookURL = v
	}
	if v, ok := envInt("SWEEP_INTERVAL_SECONDS"); ok {
		cfg.Monitor.SweepIntervalSeconds = v
	}
	if v, ok := envInt("STALENESS_THRESHOLD_MINUTES"); ok {
		cfg.Monitor.StalenessThresholdMinutes = v
	}
	if v, ok := envInt("MAX_NOTIFICATIONS"); ok {
		cfg.Monitor.MaxNotifications = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// validateAndApplyDefaults replaces missing or invalid values with defaults so
// a partially configured process still comes up operational.
func validateAndApplyDefaults(cfg *Config) {
	serverDefaults := DefaultServerConfig()
	if cfg.Server.Host == "" {
		cfg.Server.Host = serverDefaults.Host
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		cfg.Server.Port = serverDefaults.Port
	}
	switch cfg.Server.Mode {
	case "debug", "release", "test":
	default:
		cfg.Server.Mode = serverDefaults.Mode
	}

	mysqlDefaults := DefaultMySQLConfig()
	if cfg.MySQL.Host == "" {
		cfg.MySQL.Host = mysqlDefaults.Host
	}
	if cfg.MySQL.Port <= 0 || cfg.MySQL.Port > 65535 {
		cfg.MySQL.Port = mysqlDefaults.Port
	}
	if cfg.MySQL.User == "" {
		cfg.MySQL.User = mysqlDefaults.User
	}
	if cfg.MySQL.Database == "" {
		cfg.MySQL.Database = mysqlDefaults.Database
	}

	if cfg.Redis.DB < 0 {
		cfg.Redis.DB = 0
	}

	loggerDefaults := DefaultLoggerConfig()
	switch cfg.Logger.Level {
	case "debug", "info", "warn", "error":
	default:
		cfg.Logger.Level = loggerDefaults.Level
	}
	switch cfg.Logger.Output {
	case "console", "file", "both":
	default:
		cfg.Logger.Output = loggerDefaults.Output
	}

	monitorDefaults := DefaultMonitorConfig()
	if cfg.Monitor.SweepIntervalSeconds <= 0 {
		cfg.Monitor.SweepIntervalSeconds = monitorDefaults.SweepIntervalSeconds
	}
	if cfg.Monitor.StalenessThresholdMinutes <= 0 {
		cfg.Monitor.StalenessThresholdMinutes = monitorDefaults.StalenessThresholdMinutes
	}
	if cfg.Monitor.MaxNotifications <= 0 {
		cfg.Monitor.MaxNotifications = monitorDefaults.MaxNotifications
	}
	if cfg.Monitor.FailureBackoffSeconds <= 0 {
		cfg.Monitor.FailureBackoffSeconds = monitorDefaults.FailureBackoffSeconds
	}
}
