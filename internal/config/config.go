package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// MissionConfig holds the simulation loop and motion tuning.
type MissionConfig struct {
	Name          string  `json:"name" mapstructure:"name"`
	Tag           string  `json:"tag" mapstructure:"tag"`
	TickSeconds   float64 `json:"tickSeconds" mapstructure:"tickSeconds"`
	MaxSpeed      float64 `json:"maxSpeed" mapstructure:"maxSpeed"`
	ArrivalRadius float64 `json:"arrivalRadius" mapstructure:"arrivalRadius"`
	BatteryDrain  float64 `json:"batteryDrain" mapstructure:"batteryDrain"`
}

// SiteConfig georeferences the inspected structure.
type SiteConfig struct {
	Name      string  `json:"name" mapstructure:"name"`
	Latitude  float64 `json:"latitude" mapstructure:"latitude"`
	Longitude float64 `json:"longitude" mapstructure:"longitude"`
}

// DetectConfig holds detection pipeline settings. A zero seed means a
// fresh time-based seed each run.
type DetectConfig struct {
	Seed int64 `json:"seed" mapstructure:"seed"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds embedded database backend settings
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// WebsocketConfig holds live streaming backend settings
type WebsocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the recording backends.
type StorageConfig struct {
	Types     []string        `json:"types" mapstructure:"types"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	Websocket WebsocketConfig `json:"websocket" mapstructure:"websocket"`
}

// DBConfig holds postgres connection settings.
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// InfluxConfig holds telemetry time-series export settings.
type InfluxConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	Host      string `json:"host" mapstructure:"host"`
	Port      string `json:"port" mapstructure:"port"`
	Protocol  string `json:"protocol" mapstructure:"protocol"`
	Token     string `json:"token" mapstructure:"token"`
	Org       string `json:"org" mapstructure:"org"`
	Bucket    string `json:"bucket" mapstructure:"bucket"`
	BackupDir string `json:"backupDir" mapstructure:"backupDir"`
}

// OTelConfig holds OpenTelemetry export settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// APIConfig points at the review server that receives finished exports.
type APIConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	URL     string `json:"url" mapstructure:"url"`
	Key     string `json:"key" mapstructure:"key"`
}

// ChartConfig holds flight chart rendering settings.
type ChartConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	OutputDir string `json:"outputDir" mapstructure:"outputDir"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./inspectionlogs")

	viper.SetDefault("mission.name", "bridge inspection")
	viper.SetDefault("mission.tag", "survey")
	viper.SetDefault("mission.tickSeconds", 0.1)
	viper.SetDefault("mission.maxSpeed", 10.0)
	viper.SetDefault("mission.arrivalRadius", 1.0)
	viper.SetDefault("mission.batteryDrain", 0.1)

	viper.SetDefault("site.name", "Main Street Bridge")
	viper.SetDefault("site.latitude", 47.5596)
	viper.SetDefault("site.longitude", 7.5886)

	viper.SetDefault("detect.seed", 0)

	viper.SetDefault("storage.types", []string{"memory"})
	viper.SetDefault("storage.memory.outputDir", "./inspections")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "./inspections/inspection.db")
	viper.SetDefault("storage.websocket.url", "ws://localhost:8080/live")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "inspection")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "inspection-metrics")
	viper.SetDefault("influx.bucket", "flight_telemetry")
	viper.SetDefault("influx.backupDir", "./inspectionlogs/influx_backup")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "inspection-sim")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.url", "http://localhost:8080")
	viper.SetDefault("api.key", "")

	viper.SetDefault("chart.enabled", true)
	viper.SetDefault("chart.outputDir", "./inspections")

	viper.SetConfigName("inspection.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetMissionConfig returns the mission section.
func GetMissionConfig() MissionConfig {
	var c MissionConfig
	_ = viper.UnmarshalKey("mission", &c)
	return c
}

// GetSiteConfig returns the site section.
func GetSiteConfig() SiteConfig {
	var c SiteConfig
	_ = viper.UnmarshalKey("site", &c)
	return c
}

// GetDetectConfig returns the detect section.
func GetDetectConfig() DetectConfig {
	var c DetectConfig
	_ = viper.UnmarshalKey("detect", &c)
	return c
}

// GetStorageConfig returns the storage section.
func GetStorageConfig() StorageConfig {
	var c StorageConfig
	_ = viper.UnmarshalKey("storage", &c)
	return c
}

// GetDBConfig returns the db section.
func GetDBConfig() DBConfig {
	var c DBConfig
	_ = viper.UnmarshalKey("db", &c)
	return c
}

// GetInfluxConfig returns the influx section.
func GetInfluxConfig() InfluxConfig {
	var c InfluxConfig
	_ = viper.UnmarshalKey("influx", &c)
	return c
}

// GetOTelConfig returns the otel section.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetAPIConfig returns the api section.
func GetAPIConfig() APIConfig {
	var c APIConfig
	_ = viper.UnmarshalKey("api", &c)
	return c
}

// GetChartConfig returns the chart section.
func GetChartConfig() ChartConfig {
	var c ChartConfig
	_ = viper.UnmarshalKey("chart", &c)
	return c
}
