// Package common provides shared utilities for the KI7MT spectrogram tools.
package common

import (
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds common configuration for all applications.
type Config struct {
	ClickHouseHost     string
	ClickHouseDatabase string
	ClickHouseTable    string
	ClickHouseUser     string
	ClickHousePassword string
	S3Region           string
	S3Endpoint         string
	S3AccessKey        string
	S3SecretKey        string
	DataDir            string
	LogLevel           string
}

// DefaultConfig returns configuration with sensible defaults, overridden by
// environment variables of the same name.
func DefaultConfig() *Config {
	v := viper.New()
	v.SetDefault("CLICKHOUSE_HOST", "127.0.0.1:9000")
	v.SetDefault("CLICKHOUSE_DATABASE", "rf")
	v.SetDefault("CLICKHOUSE_TABLE", "spectrum_frames")
	v.SetDefault("CLICKHOUSE_USER", "default")
	v.SetDefault("CLICKHOUSE_PASSWORD", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY_ID", "")
	v.SetDefault("S3_SECRET_ACCESS_KEY", "")
	v.SetDefault("KI7MT_DATA_DIR", "/var/lib/ki7mt-ai-lab")
	v.SetDefault("LOG_LEVEL", "info")
	v.AutomaticEnv()

	return &Config{
		ClickHouseHost:     v.GetString("CLICKHOUSE_HOST"),
		ClickHouseDatabase: v.GetString("CLICKHOUSE_DATABASE"),
		ClickHouseTable:    v.GetString("CLICKHOUSE_TABLE"),
		ClickHouseUser:     v.GetString("CLICKHOUSE_USER"),
		ClickHousePassword: v.GetString("CLICKHOUSE_PASSWORD"),
		S3Region:           v.GetString("S3_REGION"),
		S3Endpoint:         v.GetString("S3_ENDPOINT"),
		S3AccessKey:        v.GetString("S3_ACCESS_KEY_ID"),
		S3SecretKey:        v.GetString("S3_SECRET_ACCESS_KEY"),
		DataDir:            v.GetString("KI7MT_DATA_DIR"),
		LogLevel:           v.GetString("LOG_LEVEL"),
	}
}

// SpectrumDataDir returns the rf-scanner capture directory path.
func (c *Config) SpectrumDataDir() string {
	return filepath.Join(c.DataDir, "spectrum")
}

// TableFQN returns database.table for the frame table.
func (c *Config) TableFQN() string {
	return c.ClickHouseDatabase + "." + c.ClickHouseTable
}
