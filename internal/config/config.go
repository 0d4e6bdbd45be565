// Package config handles tool configuration loading and management.
package config

import "time"

// Config holds all settings.
type Config struct {
	Assets  AssetsConfig  `yaml:"assets"`
	Dedup   DedupConfig   `yaml:"dedup"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
}

// AssetsConfig holds remote asset retrieval and disk cache settings.
type AssetsConfig struct {
	CacheDir    string        `yaml:"cache_dir"`   // Directory of cached assets, one file per numeric id
	Endpoint    string        `yaml:"endpoint"`    // URL template; {id} is replaced by the numeric id
	Concurrency int           `yaml:"concurrency"` // Maximum in-flight downloads
	Timeout     time.Duration `yaml:"timeout"`
	UserAgent   string        `yaml:"user_agent"`
}

// DedupConfig holds deduplication settings.
type DedupConfig struct {
	Root     string `yaml:"root"`     // Top-level scene child whose descendants are scanned
	Rotation string `yaml:"rotation"` // Rotation correction: none or maxima
}

// ExportConfig holds preview export settings.
type ExportConfig struct {
	GLTF   string `yaml:"gltf"`   // Output path, empty to disable
	Binary bool   `yaml:"binary"` // Write .glb instead of .gltf
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Assets: AssetsConfig{
			CacheDir:    "cache",
			Endpoint:    "https://assetdelivery.roblox.com/v1/asset?id={id}",
			Concurrency: 4,
			Timeout:     30 * time.Second,
			UserAgent:   "meshdedup/1.0",
		},
		Dedup: DedupConfig{
			Root:     "Workspace",
			Rotation: "none",
		},
		Export: ExportConfig{
			GLTF:   "",
			Binary: true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
