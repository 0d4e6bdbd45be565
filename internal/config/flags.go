package config

import "flag"

var (
	flagConfig      = flag.String("config", "", "Path to config file")
	flagDebug       = flag.Bool("debug", false, "Enable debug logging")
	flagCache       = flag.String("cache", "", "Asset cache directory")
	flagEndpoint    = flag.String("endpoint", "", "Asset endpoint URL template ({id} is replaced)")
	flagConcurrency = flag.Int("concurrency", 0, "Maximum concurrent downloads")
	flagRotation    = flag.String("rotation", "", "Rotation correction for duplicates: none or maxima")
	flagGLTF        = flag.String("gltf", "", "Write a glTF preview of the deduplicated scene")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the positional arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagCache != "" {
		cfg.Assets.CacheDir = *flagCache
	}
	if *flagEndpoint != "" {
		cfg.Assets.Endpoint = *flagEndpoint
	}
	if *flagConcurrency > 0 {
		cfg.Assets.Concurrency = *flagConcurrency
	}
	if *flagRotation != "" {
		cfg.Dedup.Rotation = *flagRotation
	}
	if *flagGLTF != "" {
		cfg.Export.GLTF = *flagGLTF
	}
}
