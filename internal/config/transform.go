package config

type TransformConfig struct {
	Enabled      bool    `yaml:"enabled"`
	MaxSizeMB    float64 `yaml:"max_size_mb"`
	MaxDimension int     `yaml:"max_dimension"`
}

func loadTransformConfig() *TransformConfig {
	return &TransformConfig{
		Enabled:      getEnvAsBool("IMAGE_COMPRESS_ENABLED", true),
		MaxSizeMB:    getEnvAsFloat64("IMAGE_MAX_SIZE_MB", 0.3),
		MaxDimension: getEnvAsInt("IMAGE_MAX_DIMENSION", 1280),
	}
}
