package config

import "errors"

type OSSConfig struct {
	AccessKeyID     string `yaml:"access_key_id"`
	AccessKeySecret string `yaml:"access_key_secret"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	CustomDomain    string `yaml:"custom_domain"`
	PathPrefix      string `yaml:"path_prefix"`
	RetryLimit      int    `yaml:"retry_limit"`
}

func loadOSSConfig() *OSSConfig {
	return &OSSConfig{
		AccessKeyID:     getEnv("OSS_ACCESS_KEY_ID", ""),
		AccessKeySecret: getEnv("OSS_ACCESS_KEY_SECRET", ""),
		Bucket:          getEnv("OSS_BUCKET", ""),
		Region:          getEnv("OSS_REGION", ""),
		CustomDomain:    getEnv("OSS_CUSTOM_DOMAIN", ""),
		PathPrefix:      getEnv("OSS_PATH_PREFIX", "obsidian/"),
		RetryLimit:      getEnvAsInt("OSS_RETRY_LIMIT", 3),
	}
}

// Validate checks that every credential needed for a network operation is
// present. A missing value is a configuration error, never a transient one.
func (c *OSSConfig) Validate() error {
	if c.AccessKeyID == "" {
		return errors.New("access key id is required")
	}
	if c.AccessKeySecret == "" {
		return errors.New("access key secret is required")
	}
	if c.Bucket == "" {
		return errors.New("bucket is required")
	}
	if c.Region == "" {
		return errors.New("region is required")
	}
	return nil
}
