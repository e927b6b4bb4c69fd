package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// credentialEnv maps credential keys to the environment variables the site has
// always been deployed with.
var credentialEnv = map[string]string{
	"media.credentials.cloud_name": "CLOUDINARY_CLOUD_NAME",
	"media.credentials.api_key":    "CLOUDINARY_API_KEY",
	"media.credentials.api_secret": "CLOUDINARY_API_SECRET",
}

func (c *Config) Validate() error {
	return newValidator().Struct(c)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.limits.max_file_size", 100<<20)
	v.SetDefault("server.limits.max_multipart_mem", 32<<20)
	v.SetDefault("server.limits.max_payload_size", 1<<20)

	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("media.strategy", "cloudinary")
	v.SetDefault("media.cloudinary.folder", "tonelab-events")
	v.SetDefault("media.filesystem.path", "public/uploads")
	v.SetDefault("media.filesystem.public_prefix", "/api/uploads")

	v.SetDefault("entities.strategy", "filesystem")
	v.SetDefault("entities.filesystem.path", "data")

	v.SetDefault("metrics.path", "/metrics")
}

func LoadConfig(file string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(file)
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("VENUE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range credentialEnv {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		log.Println("read in fail")
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Println("unmarshal fail")
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		log.Println("validate fail")
		return nil, err
	}

	return &cfg, nil
}
