package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config represents the application configuration structure
type Config struct {
	Environment string `default:"dev"`

	ListenAddress string `split_words:"true" default:":8080"`
	AllowedOrigin string `split_words:"true" default:"*"`

	ProviderBaseURL string `envconfig:"provider_base_url" default:"https://engine.hyperbeam.com/v0"`
	ProviderAPIKey  string `envconfig:"provider_api_key"`

	// APISecret, if set, is required in the 'x-api-secret' header of every session creation request
	APISecret string `envconfig:"api_secret"`

	// CredentialSigningKey, if set, must be a fernet key; the credential cookie is then encrypted and signed
	CredentialSigningKey string `split_words:"true"`

	// PostgresDSN, if set, moves the lease registry into PostgreSQL instead of process memory
	PostgresDSN string `envconfig:"postgres_dsn"`

	DefaultLeaseSeconds int `split_words:"true" default:"300"`
	SessionCookieMaxAge int `split_words:"true" default:"900"`
	CSRFTokenTTLSeconds int `envconfig:"csrf_token_ttl_seconds" default:"3600"`
}

// LoadFromEnv loads a new configuration structure using environment variables and an optional .env file
func LoadFromEnv() (*Config, error) {
	// Load a .env file if it exists
	_ = godotenv.Overload()

	// Load a new configuration structure using environment variables
	config := new(Config)
	if err := envconfig.Process("vb", config); err != nil {
		return nil, err
	}
	return config, nil
}

// IsEnvProduction returns whether the application runs in a production environment
func (config *Config) IsEnvProduction() bool {
	return config.Environment == "prod" || config.Environment == "production"
}
