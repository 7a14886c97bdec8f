package config

import (
	"encoding/json"
	"os"

	"github.com/avezhnov/ctfdeck/internal/flagx"
	"github.com/avezhnov/ctfdeck/internal/timex"
)

// JsonConfig is the DTO used when reading a JSON configuration file. It uses
// timex.Duration for interval fields, which parses both string values such
// as "15m" and integer nanoseconds. After unmarshalling, its fields are
// copied into the runtime Config struct.
type JsonConfig struct {
	EndpointAddrHTTP                string         `json:"endpoint_addr_http"`
	DatabaseDSN                     string         `json:"database_dsn"`
	RedisAddr                       string         `json:"redis_addr"`
	SecretKey                       string         `json:"secret_key"`
	BaseURL                         string         `json:"base_url"`
	BcryptCost                      int            `json:"bcrypt_cost"`
	AccessTokenValidityDuration     timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration    timex.Duration `json:"refresh_token_validity_duration"`
	ActivationTokenValidityDuration timex.Duration `json:"activation_token_validity_duration"`
	ResetTokenValidityDuration      timex.Duration `json:"reset_token_validity_duration"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config. The file path comes from the -c or -config command-line flags;
// when neither is set, nothing is loaded. An unreadable or invalid file
// panics, since the process cannot start with half-applied configuration.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.RedisAddr = c.RedisAddr
	config.SecretKey = c.SecretKey
	config.BaseURL = c.BaseURL
	config.BcryptCost = c.BcryptCost
	config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	config.ActivationTokenValidityDuration = c.ActivationTokenValidityDuration.Duration
	config.ResetTokenValidityDuration = c.ResetTokenValidityDuration.Duration
}
