package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/tourdesk/internal/flagx"
	"github.com/dmitrijs2005/tourdesk/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations accept "15m" style
// strings or integer nanoseconds. Absent keys leave the current value alone.
type JsonConfig struct {
	EndpointAddrHTTP             *string         `json:"endpoint_addr_http"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	SecretKey                    *string         `json:"secret_key"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	AdminSecretCode              *string         `json:"admin_secret_code"`
	RedisAddr                    *string         `json:"redis_addr"`
	RedisDB                      *int            `json:"redis_db"`
	S3RootUser                   *string         `json:"s3_root_user"`
	S3RootPassword               *string         `json:"s3_root_password"`
	S3Bucket                     *string         `json:"s3_bucket"`
	S3Region                     *string         `json:"s3_region"`
	S3BaseEndpoint               *string         `json:"s3_base_endpoint"`
	LogLevel                     *string         `json:"log_level"`
	LogPretty                    *bool           `json:"log_pretty"`
}

// parseJson loads the file named by -c/-config, if any, into config.
// A file that cannot be read or parsed panics: starting with a half-applied
// configuration is worse than not starting.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	setString(&config.AdminSecretCode, c.AdminSecretCode)
	setString(&config.RedisAddr, c.RedisAddr)
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogLevel, c.LogLevel)
	if c.LogPretty != nil {
		config.LogPretty = *c.LogPretty
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
