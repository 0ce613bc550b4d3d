package config

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/storekeeper/internal/flagx"
	"github.com/dmitrijs2005/storekeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations accept
// "10m" style strings or integer nanoseconds. Fields left out of the file keep
// their current value.
type JsonConfig struct {
	HTTPAddr      string `json:"http_addr"`
	PublicBaseURL string `json:"public_base_url"`
	LogLevel      string `json:"log_level"`

	StoreDriver    string `json:"store_driver"`
	RedisAddr      string `json:"redis_addr"`
	RedisPassword  string `json:"redis_password"`
	RedisDB        int    `json:"redis_db"`
	RedisKeyPrefix string `json:"redis_key_prefix"`
	DatabaseDSN    string `json:"database_dsn"`

	SetupToken       string `json:"setup_token"`
	AdminIdentity    string `json:"admin_identity"`
	MasterPassphrase string `json:"master_passphrase"`
	AuditListLimit   int    `json:"audit_list_limit"`

	OAuthRedirectURL string                   `json:"oauth_redirect_url"`
	OAuthProviders   map[string]OAuthProvider `json:"oauth_providers"`

	OAuthStateTTL timex.Duration `json:"oauth_state_ttl"`
	SessionTTL    timex.Duration `json:"session_ttl"`
	InboundTTL    timex.Duration `json:"inbound_ttl"`
	AuditTTL      timex.Duration `json:"audit_ttl"`

	DeliverySigningKey  string         `json:"delivery_signing_key"`
	DownloadURLValidity timex.Duration `json:"download_url_validity"`
	S3RootUser          string         `json:"s3_root_user"`
	S3RootPassword      string         `json:"s3_root_password"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint"`
	S3ItemPrefix        string         `json:"s3_item_prefix"`

	PublicRateLimit float64 `json:"public_rate_limit"`
	PublicRateBurst int     `json:"public_rate_burst"`
}

// parseJson overlays the file given by -c / -config onto config.
// No flag means no file. An unreadable or invalid file panics, like a bad flag.
func parseJson(config *Config) {
	path := flagx.ConfigFile(os.Args[1:])
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

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.PublicBaseURL, c.PublicBaseURL)
	setString(&config.LogLevel, c.LogLevel)

	setString(&config.StoreDriver, c.StoreDriver)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB != 0 {
		config.RedisDB = c.RedisDB
	}
	setString(&config.RedisKeyPrefix, c.RedisKeyPrefix)
	setString(&config.DatabaseDSN, c.DatabaseDSN)

	setString(&config.SetupToken, c.SetupToken)
	setString(&config.AdminIdentity, c.AdminIdentity)
	setString(&config.MasterPassphrase, c.MasterPassphrase)
	if c.AuditListLimit != 0 {
		config.AuditListLimit = c.AuditListLimit
	}

	setString(&config.OAuthRedirectURL, c.OAuthRedirectURL)
	for name, p := range c.OAuthProviders {
		if config.OAuthProviders == nil {
			config.OAuthProviders = map[string]OAuthProvider{}
		}
		config.OAuthProviders[strings.ToLower(name)] = p
	}

	setDuration(&config.OAuthStateTTL, c.OAuthStateTTL)
	setDuration(&config.SessionTTL, c.SessionTTL)
	setDuration(&config.InboundTTL, c.InboundTTL)
	setDuration(&config.AuditTTL, c.AuditTTL)

	setString(&config.DeliverySigningKey, c.DeliverySigningKey)
	setDuration(&config.DownloadURLValidity, c.DownloadURLValidity)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3ItemPrefix, c.S3ItemPrefix)

	if c.PublicRateLimit != 0 {
		config.PublicRateLimit = c.PublicRateLimit
	}
	if c.PublicRateBurst != 0 {
		config.PublicRateBurst = c.PublicRateBurst
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
