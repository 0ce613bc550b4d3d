package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every server variable, e.g. STOREKEEPER_SETUP_TOKEN.
const EnvPrefix = "STOREKEEPER"

// EnvConfig maps STOREKEEPER_* variables. Pointer fields stay nil when the
// variable is unset so they do not clobber earlier layers with zero values.
type EnvConfig struct {
	HTTPAddr      string `envconfig:"HTTP_ADDR"`
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL"`
	LogLevel      string `envconfig:"LOG_LEVEL"`

	StoreDriver    string `envconfig:"STORE_DRIVER"`
	RedisAddr      string `envconfig:"REDIS_ADDR"`
	RedisPassword  string `envconfig:"REDIS_PASSWORD"`
	RedisDB        *int   `envconfig:"REDIS_DB"`
	RedisKeyPrefix string `envconfig:"REDIS_KEY_PREFIX"`
	DatabaseDSN    string `envconfig:"DATABASE_DSN"`

	SetupToken       string `envconfig:"SETUP_TOKEN"`
	AdminIdentity    string `envconfig:"ADMIN_IDENTITY"`
	MasterPassphrase string `envconfig:"MASTER_PASSPHRASE"`
	AuditListLimit   *int   `envconfig:"AUDIT_LIST_LIMIT"`

	OAuthRedirectURL string   `envconfig:"OAUTH_REDIRECT_URL"`
	OAuthProviders   []string `envconfig:"OAUTH_PROVIDERS"`

	OAuthStateTTL *time.Duration `envconfig:"OAUTH_STATE_TTL"`
	SessionTTL    *time.Duration `envconfig:"SESSION_TTL"`
	InboundTTL    *time.Duration `envconfig:"INBOUND_TTL"`
	AuditTTL      *time.Duration `envconfig:"AUDIT_TTL"`

	DeliverySigningKey  string         `envconfig:"DELIVERY_SIGNING_KEY"`
	DownloadURLValidity *time.Duration `envconfig:"DOWNLOAD_URL_VALIDITY"`
	S3RootUser          string         `envconfig:"S3_ROOT_USER"`
	S3RootPassword      string         `envconfig:"S3_ROOT_PASSWORD"`
	S3Bucket            string         `envconfig:"S3_BUCKET"`
	S3Region            string         `envconfig:"S3_REGION"`
	S3BaseEndpoint      string         `envconfig:"S3_BASE_ENDPOINT"`
	S3ItemPrefix        string         `envconfig:"S3_ITEM_PREFIX"`

	PublicRateLimit *float64 `envconfig:"PUBLIC_RATE_LIMIT"`
	PublicRateBurst *int     `envconfig:"PUBLIC_RATE_BURST"`
}

// ProviderEnv maps OAUTH_<NAME>_* variables for one provider listed in
// STOREKEEPER_OAUTH_PROVIDERS.
type ProviderEnv struct {
	ClientID     string `envconfig:"CLIENT_ID"`
	ClientSecret string `envconfig:"CLIENT_SECRET"`
	AuthURL      string `envconfig:"AUTH_URL"`
	TokenURL     string `envconfig:"TOKEN_URL"`
	Scope        string `envconfig:"SCOPE"`
}

// parseEnv overlays environment variables onto config. Malformed values
// (e.g. a non-numeric REDIS_DB) panic, matching the flag layer.
func parseEnv(config *Config) {
	var e EnvConfig
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		panic(err)
	}
	e.apply(config)

	for _, name := range e.OAuthProviders {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		var p ProviderEnv
		if err := envconfig.Process("OAUTH_"+strings.ToUpper(name), &p); err != nil {
			panic(err)
		}
		if config.OAuthProviders == nil {
			config.OAuthProviders = map[string]OAuthProvider{}
		}
		current := config.OAuthProviders[name]
		setString(&current.ClientID, p.ClientID)
		setString(&current.ClientSecret, p.ClientSecret)
		setString(&current.AuthURL, p.AuthURL)
		setString(&current.TokenURL, p.TokenURL)
		setString(&current.Scope, p.Scope)
		config.OAuthProviders[name] = current
	}
}

func (e *EnvConfig) apply(config *Config) {
	setString(&config.HTTPAddr, e.HTTPAddr)
	setString(&config.PublicBaseURL, e.PublicBaseURL)
	setString(&config.LogLevel, e.LogLevel)

	setString(&config.StoreDriver, e.StoreDriver)
	setString(&config.RedisAddr, e.RedisAddr)
	setString(&config.RedisPassword, e.RedisPassword)
	setPtr(&config.RedisDB, e.RedisDB)
	setString(&config.RedisKeyPrefix, e.RedisKeyPrefix)
	setString(&config.DatabaseDSN, e.DatabaseDSN)

	setString(&config.SetupToken, e.SetupToken)
	setString(&config.AdminIdentity, e.AdminIdentity)
	setString(&config.MasterPassphrase, e.MasterPassphrase)
	setPtr(&config.AuditListLimit, e.AuditListLimit)

	setString(&config.OAuthRedirectURL, e.OAuthRedirectURL)

	setPtr(&config.OAuthStateTTL, e.OAuthStateTTL)
	setPtr(&config.SessionTTL, e.SessionTTL)
	setPtr(&config.InboundTTL, e.InboundTTL)
	setPtr(&config.AuditTTL, e.AuditTTL)

	setString(&config.DeliverySigningKey, e.DeliverySigningKey)
	setPtr(&config.DownloadURLValidity, e.DownloadURLValidity)
	setString(&config.S3RootUser, e.S3RootUser)
	setString(&config.S3RootPassword, e.S3RootPassword)
	setString(&config.S3Bucket, e.S3Bucket)
	setString(&config.S3Region, e.S3Region)
	setString(&config.S3BaseEndpoint, e.S3BaseEndpoint)
	setString(&config.S3ItemPrefix, e.S3ItemPrefix)

	setPtr(&config.PublicRateLimit, e.PublicRateLimit)
	setPtr(&config.PublicRateBurst, e.PublicRateBurst)
}

func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
