package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8787", c.HTTPAddr)
	assert.Equal(t, StoreMemory, c.StoreDriver)
	assert.Equal(t, "admin", c.AdminIdentity)
	assert.Equal(t, 200, c.AuditListLimit)
	assert.Equal(t, 10*time.Minute, c.OAuthStateTTL)
	assert.Equal(t, 365*24*time.Hour, c.AuditTTL)
	assert.Empty(t, c.SetupToken)
	assert.NotNil(t, c.OAuthProviders)
	require.NoError(t, c.Validate())
}

func TestLoadConfig_UsesDefaultsWithoutArgs(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"server"}

	c := LoadConfig()
	require.NotNil(t, c)
	assert.Equal(t, ":8787", c.HTTPAddr)
	assert.Equal(t, StoreMemory, c.StoreDriver)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults ok", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "etcd" }, wantErr: `unknown store driver "etcd"`},
		{name: "empty addr", mutate: func(c *Config) { c.HTTPAddr = "" }, wantErr: "http address is required"},
		{name: "no signing key", mutate: func(c *Config) { c.DeliverySigningKey = "" }, wantErr: "delivery signing key is required"},
		{name: "no admin", mutate: func(c *Config) { c.AdminIdentity = "" }, wantErr: "admin identity is required"},
		{name: "zero limit", mutate: func(c *Config) { c.AuditListLimit = 0 }, wantErr: "audit list limit must be positive"},
		{name: "zero ttl", mutate: func(c *Config) { c.OAuthStateTTL = 0 }, wantErr: "oauth state ttl must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)

			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProviderChecks(t *testing.T) {
	c := Config{OAuthProviders: map[string]OAuthProvider{
		"github": {ClientID: "id", AuthURL: "https://a", TokenURL: "https://t"},
		"halfway": {ClientID: "id", AuthURL: "https://a"},
	}}

	p, ok := c.Provider("GitHub")
	require.True(t, ok)
	assert.True(t, p.CanInitiate("https://cb"))
	assert.True(t, p.CanExchange("https://cb"))
	assert.False(t, p.CanInitiate(""))

	p, ok = c.Provider("halfway")
	require.True(t, ok)
	assert.True(t, p.CanInitiate("https://cb"))
	assert.False(t, p.CanExchange("https://cb"))

	_, ok = c.Provider("gitlab")
	assert.False(t, ok)
}
