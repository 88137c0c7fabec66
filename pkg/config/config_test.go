package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "AUTH_MODE", "JWT_EXPIRATION_HOURS", "CLOCK_SKEW_SECONDS", "STORE_DRIVER", "ARTIFACT_BACKEND", "AI_PROVIDER", "AUTO_PROVISION_ON_FIRST_LOGIN", "CERT_DIR"} {
		t.Setenv(k, "")
	}

	c := Load()
	require.NotNil(t, c)

	assert.Equal(t, "5000", c.Port)
	assert.Equal(t, "jwt", c.AuthMode)
	assert.Equal(t, 24, c.JWTExpiration)
	assert.Equal(t, 24*time.Hour, c.TokenTTL())
	assert.Equal(t, 60*time.Second, c.ClockSkew)
	assert.True(t, c.AutoProvisionOnFirstLogin)
	assert.Equal(t, "memory", c.StoreDriver)
	assert.Equal(t, "local", c.ArtifactBackend)
	assert.Equal(t, "certificates", c.CertDir)
	assert.Equal(t, "gemini", c.AIProvider)
	assert.Equal(t, []string{"*"}, c.CORSOrigins)
	assert.NoError(t, c.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AUTH_MODE", "firebase")
	t.Setenv("CLOCK_SKEW_SECONDS", "90")
	t.Setenv("AUTO_PROVISION_ON_FIRST_LOGIN", "false")
	t.Setenv("JWT_EXPIRATION_HOURS", "not-a-number")
	t.Setenv("SFTP_PORT", "2222")

	c := Load()

	assert.Equal(t, "firebase", c.AuthMode)
	assert.Equal(t, 90*time.Second, c.ClockSkew)
	assert.False(t, c.AutoProvisionOnFirstLogin)
	assert.Equal(t, 24, c.JWTExpiration, "invalid ints fall back to the default")
	assert.Equal(t, 2222, c.SFTPPort)
}

func TestLoad_CORSOriginsList(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com,,")
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, Load().CORSOrigins)

	t.Setenv("CORS_ORIGINS", " , ")
	assert.Equal(t, []string{"*"}, Load().CORSOrigins)
}

func TestValidate_RejectsUnknownValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"auth mode", func(c *Config) { c.AuthMode = "saml" }},
		{"store driver", func(c *Config) { c.StoreDriver = "redis" }},
		{"artifact backend", func(c *Config) { c.ArtifactBackend = "ftp" }},
		{"ai provider", func(c *Config) { c.AIProvider = "openai" }},
		{"empty secret", func(c *Config) { c.JWTSecret = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Load()
			c.AuthMode = "jwt"
			c.StoreDriver = "memory"
			c.ArtifactBackend = "local"
			c.AIProvider = "gemini"
			c.JWTSecret = "s"
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
