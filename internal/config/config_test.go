package config

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "45s")
	assert.Equal(t, 45*time.Second, getEnvAsDuration("TEST_DURATION", time.Second))

	t.Setenv("TEST_DURATION", "12")
	assert.Equal(t, 12*time.Second, getEnvAsDuration("TEST_DURATION", time.Second))

	t.Setenv("TEST_DURATION", "soon")
	assert.Equal(t, time.Second, getEnvAsDuration("TEST_DURATION", time.Second))

	assert.Equal(t, time.Minute, getEnvAsDuration("TEST_DURATION_UNSET", time.Minute))
}

func TestQuotaLocation(t *testing.T) {
	assert.Equal(t, time.UTC, QuotaConfig{Timezone: "Nowhere/Invalid"}.Location())

	loc := QuotaConfig{Timezone: "Europe/Berlin"}.Location()
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AI_TIMEOUT", "")
	t.Setenv("APP_TIMEZONE", "UTC")
	cfg := Load()
	assert.Equal(t, 30*time.Second, cfg.Ai.Timeout)
	assert.Equal(t, time.Hour, cfg.Ai.ModelCacheTTL)
	assert.Equal(t, "UTC", cfg.Quota.Timezone)
}
