package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvPrefersLoadedFile(t *testing.T) {
	Env = map[string]string{"GRID_CURRENCY": "eur"}
	t.Cleanup(func() { Env = nil })
	t.Setenv("GRID_CURRENCY", "usd")

	assert.Equal(t, "eur", GetEnv("GRID_CURRENCY", "chf"))
	assert.Equal(t, "fallback", GetEnv("GRID_MISSING_KEY", "fallback"))
}

func TestGetEnvInt(t *testing.T) {
	Env = map[string]string{"GRID_COLUMNS": "12", "MAIL_WORKERS": "many"}
	t.Cleanup(func() { Env = nil })

	assert.Equal(t, 12, GetEnvInt("GRID_COLUMNS", 10))
	assert.Equal(t, 2, GetEnvInt("MAIL_WORKERS", 2))
	assert.Equal(t, 7, GetEnvInt("GRID_UNSET", 7))
}

func TestGetEnvBool(t *testing.T) {
	Env = map[string]string{"MAIL_QUEUE_ENABLED": "true", "BROKEN": "maybe"}
	t.Cleanup(func() { Env = nil })

	assert.True(t, GetEnvBool("MAIL_QUEUE_ENABLED", false))
	assert.False(t, GetEnvBool("BROKEN", false))
	assert.True(t, GetEnvBool("UNSET_FLAG", true))
}
