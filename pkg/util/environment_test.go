package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvironmentVariables(t *testing.T) {
	t.Setenv("RAILTRACKER_TEST_VALUE", "a=b")

	env := GetEnvironmentVariables()

	assert.Equal(t, "a=b", env["RAILTRACKER_TEST_VALUE"])
}

func TestEnvFallbacks(t *testing.T) {
	env := map[string]string{
		"STRING":   "value",
		"INT":      "12",
		"FLOAT":    "0.5",
		"DURATION": "90s",
		"BROKEN":   "twelve",
	}

	assert.Equal(t, "value", EnvString(env, "STRING", "fallback"))
	assert.Equal(t, "fallback", EnvString(env, "MISSING", "fallback"))

	assert.Equal(t, 12, EnvInt(env, "INT", 3))
	assert.Equal(t, 3, EnvInt(env, "BROKEN", 3))

	assert.Equal(t, 0.5, EnvFloat(env, "FLOAT", 1))
	assert.Equal(t, 1.0, EnvFloat(env, "BROKEN", 1))

	assert.Equal(t, 90*time.Second, EnvDuration(env, "DURATION", time.Second))
	assert.Equal(t, time.Second, EnvDuration(env, "BROKEN", time.Second))
}
