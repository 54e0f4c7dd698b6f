package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateCronSchedule(t *testing.T) {
	for _, valid := range []string{"0 * * * *", "*/15 6-22 * * 1-5", "30 5 * * *", "0 0 1 * *"} {
		assert.NoError(t, ValidateCronSchedule(valid), valid)
	}
	for _, invalid := range []string{"", "every hour", "0 0 * * * *", "61 * * * *", "* * *"} {
		assert.Error(t, ValidateCronSchedule(invalid), invalid)
	}
}

func TestValidateTimezone(t *testing.T) {
	for _, valid := range []string{"UTC", "Europe/Warsaw", "Asia/Tokyo", "America/New_York"} {
		assert.NoError(t, ValidateTimezone(valid), valid)
	}
	assert.ErrorContains(t, ValidateTimezone(""), "cannot be empty")
	assert.ErrorContains(t, ValidateTimezone("Mars/Olympus"), "Mars/Olympus")
}

func TestValidateDuration(t *testing.T) {
	assert.NoError(t, ValidateDuration(time.Minute, time.Minute, time.Hour))
	assert.NoError(t, ValidateDuration(time.Hour, time.Minute, time.Hour))
	assert.ErrorContains(t, ValidateDuration(time.Second, time.Minute, time.Hour), "below minimum")
	assert.ErrorContains(t, ValidateDuration(2*time.Hour, time.Minute, time.Hour), "exceeds maximum")
	assert.ErrorContains(t, ValidateDuration(time.Minute, time.Hour, time.Minute), "invalid range")
}

func TestValidateIntRange(t *testing.T) {
	assert.NoError(t, ValidateIntRange(1, 1, 100))
	assert.NoError(t, ValidateIntRange(100, 1, 100))
	assert.ErrorContains(t, ValidateIntRange(0, 1, 100), "below minimum")
	assert.ErrorContains(t, ValidateIntRange(101, 1, 100), "exceeds maximum")
	assert.ErrorContains(t, ValidateIntRange(5, 10, 1), "invalid range")
}

func TestValidateFloatRange(t *testing.T) {
	assert.NoError(t, ValidateFloatRange(0.5, 0, 50))
	assert.Error(t, ValidateFloatRange(-0.1, 0, 50))
	assert.Error(t, ValidateFloatRange(1, 2, 1))
}

func TestValidatePositiveDuration(t *testing.T) {
	assert.NoError(t, ValidatePositiveDuration(time.Nanosecond))
	assert.Error(t, ValidatePositiveDuration(0))
	assert.Error(t, ValidatePositiveDuration(-time.Second))
}

func TestValidateHTTPURL(t *testing.T) {
	assert.NoError(t, ValidateHTTPURL("https://discord.com/api/webhooks"))
	assert.NoError(t, ValidateHTTPURL("http://localhost:8089"))
	assert.Error(t, ValidateHTTPURL("ftp://example.com"))
	assert.Error(t, ValidateHTTPURL("https://"))
	assert.Error(t, ValidateHTTPURL("::::"))
}
