package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDailyJobDue(t *testing.T) {
	// Exactly on time.
	assert.True(t, dailyJobDue("23:59", "23:59", "", "2025-03-12"))
	assert.True(t, dailyJobDue("23:59", "23:59", "2025-03-11", "2025-03-12"))

	// A dropped tick during the scheduled minute still fires on the next one.
	assert.True(t, dailyJobDue("23:59", "23:55", "2025-03-11", "2025-03-12"))

	// Not yet time, or already ran today.
	assert.False(t, dailyJobDue("23:54", "23:55", "", "2025-03-12"))
	assert.False(t, dailyJobDue("23:59", "23:55", "2025-03-12", "2025-03-12"))
}
