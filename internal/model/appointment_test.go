package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOverlapsIsHalfOpen(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	appt := &Appointment{ScheduledAt: base, Duration: 30 * time.Minute}

	assert.True(t, appt.Overlaps(base.Add(15*time.Minute), base.Add(45*time.Minute)))
	assert.True(t, appt.Overlaps(base.Add(-15*time.Minute), base.Add(15*time.Minute)))
	assert.True(t, appt.Overlaps(base.Add(-time.Hour), base.Add(time.Hour)))

	// Touching windows do not overlap.
	assert.False(t, appt.Overlaps(base.Add(30*time.Minute), base.Add(time.Hour)))
	assert.False(t, appt.Overlaps(base.Add(-time.Hour), base))
}

func TestStatusClassification(t *testing.T) {
	assert.True(t, AppointmentStatusScheduled.IsActive())
	assert.True(t, AppointmentStatusConfirmed.IsActive())
	assert.False(t, AppointmentStatusInProgress.IsActive())
	assert.False(t, AppointmentStatusCancelled.IsActive())

	for _, s := range []AppointmentStatus{AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow} {
		assert.True(t, s.IsTerminal(), "%s should be terminal", s)
		for _, target := range []AppointmentStatus{
			AppointmentStatusScheduled, AppointmentStatusConfirmed, AppointmentStatusInProgress,
			AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow,
		} {
			assert.False(t, s.CanTransitionTo(target), "%s -> %s should be illegal", s, target)
		}
	}
}

func TestCanTransitionToFollowsLinearPath(t *testing.T) {
	assert.True(t, AppointmentStatusScheduled.CanTransitionTo(AppointmentStatusConfirmed))
	assert.True(t, AppointmentStatusConfirmed.CanTransitionTo(AppointmentStatusInProgress))
	assert.True(t, AppointmentStatusInProgress.CanTransitionTo(AppointmentStatusCompleted))

	// No skipping ahead or moving backwards.
	assert.False(t, AppointmentStatusScheduled.CanTransitionTo(AppointmentStatusCompleted))
	assert.False(t, AppointmentStatusConfirmed.CanTransitionTo(AppointmentStatusScheduled))
	assert.False(t, AppointmentStatusInProgress.CanTransitionTo(AppointmentStatusConfirmed))
}
