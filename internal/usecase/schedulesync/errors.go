// Package schedulesync mirrors the external timetable into the course store
// and announces every change on the event bus.
package schedulesync

import "errors"

// ErrListSchedules is returned when a tick cannot even enumerate schedules.
var ErrListSchedules = errors.New("list schedules failed")

// Phase names the step a schedule sync was in when it stopped.
type Phase string

const (
	PhaseFetching     Phase = "fetching"
	PhaseDiffing      Phase = "diffing"
	PhaseUnchanged    Phase = "unchanged"
	PhaseApplying     Phase = "applying"
	PhaseEventEmitted Phase = "event_emitted"
)
