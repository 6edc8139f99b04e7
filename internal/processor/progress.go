package processor

import "math"

const defaultProgressStep = 10

// progressBridge turns the engine's progress callback into throttled updates.
// A percentage is forwarded only when its floor is a multiple of step and
// differs from the last forwarded value. Progress that only moves forward
// reports each step at most once.
// One bridge serves exactly one colorize call.
type progressBridge struct {
	step     int
	last     int
	status   *StatusFile
	listener Listener
}

func newProgressBridge(step int, status *StatusFile, listener Listener) *progressBridge {
	if step <= 0 {
		step = defaultProgressStep
	}
	return &progressBridge{step: step, last: -1, status: status, listener: listener}
}

func (b *progressBridge) update(percent float64) {
	if math.IsNaN(percent) {
		return
	}
	floor := int(math.Floor(math.Max(0, math.Min(100, percent))))
	if floor == b.last || floor%b.step != 0 {
		return
	}
	b.last = floor

	b.listener.Progress(floor)
	b.status.WriteProgress(floor)
}
