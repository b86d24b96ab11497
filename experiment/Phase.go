package experiment

// Phase is a phase of an epoch
type Phase int

const (
	// Resetting brakes the vehicle and places it at a new start
	Resetting Phase = iota

	// Warmup fills the frame buffer while the vehicle settles
	Warmup

	// Collecting acts in the environment and records each step
	Collecting

	// Terminated finalizes the epoch's trajectory
	Terminated

	// Reconnecting means the environment failed and the connection must
	// be re-established before the next epoch
	Reconnecting
)

func (p Phase) String() string {
	switch p {
	case Resetting:
		return "resetting"
	case Warmup:
		return "warmup"
	case Collecting:
		return "collecting"
	case Terminated:
		return "terminated"
	case Reconnecting:
		return "reconnecting"
	}
	return "unknown"
}

// Reason is the reason an epoch ended
type Reason int

const (
	NotEnded Reason = iota
	Collided
	Stopped
	FarOff
	TimedOut
)

func (r Reason) String() string {
	switch r {
	case NotEnded:
		return "not ended"
	case Collided:
		return "collided"
	case Stopped:
		return "stopped"
	case FarOff:
		return "far off"
	case TimedOut:
		return "timed out"
	}
	return "unknown"
}
