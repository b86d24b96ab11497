package tracker

// every forwards every n-th epoch to the embedded Tracker. The Save()
// method of the embedded Tracker is unchanged.
type every struct {
	Tracker
	n     int
	count int
}

// Every returns a Tracker which only tracks every n-th epoch with t.
// If n <= 1, every epoch is tracked.
func Every(n int, t Tracker) Tracker {
	if n <= 1 {
		return t
	}
	return &every{Tracker: t, n: n}
}

// Track calls Track() on the embedded Tracker if the epoch is the
// n-th since the last one tracked
func (e *every) Track(epoch Epoch) error {
	e.count++
	if e.count%e.n != 0 {
		return nil
	}
	return e.Tracker.Track(epoch)
}

// excludeBootstrap forwards only epochs in which the model chose
// actions
type excludeBootstrap struct {
	Tracker
}

// ExcludeBootstrap returns a Tracker which ignores bootstrap epochs
func ExcludeBootstrap(t Tracker) Tracker {
	return &excludeBootstrap{t}
}

// Track calls Track() on the embedded Tracker unless the epoch is a
// bootstrap epoch
func (e *excludeBootstrap) Track(epoch Epoch) error {
	if epoch.Bootstrap {
		return nil
	}
	return e.Tracker.Track(epoch)
}
