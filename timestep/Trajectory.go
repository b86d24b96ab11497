package timestep

// Trajectory is the ordered sequence of Steps taken in a single epoch.
// Once finalized, only the last Step is terminal.
type Trajectory struct {
	steps []Step
}

// NewTrajectory returns a new, empty Trajectory
func NewTrajectory() *Trajectory {
	return &Trajectory{}
}

// Append adds a step to the end of the trajectory. The first step
// appended is marked First and all others Mid, regardless of the
// step's StepType.
func (t *Trajectory) Append(s Step) {
	if len(t.steps) == 0 {
		s.StepType = First
	} else {
		s.StepType = Mid
	}
	t.steps = append(t.steps, s)
}

// Finalize marks the last step of the trajectory as terminal. It has
// no effect on an empty trajectory.
func (t *Trajectory) Finalize() {
	if len(t.steps) == 0 {
		return
	}
	t.steps[len(t.steps)-1].StepType = Last
}

// Len returns the number of steps in the trajectory
func (t *Trajectory) Len() int {
	return len(t.steps)
}

// At returns the step at index i
func (t *Trajectory) At(i int) Step {
	return t.steps[i]
}

// Steps returns the steps of the trajectory in order
func (t *Trajectory) Steps() []Step {
	return t.steps
}

// IsNotTerminal returns, for each step, 0 if the step is terminal and
// 1 otherwise
func (t *Trajectory) IsNotTerminal() []float64 {
	out := make([]float64, len(t.steps))
	for i := range t.steps {
		out[i] = t.steps[i].NotTerminal()
	}
	return out
}

// Return returns the sum of rewards over the trajectory
func (t *Trajectory) Return() float64 {
	total := 0.0
	for i := range t.steps {
		total += t.steps[i].Reward
	}
	return total
}
