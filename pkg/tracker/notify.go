package tracker

// Signal is the one-shot event sent to the controller for a transition.
type Signal string

const (
	SunriseOccurred Signal = "sunrise-occurred"
	SunsetOccurred  Signal = "sunset-occurred"
)

// Command is the node command reported to the controller for s.
func (s Signal) Command() string {
	switch s {
	case SunriseOccurred:
		return "DOF"
	case SunsetOccurred:
		return "DON"
	}
	return ""
}

// SignalFor maps a transition to its signal. None has no signal.
func SignalFor(t Transition) (Signal, bool) {
	switch t {
	case Sunrise:
		return SunriseOccurred, true
	case Sunset:
		return SunsetOccurred, true
	}
	return "", false
}

// Reporter delivers signals to the controller.
type Reporter interface {
	ReportSignal(s Signal) error
}

// Notifier turns refresh reports into signals.
type Notifier struct {
	Reporter Reporter
}

// Notify sends at most one signal for r. It reports whether one was sent.
func (n Notifier) Notify(r Report) (bool, error) {
	sig, ok := SignalFor(r.Transition)
	if !ok {
		return false, nil
	}
	if err := n.Reporter.ReportSignal(sig); err != nil {
		return false, err
	}
	return true, nil
}
