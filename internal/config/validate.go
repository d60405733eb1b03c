package config

// Validate checks the settings tree. The first failure is returned; a nil
// result means every component constructor can trust its section.
func (s Settings) Validate() error {
	switch s.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Field: "log.level", Message: "must be debug, info, warn or error", Value: s.Log.Level}
	}

	t := s.Triggers
	if t.PressThreshold <= 0 || t.PressThreshold > 1 {
		return &ValidationError{Field: "triggers.press_threshold", Message: "must be in (0, 1]", Value: t.PressThreshold}
	}
	if t.ReleaseThreshold < 0 || t.ReleaseThreshold > 1 {
		return &ValidationError{Field: "triggers.release_threshold", Message: "must be in [0, 1]", Value: t.ReleaseThreshold}
	}
	if !t.Digital && t.ReleaseThreshold >= t.PressThreshold {
		return &ValidationError{Field: "triggers.release_threshold", Message: "must be below press_threshold", Value: t.ReleaseThreshold}
	}
	if t.MinHoldMS < 0 {
		return &ValidationError{Field: "triggers.min_hold_ms", Message: "must be non-negative", Value: t.MinHoldMS}
	}
	if t.DoubleTapWindowMS <= 0 {
		return &ValidationError{Field: "triggers.double_tap_window_ms", Message: "must be positive", Value: t.DoubleTapWindowMS}
	}
	// A hold requirement at or above the window makes double-taps
	// impossible; rejected here so it never becomes a runtime mystery.
	if t.MinHoldMS >= t.DoubleTapWindowMS {
		return &ValidationError{Field: "triggers.min_hold_ms", Message: "must be below double_tap_window_ms", Value: t.MinHoldMS}
	}

	h := s.Hotbars
	if h.Capacity < 1 || h.Capacity > 12 {
		return &ValidationError{Field: "hotbars.capacity", Message: "must be 1..12", Value: h.Capacity}
	}
	if len(h.Enabled) > 6 {
		return &ValidationError{Field: "hotbars.enabled", Message: "at most 6 hotbars", Value: len(h.Enabled)}
	}

	if s.Crossbar.SharedExpanded && !s.Crossbar.Expanded {
		return &ValidationError{Field: "crossbar.shared_expanded", Message: "requires crossbar.expanded", Value: true}
	}

	return nil
}
