package scapsrc

import "fmt"

func (e *Element) Settings() Settings {
	e.settingsMu.Lock()
	defer e.settingsMu.Unlock()
	return e.settings
}

// SetSettings replaces all properties at once.
func (e *Element) SetSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	e.settingsMu.Lock()
	old := e.settings
	e.settings = s
	e.settingsMu.Unlock()

	if old != s {
		e.log.Debug("scapsrc: settings replaced", "old", old, "new", s)
		e.noteDeferred()
	}
	return nil
}

// Property reads a property by name.
func (e *Element) Property(name string) (any, error) {
	if _, ok := e.descriptor.Property(name); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProperty, name)
	}
	e.settingsMu.Lock()
	defer e.settingsMu.Unlock()
	return e.settings.get(name)
}

// SetProperty writes a property by name. The value is converted to the
// property type, so "30", 30 and uint32(30) all set fps.
func (e *Element) SetProperty(name string, value any) error {
	if _, ok := e.descriptor.Property(name); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProperty, name)
	}

	e.settingsMu.Lock()
	old, err := e.settings.set(name, value)
	current, _ := e.settings.get(name)
	e.settingsMu.Unlock()
	if err != nil {
		return err
	}

	e.log.Debug("scapsrc: property changed", "property", name, "old", old, "new", current)
	e.noteDeferred()
	return nil
}

func (e *Element) noteDeferred() {
	if s := e.State(); s >= StatePaused {
		e.log.Info("scapsrc: property change takes effect on the next start", "state", s.String())
	}
}

func (e *Element) FPS() uint32 {
	return e.Settings().FPS
}

func (e *Element) SetFPS(fps uint32) error {
	return e.SetProperty(PropFPS, fps)
}

func (e *Element) ShowCursor() bool {
	return e.Settings().ShowCursor
}

func (e *Element) SetShowCursor(show bool) error {
	return e.SetProperty(PropShowCursor, show)
}

func (e *Element) PerformInternalPreroll() bool {
	return e.Settings().PerformInternalPreroll
}

func (e *Element) SetPerformInternalPreroll(preroll bool) error {
	return e.SetProperty(PropPerformInternalPreroll, preroll)
}
