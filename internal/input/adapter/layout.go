package adapter

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Errors returned by layout scheme loading.
var (
	// ErrUnknownControl indicates a scheme maps a code to an unrecognized
	// logical control name.
	ErrUnknownControl = errors.New("unknown control name")

	// ErrEmptyScheme indicates a scheme with no mappings.
	ErrEmptyScheme = errors.New("layout scheme has no mappings")
)

// Scheme maps device-specific control codes to logical controls. Analog
// codes deliver their raw magnitude; digital codes deliver 0 or 1.
type Scheme struct {
	// Name identifies the scheme, e.g. "dinput-default".
	Name string

	// mapping is device code -> logical control.
	mapping map[int]Control

	// analog marks codes whose values are continuous.
	analog map[int]bool
}

// schemeFile is the YAML form of a layout scheme.
type schemeFile struct {
	Name     string         `yaml:"name"`
	Mappings []mappingEntry `yaml:"mappings"`
}

type mappingEntry struct {
	Code    int    `yaml:"code"`
	Control string `yaml:"control"`
	Analog  bool   `yaml:"analog,omitempty"`
}

// ParseScheme parses a YAML layout scheme.
func ParseScheme(data []byte) (*Scheme, error) {
	var f schemeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing layout scheme: %w", err)
	}
	if len(f.Mappings) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyScheme, f.Name)
	}

	s := &Scheme{
		Name:    f.Name,
		mapping: make(map[int]Control, len(f.Mappings)),
		analog:  make(map[int]bool),
	}
	for _, m := range f.Mappings {
		control, ok := ControlFromName(m.Control)
		if !ok {
			return nil, fmt.Errorf("%w: %q (code %d)", ErrUnknownControl, m.Control, m.Code)
		}
		s.mapping[m.Code] = control
		if m.Analog {
			s.analog[m.Code] = true
		}
	}
	return s, nil
}

// LoadScheme reads and parses a YAML layout scheme file.
func LoadScheme(path string) (*Scheme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layout scheme %s: %w", path, err)
	}
	return ParseScheme(data)
}

// Resolve maps a device code to its logical control.
func (s *Scheme) Resolve(code int) (Control, bool) {
	c, ok := s.mapping[code]
	return c, ok
}

// IsAnalog reports whether the device code delivers continuous values.
func (s *Scheme) IsAnalog(code int) bool {
	return s.analog[code]
}

// DefaultScheme returns the built-in layout used when no scheme file is
// configured: a common dinput arrangement with analog triggers.
func DefaultScheme() *Scheme {
	return &Scheme{
		Name: "dinput-default",
		mapping: map[int]Control{
			6:  ControlTriggerPrimary,
			7:  ControlTriggerSecondary,
			0:  ControlFaceWest,
			1:  ControlFaceSouth,
			2:  ControlFaceEast,
			3:  ControlFaceNorth,
			8:  ControlSelect,
			9:  ControlStart,
			10: ControlDPadUp,
			11: ControlDPadRight,
			12: ControlDPadDown,
			13: ControlDPadLeft,
		},
		analog: map[int]bool{6: true, 7: true},
	}
}

// DeviceEvent is a raw reading from a device protocol: an opaque code plus
// a magnitude. Digital protocols report 0 or 1.
type DeviceEvent struct {
	Code  int
	Value float64
}

// MappedAdapter translates raw device events through a layout scheme. The
// host feeds events with Push; the engine drains them with Poll.
type MappedAdapter struct {
	scheme  *Scheme
	pending []Sample
	name    string
}

// NewMappedAdapter creates an adapter using the given scheme.
// A nil scheme falls back to the default layout.
func NewMappedAdapter(scheme *Scheme) *MappedAdapter {
	if scheme == nil {
		scheme = DefaultScheme()
	}
	return &MappedAdapter{
		scheme: scheme,
		name:   "mapped:" + scheme.Name,
	}
}

// Name identifies the adapter.
func (a *MappedAdapter) Name() string {
	return a.name
}

// Push translates a raw device event and queues it for the next Poll.
// Events whose code the scheme does not map are dropped. Digital values
// are clamped to exactly 0 or 1.
func (a *MappedAdapter) Push(ev DeviceEvent, at time.Time) {
	control, ok := a.scheme.Resolve(ev.Code)
	if !ok {
		return
	}
	value := ev.Value
	if !a.scheme.IsAnalog(ev.Code) {
		if value >= 0.5 {
			value = 1
		} else {
			value = 0
		}
	} else {
		if value < 0 {
			value = 0
		}
		if value > 1 {
			value = 1
		}
	}
	a.pending = append(a.pending, Sample{Control: control, Value: value, Timestamp: at})
}

// Poll returns the queued samples and clears the queue.
func (a *MappedAdapter) Poll(now time.Time) []Sample {
	out := a.pending
	a.pending = nil
	return out
}
