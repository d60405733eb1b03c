package palette

import (
	"fmt"
	"strconv"
	"strings"
)

// JobID is the canonical numeric identity of a job.
// Valid jobs are 1 through 22. The zero value is invalid.
type JobID int

const (
	// MinJobID is the lowest valid job id.
	MinJobID JobID = 1
	// MaxJobID is the highest valid job id.
	MaxJobID JobID = 22
)

// Valid returns true if the job id is in the supported range.
func (j JobID) Valid() bool {
	return j >= MinJobID && j <= MaxJobID
}

// String returns the canonical textual form, e.g. "j3".
func (j JobID) String() string {
	return "j" + strconv.Itoa(int(j))
}

// NormalizeJob converts any accepted job identifier representation into a
// canonical JobID. Accepted forms: JobID, int, int64, float64 (whole), and
// strings such as "3" or "j3". Every storage and lookup boundary must pass
// job identifiers through this function; storing both numeric and textual
// keys for the same job is a correctness defect.
func NormalizeJob(v any) (JobID, error) {
	var j JobID
	switch n := v.(type) {
	case JobID:
		j = n
	case int:
		j = JobID(n)
	case int64:
		j = JobID(n)
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("%w: non-integral job id %v", ErrInvalidJob, n)
		}
		j = JobID(n)
	case string:
		s := strings.TrimSpace(strings.ToLower(n))
		s = strings.TrimPrefix(s, "j")
		parsed, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidJob, n)
		}
		j = JobID(parsed)
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidJob, v)
	}

	if !j.Valid() {
		return 0, fmt.Errorf("%w: %d out of range", ErrInvalidJob, int(j))
	}
	return j, nil
}

// SubJobID identifies a subjob. SubJobShared (0) designates the job-level
// shared library; 1..22 are concrete subjobs.
type SubJobID int

// SubJobShared is the shared-library subjob scope.
const SubJobShared SubJobID = 0

// Valid returns true if the subjob id is shared or in the job range.
func (s SubJobID) Valid() bool {
	return s == SubJobShared || (JobID(s) >= MinJobID && JobID(s) <= MaxJobID)
}

// BarKind distinguishes the two bar families.
type BarKind uint8

const (
	// BarHotbar is one of the numbered horizontal hotbars.
	BarHotbar BarKind = iota
	// BarCrossbar is the controller-driven crossbar.
	BarCrossbar
)

// String returns a human-readable name for the bar kind.
func (k BarKind) String() string {
	switch k {
	case BarHotbar:
		return "hotbar"
	case BarCrossbar:
		return "crossbar"
	default:
		return fmt.Sprintf("BarKind(%d)", k)
	}
}

// MaxHotbars is the number of hotbar instances.
const MaxHotbars = 6

// BarType identifies a bar instance: a hotbar by index (1..6) or the
// crossbar. The crossbar addresses its slot banks by combo mode, which is
// encoded in the slot index space, not in the bar identity.
type BarType struct {
	Kind  BarKind
	Index int // hotbar index 1..6; unused for the crossbar
}

// Hotbar returns the BarType for the numbered hotbar.
func Hotbar(index int) BarType {
	return BarType{Kind: BarHotbar, Index: index}
}

// Crossbar returns the BarType for the crossbar.
func Crossbar() BarType {
	return BarType{Kind: BarCrossbar}
}

// Valid returns true if the bar identity is well formed.
func (b BarType) Valid() bool {
	switch b.Kind {
	case BarHotbar:
		return b.Index >= 1 && b.Index <= MaxHotbars
	case BarCrossbar:
		return true
	default:
		return false
	}
}

// String returns a display name such as "hotbar1" or "crossbar".
func (b BarType) String() string {
	if b.Kind == BarHotbar {
		return fmt.Sprintf("hotbar%d", b.Index)
	}
	return b.Kind.String()
}

// PaletteKey returns the storage key for palette scoping. All six hotbars
// share a single palette set, so the hotbar index is folded away; setting
// the active palette through any hotbar applies to all of them.
func (b BarType) PaletteKey() string {
	return b.Kind.String()
}

// Scope is the composite key under which palettes are stored.
type Scope struct {
	Bar    BarType
	Job    JobID
	SubJob SubJobID
}

// NewScope builds a scope from its parts.
func NewScope(bar BarType, job JobID, sub SubJobID) Scope {
	return Scope{Bar: bar, Job: job, SubJob: sub}
}

// Valid returns true if all scope components are well formed.
func (s Scope) Valid() bool {
	return s.Bar.Valid() && s.Job.Valid() && s.SubJob.Valid()
}

// IsShared returns true if this is a job-level shared-library scope.
func (s Scope) IsShared() bool {
	return s.SubJob == SubJobShared
}

// Shared returns the shared-library scope for the same bar and job.
// A shared scope returns itself.
func (s Scope) Shared() Scope {
	s.SubJob = SubJobShared
	return s
}

// Key returns the canonical map key for this scope.
func (s Scope) Key() string {
	return fmt.Sprintf("%s/%s/s%d", s.Bar.PaletteKey(), s.Job, int(s.SubJob))
}

// String returns a human-readable form of the scope.
func (s Scope) String() string {
	return fmt.Sprintf("%s %s sub%d", s.Bar, s.Job, int(s.SubJob))
}
