package assembler

import (
	"strings"
	"time"
)

// FragmentList is the ordered list of shared fragment paths. Later fragments
// may depend on identifiers defined by earlier ones, so the order is kept
// exactly as configured.
type FragmentList []string

// Naming controls how variant identifiers map to output names.
type Naming struct {
	// Extension is the fragment extension, including the leading dot.
	Extension string
	// Suffix is inserted between the variant name and the extension.
	Suffix string
}

// DefaultNaming matches the Apps Script layout: Foo.gs -> Foo_standalone.gs.
func DefaultNaming() Naming {
	return Naming{Extension: ".gs", Suffix: "_standalone"}
}

// Matches reports whether id carries the fragment extension.
func (n Naming) Matches(id string) bool {
	return len(id) > len(n.Extension) && strings.HasSuffix(id, n.Extension)
}

// Variant is one discovered variant fragment and its derived output identity.
type Variant struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	OutputName string `json:"output_name" yaml:"output_name"`
}

// DeriveVariant computes the variant name and output name for id. It depends
// on nothing but its arguments.
func DeriveVariant(id string, n Naming) Variant {
	name := strings.TrimSuffix(id, n.Extension)
	return Variant{
		ID:         id,
		Name:       name,
		OutputName: name + n.Suffix + n.Extension,
	}
}

// BuildMetadata is stamped into every header produced by a run.
type BuildMetadata struct {
	Version   string
	Timestamp time.Time
}

// TimestampLayout renders build timestamps as ISO 8601 UTC with milliseconds.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// BuiltAt returns the formatted build timestamp.
func (m BuildMetadata) BuiltAt() string {
	return m.Timestamp.UTC().Format(TimestampLayout)
}

// Clock supplies the build timestamp.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock time.Time

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return time.Time(c) }

// NewMetadata stamps version with a single reading of clock. The same
// metadata is then shared by every variant in the run.
func NewMetadata(version string, clock Clock) BuildMetadata {
	if clock == nil {
		clock = SystemClock{}
	}
	return BuildMetadata{Version: version, Timestamp: clock.Now()}
}
