// Package status implements the status-kind taxonomy every fallible
// operation in keelson returns (spec §7): Ok, NotFound, Corruption,
// NotSupported, InvalidArgument, IOError. NotFound is a normal lookup
// result, never constructed as an "error" in the exceptional sense; the
// other four kinds mark a sticky failure that the caller must propagate.
//
// Kind equality survives arbitrary %w-wrapping via errors.Is, the way
// pebble marks background errors with a sentinel and recovers the sentinel
// later (see recovery.go's errors.Mark(err, ErrCorruption) in the pack).
package status

import "github.com/cockroachdb/errors"

// Kind classifies a status value. The zero Kind is Ok.
type Kind int

const (
	Ok Kind = iota
	NotFound
	Corruption
	NotSupported
	InvalidArgument
	IOError
)

func (k Kind) String() string {
	switch k {
	case Ok:
		return "OK"
	case NotFound:
		return "NotFound"
	case Corruption:
		return "Corruption"
	case NotSupported:
		return "NotSupported"
	case InvalidArgument:
		return "InvalidArgument"
	case IOError:
		return "IOError"
	default:
		return "Unknown"
	}
}

// sentinels are the markers errors.Mark attaches to every status error of a
// given kind, and the targets errors.Is checks against.
var sentinels = map[Kind]error{
	NotFound:        errors.New("keelson: not found"),
	Corruption:      errors.New("keelson: corruption"),
	NotSupported:    errors.New("keelson: not supported"),
	InvalidArgument: errors.New("keelson: invalid argument"),
	IOError:         errors.New("keelson: I/O error"),
}

// New constructs an error of the given kind with a formatted message. Kind
// must not be Ok; a "no error" status is represented as a nil error, not as
// a status.New(Ok, ...) value, per spec §7's "NotFound is a normal result of
// lookups, not an error" — callers test for NotFound with status.Is, not by
// inspecting a non-nil Ok value.
func New(kind Kind, format string, args ...interface{}) error {
	sentinel, ok := sentinels[kind]
	if !ok {
		panic("status: New called with Ok or unknown kind")
	}
	return errors.Mark(errors.Newf(format, args...), sentinel)
}

// Wrap attaches kind to an existing error, preserving its message and
// wrapped chain. Used at I/O boundaries where the underlying error (e.g. an
// *os.PathError) should remain inspectable via errors.As while still being
// classifiable by kind.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	sentinel, ok := sentinels[kind]
	if !ok {
		panic("status: Wrap called with Ok or unknown kind")
	}
	return errors.Mark(err, sentinel)
}

// Is reports whether err is a status of the given kind, unwrapping through
// any number of intermediate %w wraps or multierror aggregation.
func Is(err error, kind Kind) bool {
	if err == nil {
		return kind == Ok
	}
	sentinel, ok := sentinels[kind]
	if !ok {
		return false
	}
	return errors.Is(err, sentinel)
}

// KindOf returns the Kind of err, or Ok if err is nil, or IOError if err is
// non-nil but carries no recognized sentinel (an uncategorized failure is
// treated as an I/O-layer surprise rather than silently swallowed).
func KindOf(err error) Kind {
	if err == nil {
		return Ok
	}
	for _, kind := range []Kind{NotFound, Corruption, NotSupported, InvalidArgument} {
		if Is(err, kind) {
			return kind
		}
	}
	return IOError
}
