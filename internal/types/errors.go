package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for datagrid operations.
var (
	// ErrUnknownColumn indicates a column path segment does not exist on the record type.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrUnsupportedCompareVerb indicates a compare verb missing from the verb registry.
	ErrUnsupportedCompareVerb = errors.New("unsupported compare verb")

	// ErrUnsupportedRecordType indicates a record type that cannot carry named columns.
	ErrUnsupportedRecordType = errors.New("unsupported record type")

	// ErrCacheMiss indicates a fingerprint with no live cache entry.
	ErrCacheMiss = errors.New("cache miss")

	// ErrNoColumns indicates a request without any declared column.
	ErrNoColumns = errors.New("request declares no columns")
)

// UnknownColumnError reports a column path that cannot be resolved against a type.
// Raised while compiling, never after partial traversal of a record.
type UnknownColumnError struct {
	Type    string // record type the path was resolved against
	Column  string // full column path as requested
	Segment string // first segment that failed to resolve
}

func (e *UnknownColumnError) Error() string {
	if e.Segment == "" || e.Segment == e.Column {
		return fmt.Sprintf("unknown column %q on %s", e.Column, e.Type)
	}
	return fmt.Sprintf("unknown column %q on %s: no property %q", e.Column, e.Type, e.Segment)
}

// Is lets errors.Is match ErrUnknownColumn.
func (e *UnknownColumnError) Is(target error) bool {
	return target == ErrUnknownColumn
}

// UnsupportedCompareVerbError reports a compare verb absent from the registry.
type UnsupportedCompareVerbError struct {
	Verb string
}

func (e *UnsupportedCompareVerbError) Error() string {
	return fmt.Sprintf("unsupported compare verb %q", e.Verb)
}

// Is lets errors.Is match ErrUnsupportedCompareVerb.
func (e *UnsupportedCompareVerbError) Is(target error) bool {
	return target == ErrUnsupportedCompareVerb
}
