package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedRecord marks a player or village record with a missing or
// non-numeric id, coordinate or population field.
var ErrMalformedRecord = errors.New("malformed record")

// RecordError identifies the offending record of a malformed snapshot.
// Zero ids mean the id was not known when the problem was found.
type RecordError struct {
	World     string
	PlayerID  int64
	VillageID int64
	Field     string
	Value     string
}

func (e *RecordError) Error() string {
	var b strings.Builder
	b.WriteString(ErrMalformedRecord.Error())
	if e.World != "" {
		fmt.Fprintf(&b, ": world %s", e.World)
	}
	if e.PlayerID != 0 {
		fmt.Fprintf(&b, ", player %d", e.PlayerID)
	}
	if e.VillageID != 0 {
		fmt.Fprintf(&b, ", village %d", e.VillageID)
	}
	fmt.Fprintf(&b, ": field %q has invalid value %q", e.Field, e.Value)
	return b.String()
}

// Unwrap lets callers match the error with errors.Is(err, ErrMalformedRecord).
func (e *RecordError) Unwrap() error { return ErrMalformedRecord }
