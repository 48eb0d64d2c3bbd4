package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownChannel    = errors.New("protocol: unknown channel")
	ErrProtocolViolation = errors.New("protocol: violation")
)

// Violation reports a broken producer/consumer contract. Offsets inside a
// log cannot be trusted after one, so it is raised with panic rather than
// returned.
type Violation struct {
	Op     string
	Reason string
}

func (v Violation) Error() string {
	return fmt.Sprintf("protocol: violation in %s: %s", v.Op, v.Reason)
}

func (v Violation) Is(target error) bool {
	return target == ErrProtocolViolation
}

// Violatef panics with a Violation for op.
func Violatef(op, format string, args ...any) {
	panic(Violation{Op: op, Reason: fmt.Sprintf(format, args...)})
}
