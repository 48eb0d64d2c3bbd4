package vm

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownModule   = errors.New("vm: unknown module")
	ErrModuleExists    = errors.New("vm: module already registered")
	ErrModuleNil       = errors.New("vm: module is nil")
	ErrInvalidModuleID = errors.New("vm: invalid module id")
	ErrLifecycleOrder  = errors.New("vm: invalid lifecycle transition")
	ErrInvalidConfig   = errors.New("vm: invalid config")
)

// LifecyclePhase describes VM lifecycle transitions.
type LifecyclePhase string

const (
	PhaseBoot        LifecyclePhase = "boot"
	PhaseInitialized LifecyclePhase = "initialized"
	PhaseShutdown    LifecyclePhase = "shutdown"
)

func transitionError(from, to LifecyclePhase) error {
	return fmt.Errorf("%w: %s -> %s", ErrLifecycleOrder, from, to)
}

func phaseError(op string, phase LifecyclePhase) error {
	return fmt.Errorf("%w: %s in phase %s", ErrLifecycleOrder, op, phase)
}
