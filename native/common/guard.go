package common

import (
	"errors"
	"fmt"
)

// ErrModulePaused is returned by every mutating engine call while its module
// is paused.
var ErrModulePaused = errors.New("module paused")

// PauseView reports the operator pause toggles.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard fails with ErrModulePaused when module is paused. A nil view never
// pauses.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" || !p.IsPaused(module) {
		return nil
	}
	return fmt.Errorf("%s: %w", module, ErrModulePaused)
}

// StaticPauses is a fixed PauseView for tests and simulations.
type StaticPauses map[string]bool

// IsPaused implements PauseView.
func (s StaticPauses) IsPaused(module string) bool { return s[module] }
