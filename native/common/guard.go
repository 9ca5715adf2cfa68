package common

import (
	"errors"
	"fmt"
	"strings"
)

// ErrModulePaused rejects mutating calls into a module the administrator has
// paused.
var ErrModulePaused = errors.New("module paused")

// PauseView answers whether a module is currently paused.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard fails with ErrModulePaused when module is paused in p. A nil view or
// an unnamed module is never paused.
func Guard(p PauseView, module string) error {
	module = strings.TrimSpace(module)
	if p == nil || module == "" || !p.IsPaused(module) {
		return nil
	}
	return fmt.Errorf("%s: %w", module, ErrModulePaused)
}
