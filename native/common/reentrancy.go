package common

// ReentrancyGuard is a held/free flag shared by every mutating entry point.
// It is ledger state, not a lock: a nested call on the same goroutine is
// rejected instead of blocking.
type ReentrancyGuard struct {
	held bool
}

// Enter claims the guard. It fails with ErrReentrantCall when the guard is
// already held.
func (g *ReentrancyGuard) Enter() error {
	if g.held {
		return ErrReentrantCall
	}
	g.held = true
	return nil
}

// Exit releases the guard.
func (g *ReentrancyGuard) Exit() { g.held = false }

// Held reports whether a mutating call is in progress.
func (g *ReentrancyGuard) Held() bool { return g.held }
