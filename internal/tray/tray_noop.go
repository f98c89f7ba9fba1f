//go:build !systray

package tray

// New returns Noop; build with -tags systray for a menu bar icon.
func New(string, Actions) App { return NewNoop() }
