package tray

import "context"

type App interface {
	Run(ctx context.Context) error
}

// Actions are the callbacks behind the tray menu entries.
type Actions struct {
	Reload func()
	Quit   func()
}

func (a Actions) reload() {
	if a.Reload != nil {
		a.Reload()
	}
}

func (a Actions) quit() {
	if a.Quit != nil {
		a.Quit()
	}
}

// Noop blocks until ctx is done. It stands in when the tray is disabled or
// the binary was built without the systray tag.
type Noop struct{}

func NewNoop() App { return Noop{} }

func (Noop) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}
