//go:build systray

package tray

import (
	"context"

	"github.com/getlantern/systray"
)

type Systray struct {
	Title   string
	Actions Actions
}

func New(title string, actions Actions) App {
	return &Systray{Title: title, Actions: actions}
}

func (s *Systray) Run(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(func() {
		systray.SetTitle(s.Title)
		systray.SetTooltip("SmartEvent Bridge")
		mReload := systray.AddMenuItem("Reload events", "Fetch the event list again")
		systray.AddSeparator()
		mQuit := systray.AddMenuItem("Quit", "Quit SmartEvent Bridge")
		go func() {
			for {
				select {
				case <-mReload.ClickedCh:
					s.Actions.reload()
				case <-mQuit.ClickedCh:
					s.Actions.quit()
					systray.Quit()
					return
				case <-done:
					return
				}
			}
		}()
	}, func() {
		close(done)
	})
	<-done
	return nil
}
