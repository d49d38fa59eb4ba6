package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/parleychat/parley/pkg/chat"
	"github.com/parleychat/parley/pkg/consumer"
	"github.com/parleychat/parley/pkg/debounce"
	"github.com/parleychat/parley/pkg/logger"
	"github.com/parleychat/parley/pkg/store"
)

// refreshEvent asks the event loop to redraw after a store mutation.
// status carries error text from send goroutines into the loop; the
// status field itself is only ever touched on the event-loop goroutine.
type refreshEvent struct {
	when   time.Time
	status string
}

func (e *refreshEvent) When() time.Time {
	return e.when
}

// App is the interactive chat screen: scrollback on top, one input line
// at the bottom. Send is disabled while the active session has a
// generation in flight.
type App struct {
	screen    tcell.Screen
	store     *store.Store
	consumer  *consumer.Consumer
	formatter *Formatter

	input  []rune
	status string
}

func NewApp(st *store.Store, cons *consumer.Consumer) *App {
	return &App{
		store:     st,
		consumer:  cons,
		formatter: NewFormatter(),
	}
}

// Run owns the terminal until quit (Esc or Ctrl+C).
func (a *App) Run(ctx context.Context) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	return a.run(ctx, screen)
}

func (a *App) run(ctx context.Context, screen tcell.Screen) error {
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to init screen: %w", err)
	}
	a.screen = screen
	defer screen.Fini()

	// Redraw whenever the store mutates. Streaming produces a mutation
	// per delta, so redraws are debounced; the trailing edge guarantees
	// the final state always lands on screen.
	refresh := debounce.NewDebounced(func(...any) {
		_ = screen.PostEvent(&refreshEvent{when: time.Now()})
	}, 16*time.Millisecond)
	defer refresh.Stop()

	a.store.Subscribe(func(store.Event) {
		refresh.Call()
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.ensureSession()
	a.draw()

	for {
		switch ev := screen.PollEvent().(type) {
		case *tcell.EventResize:
			screen.Sync()
			a.draw()
		case *refreshEvent:
			if ev.status != "" {
				a.status = ev.status
			}
			a.draw()
		case *tcell.EventKey:
			if a.handleKey(ctx, ev) {
				return nil
			}
			a.draw()
		case nil:
			return nil
		}
	}
}

func (a *App) ensureSession() {
	if _, ok := a.store.CurrentSession(); ok {
		return
	}
	sess := a.store.CreateSession(a.store.CurrentModel(), "")
	if err := a.store.SelectSession(sess.ID); err != nil {
		logger.Error("failed to select fresh session: %v", err)
	}
}

// handleKey returns true when the app should exit.
func (a *App) handleKey(ctx context.Context, ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyEnter:
		a.submit(ctx)
	case tcell.KeyCtrlR:
		a.regenerate(ctx)
	case tcell.KeyCtrlN:
		sess := a.store.CreateSession(a.store.CurrentModel(), "")
		if err := a.store.SelectSession(sess.ID); err != nil {
			a.status = err.Error()
		}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(a.input) > 0 {
			a.input = a.input[:len(a.input)-1]
		}
	case tcell.KeyRune:
		a.input = append(a.input, ev.Rune())
	}
	return false
}

func (a *App) submit(ctx context.Context) {
	text := string(a.input)
	if text == "" {
		return
	}

	sessionID := a.store.CurrentSessionID()
	if sessionID == "" || a.store.Generating(sessionID) {
		return
	}

	a.input = a.input[:0]
	a.status = ""

	go func() {
		if err := a.consumer.Send(ctx, sessionID, text, chat.SendOptions{}); err != nil {
			logger.Error("send failed: %v", err)
			_ = a.screen.PostEvent(&refreshEvent{when: time.Now(), status: err.Error()})
		}
	}()
}

func (a *App) regenerate(ctx context.Context) {
	sessionID := a.store.CurrentSessionID()
	if sessionID == "" || a.store.Generating(sessionID) {
		return
	}

	a.status = ""
	go func() {
		if err := a.consumer.Regenerate(ctx, sessionID, chat.SendOptions{}); err != nil {
			logger.Error("regenerate failed: %v", err)
			_ = a.screen.PostEvent(&refreshEvent{when: time.Now(), status: err.Error()})
		}
	}()
}

func (a *App) draw() {
	a.screen.Clear()
	width, height := a.screen.Size()
	if height < 3 {
		a.screen.Show()
		return
	}

	sess, ok := a.store.CurrentSession()

	// Header
	title := "parley"
	if ok {
		label := sess.Title
		if label == "" {
			label = shortID(sess.ID)
		}
		title = fmt.Sprintf("parley | %s (%s, %d messages)", label, sess.Model, sess.Count())
		if a.store.Generating(sess.ID) {
			title += " …"
		}
	}
	a.drawLine(0, title, tcell.StyleDefault.Foreground(tcell.ColorGold))

	// Scrollback, bottom-aligned above the input line
	if ok {
		lines := make([]string, 0, 64)
		for _, msg := range sess.Messages {
			lines = append(lines, a.formatter.Render(msg)...)
		}

		visible := height - 3
		start := 0
		if len(lines) > visible {
			start = len(lines) - visible
		}
		row := 1
		for _, line := range lines[start:] {
			a.drawLine(row, line, tcell.StyleDefault)
			row++
		}
	}

	// Status + input
	if a.status != "" {
		a.drawLine(height-2, a.status, tcell.StyleDefault.Foreground(tcell.ColorTomato))
	}
	prompt := "> " + string(a.input)
	a.drawLine(height-1, prompt, tcell.StyleDefault.Foreground(tcell.ColorWhite))
	if len(prompt) < width {
		a.screen.ShowCursor(len(prompt), height-1)
	}

	a.screen.Show()
}

// shortID abbreviates an id for display. Ids restored from snapshots or
// another backend are not guaranteed to be UUID length.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (a *App) drawLine(row int, text string, style tcell.Style) {
	width, _ := a.screen.Size()
	col := 0
	for _, r := range text {
		if col >= width {
			break
		}
		a.screen.SetContent(col, row, r, nil, style)
		col++
	}
}
