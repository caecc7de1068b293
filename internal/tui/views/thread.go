package views

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/ignaciov/matechat/internal/wire"
)

// Thread displays the message window for the active chat. It keeps its own
// line count so the scroll controller can reason about content height
// without re-measuring the rendered text.
type Thread struct {
	*tview.TextView
	chatName  string
	lineCount int
	onScroll  func()
}

// NewThread creates a new message thread view.
func NewThread() *Thread {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(false)
	tv.SetBorder(true).SetTitle(" Messages ")

	th := &Thread{TextView: tv}

	tv.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyUp, tcell.KeyPgUp, tcell.KeyHome:
			if th.onScroll != nil {
				th.onScroll()
			}
		case tcell.KeyRune:
			if event.Rune() == 'k' && th.onScroll != nil {
				th.onScroll()
			}
		}
		return event
	})

	return th
}

// SetOnScroll sets the callback invoked on upward scroll input. The
// controller uses it to request older history at the top edge.
func (th *Thread) SetOnScroll(fn func()) {
	th.onScroll = fn
}

// SetChatName updates the title with the chat name.
func (th *Thread) SetChatName(name string) {
	th.chatName = name
	th.SetTitle(fmt.Sprintf(" %s ", sanitizeForTerminal(name)))
}

// Update rerenders the thread. Messages arrive oldest first and are
// rendered top to bottom; the caller owns scroll positioning.
func (th *Thread) Update(msgs []wire.Message, loadingOlder bool) {
	th.Clear()
	th.lineCount = 0

	if loadingOlder {
		th.writeLine("[::d]loading older messages...[-:-:-]")
	}

	for _, m := range msgs {
		sender := "Them"
		if m.FromMe {
			sender = "You"
		}
		th.writeLine(fmt.Sprintf("[::b]%s[-:-:-] [::d]%s[-:-:-]", sender, formatTimestamp(m.Timestamp)))
		body := m.Body
		if m.Kind != "" && m.Kind != wire.KindText {
			body = fmt.Sprintf("[%s] %s", m.Kind, body)
		}
		for _, line := range strings.Split(sanitizeForTerminal(body), "\n") {
			th.writeLine(line)
		}
		th.writeLine("")
	}
}

func (th *Thread) writeLine(s string) {
	_, _ = fmt.Fprintln(th, s)
	th.lineCount++
}

// ContentHeight implements scroll.Viewport.
func (th *Thread) ContentHeight() int { return th.lineCount }

// ViewportHeight implements scroll.Viewport.
func (th *Thread) ViewportHeight() int {
	_, _, _, h := th.GetInnerRect()
	return h
}

// Offset implements scroll.Viewport.
func (th *Thread) Offset() int {
	row, _ := th.GetScrollOffset()
	return row
}

// SetOffset implements scroll.Viewport.
func (th *Thread) SetOffset(offset int) {
	th.ScrollTo(offset, 0)
}

// ScrollToEnd implements scroll.Viewport, shadowing the embedded method
// whose builder-style return value does not fit the interface.
func (th *Thread) ScrollToEnd() {
	th.TextView.ScrollToEnd()
}
