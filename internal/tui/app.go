// Package tui is the terminal front end. All state lives in the engine
// packages; the views render bus-driven snapshots and push user intent
// back through the engine APIs.
package tui

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/google/uuid"
	"github.com/rivo/tview"

	"github.com/ignaciov/matechat/internal/bus"
	"github.com/ignaciov/matechat/internal/conn"
	"github.com/ignaciov/matechat/internal/label"
	"github.com/ignaciov/matechat/internal/roster"
	"github.com/ignaciov/matechat/internal/scroll"
	"github.com/ignaciov/matechat/internal/store"
	"github.com/ignaciov/matechat/internal/tui/views"
	"github.com/ignaciov/matechat/internal/window"
	"github.com/ignaciov/matechat/internal/wire"
)

// Deps are the engine components the TUI renders.
type Deps struct {
	SessionName     string
	BottomThreshold int

	Bus      *bus.Bus
	Manager  *conn.Manager
	Registry *roster.Registry
	Window   *window.Window
	Labels   *label.Channel
	DB       *store.DB
}

// App is the main TUI application shell.
type App struct {
	app   *tview.Application
	pages *tview.Pages
	deps  Deps

	statusBar *views.StatusBar
	chatList  *views.ChatList
	thread    *views.Thread
	composer  *views.Composer
	pairing   *views.PairingView
	labelPick *views.LabelPicker
	ctrl      *scroll.Controller

	// UI-thread state, touched only inside QueueUpdateDraw callbacks.
	activeChat      string
	awaitingInitial bool
	pendingPrepend  bool
	lastCount       int

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(deps Deps) *App {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:       tview.NewApplication(),
		pages:     tview.NewPages(),
		deps:      deps,
		statusBar: views.NewStatusBar(),
		chatList:  views.NewChatList(),
		thread:    views.NewThread(),
		composer:  views.NewComposer(),
		pairing:   views.NewPairingView(),
		labelPick: views.NewLabelPicker(),
		ctx:       ctx,
		cancel:    cancel,
	}
	a.ctrl = scroll.NewController(a.thread, deps.BottomThreshold, deps.Window.LoadOlder)

	a.statusBar.SetSession(deps.SessionName)
	a.statusBar.SetState(string(deps.Manager.State()))
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupCallbacks() {
	a.chatList.SetSelectedFunc(func(row, col int) {
		if id := a.chatList.SelectedChat(); id != "" {
			a.openChat(id)
		}
	})

	a.thread.SetOnScroll(a.ctrl.OnScroll)

	a.composer.SetOnSend(func(text string) {
		chatID := a.activeChat
		if chatID == "" {
			return
		}
		go func() {
			clientMsgID := uuid.New().String()
			err := a.deps.DB.QueueOutbox(clientMsgID, chatID, text)
			a.app.QueueUpdateDraw(func() {
				if err != nil {
					a.statusBar.SetFlash("Send failed: " + err.Error())
					return
				}
				a.statusBar.SetFlash("Queued")
			})
		}()
	})

	a.labelPick.SetOnAssign(func(labelID string) {
		if a.activeChat != "" {
			a.deps.Labels.Assign(a.activeChat, labelID)
			a.statusBar.SetFlash("Label update sent")
		}
	})
	a.labelPick.SetOnUnassign(func(labelID string) {
		if a.activeChat != "" {
			a.deps.Labels.Unassign(a.activeChat, labelID)
			a.statusBar.SetFlash("Label update sent")
		}
	})
}

func (a *App) setupLayout() {
	chatFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.thread, 0, 1, false).
		AddItem(a.composer, 1, 0, false)

	a.pages.AddPage("chats", a.chatList, true, true)
	a.pages.AddPage("chat", chatFlex, true, false)
	a.pages.AddPage("labels", a.labelPick, true, false)
	a.pages.AddPage("pairing", a.pairing, true, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(root, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		currentPage, _ := a.pages.GetFrontPage()

		if event.Key() == tcell.KeyEscape {
			switch currentPage {
			case "chat":
				a.pages.SwitchToPage("chats")
				a.app.SetFocus(a.chatList)
				return nil
			case "labels":
				a.pages.SwitchToPage("chat")
				a.app.SetFocus(a.thread)
				return nil
			}
		}

		// Let text input widgets handle all keys normally.
		focused := a.app.GetFocus()
		if _, ok := focused.(*tview.InputField); ok {
			return event
		}

		if event.Key() == tcell.KeyRune {
			switch {
			case event.Rune() == 'q':
				a.app.Stop()
				return nil
			case currentPage == "chat" && event.Rune() == 'i':
				a.app.SetFocus(a.composer.InputField)
				return nil
			case currentPage == "chat" && event.Rune() == 'l':
				a.showLabelPicker()
				return nil
			}
		}

		return event
	})
}

func (a *App) openChat(chatID string) {
	a.activeChat = chatID
	a.lastCount = 0
	a.pendingPrepend = false

	name := chatID
	if chat, ok := a.deps.Registry.Chat(chatID); ok && chat.Name != "" {
		name = chat.Name
	}
	a.thread.SetChatName(name)
	a.pages.SwitchToPage("chat")
	a.app.SetFocus(a.thread)

	a.deps.Window.Select(chatID)
}

func (a *App) showLabelPicker() {
	a.labelPick.Update(a.deps.Registry.Catalog(), a.deps.Registry.LabelsFor(a.activeChat))
	a.pages.SwitchToPage("labels")
	a.app.SetFocus(a.labelPick)
}

// Run starts the TUI application.
func (a *App) Run() error {
	a.warmStart()
	go a.eventLoop()
	go a.clockLoop()
	return a.app.Run()
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

// warmStart seeds the chat list from the local cache so a relaunch shows
// the previous roster before the gateway's first snapshot arrives.
func (a *App) warmStart() {
	cached, err := a.deps.DB.ListChats(500)
	if err != nil || len(cached) == 0 {
		return
	}

	chats := make([]wire.Chat, 0, len(cached))
	labelNames := make(map[string][]string, len(cached))
	for _, c := range cached {
		chats = append(chats, wire.Chat{
			ID:                 c.ID,
			Name:               c.Name,
			IsGroup:            c.IsGroup,
			LastMessagePreview: c.LastPreview,
			UnreadCount:        c.UnreadCount,
			LastActivity:       c.LastActivity,
		})
		if ids, err := a.deps.DB.LabelsForChat(c.ID); err == nil && len(ids) > 0 {
			labelNames[c.ID] = ids
		}
	}
	a.chatList.Update(chats, labelNames)
}

func (a *App) eventLoop() {
	ch, unsub := a.deps.Bus.Subscribe("", 256)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			a.handleEvent(evt)
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *App) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case conn.KindStateChanged:
		change, ok := evt.Payload.(conn.StateChange)
		if !ok {
			return
		}
		a.app.QueueUpdateDraw(func() {
			a.statusBar.SetState(string(change.To))
			page, _ := a.pages.GetFrontPage()
			if change.To == conn.PairingRequired && page != "pairing" {
				a.pairing.ShowMessage("Waiting for pairing challenge...")
				a.pages.SwitchToPage("pairing")
			}
			if change.To == conn.Ready && page == "pairing" {
				a.pages.SwitchToPage("chats")
				a.app.SetFocus(a.chatList)
			}
		})

	case conn.KindChallenge:
		code, ok := evt.Payload.(string)
		if !ok {
			return
		}
		a.app.QueueUpdateDraw(func() {
			a.pairing.ShowChallenge(code)
		})

	case conn.KindAuthFailure:
		a.app.QueueUpdateDraw(func() {
			a.statusBar.SetFlash("Authentication failed")
		})

	case "gw.gave_up":
		a.app.QueueUpdateDraw(func() {
			a.statusBar.SetFlash("Connection lost, gave up reconnecting")
		})

	case roster.KindRosterApplied, roster.KindCatalogApplied:
		a.app.QueueUpdateDraw(a.refreshChatList)

	case window.KindPrepended:
		a.app.QueueUpdateDraw(func() {
			a.pendingPrepend = true
		})

	case window.KindError:
		msg, _ := evt.Payload.(string)
		a.app.QueueUpdateDraw(func() {
			a.statusBar.SetFlash("Load failed: " + msg)
		})

	case window.KindUpdated:
		snap := a.deps.Window.Snapshot()
		a.app.QueueUpdateDraw(func() {
			a.renderThread(snap)
		})
	}
}

func (a *App) refreshChatList() {
	chats := a.deps.Registry.Chats()

	names := make(map[string]string)
	for _, l := range a.deps.Registry.Catalog() {
		names[l.ID] = l.Name
	}
	labelNames := make(map[string][]string, len(chats))
	for _, c := range chats {
		ids := a.deps.Registry.LabelsFor(c.ID)
		if len(ids) == 0 {
			continue
		}
		resolved := make([]string, 0, len(ids))
		for _, id := range ids {
			if n, ok := names[id]; ok {
				resolved = append(resolved, n)
			} else {
				resolved = append(resolved, id)
			}
		}
		labelNames[c.ID] = resolved
	}

	a.chatList.Update(chats, labelNames)
}

// renderThread rerenders the active thread and applies the scroll rule
// matching the mutation kind. Runs on the UI thread.
func (a *App) renderThread(snap window.Snapshot) {
	if snap.ChatID != a.activeChat {
		return
	}

	a.ctrl.BeforeMutation()
	a.thread.Update(snap.Messages, snap.LoadingOlder)

	switch {
	case snap.LoadingInitial:
		a.awaitingInitial = true
	case a.awaitingInitial:
		a.awaitingInitial = false
		a.ctrl.AfterInitialLoad()
	case a.pendingPrepend:
		a.pendingPrepend = false
		a.ctrl.AfterPrepend()
	case len(snap.Messages) > a.lastCount:
		a.ctrl.AfterLiveAppend()
	}
	a.lastCount = len(snap.Messages)
}

// clockLoop keeps the status bar clock current.
func (a *App) clockLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.app.QueueUpdateDraw(func() {
				a.statusBar.SetFlash("")
			})
		case <-a.ctx.Done():
			return
		}
	}
}
