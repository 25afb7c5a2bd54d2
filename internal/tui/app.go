// Package tui is the terminal viewer: a chat list, the open chat and the
// connection state, driven entirely through the daemon's gateway.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatline/internal/cipher"
	"github.com/matheus3301/chatline/internal/rpc"
	"github.com/matheus3301/chatline/internal/tui/keys"
	"github.com/matheus3301/chatline/internal/tui/model"
	"github.com/matheus3301/chatline/internal/tui/ui"
	"github.com/matheus3301/chatline/internal/tui/views"
	"github.com/rivo/tview"
)

const (
	pageChats   = "chats"
	pageChat    = "chat"
	pageSearch  = "search"
	pageDetails = "details"
	pageHelp    = "help"

	callTimeout    = 10 * time.Second
	statusInterval = 2 * time.Second
	watchRetry     = 2 * time.Second
	promptHeight   = 3
)

type page interface {
	tview.Primitive
	ui.Component
}

// App is the viewer shell.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	vm       *model.ViewModel
	flash    *ui.FlashModel
	registry *keys.Registry

	root     *tview.Flex
	pages    *ui.Pages
	prompt   *ui.Prompt
	status   *ui.StatusInfo
	menu     *ui.Menu
	crumbs   *ui.Crumbs
	flashBar *ui.FlashBar

	chatList *views.ChatList
	thread   *views.MessageThread
	search   *views.SearchView
	details  *views.ChatInfo
	help     *views.HelpView
	byName   map[string]page

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the viewer over a daemon client.
func NewApp(c *rpc.Client) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:      tview.NewApplication(),
		theme:    theme,
		vm:       model.NewViewModel(c, cipher.Prefix{}),
		flash:    ui.NewFlashModel(),
		registry: keys.NewRegistry(),
		pages:    ui.NewPages(),
		prompt:   ui.NewPrompt(theme),
		status:   ui.NewStatusInfo(theme),
		menu:     ui.NewMenu(theme),
		crumbs:   ui.NewCrumbs(theme),
		flashBar: ui.NewFlashBar(theme),
		chatList: views.NewChatList(theme),
		thread:   views.NewMessageThread(theme),
		search:   views.NewSearchView(theme),
		details:  views.NewChatInfo(theme),
		help:     views.NewHelpView(theme),
		ctx:      ctx,
		cancel:   cancel,
	}
	a.byName = map[string]page{
		pageChats:   a.chatList,
		pageChat:    a.thread,
		pageSearch:  a.search,
		pageDetails: a.details,
		pageHelp:    a.help,
	}

	a.setupLayout()
	a.setupBindings()
	a.setupCallbacks()
	return a
}

func (a *App) setupLayout() {
	for name, p := range a.byName {
		a.pages.AddPage(name, p, true, false)
	}
	a.pages.SetOnChange(func(stack []string) {
		names := make([]string, len(stack))
		for i, s := range stack {
			names[i] = a.byName[s].Name()
		}
		a.crumbs.Update(names)
		top := a.byName[stack[len(stack)-1]]
		a.menu.Update(top.Hints())
		a.app.SetFocus(top)
	})

	header := tview.NewFlex().
		AddItem(a.status, 0, 2, false).
		AddItem(a.menu, 0, 2, false).
		AddItem(ui.Logo(a.theme), 26, 0, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 6, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false)

	a.app.SetRoot(a.root, true)
	a.pages.Reset(pageChats)
	a.status.Update(nil)
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(keys.Rune(':', func() { a.showPrompt(ui.PromptCommand) }))
	a.registry.AddGlobal(keys.Rune('q', func() { a.Stop() }))
	a.registry.AddGlobal(&keys.Action{Key: tcell.KeyEscape, Handler: a.back})

	a.registry.AddPage(pageChats, keys.Rune('/', func() { a.showPrompt(ui.PromptFilter) }))
	a.registry.AddPage(pageChats, keys.Rune('?', func() { a.pages.Push(pageHelp) }))
	a.registry.AddPage(pageChats, keys.Rune('m', a.loadMoreChats))
	a.registry.AddPage(pageChats, keys.Rune('S', a.seed))
	a.registry.AddPage(pageChats, keys.Rune('c', a.connect))
	a.registry.AddPage(pageChats, keys.Rune('x', a.disconnect))
	a.registry.AddPage(pageChats, keys.Rune('D', a.drop))
	for n := '1'; n <= '9'; n++ {
		a.registry.AddPage(pageChats, keys.Rune(n, func() {
			if id := a.chatList.ChatByIndex(int(n - '0')); id != "" {
				a.openChat(id)
			}
		}))
	}

	a.registry.AddPage(pageChat, keys.Rune('o', a.loadOlder))
	a.registry.AddPage(pageChat, keys.Rune('?', func() { a.showPrompt(ui.PromptSearch) }))
	a.registry.AddPage(pageChat, keys.Rune('d', a.showDetails))
	a.registry.AddPage(pageSearch, keys.Rune('?', func() { a.showPrompt(ui.PromptSearch) }))

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if a.app.GetFocus() == a.prompt.InputField {
			return event
		}
		if a.registry.HandleEvent(a.pages.Current(), event) {
			return nil
		}
		return event
	})
}

func (a *App) setupCallbacks() {
	a.chatList.SetSelectedFunc(func(row, _ int) {
		if id := a.chatList.ChatByIndex(row); id != "" {
			a.openChat(id)
		}
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptFilter:
			a.chatList.SetFilter(strings.TrimSpace(text))
		case ui.PromptSearch:
			a.runSearch(text)
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		}
	})
	a.prompt.SetOnCancel(a.hidePrompt)
}

func (a *App) showPrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	a.root.ResizeItem(a.prompt, promptHeight, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.root.ResizeItem(a.prompt, 0, 0)
	a.app.SetFocus(a.byName[a.pages.Current()])
}

// back clears the chat filter first, then pops the page stack.
func (a *App) back() {
	if a.pages.Current() == pageChats {
		if a.chatList.Filter() != "" {
			a.chatList.SetFilter("")
		}
		return
	}
	if a.pages.Pop() == pageChat {
		a.call(func(ctx context.Context) error { return a.vm.CloseChat(ctx) }, nil)
	}
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "":
	case "quit":
		a.Stop()
	case "help":
		a.pages.Push(pageHelp)
	case "seed":
		a.seed()
	case "connect":
		a.connect()
	case "disconnect":
		a.disconnect()
	case "drop":
		a.drop()
	case "older":
		a.loadOlder()
	case "reload":
		a.reload()
	case "search":
		a.runSearch(cmd.Args)
	case "chat":
		for _, c := range a.vm.Chats() {
			if strings.Contains(strings.ToLower(c.Title), strings.ToLower(cmd.Args)) {
				a.openChat(c.ID)
				return
			}
		}
		a.flash.Warn(fmt.Sprintf("No loaded chat matches %q", cmd.Args))
		a.drawFlash()
	default:
		a.flash.Warn(fmt.Sprintf("Unknown command %q", cmd.Name))
		a.drawFlash()
	}
}

// call runs fn off the draw loop and then applies draw on it.
func (a *App) call(fn func(ctx context.Context) error, draw func()) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
		defer cancel()
		err := fn(ctx)
		if err != nil {
			a.flash.Err(err)
		}
		a.app.QueueUpdateDraw(func() {
			if err == nil && draw != nil {
				draw()
			}
			a.drawFlash()
		})
	}()
}

func (a *App) openChat(id string) {
	a.call(func(ctx context.Context) error { return a.vm.OpenChat(ctx, id) }, func() {
		title := id
		if c := a.vm.Chat(id); c != nil {
			title = c.Title
		}
		a.thread.SetChat(id, title)
		a.drawThread(true)
		a.drawChats()
		a.pages.Push(pageChat)
	})
}

func (a *App) loadOlder() {
	var added int
	a.call(func(ctx context.Context) (err error) {
		added, err = a.vm.LoadOlder(ctx)
		return err
	}, func() {
		if added == 0 {
			a.flash.Info("No older messages")
			return
		}
		a.drawThread(false)
	})
}

func (a *App) loadMoreChats() {
	var added int
	a.call(func(ctx context.Context) (err error) {
		added, err = a.vm.LoadMoreChats(ctx)
		return err
	}, func() {
		if added == 0 {
			a.flash.Info("All chats loaded")
		}
		a.drawChats()
	})
}

func (a *App) runSearch(query string) {
	if query == "" {
		return
	}
	var results []rpc.Message
	a.call(func(ctx context.Context) (err error) {
		results, err = a.vm.Search(ctx, query)
		return err
	}, func() {
		a.search.Update(query, results)
		a.pages.Push(pageSearch)
	})
}

func (a *App) showDetails() {
	a.details.Update(a.vm.Chat(a.vm.ActiveChat()), len(a.vm.Messages()))
	a.pages.Push(pageDetails)
}

func (a *App) seed() {
	a.flash.Info("Seeding...")
	a.drawFlash()
	var res *rpc.SeedDatabaseResponse
	a.call(func(ctx context.Context) (err error) {
		res, err = a.vm.Seed(ctx)
		return err
	}, func() {
		if res.Skipped {
			a.flash.Warn(model.Describe(res))
		} else {
			a.flash.Info(model.Describe(res))
		}
		a.drawChats()
	})
}

func (a *App) connect() {
	a.call(a.vm.Connect, a.drawStatus)
}

func (a *App) disconnect() {
	a.call(a.vm.Disconnect, a.drawStatus)
}

func (a *App) drop() {
	var n int
	a.call(func(ctx context.Context) (err error) {
		n, err = a.vm.Drop(ctx)
		return err
	}, func() {
		a.flash.Info(fmt.Sprintf("Dropped %d session(s)", n))
	})
}

func (a *App) reload() {
	a.call(func(ctx context.Context) error {
		if err := a.vm.LoadChats(ctx); err != nil {
			return err
		}
		return a.vm.LoadStatus(ctx)
	}, func() {
		a.drawChats()
		a.drawStatus()
	})
}

func (a *App) drawChats() {
	a.chatList.Update(a.vm.Chats(), a.vm.HasMoreChats())
}

func (a *App) drawThread(follow bool) {
	if a.thread.ChatID() != a.vm.ActiveChat() {
		return
	}
	a.thread.Update(a.vm.Messages(), a.vm.HasOlder(), follow)
}

func (a *App) drawStatus() {
	st := a.vm.Status()
	if st == nil {
		a.status.Update(nil)
		return
	}
	a.status.Update(&ui.StatusData{
		State:        st.State,
		Attempt:      st.Attempt,
		Since:        time.UnixMilli(st.StateSinceMs),
		ChatCount:    st.ChatCount,
		MessageCount: st.MessageCount,
		Uptime:       time.Duration(st.UptimeMs) * time.Millisecond,
		Sessions:     st.Sessions,
		ActiveChat:   st.ActiveChat,
	})
}

func (a *App) drawFlash() {
	a.flashBar.Update(a.flash.Current())
}

// Run loads the first page, starts the live feeds and blocks until quit.
func (a *App) Run() error {
	go func() {
		a.reload()
		go a.vm.Watch(a.ctx, watchRetry, func(c model.Change) {
			a.app.QueueUpdateDraw(func() {
				switch c {
				case model.ChangeChats:
					a.drawChats()
				case model.ChangeThread:
					a.drawThread(true)
				case model.ChangeState:
					a.drawStatus()
				}
			})
		})
		a.pollStatus()
	}()
	return a.app.Run()
}

func (a *App) pollStatus() {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
			err := a.vm.LoadStatus(ctx)
			cancel()
			a.app.QueueUpdateDraw(func() {
				if err != nil && a.ctx.Err() == nil {
					a.status.Update(nil)
				} else {
					a.drawStatus()
				}
				a.drawFlash()
			})
		case <-a.ctx.Done():
			return
		}
	}
}

// Stop cancels background work and ends the application.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
