package views

import (
	"fmt"

	"github.com/matheus3301/chatline/internal/rpc"
	"github.com/matheus3301/chatline/internal/tui/ui"
	"github.com/rivo/tview"
)

// ChatInfo shows the stored fields of a chat.
type ChatInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewChatInfo creates the details view.
func NewChatInfo(theme *ui.Theme) *ChatInfo {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Details ")
	tv.SetTitleColor(theme.TitleColor)
	return &ChatInfo{TextView: tv, theme: theme}
}

func (ci *ChatInfo) Name() string { return "Details" }

func (ci *ChatInfo) Hints() []ui.MenuHint {
	return []ui.MenuHint{{Key: "Esc", Description: "Back"}}
}

// Update renders chat; loaded is how many of its messages are on screen.
func (ci *ChatInfo) Update(chat *rpc.Chat, loaded int) {
	ci.Clear()
	if chat == nil {
		return
	}
	fg := ui.Tag(ci.theme.FgColor)
	val := ui.Tag(ci.theme.CounterColor)
	last := formatTimestamp(chat.LastMessageAt)
	if last == "" {
		last = "-"
	}
	_, _ = fmt.Fprintf(ci,
		"\n [%s::b]Title:[-:-:-]         [%s]%s[-]\n"+
			" [%s::b]ID:[-:-:-]            [%s]%s[-]\n"+
			" [%s::b]Unread:[-:-:-]        [%s]%d[-]\n"+
			" [%s::b]Last message:[-:-:-]  [%s]%s[-]\n"+
			" [%s::b]Loaded:[-:-:-]        [%s]%d[-]",
		fg, val, tview.Escape(chat.Title),
		fg, val, chat.ID,
		fg, val, chat.UnreadCount,
		fg, val, last,
		fg, val, loaded,
	)
	ci.SetTitle(fmt.Sprintf(" %s ", tview.Escape(chat.Title)))
}
