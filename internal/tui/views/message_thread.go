package views

import (
	"fmt"

	"github.com/matheus3301/chatline/internal/rpc"
	"github.com/matheus3301/chatline/internal/tui/ui"
	"github.com/rivo/tview"
)

// MessageThread shows one chat, oldest message at the top.
type MessageThread struct {
	*tview.TextView
	theme    *ui.Theme
	chatID   string
	title    string
	hasOlder bool
}

// NewMessageThread creates the thread view.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitleColor(theme.TitleColor)
	return &MessageThread{TextView: tv, theme: theme}
}

func (mt *MessageThread) Name() string {
	if mt.title != "" {
		return mt.title
	}
	return "Messages"
}

func (mt *MessageThread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "o", Description: "Older"},
		{Key: "?", Description: "Search"},
		{Key: "d", Description: "Details"},
		{Key: "Esc", Description: "Back"},
		{Key: ":", Description: "Command"},
	}
}

// SetChat switches the thread to chatID.
func (mt *MessageThread) SetChat(chatID, title string) {
	mt.chatID = chatID
	mt.title = title
	mt.Clear()
}

// ChatID returns the chat shown, or "".
func (mt *MessageThread) ChatID() string { return mt.chatID }

// Update renders msgs. With follow the view sticks to the newest message;
// otherwise the offset shifts by the lines added above so nothing jumps.
func (mt *MessageThread) Update(msgs []rpc.Message, hasOlder bool, follow bool) {
	row, _ := mt.GetScrollOffset()
	before := mt.GetOriginalLineCount()

	mt.hasOlder = hasOlder
	mt.Clear()
	if hasOlder {
		_, _ = fmt.Fprintf(mt, "[%s]── press o for older messages ──[-]\n\n", ui.Tag(mt.theme.DimColor))
	}
	for _, m := range msgs {
		_, _ = fmt.Fprintf(mt, "[::b]%s[-:-:-] [%s]%s[-]\n%s\n\n",
			tview.Escape(sanitizeForTerminal(m.Sender)),
			ui.Tag(mt.theme.DimColor), formatTimestamp(m.TS),
			tview.Escape(sanitizeForTerminal(m.Body)))
	}
	mt.SetTitle(fmt.Sprintf(" %s (%d) ", tview.Escape(mt.Name()), len(msgs)))

	if follow {
		mt.ScrollToEnd()
		return
	}
	mt.ScrollTo(row+mt.GetOriginalLineCount()-before, 0)
}
