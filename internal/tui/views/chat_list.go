package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatline/internal/rpc"
	"github.com/matheus3301/chatline/internal/tui/ui"
	"github.com/rivo/tview"
)

// ChatList is the main table of chats, most recent first.
type ChatList struct {
	*tview.Table
	theme   *ui.Theme
	chats   []rpc.Chat
	visible []rpc.Chat
	filter  string
	hasMore bool
}

// NewChatList creates the chat table.
func NewChatList(theme *ui.Theme) *ChatList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	cl := &ChatList{Table: table, theme: theme}
	cl.render()
	return cl
}

func (cl *ChatList) Name() string { return "Chats" }

func (cl *ChatList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "m", Description: "More chats"},
		{Key: "/", Description: "Filter"},
		{Key: "S", Description: "Seed"},
		{Key: "c", Description: "Connect"},
		{Key: "x", Description: "Disconnect"},
		{Key: "D", Description: "Drop"},
		{Key: ":", Description: "Command"},
		{Key: "?", Description: "Help"},
		{Key: "1-9", Description: "Jump", Numeric: true},
	}
}

// Update replaces the rows, keeping the cursor on the same chat when possible.
func (cl *ChatList) Update(chats []rpc.Chat, hasMore bool) {
	selected := cl.SelectedChat()
	cl.chats = chats
	cl.hasMore = hasMore
	cl.render()
	cl.selectID(selected)
}

// SetFilter narrows the rows to titles containing filter, case-insensitively.
// An empty filter shows everything.
func (cl *ChatList) SetFilter(filter string) {
	cl.filter = filter
	cl.render()
	cl.Select(1, 0)
}

// Filter returns the active filter.
func (cl *ChatList) Filter() string { return cl.filter }

func (cl *ChatList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" TITLE", 1},
		{" UNREAD", 0},
		{" LAST MESSAGE", 0},
	}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	cl.visible = cl.visible[:0]
	for _, chat := range cl.chats {
		if cl.filter != "" && !containsFold(chat.Title, cl.filter) {
			continue
		}
		cl.visible = append(cl.visible, chat)
	}

	for i, chat := range cl.visible {
		row := i + 1
		color := cl.theme.FgColor
		unread := ""
		if chat.UnreadCount > 0 {
			color = cl.theme.UnreadColor
			unread = fmt.Sprintf("%d", chat.UnreadCount)
		}
		cl.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(chat.Title))).SetExpansion(1).SetTextColor(color))
		cl.SetCell(row, 1, tview.NewTableCell(unread).SetAlign(tview.AlignRight).SetTextColor(color))
		cl.SetCell(row, 2, tview.NewTableCell(formatTimestamp(chat.LastMessageAt)).SetAlign(tview.AlignRight).SetTextColor(cl.theme.FgColor))
	}

	more := ""
	if cl.hasMore {
		more = "+"
	}
	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Chats (%d/%d%s) filter: %s ", len(cl.visible), len(cl.chats), more, tview.Escape(cl.filter)))
	} else {
		cl.SetTitle(fmt.Sprintf(" Chats (%d%s) ", len(cl.chats), more))
	}
}

// SelectedChat returns the id under the cursor, or "".
func (cl *ChatList) SelectedChat() string {
	row, _ := cl.GetSelection()
	return cl.ChatByIndex(row)
}

// ChatByIndex returns the id of the nth visible row (1-based), or "".
func (cl *ChatList) ChatByIndex(n int) string {
	if n < 1 || n > len(cl.visible) {
		return ""
	}
	return cl.visible[n-1].ID
}

func (cl *ChatList) selectID(id string) {
	for i, c := range cl.visible {
		if c.ID == id {
			cl.Select(i+1, 0)
			return
		}
	}
}
