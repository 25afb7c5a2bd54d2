package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/chatline/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView is the key and command reference.
type HelpView struct {
	*tview.TextView
}

// NewHelpView creates the help page.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	kc := ui.Tag(theme.MenuKeyColor)
	section := func(title string, rows [][2]string) string {
		var b strings.Builder
		fmt.Fprintf(&b, "\n  [::b]%s[-:-:-]\n\n", title)
		for _, r := range rows {
			fmt.Fprintf(&b, "  [%s]%-18s[-] %s\n", kc, tview.Escape(r[0]), r[1])
		}
		return b.String()
	}

	_, _ = fmt.Fprint(tv,
		section("Global", [][2]string{
			{":", "Command mode"},
			{"Esc", "Back"},
			{"q", "Quit"},
			{"Ctrl-C", "Quit immediately"},
		}),
		section("Chats", [][2]string{
			{"Enter", "Open chat"},
			{"1-9", "Open the Nth visible chat"},
			{"/", "Filter by title"},
			{"m", "Load more chats"},
			{"S", "Seed database"},
			{"c / x", "Connect / disconnect"},
			{"D", "Simulate connection drop"},
		}),
		section("Messages", [][2]string{
			{"o", "Load older messages"},
			{"?", "Search this chat"},
			{"d", "Chat details"},
		}),
		section("Commands", [][2]string{
			{":seed", "Seed the database"},
			{":connect", "Start connecting"},
			{":disconnect", "Disconnect"},
			{":drop", "Simulate a connection drop"},
			{":search <text>", "Search the open chat"},
			{":chat <title>", "Open the first chat whose title matches"},
			{":reload", "Reload chats and status"},
			{":help", "Show this help"},
			{":quit", "Quit"},
		}),
	)
	return &HelpView{TextView: tv}
}

func (hv *HelpView) Name() string { return "Help" }

func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{{Key: "Esc", Description: "Back"}}
}
