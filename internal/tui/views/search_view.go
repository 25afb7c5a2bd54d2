package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatline/internal/rpc"
	"github.com/matheus3301/chatline/internal/tui/ui"
	"github.com/rivo/tview"
)

// SearchView lists the matches of a search in the open chat, newest first.
type SearchView struct {
	*tview.Table
	theme *ui.Theme
	query string
}

// NewSearchView creates the results table.
func NewSearchView(theme *ui.Theme) *SearchView {
	results := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	results.SetBorder(true)
	results.SetBorderColor(theme.BorderColor)
	results.SetBackgroundColor(theme.BgColor)
	results.SetTitleColor(theme.TitleColor)
	results.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	return &SearchView{Table: results, theme: theme}
}

func (sv *SearchView) Name() string { return "Search" }

func (sv *SearchView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "?", Description: "New search"},
		{Key: "Esc", Description: "Back"},
	}
}

// Update renders results for query.
func (sv *SearchView) Update(query string, results []rpc.Message) {
	sv.query = query
	sv.Clear()

	for col, h := range []string{" TIME", " SENDER", " MESSAGE"} {
		sv.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(sv.theme.TableHeaderFg).
			SetBackgroundColor(sv.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold))
	}
	for i, m := range results {
		row := i + 1
		sv.SetCell(row, 0, tview.NewTableCell(" "+formatTimestamp(m.TS)).SetTextColor(sv.theme.DimColor))
		sv.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(m.Sender)).SetTextColor(sv.theme.FgColor))
		sv.SetCell(row, 2, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(m.Body))).SetExpansion(1).SetTextColor(sv.theme.FgColor))
	}
	sv.SetTitle(fmt.Sprintf(" %q (%d) ", query, len(results)))
	sv.Select(1, 0)
}
