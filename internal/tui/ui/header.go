package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/rivo/tview"
)

// StatusData is what the header shows about the daemon.
type StatusData struct {
	State        string
	Attempt      int
	Since        time.Time
	ChatCount    int64
	MessageCount int64
	Uptime       time.Duration
	Sessions     int
	ActiveChat   string
}

// StatusInfo is the left header panel.
type StatusInfo struct {
	*tview.TextView
	theme *Theme
}

// NewStatusInfo creates the status panel.
func NewStatusInfo(theme *Theme) *StatusInfo {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)
	return &StatusInfo{TextView: tv, theme: theme}
}

// Update renders data. A nil data means the daemon could not be reached.
func (si *StatusInfo) Update(data *StatusData) {
	si.Clear()
	fg := Tag(si.theme.FgColor)
	val := Tag(si.theme.CounterColor)
	if data == nil {
		_, _ = fmt.Fprintf(si, "[%s::b]State:[-:-:-] [%s]daemon unreachable[-]", fg, Tag(si.theme.OfflineColor))
		return
	}

	state := data.State
	if data.State == "reconnecting" && data.Attempt > 0 {
		state = fmt.Sprintf("%s (attempt %d)", state, data.Attempt)
	}
	active := data.ActiveChat
	if active == "" {
		active = "-"
	}

	_, _ = fmt.Fprintf(si,
		"[%s::b]State:[-:-:-]   [%s]%s[-]\n"+
			"[%s::b]Since:[-:-:-]   [%s]%s[-]\n"+
			"[%s::b]Chats:[-:-:-]   [%s]%d[-]\n"+
			"[%s::b]Msgs:[-:-:-]    [%s]%d[-]\n"+
			"[%s::b]Uptime:[-:-:-]  [%s]%s[-]\n"+
			"[%s::b]Active:[-:-:-]  [%s]%s[-]",
		fg, Tag(si.theme.StateColor(data.State)), state,
		fg, val, formatSince(data.Since),
		fg, val, data.ChatCount,
		fg, val, data.MessageCount,
		fg, val, formatDuration(data.Uptime),
		fg, val, tview.Escape(active),
	)
}

// Menu lists key hints for the current page.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates the hint panel.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)
	return &Menu{TextView: tv, theme: theme}
}

// Update renders hints one per line.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	for _, h := range hints {
		kc := m.theme.MenuKeyColor
		if h.Numeric {
			kc = m.theme.NumericKeyColor
		}
		_, _ = fmt.Fprintf(m, "[%s::b]<%s>[-:-:-] %s\n", Tag(kc), h.Key, h.Description)
	}
}

// Crumbs shows the page stack.
type Crumbs struct {
	*tview.TextView
	theme *Theme
}

// NewCrumbs creates the breadcrumb bar.
func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	return &Crumbs{TextView: tv, theme: theme}
}

// Update renders stack, highlighting the last entry.
func (c *Crumbs) Update(stack []string) {
	c.Clear()
	parts := make([]string, 0, len(stack))
	for i, name := range stack {
		fg, bg := c.theme.CrumbInactiveFg, c.theme.CrumbInactiveBg
		attr := ""
		if i == len(stack)-1 {
			fg, bg, attr = c.theme.CrumbActiveFg, c.theme.CrumbActiveBg, "b"
		}
		parts = append(parts, fmt.Sprintf("[%s:%s:%s] %s [-:-:-]", Tag(fg), Tag(bg), attr, tview.Escape(name)))
	}
	_, _ = fmt.Fprint(c, strings.Join(parts, " "))
}

// Logo is the right header panel.
func Logo(theme *Theme) *tview.TextView {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)
	t := Tag(theme.TitleColor)
	_, _ = fmt.Fprintf(tv,
		"[%s::b] ┌─┐┬ ┬┌─┐┌┬┐┬  ┬┌┐┌┌─┐[-:-:-]\n"+
			"[%s::b] │  ├─┤├─┤ │ │  ││││├┤ [-:-:-]\n"+
			"[%s::b] └─┘┴ ┴┴ ┴ ┴ ┴─┘┴┘└┘└─┘[-:-:-]\n"+
			"[%s] viewer[-]",
		t, t, t, Tag(theme.DimColor))
	return tv
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm%ds", m, int(d.Seconds())%60)
}

func formatSince(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("15:04:05")
}
