package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Theme holds the viewer's colors.
type Theme struct {
	BgColor           tcell.Color
	FgColor           tcell.Color
	DimColor          tcell.Color
	BorderColor       tcell.Color
	TableHeaderFg     tcell.Color
	TableHeaderBg     tcell.Color
	TableCursorFg     tcell.Color
	TableCursorBg     tcell.Color
	UnreadColor       tcell.Color
	CrumbActiveFg     tcell.Color
	CrumbActiveBg     tcell.Color
	CrumbInactiveFg   tcell.Color
	CrumbInactiveBg   tcell.Color
	MenuKeyColor      tcell.Color
	NumericKeyColor   tcell.Color
	TitleColor        tcell.Color
	CounterColor      tcell.Color
	FlashInfoColor    tcell.Color
	FlashWarnColor    tcell.Color
	FlashErrColor     tcell.Color
	PromptBorderColor tcell.Color
	ConnectedColor    tcell.Color
	ReconnectingColor tcell.Color
	OfflineColor      tcell.Color
}

// DefaultTheme returns the dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:           tcell.ColorBlack,
		FgColor:           tcell.ColorLightGray,
		DimColor:          tcell.ColorGray,
		BorderColor:       tcell.ColorTeal,
		TableHeaderFg:     tcell.ColorWhite,
		TableHeaderBg:     tcell.ColorBlack,
		TableCursorFg:     tcell.ColorBlack,
		TableCursorBg:     tcell.ColorMediumTurquoise,
		UnreadColor:       tcell.ColorGold,
		CrumbActiveFg:     tcell.ColorBlack,
		CrumbActiveBg:     tcell.ColorGold,
		CrumbInactiveFg:   tcell.ColorBlack,
		CrumbInactiveBg:   tcell.ColorMediumTurquoise,
		MenuKeyColor:      tcell.ColorMediumTurquoise,
		NumericKeyColor:   tcell.ColorViolet,
		TitleColor:        tcell.ColorGold,
		CounterColor:      tcell.ColorWhite,
		FlashInfoColor:    tcell.ColorNavajoWhite,
		FlashWarnColor:    tcell.ColorOrange,
		FlashErrColor:     tcell.ColorOrangeRed,
		PromptBorderColor: tcell.ColorMediumTurquoise,
		ConnectedColor:    tcell.ColorLimeGreen,
		ReconnectingColor: tcell.ColorOrange,
		OfflineColor:      tcell.ColorOrangeRed,
	}
}

// StateColor returns the color for a connection state name.
func (t *Theme) StateColor(state string) tcell.Color {
	switch state {
	case "connected":
		return t.ConnectedColor
	case "reconnecting":
		return t.ReconnectingColor
	default:
		return t.OfflineColor
	}
}

// Tag renders c as a tview color tag value.
func Tag(c tcell.Color) string {
	return fmt.Sprintf("#%06x", c.Hex())
}
