package ui

// MenuHint describes a keyboard shortcut for display in the menu.
type MenuHint struct {
	Key         string
	Description string
	Numeric     bool // 0-9 shortcuts render in a different color
}

// Component is a page that can be pushed onto Pages.
type Component interface {
	Name() string
	Hints() []MenuHint
}
