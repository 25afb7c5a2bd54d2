package keys

import "github.com/gdamore/tcell/v2"

// Action is a key bound to a handler.
type Action struct {
	Key     tcell.Key
	Rune    rune
	Handler func()
}

func (a *Action) matches(key tcell.Key, r rune) bool {
	if a.Key != tcell.KeyRune {
		return key == a.Key
	}
	return key == tcell.KeyRune && r == a.Rune
}

// Rune is shorthand for a printable-key action.
func Rune(r rune, fn func()) *Action {
	return &Action{Key: tcell.KeyRune, Rune: r, Handler: fn}
}

// Registry holds global and per-page bindings. Page bindings win over globals
// and, within a scope, the first registered binding wins.
type Registry struct {
	global []*Action
	pages  map[string][]*Action
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pages: make(map[string][]*Action)}
}

// AddGlobal registers a binding active on every page.
func (r *Registry) AddGlobal(a *Action) {
	r.global = append(r.global, a)
}

// AddPage registers a binding active only while page is on top.
func (r *Registry) AddPage(page string, a *Action) {
	r.pages[page] = append(r.pages[page], a)
}

// HandleEvent runs the first binding matching ev and reports whether one did.
func (r *Registry) HandleEvent(page string, ev *tcell.EventKey) bool {
	return r.handle(page, ev.Key(), ev.Rune())
}

func (r *Registry) handle(page string, key tcell.Key, ch rune) bool {
	for _, scope := range [][]*Action{r.pages[page], r.global} {
		for _, a := range scope {
			if a.matches(key, ch) {
				a.Handler()
				return true
			}
		}
	}
	return false
}
