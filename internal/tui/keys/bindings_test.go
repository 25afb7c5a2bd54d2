package keys

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestPageBindingWinsOverGlobal(t *testing.T) {
	r := NewRegistry()
	var hit string
	r.AddGlobal(Rune('q', func() { hit = "global" }))
	r.AddPage("chat", Rune('q', func() { hit = "page" }))

	if !r.handle("chat", tcell.KeyRune, 'q') || hit != "page" {
		t.Errorf("on chat page hit = %q", hit)
	}
	if !r.handle("chats", tcell.KeyRune, 'q') || hit != "global" {
		t.Errorf("on chats page hit = %q", hit)
	}
}

func TestSpecialKeysAndMisses(t *testing.T) {
	r := NewRegistry()
	fired := 0
	r.AddPage("chats", &Action{Key: tcell.KeyCtrlR, Handler: func() { fired++ }})

	if !r.handle("chats", tcell.KeyCtrlR, 0) {
		t.Fatal("ctrl-r not handled")
	}
	if r.handle("chats", tcell.KeyRune, 'z') {
		t.Error("unbound rune handled")
	}
	if r.handle("other", tcell.KeyCtrlR, 0) {
		t.Error("page binding leaked to another page")
	}
	if fired != 1 {
		t.Errorf("fired = %d", fired)
	}
}
