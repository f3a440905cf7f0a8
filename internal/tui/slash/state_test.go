package slash

import (
	"strings"
	"testing"
)

func TestSyncInputOpensOnSlashToken(t *testing.T) {
	state := NewState(0)
	state.SyncInput("/sou")
	if !state.Open() {
		t.Fatalf("expected slash popup to open")
	}
	item, ok := state.Selected()
	if !ok || item.Command != CommandSources {
		t.Fatalf("selected = %+v, want /sources", item)
	}
}

func TestSyncInputOpensOnBareSlash(t *testing.T) {
	state := NewState(0)
	state.SyncInput("/")
	if !state.Open() {
		t.Fatalf("expected slash popup to open on bare slash")
	}
	if len(state.matches) != len(Builtin()) {
		t.Fatalf("matches = %d, want all builtins", len(state.matches))
	}
}

func TestSyncInputClosesOnArgsOrPlainText(t *testing.T) {
	state := NewState(0)
	state.SyncInput("/export report.txt")
	if state.Open() {
		t.Fatalf("popup should close once arguments are typed")
	}
	state.SyncInput("what is NVDA doing")
	if state.Open() {
		t.Fatalf("popup should stay closed for plain prompts")
	}
}

func TestHandleKeyTabCompletesBuiltin(t *testing.T) {
	state := NewState(0)
	state.SyncInput("/exp")
	action, handled := state.HandleKey("tab")
	if !handled {
		t.Fatalf("expected tab handled")
	}
	if action.Kind != ActionInsert {
		t.Fatalf("expected insert action, got %v", action.Kind)
	}
	if strings.TrimSpace(action.NewValue) != "/export" {
		t.Fatalf("unexpected inserted value: %q", action.NewValue)
	}
}

func TestHandleKeyEnterDispatchesCommand(t *testing.T) {
	state := NewState(0)
	state.SyncInput("/clear")
	action, handled := state.HandleKey("enter")
	if !handled {
		t.Fatalf("expected enter handled")
	}
	if action.Kind != ActionSubmitCommand || action.Command != CommandClear {
		t.Fatalf("unexpected action %+v", action)
	}
	if state.Open() {
		t.Fatalf("popup should close after dispatch")
	}
}

func TestHandleKeyNavigationWraps(t *testing.T) {
	state := NewState(0)
	state.SyncInput("/")
	if _, handled := state.HandleKey("up"); !handled {
		t.Fatalf("expected up handled")
	}
	item, _ := state.Selected()
	if item.Command != CommandExit {
		t.Fatalf("selected = %s, want wrap to last item", item.Command)
	}
}

func TestResolveSubmit(t *testing.T) {
	state := NewState(0)
	action := state.ResolveSubmit("/export  brief.txt ")
	if action.Kind != ActionSubmitCommand || action.Command != CommandExport || action.Args != "brief.txt" {
		t.Fatalf("expected submit command, got %+v", action)
	}
	if got := state.ResolveSubmit("/bogus"); got.Kind != ActionError {
		t.Fatalf("expected error for unknown command, got %+v", got)
	}
	if got := state.ResolveSubmit("plain"); got.Kind != ActionNone {
		t.Fatalf("expected none for plain text, got %+v", got)
	}
}
