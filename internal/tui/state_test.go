package tui

import (
	"os"
	"path/filepath"
	"testing"
)

func TestUIStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ui_state.json")

	state, err := LoadUIState(path)
	if err != nil {
		t.Fatalf("load missing state: %v", err)
	}
	if state.Version != 1 || state.LastView != "" {
		t.Fatalf("expected defaults, got %+v", state)
	}

	state.LastView = "agents"
	state.Reporter = "M"
	if err := SaveUIState(path, state); err != nil {
		t.Fatalf("save state: %v", err)
	}
	loaded, err := LoadUIState(path)
	if err != nil {
		t.Fatalf("reload state: %v", err)
	}
	if loaded.LastView != "agents" || loaded.Reporter != "M" || loaded.UpdatedAt == "" {
		t.Fatalf("unexpected reloaded state: %+v", loaded)
	}
}

func TestLoadUIStateRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ui_state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadUIState(path); err == nil {
		t.Fatal("expected decode error")
	}
}
