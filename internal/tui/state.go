package tui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
)

const uiStateRelPath = ".config/noose/ui_state.json"

// UIState is what the terminal UI remembers between sessions.
type UIState struct {
	Version     int    `json:"version"`
	LastView    string `json:"last_view"`
	Reporter    string `json:"reporter"`
	LastAgentID string `json:"last_agent_id"`
	UpdatedAt   string `json:"updated_at"`
}

func UIStatePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, uiStateRelPath), nil
}

func LoadUIState(path string) (UIState, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return UIState{Version: 1}, nil
		}
		return UIState{}, fmt.Errorf("read ui state: %w", err)
	}
	var state UIState
	if err := json.Unmarshal(raw, &state); err != nil {
		return UIState{}, fmt.Errorf("decode ui state: %w", err)
	}
	if state.Version == 0 {
		state.Version = 1
	}
	return state, nil
}

func SaveUIState(path string, state UIState) error {
	state.Version = 1
	state.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir ui state dir: %w", err)
	}
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ui state: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write ui state: %w", err)
	}
	return nil
}
