package syncer

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// RunState is the checkpoint of one pipeline's last run. The checksum
// lets the next run skip the upload when the merged ledger is
// byte-identical to what storage already holds.
type RunState struct {
	Pipeline       string    `json:"pipeline"`
	LastRunTime    time.Time `json:"last_run_time"`
	LastOutcome    string    `json:"last_outcome"`
	RowsTotal      int       `json:"rows_total"`
	RowsAdded      int       `json:"rows_added"`
	MasterChecksum string    `json:"master_checksum,omitempty"`
	LastError      string    `json:"last_error,omitempty"`
}

// StateManager persists run checkpoints to a local JSON file, keyed by
// pipeline name.
type StateManager struct {
	mu        sync.RWMutex
	states    map[string]*RunState
	stateFile string
}

// NewStateManager loads existing state when the file exists.
func NewStateManager(stateFile string) (*StateManager, error) {
	sm := &StateManager{
		states:    make(map[string]*RunState),
		stateFile: stateFile,
	}

	if _, err := os.Stat(stateFile); err == nil {
		if err := sm.load(); err != nil {
			return nil, fmt.Errorf("failed to load state: %w", err)
		}
	}

	return sm, nil
}

// Get returns the checkpoint for a pipeline, zero-valued when the
// pipeline never ran. A copy is returned.
func (sm *StateManager) Get(pipeline string) *RunState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	state, exists := sm.states[pipeline]
	if !exists {
		return &RunState{Pipeline: pipeline}
	}
	stateCopy := *state
	return &stateCopy
}

// Update stores a new checkpoint and saves the file.
func (sm *StateManager) Update(state RunState) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	state.LastRunTime = time.Now()
	sm.states[state.Pipeline] = &state

	return sm.saveUnsafe()
}

// Reset drops a pipeline's checkpoint, forcing the next run to treat the
// ledger as unseen.
func (sm *StateManager) Reset(pipeline string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.states, pipeline)
	return sm.saveUnsafe()
}

func (sm *StateManager) saveUnsafe() error {
	data, err := json.MarshalIndent(sm.states, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(sm.stateFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

func (sm *StateManager) load() error {
	data, err := os.ReadFile(sm.stateFile)
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}

	states := make(map[string]*RunState)
	if err := json.Unmarshal(data, &states); err != nil {
		return fmt.Errorf("failed to unmarshal state: %w", err)
	}

	sm.states = states
	return nil
}
