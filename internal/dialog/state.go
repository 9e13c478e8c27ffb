package dialog

import (
	"maps"
	"sync"
	"time"
)

// Command is one of the bot's top-level commands.
type Command string

// Supported commands. The command strings double as callback tokens for the
// generic create menu buttons.
const (
	CmdGoals       Command = "/goals"
	CmdCreate      Command = "/create"
	CmdCreateGoal  Command = "/creategoal"
	CmdCreateCat   Command = "/createcat"
	CmdCreateBoard Command = "/createboard"
	CmdCancel      Command = "/cancel"
)

// fieldParentTitle is the state field recording the selected parent entity
// (category title for goal creation, board title for category creation).
const fieldParentTitle = "parent_title"

// State is the progress of one chat's creation dialog: the command that
// started it and the fields collected so far. UpdatedAt drives expiry.
type State struct {
	Command   Command
	Fields    map[string]string
	UpdatedAt time.Time
}

// StateStore is a keyed map of chat identifier to in-progress dialog state,
// owned by the engine. Event processing is sequential, but the expiry sweeper
// runs off the poll goroutine, so access is mutex-guarded.
type StateStore struct {
	mu      sync.Mutex
	entries map[int64]*State
	now     func() time.Time
}

// NewStateStore creates an empty StateStore.
func NewStateStore() *StateStore {
	return &StateStore{
		entries: make(map[int64]*State),
		now:     time.Now,
	}
}

// Get returns a snapshot of the chat's dialog state. The bool result reports
// whether a dialog is in progress for the chat.
func (s *StateStore) Get(chatID int64) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.entries[chatID]
	if !ok {
		return State{}, false
	}
	snapshot := *st
	snapshot.Fields = maps.Clone(st.Fields)
	return snapshot, true
}

// Start records a new dialog for the chat with no fields collected yet,
// replacing any existing entry.
func (s *StateStore) Start(chatID int64, cmd Command) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[chatID] = &State{
		Command:   cmd,
		Fields:    make(map[string]string),
		UpdatedAt: s.now(),
	}
}

// SetField records a collected field value on the chat's dialog. A no-op when
// no dialog is in progress.
func (s *StateStore) SetField(chatID int64, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.entries[chatID]
	if !ok {
		return
	}
	st.Fields[key] = value
	st.UpdatedAt = s.now()
}

// Delete removes the chat's dialog state. A no-op when absent.
func (s *StateStore) Delete(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, chatID)
}

// Len returns the number of in-progress dialogs.
func (s *StateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// ExpireBefore removes every dialog not updated since cutoff and returns the
// affected chat identifiers.
func (s *StateStore) ExpireBefore(cutoff time.Time) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []int64
	for chatID, st := range s.entries {
		if st.UpdatedAt.Before(cutoff) {
			delete(s.entries, chatID)
			expired = append(expired, chatID)
		}
	}
	return expired
}
