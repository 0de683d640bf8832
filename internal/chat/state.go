package chat

import "sync"

// State is the process-wide conversation state: the active chat and the
// set of chats with a generation in flight.
type State struct {
	mu         sync.Mutex
	activeID   string
	generating map[string]bool
}

// NewState returns an empty state with no active chat.
func NewState() *State {
	return &State{generating: make(map[string]bool)}
}

// ActiveID returns the active chat id, or "" when none is selected.
func (s *State) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

func (s *State) setActive(id string) {
	s.mu.Lock()
	s.activeID = id
	s.mu.Unlock()
}

// BeginGeneration marks chatID as generating. It returns false, and
// changes nothing, if a generation for that chat is already running.
func (s *State) BeginGeneration(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generating[chatID] {
		return false
	}
	s.generating[chatID] = true
	return true
}

// EndGeneration clears the generating flag for chatID.
func (s *State) EndGeneration(chatID string) {
	s.mu.Lock()
	delete(s.generating, chatID)
	s.mu.Unlock()
}

// IsGenerating reports whether chatID has a generation in flight.
func (s *State) IsGenerating(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generating[chatID]
}
