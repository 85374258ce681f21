package loader

import "github.com/almostacms/almostacms/internal/content"

// State is where a Session is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateLoadError
	StateSaving
	StateSaveError
)

var stateNames = [...]string{
	StateIdle:      "idle",
	StateLoading:   "loading",
	StateReady:     "ready",
	StateLoadError: "load-error",
	StateSaving:    "saving",
	StateSaveError: "save-error",
}

func (s State) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Editable reports whether Edit and Discard are allowed.
func (s State) Editable() bool { return s == StateReady || s == StateSaveError }

// StateChange is published for every transition and every edit.
type StateChange struct {
	Section string
	From    State
	To      State
	Dirty   bool
	Err     error
	// Draft is set on edit events.
	Draft content.Value
}
