package page

import (
	"context"
	"sync"
)

// ActionName identifies a recorded call.
type ActionName string

const (
	ActionClick            ActionName = "click"
	ActionFocus            ActionName = "focus"
	ActionType             ActionName = "type"
	ActionWaitForElement   ActionName = "waitForElement"
	ActionQuerySelector    ActionName = "querySelector"
	ActionQuerySelectorAll ActionName = "querySelectorAll"
	ActionGetElementByID   ActionName = "getElementById"
)

// Action is one entry of a recorded log.
type Action struct {
	Name     ActionName `json:"name"`
	Key      int        `json:"key"`
	All      bool       `json:"all"`
	Selector string     `json:"selector,omitempty"`
	ID       string     `json:"id,omitempty"`
	Text     string     `json:"text,omitempty"`
}

// actionLog is shared by a Recorder and every handle it created.
type actionLog struct {
	mu      sync.Mutex
	actions []Action
}

func (l *actionLog) append(a Action) {
	l.mu.Lock()
	l.actions = append(l.actions, a)
	l.mu.Unlock()
}

// RecordedHandle is a placeholder for an element in a recorded log.
type RecordedHandle struct {
	log *actionLog
	key int
	all bool
}

// Key returns the handle key.
func (h *RecordedHandle) Key() int { return h.key }

// All reports whether the handle stands for every match of a selector.
func (h *RecordedHandle) All() bool { return h.all }

func (h *RecordedHandle) Click() {
	h.log.append(Action{Name: ActionClick, Key: h.key, All: h.all})
}

func (h *RecordedHandle) Focus() {
	h.log.append(Action{Name: ActionFocus, Key: h.key, All: h.all})
}

func (h *RecordedHandle) Type(text string) {
	h.log.append(Action{Name: ActionType, Key: h.key, All: h.all, Text: text})
}

// Recorder is the recorded Accessor. Lookups always succeed with a new handle.
type Recorder struct {
	keys *Keys
	log  *actionLog
}

// NewRecorder creates a recorder drawing handle keys from keys.
func NewRecorder(keys *Keys) *Recorder {
	return &Recorder{keys: keys, log: &actionLog{}}
}

func (r *Recorder) handle(all bool) *RecordedHandle {
	return &RecordedHandle{log: r.log, key: r.keys.Next(), all: all}
}

func (r *Recorder) QuerySelector(selector string) Handle {
	h := r.handle(false)
	r.log.append(Action{Name: ActionQuerySelector, Key: h.key, Selector: selector})
	return h
}

// QuerySelectorAll returns a single handle that stands for every match.
func (r *Recorder) QuerySelectorAll(selector string) []Handle {
	h := r.handle(true)
	r.log.append(Action{Name: ActionQuerySelectorAll, Key: h.key, All: true, Selector: selector})
	return []Handle{h}
}

func (r *Recorder) GetElementByID(id string) Handle {
	h := r.handle(false)
	r.log.append(Action{Name: ActionGetElementByID, Key: h.key, ID: id})
	return h
}

func (r *Recorder) WaitForElement(ctx context.Context, selector string) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h := r.handle(false)
	r.log.append(Action{Name: ActionWaitForElement, Key: h.key, Selector: selector})
	return h, nil
}

// Actions returns a copy of the log in call order.
func (r *Recorder) Actions() []Action {
	r.log.mu.Lock()
	defer r.log.mu.Unlock()
	out := make([]Action, len(r.log.actions))
	copy(out, r.log.actions)
	return out
}
