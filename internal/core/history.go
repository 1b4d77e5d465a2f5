package core

import (
	"errors"
	"fmt"
)

type ActionKind int

const (
	Added ActionKind = iota
	Deleted
	Edited
)

func (k ActionKind) String() string {
	switch k {
	case Added:
		return "added"
	case Deleted:
		return "deleted"
	case Edited:
		return "edited"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Action is one user change to an index. Previous is unset for additions and
// Current is unset for deletions.
type Action struct {
	Kind     ActionKind
	Previous Activity
	Current  Activity
}

func Addition(a Activity) Action { return Action{Kind: Added, Current: a} }

func Deletion(a Activity) Action { return Action{Kind: Deleted, Previous: a} }

func Edit(old, updated Activity) Action {
	return Action{Kind: Edited, Previous: old, Current: updated}
}

func (act Action) apply(x *YearIndex) error {
	switch act.Kind {
	case Added:
		x.AddData(act.Current)
		return nil
	case Deleted:
		return x.Remove(act.Previous)
	case Edited:
		return x.Replace(act.Previous, act.Current)
	default:
		return fmt.Errorf("unknown action %v", act.Kind)
	}
}

func (act Action) inverse() Action {
	switch act.Kind {
	case Added:
		return Deletion(act.Current)
	case Deleted:
		return Addition(act.Previous)
	default:
		return Edit(act.Current, act.Previous)
	}
}

// History records applied actions so they can be undone and redone. The
// saved marker tracks the position of the last save.
type History struct {
	done   []Action
	undone []Action
	saved  int
}

func NewHistory() *History {
	return &History{}
}

// Apply performs act on x and records it. Recording a new action discards
// anything that could have been redone.
func (h *History) Apply(x *YearIndex, act Action) error {
	if err := act.apply(x); err != nil {
		return fmt.Errorf("apply %s: %w", act.Kind, err)
	}
	h.done = append(h.done, act)
	if h.saved > len(h.done)-1 {
		// The saved state was only reachable through redo.
		h.saved = -1
	}
	h.undone = nil
	return nil
}

// Undo reverts the most recent action.
func (h *History) Undo(x *YearIndex) (Action, error) {
	if len(h.done) == 0 {
		return Action{}, ErrNothingToUndo
	}
	act := h.done[len(h.done)-1]
	if err := act.inverse().apply(x); err != nil {
		return Action{}, fmt.Errorf("undo %s: %w", act.Kind, err)
	}
	h.done = h.done[:len(h.done)-1]
	h.undone = append(h.undone, act)
	return act, nil
}

// Redo reapplies the most recently undone action.
func (h *History) Redo(x *YearIndex) (Action, error) {
	if len(h.undone) == 0 {
		return Action{}, ErrNothingToRedo
	}
	act := h.undone[len(h.undone)-1]
	if err := act.apply(x); err != nil {
		return Action{}, fmt.Errorf("redo %s: %w", act.Kind, err)
	}
	h.undone = h.undone[:len(h.undone)-1]
	h.done = append(h.done, act)
	return act, nil
}

// MarkSaved records the current position as saved.
func (h *History) MarkSaved() {
	h.saved = len(h.done)
}

// Dirty reports whether the index differs from the last saved state.
func (h *History) Dirty() bool {
	return h.saved != len(h.done)
}

func (h *History) CanUndo() bool { return len(h.done) > 0 }

func (h *History) CanRedo() bool { return len(h.undone) > 0 }
