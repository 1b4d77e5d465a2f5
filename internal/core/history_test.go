package core

import (
	"errors"
	"testing"
)

func TestHistoryUndoRedo(t *testing.T) {
	x := NewYearIndex()
	h := NewHistory()
	a := sample("Library", 2021, 9, 3)
	b := a
	b.Hours = 7

	if err := h.Apply(x, Addition(a)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := h.Apply(x, Edit(a, b)); err != nil {
		t.Fatalf("edit: %v", err)
	}
	g, _ := x.Lookup(2021)
	if got := g.RecordsFor("Library"); len(got) != 1 || got[0].Hours != 7 {
		t.Fatalf("after edit: %v", got)
	}

	act, err := h.Undo(x)
	if err != nil || act.Kind != Edited {
		t.Fatalf("undo edit: %v %v", act, err)
	}
	if got := g.RecordsFor("Library"); got[0].Hours != 1.5 {
		t.Fatalf("undo should restore the previous record, got %v", got)
	}

	if _, err := h.Undo(x); err != nil {
		t.Fatalf("undo add: %v", err)
	}
	if x.Size() != 0 {
		t.Fatalf("undo add should empty the index")
	}
	if _, err := h.Undo(x); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo, got %v", err)
	}

	if _, err := h.Redo(x); err != nil {
		t.Fatalf("redo: %v", err)
	}
	if x.Size() != 1 || !h.CanRedo() {
		t.Fatalf("redo should re-add the record and keep the edit redoable")
	}

	if err := h.Apply(x, Deletion(a)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if h.CanRedo() {
		t.Fatalf("a new action must clear the redo stack")
	}
	if _, err := h.Redo(x); !errors.Is(err, ErrNothingToRedo) {
		t.Fatalf("expected ErrNothingToRedo, got %v", err)
	}
}

func TestHistoryFailedActionIsNotRecorded(t *testing.T) {
	x := NewYearIndex()
	h := NewHistory()
	if err := h.Apply(x, Deletion(sample("Library", 2021, 9, 3))); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if h.CanUndo() || h.Dirty() {
		t.Fatalf("failed actions must not be recorded")
	}
}

func TestHistoryDirty(t *testing.T) {
	x := NewYearIndex()
	h := NewHistory()
	a := sample("Library", 2021, 9, 3)

	if h.Dirty() {
		t.Fatalf("fresh history is clean")
	}
	_ = h.Apply(x, Addition(a))
	if !h.Dirty() {
		t.Fatalf("an applied action makes the history dirty")
	}
	h.MarkSaved()
	if h.Dirty() {
		t.Fatalf("MarkSaved should clean the history")
	}
	_, _ = h.Undo(x)
	if !h.Dirty() {
		t.Fatalf("undo past the save point is dirty")
	}
	_, _ = h.Redo(x)
	if h.Dirty() {
		t.Fatalf("redo back to the save point is clean")
	}

	_, _ = h.Undo(x)
	_ = h.Apply(x, Addition(inYear(a, 2022)))
	if !h.Dirty() {
		t.Fatalf("branching away from the save point must stay dirty")
	}
}
