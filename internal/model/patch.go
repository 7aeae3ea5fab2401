package model

import "time"

// TodoPatch is a single field change on a todo. The set of variants is
// closed: only the types in this file implement it.
type TodoPatch interface {
	apply(u *TodoUpdate)
}

// RenameTodo replaces the todo's name.
type RenameTodo struct{ Name string }

// SetGroup moves the todo into a named group.
type SetGroup struct{ Group string }

// SetPriority changes the 1-5 priority.
type SetPriority struct{ Priority int }

// SetDone marks the todo done or not done.
type SetDone struct{ Done bool }

// SetNotes replaces the free-form notes.
type SetNotes struct{ Notes string }

// SetParent attaches the todo to a parent node, or detaches it when nil.
type SetParent struct{ ParentID *int64 }

// SetCategory assigns a category, or clears it when nil.
type SetCategory struct{ CategoryID *int64 }

func (p RenameTodo) apply(u *TodoUpdate)  { u.Name = &p.Name }
func (p SetGroup) apply(u *TodoUpdate)    { u.Group = &p.Group }
func (p SetPriority) apply(u *TodoUpdate) { u.Priority = &p.Priority }
func (p SetDone) apply(u *TodoUpdate)     { u.Done = &p.Done }
func (p SetNotes) apply(u *TodoUpdate)    { u.Notes = &p.Notes }

func (p SetParent) apply(u *TodoUpdate) {
	u.ParentNodeID = NullableID{Set: true, Value: p.ParentID}
}

func (p SetCategory) apply(u *TodoUpdate) {
	u.CategoryID = NullableID{Set: true, Value: p.CategoryID}
}

// UpdateFromPatches folds patches into a single wire update. Later patches
// to the same field win.
func UpdateFromPatches(patches ...TodoPatch) TodoUpdate {
	var u TodoUpdate
	for _, p := range patches {
		if p != nil {
			p.apply(&u)
		}
	}
	return u
}

// ApplyPatches returns a copy of t with the patches applied at now.
func ApplyPatches(t Todo, now time.Time, patches ...TodoPatch) Todo {
	UpdateFromPatches(patches...).ApplyTo(&t, now)
	return t
}
