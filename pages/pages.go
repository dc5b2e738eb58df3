// Package pages tracks per-page rotation and deletion flags plus display
// ordering, independent of annotation content.
package pages

import (
	"fmt"
	"sort"
)

// State describes one page of the session.
//
// PageNumber is the 1-based display position and doubles as the page's
// identity: Reorder renumbers it to match the new order. Deleted is a flag,
// not a removal; deleted pages keep their annotations until export.
type State struct {
	PageNumber int  `json:"pageNumber"`
	Rotation   int  `json:"rotation"` // degrees: 0/90/180/270
	Deleted    bool `json:"deleted"`
	// Source is the 0-based index of this page in the original document. It
	// survives reorders so the export pipeline can find the page's content.
	Source int `json:"source"`
}

// Manager owns the page states of one session.
type Manager struct {
	states []State
}

// NewManager creates states for a document whose page count just became
// known: pages 1..count, unrotated, not deleted.
func NewManager(count int) *Manager {
	states := make([]State, count)
	for i := range states {
		states[i] = State{PageNumber: i + 1, Source: i}
	}
	return &Manager{states: states}
}

// FromStates restores a manager from persisted states. The slice is
// re-sorted by PageNumber so a draft written mid-reorder still loads.
func FromStates(states []State) *Manager {
	copied := append([]State(nil), states...)
	sort.Slice(copied, func(i, j int) bool { return copied[i].PageNumber < copied[j].PageNumber })
	return &Manager{states: copied}
}

// States returns a copy of the page states in display order.
func (m *Manager) States() []State {
	return append([]State(nil), m.states...)
}

func (m *Manager) Count() int { return len(m.states) }

// SurvivorCount reports how many pages are not flagged deleted.
func (m *Manager) SurvivorCount() int {
	n := 0
	for _, s := range m.states {
		if !s.Deleted {
			n++
		}
	}
	return n
}

// Get returns the state for a 1-based page number.
func (m *Manager) Get(page int) (State, error) {
	if page < 1 || page > len(m.states) {
		return State{}, fmt.Errorf("page %d out of range 1..%d", page, len(m.states))
	}
	return m.states[page-1], nil
}

// SetRotation adds delta degrees (a multiple of 90) to the page's rotation.
func (m *Manager) SetRotation(page, delta int) error {
	if page < 1 || page > len(m.states) {
		return fmt.Errorf("page %d out of range 1..%d", page, len(m.states))
	}
	if delta%90 != 0 {
		return fmt.Errorf("rotation delta %d is not a multiple of 90", delta)
	}
	r := (m.states[page-1].Rotation + delta) % 360
	if r < 0 {
		r += 360
	}
	m.states[page-1].Rotation = r
	return nil
}

// ToggleDeleted flips the page's deletion flag. Deleting the sole remaining
// non-deleted page is refused; the return value reports whether the flag
// changed.
func (m *Manager) ToggleDeleted(page int) bool {
	if page < 1 || page > len(m.states) {
		return false
	}
	s := &m.states[page-1]
	if !s.Deleted && m.SurvivorCount() == 1 {
		return false
	}
	s.Deleted = !s.Deleted
	return true
}

// Reorder moves the page at display index from (0-based) to index to and
// renumbers all pages so PageNumber stays a contiguous 1..N permutation. The
// returned map translates old page numbers to new ones; the caller must remap
// its annotation keys with it.
func (m *Manager) Reorder(from, to int) (map[int]int, error) {
	n := len(m.states)
	if from < 0 || from >= n || to < 0 || to >= n {
		return nil, fmt.Errorf("reorder indices %d->%d out of range 0..%d", from, to, n-1)
	}
	if from == to {
		return nil, nil
	}
	moved := m.states[from]
	rest := append(append([]State(nil), m.states[:from]...), m.states[from+1:]...)
	m.states = append(append(append([]State(nil), rest[:to]...), moved), rest[to:]...)

	remap := make(map[int]int, n)
	for i := range m.states {
		remap[m.states[i].PageNumber] = i + 1
		m.states[i].PageNumber = i + 1
	}
	return remap, nil
}
