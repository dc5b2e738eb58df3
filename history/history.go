// Package history implements the snapshot-based undo/redo stack. Entries are
// opaque serialized page snapshots; the stack never interprets them.
package history

// DefaultCapacity bounds the number of retained snapshots per page.
const DefaultCapacity = 50

// Stack is a bounded undo/redo stack. The entry at the current index always
// matches the live canvas state; entries past the index are redo states and
// are discarded by the next Commit.
type Stack struct {
	entries [][]byte
	index   int // -1 until the first commit
	cap     int
}

// New returns an empty stack with the given capacity. Capacity values below 2
// fall back to DefaultCapacity.
func New(capacity int) *Stack {
	if capacity < 2 {
		capacity = DefaultCapacity
	}
	return &Stack{index: -1, cap: capacity}
}

// Commit truncates any redo tail, appends the snapshot, and advances the
// index, dropping the oldest entry once the capacity bound is exceeded.
func (s *Stack) Commit(snapshot []byte) {
	s.entries = append(s.entries[:s.index+1], snapshot)
	s.index++
	if len(s.entries) > s.cap {
		drop := len(s.entries) - s.cap
		s.entries = append([][]byte(nil), s.entries[drop:]...)
		s.index -= drop
	}
}

// Undo moves the index back one entry and returns the snapshot to restore.
// It reports false at the bottom of the stack.
func (s *Stack) Undo() ([]byte, bool) {
	if !s.CanUndo() {
		return nil, false
	}
	s.index--
	return s.entries[s.index], true
}

// Redo moves the index forward one entry and returns the snapshot to restore.
// It reports false at the top of the stack.
func (s *Stack) Redo() ([]byte, bool) {
	if !s.CanRedo() {
		return nil, false
	}
	s.index++
	return s.entries[s.index], true
}

func (s *Stack) CanUndo() bool { return s.index > 0 }

func (s *Stack) CanRedo() bool { return s.index >= 0 && s.index < len(s.entries)-1 }

// Len reports the number of retained snapshots.
func (s *Stack) Len() int { return len(s.entries) }

// Current returns the snapshot matching the live state, or nil before the
// first commit.
func (s *Stack) Current() []byte {
	if s.index < 0 {
		return nil
	}
	return s.entries[s.index]
}
