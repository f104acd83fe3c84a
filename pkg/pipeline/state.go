package pipeline

import "fmt"

// State is the position of the talk walk inside a period. Session 0 means no
// session has been opened yet.
type State struct {
	Session  int
	Sequence int
}

// Initial is the state before the first page.
func Initial() State {
	return State{Session: 0, Sequence: 1}
}

// Slot is the (session, sequence) pair assigned to an emitted talk.
type Slot struct {
	Session  int
	Sequence int
}

// PageKind classifies a visited link.
type PageKind int

const (
	// TalkPage carries an author line and yields a record.
	TalkPage PageKind = iota
	// MarkerPage has no author line and opens the next session.
	MarkerPage
	// FailedPage could not be fetched or read.
	FailedPage
)

func (k PageKind) String() string {
	switch k {
	case TalkPage:
		return "talk"
	case MarkerPage:
		return "marker"
	case FailedPage:
		return "failed"
	}
	return fmt.Sprintf("PageKind(%d)", int(k))
}

// Policy decides what a failed page does to the sequence counter.
type Policy string

const (
	// Compact gives the failed talk's slot to the next talk.
	Compact Policy = "compact"
	// Reserve keeps the failed talk's slot empty.
	Reserve Policy = "reserve"
)

// ParsePolicy maps a configuration value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case Compact, Reserve:
		return Policy(s), nil
	case "":
		return Compact, nil
	}
	return "", fmt.Errorf("unknown fetch failure policy %q", s)
}

// Advance is the transition function of the walk. It returns the next state
// and, for talk pages, the slot the talk occupies.
func Advance(s State, kind PageKind, policy Policy) (State, *Slot) {
	switch kind {
	case MarkerPage:
		return State{Session: s.Session + 1, Sequence: 1}, nil
	case TalkPage:
		slot := &Slot{Session: s.Session, Sequence: s.Sequence}
		return State{Session: s.Session, Sequence: s.Sequence + 1}, slot
	case FailedPage:
		if policy == Reserve {
			return State{Session: s.Session, Sequence: s.Sequence + 1}, nil
		}
	}
	return s, nil
}
