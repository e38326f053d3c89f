package state

import (
	"time"

	"curatorbot/model"
)

// Phase identifies which stage of a capture flow a session is in.
type Phase int

const (
	// PhaseCategory waits for the user to pick a category.
	PhaseCategory Phase = iota
	// PhaseInput waits for input for one declared field.
	PhaseInput
	// PhaseConfirm shows the captured values and waits for confirm/edit/cancel.
	PhaseConfirm
)

// Step addresses a single state of the capture machine. Field is the
// zero-based field index and is meaningful only in PhaseInput.
type Step struct {
	Phase Phase
	Field int
}

// Session holds the transient per-user state of one active capture flow.
// At most one session exists per user; all mutation goes through Store.Update
// so writes for the same user never interleave.
type Session struct {
	UserID       int64
	Flow         model.Kind
	Fields       map[string]string
	CategoryID   int64
	CategoryName string
	Attachment   string
	Step         Step
	AnchorID     int
	Touched      time.Time
}

// Value returns a captured field value and whether it was committed.
func (s *Session) Value(field string) (string, bool) {
	v, ok := s.Fields[field]
	return v, ok
}

// SetValue commits a field value, merging into the existing map.
func (s *Session) SetValue(field, value string) {
	if s.Fields == nil {
		s.Fields = make(map[string]string)
	}
	s.Fields[field] = value
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Fields = make(map[string]string, len(s.Fields))
	for k, v := range s.Fields {
		out.Fields[k] = v
	}
	return &out
}
