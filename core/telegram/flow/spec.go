// Package flow implements the multi-step capture state machine. A Spec
// declares an ordered field sequence once per content kind; the Machine
// derives its states mechanically from that declaration.
package flow

import (
	"fmt"

	"curatorbot/model"
)

// InputKind declares what a field accepts.
type InputKind int

const (
	// TextOnly accepts plain text.
	TextOnly InputKind = iota
	// AttachmentOnly accepts a media attachment; its caption becomes the
	// field's text value.
	AttachmentOnly
	// TextOrAttachment accepts either.
	TextOrAttachment
)

// Binding maps a captured field onto the submission record.
type Binding int

const (
	// BindNone keeps the value only in the captured field map.
	BindNone Binding = iota
	// BindTitle stores the value as the submission title.
	BindTitle
	// BindBody stores the value as the submission body.
	BindBody
)

// Reference length limits: short identifying fields and long free text.
const (
	MaxShortField = 100
	MaxLongField  = 1000
)

// Field is one prompt in a capture sequence.
type Field struct {
	Name     string
	Prompt   string
	Kind     InputKind
	MaxLen   int
	Optional bool
	Bind     Binding
}

// AcceptsText reports whether plain text satisfies the field.
func (f Field) AcceptsText() bool {
	return f.Kind == TextOnly || f.Kind == TextOrAttachment
}

// AcceptsAttachment reports whether an attachment satisfies the field.
func (f Field) AcceptsAttachment() bool {
	return f.Kind == AttachmentOnly || f.Kind == TextOrAttachment
}

// Spec declares a complete capture flow for one content kind.
type Spec struct {
	Kind             model.Kind
	Title            string
	RequiresCategory bool
	// Publish marks content that fans out to public channels on approval.
	Publish bool
	Fields  []Field
}

// FieldIndex returns the position of a named field.
func (s *Spec) FieldIndex(name string) (int, bool) {
	for i, f := range s.Fields {
		if f.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Validate checks a spec for wiring mistakes at startup.
func (s *Spec) Validate() error {
	if !s.Kind.Valid() {
		return fmt.Errorf("flow: spec %q: invalid kind", s.Title)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("flow: spec %q: no fields", s.Title)
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("flow: spec %q: unnamed field", s.Title)
		}
		if seen[f.Name] {
			return fmt.Errorf("flow: spec %q: duplicate field %q", s.Title, f.Name)
		}
		seen[f.Name] = true
		if f.MaxLen <= 0 {
			return fmt.Errorf("flow: spec %q: field %q has no length limit", s.Title, f.Name)
		}
	}
	return nil
}
