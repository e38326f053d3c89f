// Package actions encodes inline-button actions as structured, versioned
// tokens. Every action is an enumerated type plus a typed payload and all
// decoding goes through one parser, so no call site matches on raw prefixes.
package actions

import (
	"fmt"
	"strconv"
	"strings"

	"curatorbot/model"

	tele "gopkg.in/telebot.v4"
)

// Type enumerates every inline action the bot understands.
type Type string

const (
	// StartFlow begins a capture flow of the payload kind.
	StartFlow Type = "flow_start"
	// PickCategory selects a category inside a capture flow.
	PickCategory Type = "flow_cat"
	// SkipField skips the current optional field.
	SkipField Type = "flow_skip"
	// Confirm submits the captured field map.
	Confirm Type = "flow_confirm"
	// Cancel abandons the active flow without side effects.
	Cancel Type = "flow_cancel"
	// EditField returns the flow to one field's input step.
	EditField Type = "flow_edit"
	// ReviewPage navigates the pending queue to a page.
	ReviewPage Type = "rev_page"
	// ReviewOpen shows one submission in detail.
	ReviewOpen Type = "rev_open"
	// Approve applies an approve decision.
	Approve Type = "rev_approve"
	// Reject applies a reject decision.
	Reject Type = "rev_reject"
	// ReviewBack returns from detail to the pending list.
	ReviewBack Type = "rev_back"
	// Menu returns to the root menu.
	Menu Type = "menu"
)

// Types lists every action type for registry wiring.
func Types() []Type {
	return []Type{
		StartFlow, PickCategory, SkipField, Confirm, Cancel, EditField,
		ReviewPage, ReviewOpen, Approve, Reject, ReviewBack, Menu,
	}
}

const (
	version = "1"
	sep     = ":"
)

// Action is a decoded token. Exactly the fields implied by Type are set.
type Action struct {
	Type         Type
	Kind         model.Kind // StartFlow
	CategoryID   int64      // PickCategory
	Field        string     // EditField
	Page         int        // ReviewPage
	SubmissionID string     // ReviewOpen, Approve, Reject
}

// Encode renders the payload carried in the callback button data.
// The callback unique is string(a.Type).
func (a Action) Encode() string {
	switch a.Type {
	case StartFlow:
		return version + sep + string(a.Kind)
	case PickCategory:
		return version + sep + strconv.FormatInt(a.CategoryID, 10)
	case EditField:
		return version + sep + a.Field
	case ReviewPage:
		return version + sep + strconv.Itoa(a.Page)
	case ReviewOpen, Approve, Reject:
		return version + sep + a.SubmissionID
	case SkipField, Confirm, Cancel, ReviewBack, Menu:
		return version
	}
	return version
}

// Decode parses a callback unique plus payload into an Action. It is the
// single parser for every action type; unknown or malformed tokens fail.
func Decode(unique, payload string) (Action, error) {
	t := Type(unique)
	args, err := splitPayload(payload)
	if err != nil {
		return Action{}, fmt.Errorf("actions: %s: %w", unique, err)
	}

	a := Action{Type: t}
	switch t {
	case StartFlow:
		if len(args) != 1 {
			return Action{}, arityErr(t, 1, len(args))
		}
		a.Kind = model.Kind(args[0])
		if !a.Kind.Valid() {
			return Action{}, fmt.Errorf("actions: %s: unknown kind %q", t, args[0])
		}
	case PickCategory:
		if len(args) != 1 {
			return Action{}, arityErr(t, 1, len(args))
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return Action{}, fmt.Errorf("actions: %s: bad category id: %w", t, err)
		}
		a.CategoryID = id
	case EditField:
		if len(args) != 1 || args[0] == "" {
			return Action{}, arityErr(t, 1, len(args))
		}
		a.Field = args[0]
	case ReviewPage:
		if len(args) != 1 {
			return Action{}, arityErr(t, 1, len(args))
		}
		page, err := strconv.Atoi(args[0])
		if err != nil {
			return Action{}, fmt.Errorf("actions: %s: bad page: %w", t, err)
		}
		a.Page = page
	case ReviewOpen, Approve, Reject:
		if len(args) != 1 || args[0] == "" {
			return Action{}, arityErr(t, 1, len(args))
		}
		a.SubmissionID = args[0]
	case SkipField, Confirm, Cancel, ReviewBack, Menu:
		if len(args) != 0 {
			return Action{}, arityErr(t, 0, len(args))
		}
	default:
		return Action{}, fmt.Errorf("actions: unknown action %q", unique)
	}
	return a, nil
}

// FromContext decodes the action carried by the callback in c.
func FromContext(c tele.Context) (Action, error) {
	cb := c.Callback()
	if cb == nil {
		return Action{}, fmt.Errorf("actions: no callback in update")
	}
	unique, payload := parseCallbackData(cb)
	return Decode(unique, payload)
}

// Button builds an inline button carrying the encoded action.
func Button(markup *tele.ReplyMarkup, text string, a Action) tele.Btn {
	return markup.Data(text, string(a.Type), a.Encode())
}

func splitPayload(payload string) ([]string, error) {
	if payload == "" {
		return nil, fmt.Errorf("empty payload")
	}
	parts := strings.Split(payload, sep)
	if parts[0] != version {
		return nil, fmt.Errorf("unsupported token version %q", parts[0])
	}
	return parts[1:], nil
}

func arityErr(t Type, want, got int) error {
	return fmt.Errorf("actions: %s: want %d args, got %d", t, want, got)
}

// parseCallbackData parses telebot's \f<unique>|<payload> encoding.
func parseCallbackData(cb *tele.Callback) (string, string) {
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\\f")
	parts := strings.SplitN(raw, "|", 2)
	unique := strings.TrimSpace(parts[0])
	payload := ""
	if len(parts) == 2 {
		payload = parts[1]
	}
	return unique, payload
}
