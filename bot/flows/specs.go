// Package flows declares the capture sequences offered from the root menu.
package flows

import (
	"curatorbot/core/telegram/flow"
	"curatorbot/model"
)

// Request asks for content the library does not have yet. It is the only
// flow tied to the category directory.
func Request() flow.Spec {
	return flow.Spec{
		Kind:             model.KindRequest,
		Title:            "request",
		RequiresCategory: true,
		Fields: []flow.Field{
			{
				Name:   "title",
				Prompt: "What are you looking for? Send the exact title.",
				Kind:   flow.TextOnly,
				MaxLen: flow.MaxShortField,
				Bind:   flow.BindTitle,
			},
			{
				Name:     "description",
				Prompt:   "Add any details that help us find it, or skip.",
				Kind:     flow.TextOnly,
				MaxLen:   flow.MaxLongField,
				Optional: true,
				Bind:     flow.BindBody,
			},
		},
	}
}

// Contribution submits content for the shared library. Approved
// contributions are published to the configured channels.
func Contribution() flow.Spec {
	return flow.Spec{
		Kind:    model.KindContribution,
		Title:   "contribution",
		Publish: true,
		Fields: []flow.Field{
			{
				Name:   "title",
				Prompt: "Give your contribution a title.",
				Kind:   flow.TextOnly,
				MaxLen: flow.MaxShortField,
				Bind:   flow.BindTitle,
			},
			{
				Name:   "content",
				Prompt: "Describe what you are sharing.",
				Kind:   flow.TextOnly,
				MaxLen: flow.MaxLongField,
				Bind:   flow.BindBody,
			},
			{
				Name:     "attachment",
				Prompt:   "Attach a photo or file, or skip.",
				Kind:     flow.AttachmentOnly,
				MaxLen:   flow.MaxShortField,
				Optional: true,
			},
		},
	}
}

// Feedback is a single free-form message to the operators.
func Feedback() flow.Spec {
	return flow.Spec{
		Kind:  model.KindFeedback,
		Title: "feedback",
		Fields: []flow.Field{
			{
				Name:   "message",
				Prompt: "Tell us what is on your mind.",
				Kind:   flow.TextOrAttachment,
				MaxLen: flow.MaxLongField,
				Bind:   flow.BindBody,
			},
		},
	}
}

// All returns every capture flow in menu order.
func All() []flow.Spec {
	return []flow.Spec{Request(), Contribution(), Feedback()}
}

// Publishable derives the set of kinds that fan out to channels on approval.
func Publishable() map[model.Kind]bool {
	out := make(map[model.Kind]bool)
	for _, s := range All() {
		if s.Publish {
			out[s.Kind] = true
		}
	}
	return out
}
