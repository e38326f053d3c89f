package actions

import (
	"testing"

	"curatorbot/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, a := range []Action{
		{Type: StartFlow, Kind: model.KindContribution},
		{Type: PickCategory, CategoryID: 42},
		{Type: SkipField},
		{Type: Confirm},
		{Type: Cancel},
		{Type: EditField, Field: "title"},
		{Type: ReviewPage, Page: 3},
		{Type: ReviewOpen, SubmissionID: "4f1c2ada-8a42-4f2b-b9be-111111111111"},
		{Type: Approve, SubmissionID: "abc"},
		{Type: Reject, SubmissionID: "abc"},
		{Type: ReviewBack},
		{Type: Menu},
	} {
		got, err := Decode(string(a.Type), a.Encode())
		require.NoError(t, err, "type %s", a.Type)
		assert.Equal(t, a, got)
	}
}

func TestDecodeRejectsMalformedTokens(t *testing.T) {
	cases := []struct{ unique, payload string }{
		{"flow_start", ""},                 // empty payload
		{"flow_start", "2:request"},        // wrong version
		{"flow_start", "1:movie"},          // kind outside the closed set
		{"flow_cat", "1:notanumber"},       // typed payload mismatch
		{"rev_page", "1:two"},              // typed payload mismatch
		{"flow_confirm", "1:extra"},        // arity
		{"rev_open", "1:"},                 // empty id
		{"vote_pass_123", "1"},             // legacy concatenated action style
		{"", "1"},                          // no action at all
	}
	for _, tc := range cases {
		_, err := Decode(tc.unique, tc.payload)
		assert.Error(t, err, "unique=%q payload=%q", tc.unique, tc.payload)
	}
}
