package flows

import (
	"testing"

	"curatorbot/core/telegram/flow"
	"curatorbot/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllSpecsValidate(t *testing.T) {
	specs := All()
	require.Len(t, specs, 3)
	seen := map[model.Kind]bool{}
	for _, s := range specs {
		assert.NoError(t, s.Validate(), s.Title)
		assert.False(t, seen[s.Kind], "duplicate kind %s", s.Kind)
		seen[s.Kind] = true
	}
}

func TestRequestFlowShape(t *testing.T) {
	s := Request()
	assert.True(t, s.RequiresCategory)
	assert.False(t, s.Publish)

	idx, ok := s.FieldIndex("description")
	require.True(t, ok)
	assert.True(t, s.Fields[idx].Optional)

	idx, ok = s.FieldIndex("title")
	require.True(t, ok)
	assert.Equal(t, flow.BindTitle, s.Fields[idx].Bind)
	assert.Equal(t, flow.MaxShortField, s.Fields[idx].MaxLen)
}

func TestOnlyContributionsPublish(t *testing.T) {
	pub := Publishable()
	assert.Equal(t, map[model.Kind]bool{model.KindContribution: true}, pub)
}
