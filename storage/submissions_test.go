package storage

import (
	"fmt"
	"testing"

	"curatorbot/model"

	"github.com/stretchr/testify/assert"
)

func TestDecideZeroRowsClassification(t *testing.T) {
	assert.ErrorIs(t, decideZeroRows(nil), model.ErrConflict,
		"record exists but is no longer pending")

	assert.ErrorIs(t, decideZeroRows(model.ErrNotFound), model.ErrNotFound)

	transient := fmt.Errorf("read tcp: connection reset by peer")
	got := decideZeroRows(transient)
	assert.ErrorIs(t, got, transient, "the read failure must stay visible for retry")
	assert.NotErrorIs(t, got, model.ErrConflict)
	assert.NotErrorIs(t, got, model.ErrNotFound)
}
