package sapi5

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOleEngineCloseWithPartialState(t *testing.T) {
	// An engine whose creation aborted midway holds only what was acquired
	// before the failure. Close is the cleanup path of that abort and must
	// tolerate every field still being nil.
	assert.NoError(t, (&oleEngine{}).Close())
}
