package phoneme

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestConvert(t *testing.T) {
	// Known symbols
	o, err := Convert("θs")
	assert.NoError(t, err)
	assert.Equal(t, "th s", o)

	// Primary stress suffixes the following symbol
	o, err = Convert("ˈθs")
	assert.NoError(t, err)
	assert.Equal(t, "th 1 s", o)

	// Trailing stress marker
	o, err = Convert("sˈ")
	assert.NoError(t, err)
	assert.Equal(t, "s 1", o)

	// Empty input
	o, err = Convert("")
	assert.NoError(t, err)
	assert.Equal(t, "", o)
}

func TestConvertUnknownSymbol(t *testing.T) {
	_, err := Convert("θx")
	assert.Error(t, err)
	assert.Equal(t, ErrNoTranslation, errors.Cause(err))
}
