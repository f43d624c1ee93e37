package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/extbuild/internal/core/domain"
)

func TestInternedString_SharesHandle(t *testing.T) {
	a := domain.NewInternedString("build:popup")
	b := domain.NewInternedString("build:" + "popup")

	assert.Equal(t, a.Value(), b.Value())
	assert.Equal(t, a, b)
	assert.Equal(t, "build:popup", a.String())
}

func TestInternedString_JSONRoundTripInMap(t *testing.T) {
	deps := map[domain.InternedString][]domain.InternedString{
		domain.NewInternedString("make"): domain.NewInternedStrings([]string{"build"}),
	}

	data, err := json.Marshal(deps)
	require.NoError(t, err)
	assert.JSONEq(t, `{"make":["build"]}`, string(data))

	var decoded map[domain.InternedString][]domain.InternedString
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, deps, decoded)
}

func TestInternedString_ZeroValue(t *testing.T) {
	var zero domain.InternedString

	assert.Empty(t, zero.String())
	text, err := zero.MarshalText()
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Equal(t, []string{"", "clean"}, domain.Strings([]domain.InternedString{zero, domain.NewInternedString("clean")}))
}
