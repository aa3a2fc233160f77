package teams

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_AliasEquivalence(t *testing.T) {
	assert.Equal(t, Normalize("LA Clippers"), Normalize("Los Angeles Clippers"),
		"Both Clippers spellings should reduce to one canonical name")
	assert.Equal(t, "Los Angeles Clippers", Normalize("LA Clippers"))
}

func TestNormalize_PassThrough(t *testing.T) {
	for _, name := range []string{
		"Memphis Grizzlies",
		"Boston Celtics",
		"Denver Nuggets",
		"",
		"Some Unknown Team",
	} {
		assert.Equal(t, name, Normalize(name), "Unknown names must pass through unchanged")
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	first := Normalize("LA Clippers")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Normalize("LA Clippers"))
	}
}
