package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupCategory(t *testing.T) {
	c := LookupCategory("nails_groomed")
	assert.Equal(t, "爪・ひげは整っている", c.Label)
	assert.Equal(t, "服装", c.Section)
}

func TestLookupCategoryUnknownKeyFallsBack(t *testing.T) {
	c := LookupCategory("mystery_key")
	assert.Equal(t, "mystery_key", c.Label)
	assert.Equal(t, "", c.Section)
}

func TestCategoryLabelPrefersExplicitFallback(t *testing.T) {
	assert.Equal(t, "体温", CategoryLabel("temperature", "ignored"))
	assert.Equal(t, "server label", CategoryLabel("unknown", "server label"))
	assert.Equal(t, "unknown", CategoryLabel("unknown", ""))
}
