package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConcept_NameLength(t *testing.T) {
	t.Parallel()

	t.Run("rejects short names after trim", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"", "ab", "  a  ", " \t x\n"} {
			_, err := NewConcept(name, ModuleSpread, "some definition", 0.8)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
		}
	})

	t.Run("accepts names of 3+ chars", func(t *testing.T) {
		t.Parallel()
		c, err := NewConcept("  Facteur de choc  ", ModuleSpread, "def", 0.8)
		require.NoError(t, err)
		assert.Equal(t, "Facteur de choc", c.ConceptName)
	})
}

func TestNewConcept_ConfidenceBounds(t *testing.T) {
	t.Parallel()

	for _, score := range []float64{0, 0.5, 1} {
		_, err := NewConcept("valid name", ModuleEquity, "def", score)
		assert.NoError(t, err)
	}
	for _, score := range []float64{-0.1, 1.1} {
		_, err := NewConcept("valid name", ModuleEquity, "def", score)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrValidation))
	}
}

func TestConcept_AddExample(t *testing.T) {
	t.Parallel()

	c, err := NewConcept("duration modifiée", ModuleInterestRate, "def", DefaultConfidence)
	require.NoError(t, err)

	c.AddExample("  exemple A ")
	c.AddExample("exemple A")
	c.AddExample("")
	c.AddExample(strings.Repeat(" ", 4))
	c.AddExample("exemple B")

	assert.Equal(t, []string{"exemple A", "exemple B"}, c.Examples)
}
