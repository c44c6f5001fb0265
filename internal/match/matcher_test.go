package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch_FindsCloseTitle(t *testing.T) {
	m := New(DefaultCutoff)

	got, ok := m.Match("inception", []string{"inception 2010", "in the heat"})
	assert.True(t, ok)
	assert.Equal(t, "inception 2010", got)
}

func TestMatch_BelowCutoff(t *testing.T) {
	m := New(DefaultCutoff)

	_, ok := m.Match("xyz123", []string{"inception 2010"})
	assert.False(t, ok)
}

func TestMatch_EmptyInputs(t *testing.T) {
	m := New(DefaultCutoff)

	_, ok := m.Match("inception", nil)
	assert.False(t, ok, "empty candidate set")

	_, ok = m.Match("", []string{"inception"})
	assert.False(t, ok, "empty query")
}

func TestMatch_PrefersHighestScore(t *testing.T) {
	m := New(DefaultCutoff)

	got, ok := m.Match("the matrix", []string{"the matrix reloaded", "the matrix", "matrix"})
	assert.True(t, ok)
	assert.Equal(t, "the matrix", got)
}

func TestMatch_TieBreaksOnCandidateOrder(t *testing.T) {
	m := New(DefaultCutoff)

	// both candidates differ from the query by one trailing character
	got, ok := m.Match("alien", []string{"alien1", "alien2"})
	assert.True(t, ok)
	assert.Equal(t, "alien1", got)

	got, ok = m.Match("alien", []string{"alien2", "alien1"})
	assert.True(t, ok)
	assert.Equal(t, "alien2", got)
}

func TestMatch_Typo(t *testing.T) {
	m := New(DefaultCutoff)

	got, ok := m.Match("intersteller", []string{"interstellar", "inception"})
	assert.True(t, ok)
	assert.Equal(t, "interstellar", got)
}

func TestMatch_NonLatinTitles(t *testing.T) {
	m := New(DefaultCutoff)

	got, ok := m.Match("الرسالة", []string{"فيلم الرسالة", "الطريق"})
	assert.True(t, ok)
	assert.Equal(t, "فيلم الرسالة", got)
}

func TestNew_InvalidCutoffFallsBack(t *testing.T) {
	assert.Equal(t, DefaultCutoff, New(0).Cutoff)
	assert.Equal(t, DefaultCutoff, New(1.5).Cutoff)
	assert.Equal(t, 0.8, New(0.8).Cutoff)
}

func TestScore(t *testing.T) {
	assert.InDelta(t, 18.0/23.0, Score("inception", "inception 2010"), 1e-9)
	assert.Equal(t, 1.0, Score("alien", "alien"))
	assert.Equal(t, 0.0, Score("abc", "xyz"))
	assert.Equal(t, 1.0, Score("", ""))
}
