package voice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLister struct {
	calls  int
	voices []Voice
	err    error
}

func (l *countingLister) Voices(context.Context) ([]Voice, error) {
	l.calls++
	return l.voices, l.err
}

func TestCatalogCachesNonEmptyList(t *testing.T) {
	src := &countingLister{voices: []Voice{{ID: "a"}, {ID: "b"}}}
	c := NewCatalog(src)

	_, ok := c.Lookup("a")
	assert.False(t, ok, "lookup must not fetch")

	for i := 0; i < 3; i++ {
		voices, err := c.Voices(context.Background())
		require.NoError(t, err)
		assert.Len(t, voices, 2)
	}
	assert.Equal(t, 1, src.calls)

	v, ok := c.Lookup("b")
	assert.True(t, ok)
	assert.Equal(t, "b", v.ID)
}

func TestCatalogRefetchesWhileEmpty(t *testing.T) {
	src := &countingLister{}
	c := NewCatalog(src)

	voices, err := c.Voices(context.Background())
	require.NoError(t, err)
	assert.Empty(t, voices)

	src.err = errors.New("provider down")
	_, err = c.Voices(context.Background())
	assert.Error(t, err)

	src.err = nil
	src.voices = []Voice{{ID: "late"}}
	voices, err = c.Voices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Voice{{ID: "late"}}, voices)
	assert.Equal(t, 3, src.calls)
}

func TestInferGender(t *testing.T) {
	tests := []struct {
		name   string
		labels map[string]string
		want   string
	}{
		{"Rachel", nil, GenderFemale},
		{"Adam", nil, GenderMale},
		{"Narrator (male)", nil, GenderMale},
		{"Storyteller woman", nil, GenderFemale},
		{"Adam", map[string]string{"gender": "female"}, GenderFemale},
		{"Bella", map[string]string{"gender": "Male"}, GenderMale},
		{"Zyx", nil, GenderFemale},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inferGender(tt.name, tt.labels), tt.name)
	}
}

func TestInferAccent(t *testing.T) {
	tests := []struct {
		name, desc string
		labels     map[string]string
		want       string
	}{
		{"Priya", "", map[string]string{"accent": "indian"}, "Indian"},
		{"Oliver", "", map[string]string{"accent": "uk"}, "British"},
		{"Ana", "", map[string]string{"accent": "spanish"}, "spanish"},
		{"Jack", "calm voice from Ireland", nil, "Irish"},
		{"Aussie Mate", "", nil, "Australian"},
		{"Rachel", "calm narration", nil, "American"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inferAccent(tt.name, tt.desc, tt.labels), tt.name)
	}
}
