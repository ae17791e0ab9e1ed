package speech

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"¡Hola!", "hola"},
		{"  Gracias.  ¿Qué   recomienda? ", "gracias que recomienda"},
		{"Sí, dos aguas, por favor.", "si dos aguas por favor"},
		{`"Tú" estás: aquí;`, "tu estas aqui"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), tt.in)
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 1.0, Similarity("Mesa para dos, por favor.", "mesa para dos por favor"))
	assert.Equal(t, 0.0, Similarity("abc", ""))
	// One substitution in four runes.
	assert.InDelta(t, 0.75, Similarity("hola", "hora"), 1e-9)
	assert.InDelta(t, Similarity("gato", "pato"), Similarity("pato", "gato"), 1e-9)
}

func TestBestMatch(t *testing.T) {
	options := []string{"Mesa para dos, por favor.", "Quiero comer algo.", "Buenas noches."}

	m := BestMatch("mesa para dos por favor", options)
	assert.Equal(t, 0, m.Index)
	assert.True(t, m.Accepted)

	m = BestMatch("mesa pa dos por favo", options)
	assert.Equal(t, 0, m.Index)
	assert.True(t, m.Accepted)

	m = BestMatch("no sé", options)
	assert.False(t, m.Accepted)

	m = BestMatch("hola", nil)
	assert.Equal(t, -1, m.Index)
	assert.False(t, m.Accepted)
}

func TestAcceptThresholdBoundary(t *testing.T) {
	// 3 edits over 10 runes sits exactly on the threshold.
	assert.InDelta(t, AcceptThreshold, Similarity("abcdefghij", "abcdefgxyz"), 1e-9)
	assert.True(t, BestMatch("abcdefghij", []string{"abcdefgxyz"}).Accepted)
	assert.False(t, BestMatch("abcdefghij", []string{"abcdefwxyz"}).Accepted)
}

func TestUtterance(t *testing.T) {
	u := NewUtterance("¡Hola!").WithVoice("Mónica")
	assert.Equal(t, Utterance{Text: "¡Hola!", Lang: "es-ES", Rate: 0.9, Voice: "Mónica"}, u)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "no-speech", ErrorCode(fmt.Errorf("wrap: %w", ErrNoSpeech)))
	assert.Equal(t, "not-allowed", ErrorCode(ErrUnavailable))
	assert.Equal(t, "aborted", ErrorCode(errors.New("boom")))
	assert.Equal(t, "", ErrorCode(nil))

	_, err := Disabled{}.Recognize(context.Background(), []byte{1}, "audio/wav")
	assert.ErrorIs(t, err, ErrUnavailable)
}
