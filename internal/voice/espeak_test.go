package voice

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCommand struct {
	name  string
	args  []string
	stdin string
}

func fakeRunner(out []byte, err error, rec *recordedCommand) commandRunner {
	return func(_ context.Context, stdin io.Reader, name string, args ...string) ([]byte, error) {
		rec.name = name
		rec.args = args
		if stdin != nil {
			b, _ := io.ReadAll(stdin)
			rec.stdin = string(b)
		}
		return out, err
	}
}

const espeakVoiceTable = `Pty Language       Age/Gender VoiceName          File                 Other Languages
 5  en-gb           --/M      English_(Great_Britain) gmw/en               (en 2)
 2  en-us           --/M      English_(America)  gmw/en-US            (en 10)
 5  hi              --/F      Hindi              inc/hi
 5  en-029          --/M      English_(Caribbean) gmw/en-029
`

func TestEspeakVoices(t *testing.T) {
	var rec recordedCommand
	s := NewEspeakSynthesizer("")
	s.run = fakeRunner([]byte(espeakVoiceTable), nil, &rec)

	voices, err := s.Voices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultEspeakBinary, rec.name)
	assert.Equal(t, []string{"--voices"}, rec.args)

	require.Len(t, voices, 4)
	assert.Equal(t, Voice{ID: "en-gb", Name: "English (Great Britain)", Gender: GenderMale, Locale: "en-GB"}, voices[0])
	assert.Equal(t, "en-US", voices[1].Locale)
	assert.Equal(t, Voice{ID: "hi", Name: "Hindi", Gender: GenderFemale, Locale: "hi"}, voices[2])
	assert.Equal(t, "en-029", voices[3].Locale)
}

func TestEspeakSynthesize(t *testing.T) {
	var rec recordedCommand
	s := NewEspeakSynthesizer("/usr/bin/espeak-ng")
	s.run = fakeRunner([]byte("RIFF"), nil, &rec)

	audio, err := s.Synthesize(context.Background(), "--help; rm -rf /", Voice{ID: "en-us"}, Params{Pitch: 1.1, Rate: 0.8})
	require.NoError(t, err)
	assert.Equal(t, FormatWAV, audio.Format)
	assert.Equal(t, "/usr/bin/espeak-ng", rec.name)
	assert.Equal(t, []string{"-v", "en-us", "-p", "55", "-s", "140", "--stdout", "--stdin"}, rec.args)
	assert.Equal(t, "--help; rm -rf /", rec.stdin, "text travels on stdin, never as an argument")
	assert.Equal(t, KindLocal, s.Kind())
}

func TestEspeakSynthesizeError(t *testing.T) {
	var rec recordedCommand
	s := NewEspeakSynthesizer("")
	s.run = fakeRunner(nil, errors.New("exit status 1"), &rec)

	_, err := s.Synthesize(context.Background(), "hi", Voice{}, Params{})
	require.Error(t, err)
	assert.NotContains(t, rec.args, "-v")
}

func TestEspeakScales(t *testing.T) {
	assert.Equal(t, 50, espeakPitch(1))
	assert.Equal(t, 50, espeakPitch(0))
	assert.Equal(t, 99, espeakPitch(3))
	assert.Equal(t, 175, espeakRate(1))
	assert.Equal(t, 80, espeakRate(0.1))
	assert.Equal(t, 450, espeakRate(4))
}
