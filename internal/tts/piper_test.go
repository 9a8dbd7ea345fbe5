package tts

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const multiSpeakerVoice = `{
  "audio": {"sample_rate": 16000, "quality": "medium"},
  "espeak": {"voice": "en-us"},
  "language": {"code": "en_US", "family": "en", "region": "US"},
  "num_speakers": 3,
  "speaker_id_map": {"p239": 2, "p225": 0, "p226": 1}
}`

const singleSpeakerVoice = `{
  "audio": {"sample_rate": 22050},
  "espeak": {"voice": "de"},
  "language": {"code": "de_DE", "family": "de"},
  "num_speakers": 1,
  "speaker_id_map": {}
}`

// fakePiper writes a shell script standing in for the piper binary. It records
// its arguments and stdin next to itself and prints three PCM samples.
func fakePiper(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake piper needs a POSIX shell")
	}

	dir := t.TempDir()
	script := "#!/bin/sh\n" +
		"echo \"$@\" > \"$(dirname \"$0\")/args.txt\"\n" +
		"cat > \"$(dirname \"$0\")/stdin.txt\"\n" +
		body + "\n"

	path := filepath.Join(dir, "piper")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writeVoice(t *testing.T, name, cfg string) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".onnx"), []byte("onnx"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".onnx.json"), []byte(cfg), 0o644))
	return dir
}

func readArgs(t *testing.T, bin string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(filepath.Dir(bin), "args.txt"))
	require.NoError(t, err)
	return strings.TrimSpace(string(data))
}

func TestNewPiperEngineReadsVoiceConfig(t *testing.T) {
	bin := fakePiper(t, "true")
	dir := writeVoice(t, "en_US-vctk-medium", multiSpeakerVoice)

	e, err := NewPiperEngine(PiperConfig{BinPath: bin, ModelDir: dir, Model: "en_US-vctk-medium"})
	require.NoError(t, err)

	assert.Equal(t, "piper", e.Name())
	assert.Equal(t, "en_US-vctk-medium", e.Model())

	speakers, err := e.Speakers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"p225", "p226", "p239"}, speakers)

	langs, err := e.Languages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"en_US"}, langs)
}

func TestNewPiperEngineAcceptsModelPath(t *testing.T) {
	bin := fakePiper(t, "true")
	dir := writeVoice(t, "de_DE-thorsten-low", singleSpeakerVoice)

	e, err := NewPiperEngine(PiperConfig{BinPath: bin, Model: filepath.Join(dir, "de_DE-thorsten-low.onnx")})
	require.NoError(t, err)
	assert.Equal(t, "de_DE-thorsten-low", e.Model())

	speakers, err := e.Speakers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, speakers)
}

func TestNewPiperEngineFailures(t *testing.T) {
	bin := fakePiper(t, "true")
	dir := writeVoice(t, "voice", multiSpeakerVoice)

	_, err := NewPiperEngine(PiperConfig{BinPath: filepath.Join(t.TempDir(), "missing-piper"), ModelDir: dir, Model: "voice"})
	assert.ErrorContains(t, err, "piper binary")

	_, err = NewPiperEngine(PiperConfig{BinPath: bin, ModelDir: dir, Model: "other"})
	assert.ErrorContains(t, err, "piper model")

	_, err = NewPiperEngine(PiperConfig{BinPath: bin, ModelDir: dir})
	assert.ErrorContains(t, err, "model is required")

	broken := writeVoice(t, "broken", "{not json")
	_, err = NewPiperEngine(PiperConfig{BinPath: bin, ModelDir: broken, Model: "broken"})
	assert.ErrorContains(t, err, "parse voice config")
}

func TestPiperSynthesize(t *testing.T) {
	bin := fakePiper(t, `printf '\001\000\002\000\003\000'`)
	dir := writeVoice(t, "voice", multiSpeakerVoice)

	e, err := NewPiperEngine(PiperConfig{BinPath: bin, ModelDir: dir, Model: "voice"})
	require.NoError(t, err)

	res, err := e.Synthesize(context.Background(), Request{Text: "Hello world", SpeakerID: "p226", LanguageID: "en", Speed: 2})
	require.NoError(t, err)

	assert.Equal(t, ContentTypeWAV, res.ContentType)
	assert.NotEmpty(t, res.ID)

	d := wav.NewDecoder(bytes.NewReader(res.Audio))
	buf, err := d.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, buf.Data)
	assert.Equal(t, uint32(16000), d.SampleRate)

	args := readArgs(t, bin)
	assert.Contains(t, args, "--output-raw")
	assert.Contains(t, args, "--speaker 1")
	assert.Contains(t, args, "--length_scale 0.500")

	stdin, err := os.ReadFile(filepath.Join(filepath.Dir(bin), "stdin.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Hello world", string(stdin))
}

func TestPiperSynthesizeNumericSpeakerAndDefaultSpeed(t *testing.T) {
	bin := fakePiper(t, `printf '\001\000'`)
	dir := writeVoice(t, "voice", multiSpeakerVoice)

	e, err := NewPiperEngine(PiperConfig{BinPath: bin, ModelDir: dir, Model: "voice"})
	require.NoError(t, err)

	_, err = e.Synthesize(context.Background(), Request{Text: "hi", SpeakerID: "2", Speed: 1})
	require.NoError(t, err)

	args := readArgs(t, bin)
	assert.Contains(t, args, "--speaker 2")
	assert.NotContains(t, args, "--length_scale")
}

func TestPiperSynthesizeRejectsBadVoice(t *testing.T) {
	bin := fakePiper(t, `printf '\001\000'`)
	dir := writeVoice(t, "voice", singleSpeakerVoice)

	e, err := NewPiperEngine(PiperConfig{BinPath: bin, ModelDir: dir, Model: "voice"})
	require.NoError(t, err)

	_, err = e.Synthesize(context.Background(), Request{Text: "hi", SpeakerID: "p225"})
	assert.ErrorIs(t, err, ErrUnknownSpeaker)

	_, err = e.Synthesize(context.Background(), Request{Text: "hi", SpeakerID: "0"})
	assert.ErrorIs(t, err, ErrUnknownSpeaker)

	_, err = e.Synthesize(context.Background(), Request{Text: "hi", LanguageID: "en"})
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)

	_, err = e.Synthesize(context.Background(), Request{Text: "hallo", LanguageID: "de"})
	assert.NoError(t, err)

	_, err = e.Synthesize(context.Background(), Request{Text: "hallo", LanguageID: "de-DE"})
	assert.NoError(t, err)
}

func TestPiperSynthesizeProcessFailure(t *testing.T) {
	bin := fakePiper(t, "echo 'voice exploded' >&2\nexit 3")
	dir := writeVoice(t, "voice", multiSpeakerVoice)

	e, err := NewPiperEngine(PiperConfig{BinPath: bin, ModelDir: dir, Model: "voice"})
	require.NoError(t, err)

	_, err = e.Synthesize(context.Background(), Request{Text: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "voice exploded")
	assert.False(t, IsInvalidInput(err))
}

func TestPiperSynthesizeNoOutput(t *testing.T) {
	bin := fakePiper(t, "true")
	dir := writeVoice(t, "voice", multiSpeakerVoice)

	e, err := NewPiperEngine(PiperConfig{BinPath: bin, ModelDir: dir, Model: "voice"})
	require.NoError(t, err)

	_, err = e.Synthesize(context.Background(), Request{Text: "hi"})
	assert.ErrorContains(t, err, "no audio produced")
}
