package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// PiperConfig holds configuration for the local Piper backend.
type PiperConfig struct {
	BinPath  string // default: "piper"
	ModelDir string // where <model>.onnx voices live
	Model    string // voice name, or a path ending in .onnx
}

// voiceConfig is the subset of a Piper <voice>.onnx.json file we read.
type voiceConfig struct {
	Audio struct {
		SampleRate int `json:"sample_rate"`
	} `json:"audio"`
	Espeak struct {
		Voice string `json:"voice"`
	} `json:"espeak"`
	Language struct {
		Code   string `json:"code"`
		Family string `json:"family"`
	} `json:"language"`
	NumSpeakers  int            `json:"num_speakers"`
	SpeakerIDMap map[string]int `json:"speaker_id_map"`
}

// PiperEngine synthesizes speech by running the Piper binary once per request.
type PiperEngine struct {
	bin        string
	name       string
	modelPath  string
	configPath string
	voice      voiceConfig
	speakers   []string
}

// LoadPiper returns a Loader that resolves the voice model and its config.
func LoadPiper(cfg PiperConfig) Loader {
	return func(ctx context.Context) (Engine, error) {
		return NewPiperEngine(cfg)
	}
}

// NewPiperEngine checks that the binary and the voice files exist and parses
// the voice config.
func NewPiperEngine(cfg PiperConfig) (*PiperEngine, error) {
	if cfg.BinPath == "" {
		cfg.BinPath = "piper"
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("piper model is required (set TTS_MODEL or --model)")
	}

	bin, err := exec.LookPath(cfg.BinPath)
	if err != nil {
		return nil, fmt.Errorf("piper binary %q: %w", cfg.BinPath, err)
	}

	modelPath := cfg.Model
	if !strings.HasSuffix(modelPath, ".onnx") {
		modelPath = filepath.Join(cfg.ModelDir, cfg.Model+".onnx")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("piper model: %w", err)
	}

	configPath := modelPath + ".json"
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("piper voice config: %w", err)
	}

	var voice voiceConfig
	if err := json.Unmarshal(data, &voice); err != nil {
		return nil, fmt.Errorf("parse voice config %s: %w", configPath, err)
	}
	if voice.Audio.SampleRate <= 0 {
		voice.Audio.SampleRate = 22050
	}

	speakers := make([]string, 0, len(voice.SpeakerIDMap))
	for name := range voice.SpeakerIDMap {
		speakers = append(speakers, name)
	}
	sort.Slice(speakers, func(i, j int) bool {
		return voice.SpeakerIDMap[speakers[i]] < voice.SpeakerIDMap[speakers[j]]
	})

	return &PiperEngine{
		bin:        bin,
		name:       strings.TrimSuffix(filepath.Base(modelPath), ".onnx"),
		modelPath:  modelPath,
		configPath: configPath,
		voice:      voice,
		speakers:   speakers,
	}, nil
}

func (p *PiperEngine) Name() string  { return "piper" }
func (p *PiperEngine) Model() string { return p.name }

func (p *PiperEngine) Speakers(ctx context.Context) ([]string, error) {
	return append([]string{}, p.speakers...), nil
}

func (p *PiperEngine) Languages(ctx context.Context) ([]string, error) {
	if lang := p.language(); lang != "" {
		return []string{lang}, nil
	}
	return []string{DefaultLanguage}, nil
}

func (p *PiperEngine) language() string {
	if p.voice.Language.Code != "" {
		return p.voice.Language.Code
	}
	return p.voice.Espeak.Voice
}

// Synthesize pipes text into Piper via stdin and wraps the raw PCM it writes
// to stdout into a WAV file.
func (p *PiperEngine) Synthesize(ctx context.Context, req Request) (*Result, error) {
	args := []string{"--model", p.modelPath, "--config", p.configPath, "--output-raw"}

	if req.SpeakerID != "" {
		id, err := p.speakerID(req.SpeakerID)
		if err != nil {
			return nil, err
		}
		args = append(args, "--speaker", strconv.Itoa(id))
	}

	if req.LanguageID != "" && !p.supportsLanguage(req.LanguageID) {
		return nil, fmt.Errorf("%w: %q (model speaks %s)", ErrUnsupportedLanguage, req.LanguageID, p.language())
	}

	if req.Speed > 0 && req.Speed != DefaultSpeed {
		args = append(args, "--length_scale", strconv.FormatFloat(1/req.Speed, 'f', 3, 64))
	}

	cmd := exec.CommandContext(ctx, p.bin, args...)
	cmd.Stdin = strings.NewReader(req.Text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("piper failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	audio, err := EncodeWAV(stdout.Bytes(), PCMFormat{
		SampleRate: p.voice.Audio.SampleRate,
		Channels:   1,
		BitDepth:   16,
	})
	if err != nil {
		return nil, fmt.Errorf("encode piper output: %w", err)
	}

	return &Result{
		ID:          uuid.NewString(),
		Engine:      p.Name(),
		Model:       p.name,
		Audio:       audio,
		ContentType: ContentTypeWAV,
	}, nil
}

// speakerID accepts a speaker name from speaker_id_map or a numeric id.
func (p *PiperEngine) speakerID(speaker string) (int, error) {
	if id, ok := p.voice.SpeakerIDMap[speaker]; ok {
		return id, nil
	}
	if id, err := strconv.Atoi(speaker); err == nil && id >= 0 && id < p.voice.NumSpeakers && p.voice.NumSpeakers > 1 {
		return id, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSpeaker, speaker)
}

// supportsLanguage matches the model language exactly or by family, so "en"
// and "en-us" both select an en_US voice.
func (p *PiperEngine) supportsLanguage(lang string) bool {
	norm := func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "-", "_"))
	}

	want := norm(lang)
	have := norm(p.language())
	if have == "" {
		return true
	}
	if want == have {
		return true
	}

	family := norm(p.voice.Language.Family)
	if family == "" {
		family, _, _ = strings.Cut(have, "_")
	}
	return want == family
}
