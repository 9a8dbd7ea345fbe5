package tts

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds configuration for the OpenAI speech backend.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // default: "https://api.openai.com/v1"
	Model   string // default: "tts-1"
}

// openAIMinSpeed is the slowest speed the speech endpoint accepts.
const openAIMinSpeed = 0.25

var openAIVoices = []string{
	string(openai.VoiceAlloy),
	string(openai.VoiceEcho),
	string(openai.VoiceFable),
	string(openai.VoiceOnyx),
	string(openai.VoiceNova),
	string(openai.VoiceShimmer),
}

// OpenAIEngine synthesizes speech using OpenAI's speech API.
type OpenAIEngine struct {
	client *openai.Client
	model  string
}

// LoadOpenAI returns a Loader for the OpenAI backend. Only the configuration
// is checked; there is no model to load locally.
func LoadOpenAI(cfg OpenAIConfig) Loader {
	return func(ctx context.Context) (Engine, error) {
		return NewOpenAIEngine(cfg)
	}
}

func NewOpenAIEngine(cfg OpenAIConfig) (*OpenAIEngine, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required (set OPENAI_API_KEY)")
	}
	if cfg.Model == "" || cfg.Model == "default" {
		cfg.Model = string(openai.TTSModel1)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIEngine{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}, nil
}

func (o *OpenAIEngine) Name() string  { return "openai" }
func (o *OpenAIEngine) Model() string { return o.model }

func (o *OpenAIEngine) Speakers(ctx context.Context) ([]string, error) {
	return append([]string{}, openAIVoices...), nil
}

// Languages reports only the default; the API detects the input language.
func (o *OpenAIEngine) Languages(ctx context.Context) ([]string, error) {
	return []string{DefaultLanguage}, nil
}

func (o *OpenAIEngine) Synthesize(ctx context.Context, req Request) (*Result, error) {
	voice := req.SpeakerID
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}
	if !slices.Contains(openAIVoices, voice) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSpeaker, voice)
	}

	if req.Speed != 0 && (req.Speed < openAIMinSpeed || req.Speed > MaxSpeed) {
		return nil, fmt.Errorf("%w: openai accepts %g to %g (got %g)", ErrInvalidSpeed, openAIMinSpeed, MaxSpeed, req.Speed)
	}

	sreq := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.model),
		Input:          req.Text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatWav,
	}
	if req.Speed > 0 {
		sreq.Speed = req.Speed
	}

	resp, err := o.client.CreateSpeech(ctx, sreq)
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("openai speech: empty response")
	}

	return &Result{
		ID:          uuid.NewString(),
		Engine:      o.Name(),
		Model:       o.model,
		Audio:       audio,
		ContentType: ContentTypeWAV,
	}, nil
}
