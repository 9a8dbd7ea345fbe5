package tts

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	DefaultLanguage = "en"
	DefaultSpeed    = 1.0
	MaxSpeed        = 4.0
)

// RequestBody is the JSON accepted by the HTTP API. Speed is a pointer so an
// explicit 0 can be told apart from an absent field.
type RequestBody struct {
	Text       string   `json:"text"`
	SpeakerID  string   `json:"speaker_id,omitempty"`
	LanguageID string   `json:"language_id,omitempty"`
	Speed      *float64 `json:"speed,omitempty"`
}

// Normalize converts the body into a Request. A missing speed defaults to
// DefaultSpeed; an explicit speed must lie in (0, MaxSpeed].
func (b RequestBody) Normalize(defaultLanguage string, maxLen int) (Request, error) {
	req := Request{
		Text:       b.Text,
		SpeakerID:  b.SpeakerID,
		LanguageID: b.LanguageID,
		Speed:      DefaultSpeed,
	}
	if b.Speed != nil {
		if *b.Speed <= 0 {
			return req, fmt.Errorf("%w (got %g)", ErrInvalidSpeed, *b.Speed)
		}
		req.Speed = *b.Speed
	}
	return req.Normalize(defaultLanguage, maxLen)
}

// Request holds the parameters for text-to-speech generation.
type Request struct {
	Text       string  `json:"text"`
	SpeakerID  string  `json:"speaker_id,omitempty"`
	LanguageID string  `json:"language_id,omitempty"`
	Speed      float64 `json:"speed,omitempty"`
}

// Normalize trims the text, fills in the default language and speed and
// checks the limits. maxLen counts runes; zero disables the length check.
func (r Request) Normalize(defaultLanguage string, maxLen int) (Request, error) {
	r.Text = strings.TrimSpace(r.Text)
	r.SpeakerID = strings.TrimSpace(r.SpeakerID)
	r.LanguageID = strings.TrimSpace(r.LanguageID)

	if r.Text == "" {
		return r, ErrEmptyText
	}
	if maxLen > 0 {
		if n := utf8.RuneCountInString(r.Text); n > maxLen {
			return r, fmt.Errorf("%w: %d > %d characters", ErrTextTooLong, n, maxLen)
		}
	}

	if r.LanguageID == "" {
		r.LanguageID = defaultLanguage
	}
	if r.LanguageID == "" {
		r.LanguageID = DefaultLanguage
	}

	if r.Speed == 0 {
		r.Speed = DefaultSpeed
	}
	if r.Speed < 0 || r.Speed > MaxSpeed {
		return r, fmt.Errorf("%w (got %g)", ErrInvalidSpeed, r.Speed)
	}

	return r, nil
}
