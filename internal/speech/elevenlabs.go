package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// ElevenLabs defaults.
const (
	ElevenLabsBaseURL      = "https://api.elevenlabs.io"
	ElevenLabsDefaultVoice = "OKanSStS6li6xyU1WdXa"
	ElevenLabsDefaultModel = "eleven_multilingual_v2"

	elevenLabsTimeout  = 30 * time.Second
	maxAudioBytes      = 16 << 20
	defaultContentType = "audio/mpeg"
)

// VoiceSettings tunes the ElevenLabs voice.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// DefaultVoiceSettings returns the settings used when none are configured.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Stability:       0.5,
		SimilarityBoost: 0.8,
		Style:           0.0,
		UseSpeakerBoost: true,
	}
}

// ElevenLabsConfig holds the configuration for the ElevenLabs client.
type ElevenLabsConfig struct {
	APIKey        string         // Required
	VoiceID       string         // Optional: default ElevenLabsDefaultVoice
	Model         string         // Optional: default eleven_multilingual_v2
	BaseURL       string         // Optional: default https://api.elevenlabs.io
	VoiceSettings *VoiceSettings // Optional: default DefaultVoiceSettings
	HTTPClient    *http.Client
}

// ElevenLabs is a Gateway backed by the ElevenLabs streaming text-to-speech endpoint.
type ElevenLabs struct {
	apiKey     string
	voiceID    string
	model      string
	baseURL    string
	settings   VoiceSettings
	httpClient *http.Client
}

// NewElevenLabs creates an ElevenLabs client.
func NewElevenLabs(config ElevenLabsConfig) (*ElevenLabs, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("ElevenLabs API key is required")
	}

	c := &ElevenLabs{
		apiKey:     config.APIKey,
		voiceID:    config.VoiceID,
		model:      config.Model,
		baseURL:    config.BaseURL,
		settings:   DefaultVoiceSettings(),
		httpClient: config.HTTPClient,
	}
	if c.voiceID == "" {
		c.voiceID = ElevenLabsDefaultVoice
	}
	if c.model == "" {
		c.model = ElevenLabsDefaultModel
	}
	if c.baseURL == "" {
		c.baseURL = ElevenLabsBaseURL
	}
	if config.VoiceSettings != nil {
		c.settings = *config.VoiceSettings
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: elevenLabsTimeout}
	}

	return c, nil
}

type elevenLabsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// Synthesize posts text to the streaming endpoint and collects the audio.
func (c *ElevenLabs) Synthesize(ctx context.Context, text string) (*Audio, error) {
	body, err := json.Marshal(elevenLabsRequest{
		Text:          text,
		ModelID:       c.model,
		VoiceSettings: c.settings,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s/stream", c.baseURL, url.PathEscape(c.voiceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", defaultContentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: ElevenLabs returned status %d: %s", ErrSynthesisUnavailable, resp.StatusCode, bytes.TrimSpace(msg))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read audio: %v", ErrSynthesisUnavailable, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty audio stream", ErrSynthesisUnavailable)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}

	return &Audio{
		ID:          uuid.New().String(),
		Text:        text,
		ContentType: contentType,
		Data:        data,
		CreatedAt:   time.Now(),
	}, nil
}
