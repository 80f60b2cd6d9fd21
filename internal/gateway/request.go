package gateway

import (
	"encoding/json"
	"strings"
)

// DefaultModel is sent as the model when no provider hint was chosen.
const DefaultModel = "default"

// SpeechRequest is one synthesis submission, built fresh per attempt.
type SpeechRequest struct {
	Text         string
	VoiceID      string
	ProviderHint string
	Extra        map[string]any
}

// SpeechBody is the wire shape of the speech endpoint's request body.
type SpeechBody struct {
	Model     string         `json:"model"`
	Input     string         `json:"input"`
	Voice     string         `json:"voice"`
	ExtraBody map[string]any `json:"extra_body"`
}

// Body returns the JSON body sent to the gateway for r.
func (r SpeechRequest) Body() SpeechBody {
	model := r.ProviderHint
	if model == "" {
		model = DefaultModel
	}
	extra := r.Extra
	if extra == nil {
		extra = map[string]any{}
	}
	return SpeechBody{
		Model:     model,
		Input:     r.Text,
		Voice:     r.VoiceID,
		ExtraBody: extra,
	}
}

// Build assembles a SpeechRequest from raw form state. extraParams must be
// empty or a JSON object.
func Build(text, voiceID, providerHint, extraParams string) (SpeechRequest, error) {
	if strings.TrimSpace(text) == "" {
		return SpeechRequest{}, &ValidationError{Reason: ReasonEmptyText}
	}

	voiceID = strings.TrimSpace(voiceID)
	if voiceID == "" {
		return SpeechRequest{}, &ValidationError{Reason: ReasonEmptyVoice}
	}

	extra, err := parseExtra(extraParams)
	if err != nil {
		return SpeechRequest{}, err
	}

	return SpeechRequest{
		Text:         text,
		VoiceID:      voiceID,
		ProviderHint: strings.TrimSpace(providerHint),
		Extra:        extra,
	}, nil
}

func parseExtra(s string) (map[string]any, error) {
	if strings.TrimSpace(s) == "" {
		return map[string]any{}, nil
	}

	var extra map[string]any
	if err := json.Unmarshal([]byte(s), &extra); err != nil {
		return nil, &ValidationError{Reason: ReasonMalformedExtra, Cause: err}
	}
	// "null" decodes without error but is not a mapping.
	if extra == nil {
		return nil, &ValidationError{Reason: ReasonMalformedExtra}
	}
	return extra, nil
}
