package domain

import "encoding/json"

// AutoDetect asks the provider to detect the source language.
const AutoDetect = "auto"

type TranslationRequest struct {
	SourceText     string `json:"text"`
	TargetLanguage string `json:"to"`
	SourceLanguage string `json:"from,omitempty"`
}

type TranslationResponse struct {
	TranslatedText     string          `json:"translatedText"`
	DetectedLanguage   string          `json:"detectedLanguage,omitempty"`
	RawProviderPayload json.RawMessage `json:"raw,omitempty"`
}
