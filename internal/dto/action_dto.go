package dto

import (
	"github.com/google/uuid"
)

type CorrectRequest struct {
	Text string `json:"text" validate:"required"`
}

type TranslateRequest struct {
	Text           string `json:"text" validate:"required"`
	TargetLanguage string `json:"target_language" validate:"required,max=16"`
}

type CorrectionChange struct {
	Original    string `json:"original"`
	Replacement string `json:"replacement"`
	Reason      string `json:"reason"`
}

// CorrectionResult is the structured output requested from the AI for corrections.
type CorrectionResult struct {
	CorrectedText string             `json:"corrected_text"`
	Changes       []CorrectionChange `json:"changes"`
}

// TranslationResult is the structured output requested from the AI for translations.
type TranslationResult struct {
	TranslatedText         string `json:"translated_text"`
	DetectedSourceLanguage string `json:"detected_source_language"`
}

type ActionResponse struct {
	ActionType       string                 `json:"action_type"`
	Result           string                 `json:"result"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	HistoryId        *uuid.UUID             `json:"history_id,omitempty"`
	Model            string                 `json:"model"`
	RemainingActions int                    `json:"remaining_actions"`
}
