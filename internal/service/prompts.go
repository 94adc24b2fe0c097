package service

import (
	"fmt"

	"ai-textassist-be/internal/entity"
	"ai-textassist-be/pkg/llm"
)

const correctionSystemPrompt = "You are a proofreader. Fix grammar, spelling and punctuation in the user's text. " +
	"Keep the original language, meaning and tone. List every change you made."

var correctionSchema = &llm.Schema{
	Type: "object",
	Properties: map[string]*llm.Schema{
		"corrected_text": {Type: "string", Description: "The full corrected text"},
		"changes": {
			Type: "array",
			Items: &llm.Schema{
				Type: "object",
				Properties: map[string]*llm.Schema{
					"original":    {Type: "string"},
					"replacement": {Type: "string"},
					"reason":      {Type: "string"},
				},
				Required: []string{"original", "replacement", "reason"},
			},
		},
	},
	Required: []string{"corrected_text", "changes"},
}

var translationSchema = &llm.Schema{
	Type: "object",
	Properties: map[string]*llm.Schema{
		"translated_text":          {Type: "string", Description: "The full translation"},
		"detected_source_language": {Type: "string", Description: "ISO 639-1 code of the input language"},
	},
	Required: []string{"translated_text", "detected_source_language"},
}

func buildActionRequest(req ActionRequest, model string) llm.Request {
	if req.Type == entity.ActionTypeTranslation {
		return llm.Request{
			System: fmt.Sprintf("You are a translator. Translate the user's text into the language with ISO 639-1 code %q. "+
				"Preserve formatting and tone. Do not add commentary.", req.TargetLanguage),
			User:        req.Text,
			Schema:      translationSchema,
			SchemaName:  "translation",
			Model:       model,
			Temperature: 0.2,
		}
	}
	return llm.Request{
		System:      correctionSystemPrompt,
		User:        req.Text,
		Schema:      correctionSchema,
		SchemaName:  "correction",
		Model:       model,
		Temperature: 0.1,
	}
}
