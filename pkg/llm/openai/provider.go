package openai

import (
	"context"
	"fmt"

	"ai-textassist-be/pkg/llm"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

type OpenAIProvider struct {
	client    *goopenai.Client
	ModelName string
}

var _ llm.Provider = &OpenAIProvider{}

func NewOpenAIProvider(apiKey, baseURL, modelName string) *OpenAIProvider {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client:    goopenai.NewClientWithConfig(cfg),
		ModelName: modelName,
	}
}

func (p *OpenAIProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	model := p.ModelName
	if req.Model != "" {
		model = req.Model
	}

	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: req.User,
	})

	chatReq := goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.Schema != nil {
		name := req.SchemaName
		if name == "" {
			name = "result"
		}
		def := toDefinition(req.Schema)
		chatReq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &goopenai.ChatCompletionResponseFormatJSONSchema{
				Name:   name,
				Schema: &def,
				Strict: true,
			},
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, llm.ErrEmptyResponse
	}

	return &llm.Response{
		Content:          resp.Choices[0].Message.Content,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// toDefinition converts the neutral schema. Strict mode requires every
// property to be listed as required and additional properties to be closed.
func toDefinition(s *llm.Schema) jsonschema.Definition {
	def := jsonschema.Definition{
		Type:        jsonschema.DataType(s.Type),
		Description: s.Description,
	}
	if len(s.Properties) > 0 {
		def.Properties = make(map[string]jsonschema.Definition, len(s.Properties))
		required := make([]string, 0, len(s.Properties))
		for name, prop := range s.Properties {
			def.Properties[name] = toDefinition(prop)
			required = append(required, name)
		}
		def.Required = required
		def.AdditionalProperties = false
	}
	if s.Items != nil {
		items := toDefinition(s.Items)
		def.Items = &items
	}
	return def
}
