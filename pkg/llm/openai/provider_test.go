package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-textassist-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteSendsStrictSchema(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"corrected_text\":\"Hello.\"}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider("test-key", server.URL, "gpt-4o-mini")
	resp, err := p.Complete(context.Background(), llm.Request{
		System:     "fix grammar",
		User:       "hello",
		SchemaName: "correction",
		Schema: &llm.Schema{
			Type:       "object",
			Properties: map[string]*llm.Schema{"corrected_text": {Type: "string"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"corrected_text":"Hello."}`, resp.Content)
	assert.Equal(t, 12, resp.PromptTokens)
	assert.Equal(t, 5, resp.CompletionTokens)

	format := captured["response_format"].(map[string]interface{})
	assert.Equal(t, "json_schema", format["type"])
	jsonSchema := format["json_schema"].(map[string]interface{})
	assert.Equal(t, "correction", jsonSchema["name"])
	assert.Equal(t, true, jsonSchema["strict"])
}

func TestCompleteEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","model":"m","choices":[]}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider("k", server.URL, "m")
	_, err := p.Complete(context.Background(), llm.Request{User: "hi"})
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}
