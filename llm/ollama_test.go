package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/assix/software-engineer-ai-agent/framework"
)

type roundTripFunc func(*http.Request) *http.Response

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

func TestClientGenerate(t *testing.T) {
	client := NewClient("http://fake", "test")
	client.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) *http.Response {
			assert.Equal(t, "/api/generate", req.URL.Path)
			var payload map[string]interface{}
			assert.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
			assert.Equal(t, "hello", payload["prompt"])
			assert.Equal(t, "test", payload["model"])
			assert.Equal(t, false, payload["stream"])
			return &http.Response{
				StatusCode: 200,
				Body:       io.NopCloser(strings.NewReader(`{"response":"print(4)","done_reason":"stop","eval_count":12}`)),
				Header:     make(http.Header),
			}
		}),
	}

	resp, err := client.Generate(context.Background(), "hello", &framework.LLMOptions{})
	assert.NoError(t, err)
	assert.Equal(t, "print(4)", resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 12, resp.Usage["completion_tokens"])
}

func TestClientGenerateAppliesOptions(t *testing.T) {
	client := NewClient("http://fake", "default-model")
	client.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) *http.Response {
			var payload map[string]interface{}
			assert.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
			assert.Equal(t, "override", payload["model"])
			assert.Equal(t, 0.2, payload["temperature"])
			return &http.Response{
				StatusCode: 200,
				Body:       io.NopCloser(strings.NewReader(`{"text":"ok"}`)),
				Header:     make(http.Header),
			}
		}),
	}

	resp, err := client.Generate(context.Background(), "p", &framework.LLMOptions{Model: "override", Temperature: 0.2})
	assert.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
}

func TestClientGenerateErrorStatus(t *testing.T) {
	client := NewClient("http://fake", "test")
	client.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) *http.Response {
			return &http.Response{
				StatusCode: 500,
				Status:     "500 Internal Server Error",
				Body:       io.NopCloser(strings.NewReader(`model not loaded`)),
				Header:     make(http.Header),
			}
		}),
	}

	_, err := client.Generate(context.Background(), "p", nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestClientPing(t *testing.T) {
	client := NewClient("http://fake", "test")
	client.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) *http.Response {
			assert.Equal(t, "/", req.URL.Path)
			return &http.Response{
				StatusCode: 200,
				Body:       io.NopCloser(strings.NewReader("Ollama is running")),
				Header:     make(http.Header),
			}
		}),
	}
	assert.NoError(t, client.Ping(context.Background()))
}

func TestClientModels(t *testing.T) {
	client := NewClient("http://fake", "test")
	client.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) *http.Response {
			assert.Equal(t, "/api/tags", req.URL.Path)
			return &http.Response{
				StatusCode: 200,
				Body:       io.NopCloser(strings.NewReader(`{"models":[{"name":"qwen2.5-coder:7b"},{"name":"codellama:latest"}]}`)),
				Header:     make(http.Header),
			}
		}),
	}
	models, err := client.Models(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{"qwen2.5-coder:7b", "codellama:latest"}, models)
}
