package llm

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

// CohereProvider generates structured output via the Cohere Chat API.
// SDK: github.com/cohere-ai/cohere-go/v2
type CohereProvider struct {
	client *cohereclient.Client
	model  string
}

// NewCohereProvider builds the Cohere client. The custom HTTP client forces
// HTTP/1.1 to avoid HTTP/2 protocol errors seen against the Cohere edge.
func NewCohereProvider(apiKey, model string) *CohereProvider {
	httpClient := &http.Client{
		Timeout: 120 * time.Second,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &CohereProvider{client: client, model: model}
}

// Name implements Provider.
func (p *CohereProvider) Name() string { return "cohere/" + p.model }

// Generate implements Provider.
func (p *CohereProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	chatReq := &cohere.ChatRequest{
		Message: req.Prompt,
		Model:   cohere.String(p.model),
	}
	if req.System != "" {
		chatReq.Preamble = cohere.String(req.System)
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = cohere.Int(req.MaxTokens)
	}
	if req.Temperature > 0 {
		chatReq.Temperature = cohere.Float64(req.Temperature)
	}
	if req.Schema != nil {
		chatReq.ResponseFormat = &cohere.ResponseFormat{
			Type:       "json_object",
			JsonObject: &cohere.JsonResponseFormat{Schema: req.Schema},
		}
	}

	resp, err := p.client.Chat(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil {
		return nil, errors.New("cohere chat returned empty response")
	}

	out := &Response{Text: resp.Text}
	if resp.Meta != nil && resp.Meta.Tokens != nil {
		if resp.Meta.Tokens.InputTokens != nil {
			out.InputTokens = int(*resp.Meta.Tokens.InputTokens)
		}
		if resp.Meta.Tokens.OutputTokens != nil {
			out.OutputTokens = int(*resp.Meta.Tokens.OutputTokens)
		}
	}
	return out, nil
}
