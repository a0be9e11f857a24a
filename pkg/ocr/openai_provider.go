package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-docqa-be/pkg/retry"
)

// OpenAIProvider extracts text from images via a vision-capable chat model.
type OpenAIProvider struct {
	ApiKey   string
	BaseURL  string
	Model    string
	Language string
	Client   *http.Client
}

var _ Provider = &OpenAIProvider{}

func NewOpenAIProvider(apiKey, model, language string) *OpenAIProvider {
	if model == "" {
		model = "gpt-4o"
	}
	if language == "" {
		language = "Arabic and English"
	}
	return &OpenAIProvider{
		ApiKey:   apiKey,
		BaseURL:  "https://api.openai.com/v1",
		Model:    model,
		Language: language,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type visionRequest struct {
	Model       string          `json:"model"`
	Messages    []visionMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

type visionMessage struct {
	Role    string       `json:"role"`
	Content []visionPart `json:"content"`
}

type visionPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *visionImageURL `json:"image_url,omitempty"`
}

type visionImageURL struct {
	URL string `json:"url"`
}

type visionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *OpenAIProvider) prompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extract ALL text from this image in %s.\n\n", p.Language)
	b.WriteString("Rules:\n")
	b.WriteString("1. Preserve the original layout and structure\n")
	b.WriteString("2. If there are tables, format them clearly\n")
	b.WriteString("3. If there are multiple columns, separate them with |\n")
	b.WriteString("4. Include ALL text, even small details\n")
	b.WriteString("5. If text is unclear, note it with [unclear]\n\n")
	b.WriteString("Return ONLY the extracted text, no explanations.")
	return b.String()
}

func (p *OpenAIProvider) Recognize(ctx context.Context, image []byte) (*Result, error) {
	encoded := base64.StdEncoding.EncodeToString(image)

	reqPayload := visionRequest{
		Model: p.Model,
		Messages: []visionMessage{{
			Role: "user",
			Content: []visionPart{
				{Type: "text", Text: p.prompt()},
				{Type: "image_url", ImageURL: &visionImageURL{
					URL: "data:image/jpeg;base64," + encoded,
				}},
			},
		}},
		MaxTokens:   2000,
		Temperature: 0.1,
	}

	jsonBody, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/chat/completions", p.BaseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{Status: resp.StatusCode, Body: string(bodyBytes)}
	}

	var visionResp visionResponse
	if err := json.Unmarshal(bodyBytes, &visionResp); err != nil {
		return nil, err
	}
	if len(visionResp.Choices) == 0 {
		return nil, fmt.Errorf("vision response contained no choices")
	}

	text := visionResp.Choices[0].Message.Content
	return &Result{
		Text:       text,
		Confidence: estimateConfidence(text),
	}, nil
}

// estimateConfidence derives a coarse confidence from the share of [unclear]
// markers the model was instructed to emit for unreadable regions. The chat
// API exposes no per-token OCR confidence.
func estimateConfidence(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	unclear := strings.Count(trimmed, "[unclear]")
	if unclear == 0 {
		return 1.0
	}
	words := len(strings.Fields(trimmed))
	if words == 0 {
		return 0
	}
	conf := 1.0 - float64(unclear*3)/float64(words)
	if conf < 0 {
		conf = 0
	}
	return conf
}
