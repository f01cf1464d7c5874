package translator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/roastlab/brewfind/pkg/models"
)

const systemPrompt = `You translate coffee search queries into structured parameters.
Reply with a single JSON object and nothing else, using these fields:
search_text (string, required), origin, roast, process (strings),
tasting_notes (array of strings), min_price, max_price (numbers, USD),
confidence (number between 0 and 1).`

const imagePrompt = "This is a photo of a coffee bag or label. Extract search parameters for finding this coffee."

// OpenAI calls an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	url    string
	apiKey string
	model  string
	client *http.Client
}

// NewOpenAI creates an OpenAI-compatible translator from opts.
func NewOpenAI(opts Options) (*OpenAI, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("translator URL is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAI{
		url:    opts.URL,
		apiKey: opts.APIKey,
		model:  opts.Model,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Name implements Translator.
func (o *OpenAI) Name() string { return "openai" }

// Model implements Translator.
func (o *OpenAI) Model() string { return o.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// TranslateText implements Translator.
func (o *OpenAI) TranslateText(ctx context.Context, query string) (models.SearchParams, error) {
	return o.complete(ctx, []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: query},
	})
}

// TranslateImage implements Translator. The image travels as a data URL in a
// vision-style content part.
func (o *OpenAI) TranslateImage(ctx context.Context, image []byte) (models.SearchParams, error) {
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)
	return o.complete(ctx, []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: []contentPart{
			{Type: "text", Text: imagePrompt},
			{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
		}},
	})
}

func (o *OpenAI) complete(ctx context.Context, messages []chatMessage) (models.SearchParams, error) {
	body, err := json.Marshal(chatRequest{Model: o.model, Messages: messages})
	if err != nil {
		return models.SearchParams{}, fmt.Errorf("%w: marshal request: %v", ErrTranslationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return models.SearchParams{}, fmt.Errorf("%w: create request: %v", ErrTranslationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return models.SearchParams{}, fmt.Errorf("%w: %v", ErrTranslationFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.SearchParams{}, fmt.Errorf("%w: read response: %v", ErrTranslationFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return models.SearchParams{}, fmt.Errorf("%w: status %d: %s", ErrTranslationFailed, resp.StatusCode, respBody)
	}

	var reply chatResponse
	if err := json.Unmarshal(respBody, &reply); err != nil {
		return models.SearchParams{}, fmt.Errorf("%w: parse response: %v", ErrTranslationFailed, err)
	}
	if len(reply.Choices) == 0 {
		return models.SearchParams{}, fmt.Errorf("%w: no choices in response", ErrTranslationFailed)
	}

	return parseParams(reply.Choices[0].Message.Content)
}
