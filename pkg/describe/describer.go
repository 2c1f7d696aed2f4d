// Package describe names the object under a removal mask using an Ollama
// vision model, so the UI can show "Removing: dog" next to the preview. The
// label is cosmetic: every failure here is soft and never blocks the
// pipeline.
package describe

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/ollama/ollama/api"

	"github.com/skarv/object-eraser/pkg/mask"
)

// labelPrompt keeps answers short enough to fit a status line.
const labelPrompt = `Name the single main object in this image in at most three words.
Respond with the name only: lowercase, no punctuation, no sentence.`

// Describer wraps an Ollama API client for object labeling.
type Describer struct {
	client *api.Client
	model  string
}

// New creates a Describer talking to the given Ollama server.
func New(ollamaURL, model string) (*Describer, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &Describer{
		client: api.NewClient(baseURL, http.DefaultClient),
		model:  model,
	}, nil
}

// Describe crops img to the masked object's bounds and asks the vision model
// what it shows.
func (d *Describer) Describe(ctx context.Context, img image.Image, box mask.BoundingBox) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 60*time.Second)
		defer cancel()
	}

	crop := imaging.Crop(img, image.Rect(box.MinX, box.MinY, box.MaxX+1, box.MaxY+1))

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, crop, &jpeg.Options{Quality: 85}); err != nil {
		return "", fmt.Errorf("failed to encode crop: %w", err)
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: d.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: labelPrompt,
				Images:  []api.ImageData{api.ImageData(buf.Bytes())},
			},
		},
		Stream: &streamFalse,
	}

	var responseContent string
	err := d.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent = resp.Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat error: %w", err)
	}

	label := sanitizeLabel(responseContent)
	if label == "" {
		return "", fmt.Errorf("empty label from model")
	}
	return label, nil
}

// sanitizeLabel strips the decorations vision models like to add around a
// one-line answer.
func sanitizeLabel(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '\n'); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.Trim(raw, "\"'`.,! ")
	raw = strings.ToLower(raw)

	// Keep at most three words even if the model rambles.
	words := strings.Fields(raw)
	if len(words) > 3 {
		words = words[:3]
	}
	return strings.Join(words, " ")
}
