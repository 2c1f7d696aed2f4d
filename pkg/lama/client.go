// Package lama talks to a LaMa-style inpainting server over HTTP. The server
// accepts a base64 image plus a base64 single-channel mask and returns the
// inpainted image.
package lama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/skarv/object-eraser/pkg/mask"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type inpaintRequest struct {
	Image string `json:"image"` // base64 PNG
	Mask  string `json:"mask"`  // base64 PNG, single channel, 255 = remove
}

type inpaintResponse struct {
	Image string `json:"image"` // base64 PNG
}

func NewClient(serverURL string) (*Client, error) {
	if serverURL == "" {
		serverURL = "http://localhost:8600"
	}

	return &Client{
		baseURL: strings.TrimSuffix(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}, nil
}

// Inpaint fills the masked region of img and returns the edited image.
func (c *Client) Inpaint(ctx context.Context, img image.Image, m *mask.Mask) (image.Image, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 180*time.Second)
		defer cancel()
	}

	imgB64, err := encodePNGBase64(img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	maskB64, err := encodeMaskBase64(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mask: %w", err)
	}

	respBody, err := c.sendRequest(ctx, "/inpaint", inpaintRequest{Image: imgB64, Mask: maskB64})
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	var resp inpaintResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Image == "" {
		return nil, fmt.Errorf("no image in response")
	}

	raw, err := base64.StdEncoding.DecodeString(resp.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to decode result image: %w", err)
	}
	out, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode result image: %w", err)
	}
	return out, nil
}

func (c *Client) sendRequest(ctx context.Context, endpoint string, payload interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

func encodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func encodeMaskBase64(m *mask.Mask) (string, error) {
	gray := image.NewGray(image.Rect(0, 0, m.W, m.H))
	for i, v := range m.Pix {
		if v != 0 {
			gray.Pix[i] = 255
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
