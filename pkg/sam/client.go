// Package sam talks to a SAM-style promptable segmentation server over HTTP.
// The server accepts a base64 image plus a point or box prompt and returns
// one or more probability masks at model resolution.
package sam

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/skarv/object-eraser/pkg/types"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type pointPrompt struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label int     `json:"label"` // 1 = positive, 0 = negative
}

type boxPrompt struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

type segmentRequest struct {
	Image           string       `json:"image"` // base64 PNG
	Point           *pointPrompt `json:"point,omitempty"`
	Box             *boxPrompt   `json:"box,omitempty"`
	MultimaskOutput bool         `json:"multimask_output"`
}

type maskPayload struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   string `json:"data"` // base64 little-endian float32s, row-major
}

type segmentResponse struct {
	Masks []maskPayload `json:"masks"`
}

func NewClient(serverURL string) (*Client, error) {
	if serverURL == "" {
		serverURL = "http://localhost:8500"
	}

	return &Client{
		baseURL: strings.TrimSuffix(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}, nil
}

// SupportsBoxPrompt reports that the server accepts box prompts; the snap
// adapter uses this capability when it is available.
func (c *Client) SupportsBoxPrompt() bool {
	return true
}

// Segment sends the image and prompt to the server and decodes the returned
// probability masks.
func (c *Client) Segment(ctx context.Context, img image.Image, prompt types.GeometricPrompt) ([]types.ProbabilityMask, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 120*time.Second)
		defer cancel()
	}

	imgB64, err := encodePNGBase64(img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	req := segmentRequest{
		Image:           imgB64,
		MultimaskOutput: true,
	}
	switch prompt.Kind {
	case types.PromptPoint:
		label := 0
		if prompt.Positive {
			label = 1
		}
		req.Point = &pointPrompt{X: prompt.X, Y: prompt.Y, Label: label}
	case types.PromptBox:
		req.Box = &boxPrompt{X0: prompt.MinX, Y0: prompt.MinY, X1: prompt.MaxX, Y1: prompt.MaxY}
	default:
		return nil, fmt.Errorf("unknown prompt kind: %d", prompt.Kind)
	}

	respBody, err := c.sendRequest(ctx, "/segment", req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	var resp segmentResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(resp.Masks) == 0 {
		return nil, fmt.Errorf("no masks in response")
	}

	masks := make([]types.ProbabilityMask, 0, len(resp.Masks))
	for i, p := range resp.Masks {
		m, err := decodeMask(p)
		if err != nil {
			return nil, fmt.Errorf("mask %d: %w", i, err)
		}
		masks = append(masks, m)
	}
	return masks, nil
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

func decodeMask(p maskPayload) (types.ProbabilityMask, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return types.ProbabilityMask{}, fmt.Errorf("malformed dimensions %dx%d", p.Width, p.Height)
	}

	raw, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return types.ProbabilityMask{}, fmt.Errorf("failed to decode data: %w", err)
	}
	if len(raw) != p.Width*p.Height*4 {
		return types.ProbabilityMask{}, fmt.Errorf("data length %d does not match %dx%d float32 grid", len(raw), p.Width, p.Height)
	}

	values := make([]float32, p.Width*p.Height)
	for i := range values {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		values[i] = math.Float32frombits(bits)
	}

	return types.ProbabilityMask{Width: p.Width, Height: p.Height, Values: values}, nil
}

func encodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
