package lama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/skarv/object-eraser/pkg/mask"
)

func pngBase64(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestInpaint(t *testing.T) {
	result := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			result.SetNRGBA(x, y, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}

	var got inpaintRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inpaint" {
			t.Errorf("Expected /inpaint, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(inpaintResponse{Image: pngBase64(t, result)})
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	m, _ := mask.New(8, 8)
	m.Set(3, 3, 1)
	m.Set(4, 3, 1)

	out, err := client.Inpaint(context.Background(), image.NewNRGBA(image.Rect(0, 0, 8, 8)), m)
	if err != nil {
		t.Fatalf("Inpaint failed: %v", err)
	}

	if got.Image == "" || got.Mask == "" {
		t.Fatal("Request must carry both image and mask")
	}

	// The mask travels as a single-channel PNG with 255 marking removal.
	raw, err := base64.StdEncoding.DecodeString(got.Mask)
	if err != nil {
		t.Fatalf("Mask payload is not valid base64: %v", err)
	}
	sent, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Mask payload is not valid PNG: %v", err)
	}
	gray, ok := sent.(*image.Gray)
	if !ok {
		t.Fatalf("Expected grayscale mask, got %T", sent)
	}
	if gray.GrayAt(3, 3).Y != 255 || gray.GrayAt(4, 3).Y != 255 {
		t.Error("Marked pixels must be 255 in the wire mask")
	}
	if gray.GrayAt(0, 0).Y != 0 {
		t.Error("Unmarked pixels must be 0 in the wire mask")
	}

	if out.Bounds().Dx() != 8 || out.Bounds().Dy() != 8 {
		t.Errorf("Unexpected result dimensions: %v", out.Bounds())
	}
	r, g, b, _ := out.At(2, 2).RGBA()
	if r>>8 != 10 || g>>8 != 20 || b>>8 != 30 {
		t.Error("Result image decoded incorrectly")
	}
}

func TestInpaintServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "out of memory", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, _ := NewClient(server.URL)
	m, _ := mask.New(4, 4)
	m.Set(1, 1, 1)

	_, err := client.Inpaint(context.Background(), image.NewNRGBA(image.Rect(0, 0, 4, 4)), m)
	if err == nil {
		t.Fatal("Expected error for 503 response")
	}
}

func TestInpaintEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(inpaintResponse{})
	}))
	defer server.Close()

	client, _ := NewClient(server.URL)
	m, _ := mask.New(4, 4)
	m.Set(1, 1, 1)

	_, err := client.Inpaint(context.Background(), image.NewNRGBA(image.Rect(0, 0, 4, 4)), m)
	if err == nil {
		t.Fatal("Expected error for response without an image")
	}
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient("")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.baseURL != "http://localhost:8600" {
		t.Errorf("Unexpected default URL: %s", client.baseURL)
	}
}
