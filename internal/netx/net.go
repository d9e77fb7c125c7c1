// Package netx contains small HTTP helpers for the third-party image host.
package netx

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ImageHost uploads image bytes to an imgbb-style hosting endpoint and
// returns the public URL of the stored image.
type ImageHost struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

type imageHostResponse struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
	Success bool `json:"success"`
}

// Upload posts the image as a base64 form field and returns the hosted URL.
func (h *ImageHost) Upload(ctx context.Context, image []byte) (string, error) {
	form := url.Values{}
	form.Set("key", h.APIKey)
	form.Set("image", base64.StdEncoding.EncodeToString(image))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}

	var parsed imageHostResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	if !parsed.Success || parsed.Data.URL == "" {
		return "", fmt.Errorf("image host rejected upload")
	}
	return parsed.Data.URL, nil
}
