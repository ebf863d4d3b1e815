package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const clipdropTextToImageURL = "https://clipdrop-api.co/text-to-image/v1"

var httpc = &http.Client{Timeout: 60 * time.Second}

// imageGenerator turns a prompt into raw image bytes.
type imageGenerator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

var imageGen imageGenerator

type clipdropClient struct {
	apiKey   string
	endpoint string
}

func newClipdropClient(apiKey string) *clipdropClient {
	return &clipdropClient{apiKey: apiKey, endpoint: clipdropTextToImageURL}
}

type httpError struct {
	Status int
	Body   string
}

func (e httpError) Error() string { return fmt.Sprintf("http %d: %s", e.Status, e.Body) }

// Generate posts the prompt as multipart form data and returns the PNG bytes.
func (cd *clipdropClient) Generate(ctx context.Context, prompt string) ([]byte, error) {
	var form bytes.Buffer
	w := multipart.NewWriter(&form)
	if err := w.WriteField("prompt", prompt); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	// basic retry for 429/5xx
	var last httpError
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, cd.endpoint, bytes.NewReader(form.Bytes()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("x-api-key", cd.apiKey)

		res, err := httpc.Do(req)
		if err != nil {
			return nil, err
		}

		if res.StatusCode == http.StatusOK {
			data, err := io.ReadAll(res.Body)
			res.Body.Close()
			return data, err
		}

		// capture body (truncated) for error clarity
		var msg struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(res.Body, 4096)).Decode(&msg)
		res.Body.Close()
		last = httpError{Status: res.StatusCode, Body: msg.Error}

		if res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500 {
			time.Sleep(time.Duration(250*(attempt+1)) * time.Millisecond)
			continue
		}
		break
	}
	return nil, last
}
