package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// DefaultURL is the public endpoint listing every bus line with its timetable.
const DefaultURL = "https://mobilidadeservicos.mogidascruzes.sp.gov.br/public/buscar-linha"

// MaxResponseSize caps how much of the upstream body is read.
const MaxResponseSize = 16 * 1024 * 1024

var ErrInvalidJSON = errors.New("upstream: response is not valid JSON")

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	text := strings.TrimSpace(strings.TrimPrefix(e.Status, strconv.Itoa(e.Code)))
	if text == "" {
		text = http.StatusText(e.Code)
	}
	return fmt.Sprintf("HTTP %d %s", e.Code, text)
}

// HTTPSource performs a single GET against the upstream endpoint. It has no
// timeout or retry of its own; both are driven by the caller's context.
type HTTPSource struct {
	client *http.Client
	url    string
}

func NewHTTPSource(rawURL string, client *http.Client) *HTTPSource {
	if rawURL == "" {
		rawURL = DefaultURL
	}
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPSource{client: client, url: rawURL}
}

func (s *HTTPSource) URL() string { return s.url }

// Fetch returns the raw JSON document served by the upstream endpoint.
func (s *HTTPSource) Fetch(ctx context.Context) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", NextUserAgent())
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, ErrInvalidJSON
	}
	return json.RawMessage(body), nil
}
