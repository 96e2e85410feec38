// Package proxy translates validated inbound search requests into upstream
// Brave Search API calls and relays the results verbatim.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hackclub/searchproxy/internal/apperr"
	"github.com/hackclub/searchproxy/internal/config"
)

// Endpoint identifies an upstream search category.
type Endpoint string

const (
	EndpointWeb     Endpoint = "web"
	EndpointImages  Endpoint = "images"
	EndpointVideos  Endpoint = "videos"
	EndpointNews    Endpoint = "news"
	EndpointSuggest Endpoint = "suggest"
)

// paths maps each category onto its upstream path.
var paths = map[Endpoint]string{
	EndpointWeb:     "/web/search",
	EndpointImages:  "/images/search",
	EndpointVideos:  "/videos/search",
	EndpointNews:    "/news/search",
	EndpointSuggest: "/suggest/search",
}

// MaxQueryLen is the upstream's query term limit, enforced before any
// upstream call is made.
const MaxQueryLen = 400

// UpstreamTimeout bounds the whole upstream round trip. The gateway is a
// single-attempt relay; there are no retries.
const UpstreamTimeout = 60 * time.Second

// maxUpstreamBody caps how much of an upstream response is buffered.
const maxUpstreamBody = 32 << 20

// Result is the relayed upstream outcome: status and body are passed to the
// caller unchanged.
type Result struct {
	Status int
	Body   []byte
}

// Forwarder issues upstream search calls with the subscription credential
// injected as a header. The credential never appears in a URL.
type Forwarder struct {
	baseURL      string
	searchToken  string
	suggestToken string
	client       *http.Client
}

// NewForwarder creates a Forwarder from the gateway configuration.
func NewForwarder(cfg *config.Config) *Forwarder {
	return &Forwarder{
		baseURL:      cfg.UpstreamBaseURL,
		searchToken:  cfg.SearchToken,
		suggestToken: cfg.SuggestToken,
		client:       &http.Client{Timeout: UpstreamTimeout},
	}
}

// ValidateQuery enforces the query-term contract: present, non-blank, and
// within the upstream length limit. The limit counts characters, not bytes,
// so multi-byte queries get the full allowance. Violations fail before any
// upstream quota is spent.
func ValidateQuery(params url.Values) error {
	q := params.Get("q")
	if strings.TrimSpace(q) == "" {
		return apperr.New(apperr.BadRequest, "Query parameter 'q' is required")
	}
	if utf8.RuneCountInString(q) > MaxQueryLen {
		return apperr.New(apperr.BadRequest, "Query exceeds 400 character limit")
	}
	return nil
}

// Forward validates params, issues the upstream call for the category, and
// returns the upstream status and body unchanged. Transport failures map to
// Timeout or UpstreamFailure; non-2xx upstream responses are not errors,
// they are relayed.
func (f *Forwarder) Forward(ctx context.Context, endpoint Endpoint, params url.Values) (*Result, error) {
	path, ok := paths[endpoint]
	if !ok {
		return nil, apperr.New(apperr.BadRequest, fmt.Sprintf("Unknown search endpoint %q", endpoint))
	}

	if err := ValidateQuery(params); err != nil {
		return nil, err
	}

	upstream := f.buildURL(path, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, upstream, nil)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", f.tokenFor(endpoint))

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, apperr.New(apperr.Timeout, "Upstream request timed out")
		}
		return nil, apperr.New(apperr.UpstreamFailure, "Upstream request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		if isTimeout(err) {
			return nil, apperr.New(apperr.Timeout, "Upstream request timed out")
		}
		return nil, apperr.New(apperr.UpstreamFailure, "Upstream response could not be read")
	}

	return &Result{Status: resp.StatusCode, Body: body}, nil
}

// buildURL copies every non-empty inbound query parameter onto the fixed
// upstream endpoint.
func (f *Forwarder) buildURL(path string, params url.Values) string {
	out := url.Values{}
	for key, values := range params {
		for _, v := range values {
			if v != "" {
				out.Add(key, v)
			}
		}
	}
	return f.baseURL + path + "?" + out.Encode()
}

// tokenFor selects the subscription credential: suggestions run on their own
// plan when one is configured.
func (f *Forwarder) tokenFor(endpoint Endpoint) string {
	if endpoint == EndpointSuggest && f.suggestToken != "" {
		return f.suggestToken
	}
	return f.searchToken
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
