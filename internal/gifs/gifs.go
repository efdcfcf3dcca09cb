// Package gifs fetches random GIFs from Tenor to decorate proposals.
package gifs

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xaenox/cupid-bot/internal/models"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://g.tenor.com/v1"

var (
	ErrDisabled  = errors.New("gifs: no tenor token configured")
	ErrNoResults = errors.New("gifs: no results")
)

type Options struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   opts.Token,
		http:    httpClient,
		logger:  logger,
	}
}

func (c *Client) Enabled() bool {
	return c.token != ""
}

type randomResponse struct {
	Results []struct {
		Media []struct {
			GIF struct {
				URL string `json:"url"`
			} `json:"gif"`
		} `json:"media"`
	} `json:"results"`
}

// Random returns the URL of a random GIF matching search.
func (c *Client) Random(ctx context.Context, search string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	// Tenor returns the same GIF for identical requests, so every request
	// carries a fresh seed.
	seed := make([]byte, 64)
	if _, err := rand.Read(seed); err != nil {
		return "", fmt.Errorf("gifs: seed: %w", err)
	}
	query := url.Values{
		"q":             {search},
		"contentfilter": {"low"},
		"limit":         {"1"},
		"key":           {c.token},
		"rngseed":       {base64.StdEncoding.EncodeToString(seed)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/random?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("gifs: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gifs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gifs: tenor returned %s", resp.Status)
	}

	var body randomResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("gifs: decode response: %w", err)
	}
	if len(body.Results) == 0 || len(body.Results[0].Media) == 0 || body.Results[0].Media[0].GIF.URL == "" {
		return "", fmt.Errorf("%w for %q", ErrNoResults, search)
	}
	return body.Results[0].Media[0].GIF.URL, nil
}

// SearchTerm is what to search for to accompany a proposal of kind.
func SearchTerm(kind models.Kind) string {
	if kind == models.Marriage {
		return "proposal cute"
	}
	return "hug child"
}

// ProposalGIF returns a GIF to accompany a proposal of kind.
func (c *Client) ProposalGIF(ctx context.Context, kind models.Kind) (string, error) {
	gif, err := c.Random(ctx, SearchTerm(kind))
	if err != nil {
		return "", err
	}
	c.logger.Debug("Fetched proposal gif", zap.String("kind", string(kind)), zap.String("url", gif))
	return gif, nil
}
