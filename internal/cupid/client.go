// Package cupid is a client for the Cupid relationship graph service.
package cupid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xaenox/cupid-bot/internal/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Options struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	RateLimit  float64
	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 5),
		logger:  logger,
	}
}

// UserEdit holds the fields to change on a user. Nil fields are left alone.
type UserEdit struct {
	Name          *string        `json:"name,omitempty"`
	Discriminator *string        `json:"discriminator,omitempty"`
	AvatarURL     *string        `json:"avatar_url,omitempty"`
	Gender        *models.Gender `json:"gender,omitempty"`
}

func (e UserEdit) Empty() bool {
	return e.Name == nil && e.Discriminator == nil && e.AvatarURL == nil && e.Gender == nil
}

type proposalRequest struct {
	OtherID int64       `json:"other_id"`
	Kind    models.Kind `json:"kind"`
}

func (c *Client) GetUser(ctx context.Context, id int64) (*models.Profile, error) {
	var profile models.Profile
	if err := c.do(ctx, "get_user", http.MethodGet, userPath(id), nil, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	var created models.User
	if err := c.do(ctx, "create_user", http.MethodPost, "/users", nil, user, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) EditUser(ctx context.Context, id int64, edit UserEdit) (*models.User, error) {
	var updated models.User
	if err := c.do(ctx, "edit_user", http.MethodPatch, userPath(id), nil, edit, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// GetRelationship returns the relationship between userID and otherID in
// whichever direction it exists.
func (c *Client) GetRelationship(ctx context.Context, userID, otherID int64) (*models.Relationship, error) {
	var rel models.Relationship
	if err := c.do(ctx, "get_relationship", http.MethodGet, relationshipPath(userID, otherID), nil, nil, &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

func (c *Client) CreateProposal(ctx context.Context, initiatorID, otherID int64, kind models.Kind) error {
	body := proposalRequest{OtherID: otherID, Kind: kind}
	return c.do(ctx, "create_proposal", http.MethodPost, userPath(initiatorID)+"/relationships", nil, body, nil)
}

// AcceptRelationship accepts, on behalf of userID, the proposal otherID sent them.
func (c *Client) AcceptRelationship(ctx context.Context, userID, otherID int64) error {
	return c.do(ctx, "accept_relationship", http.MethodPost, relationshipPath(userID, otherID)+"/accept", nil, nil, nil)
}

// DeleteRelationship removes, on behalf of userID, their relationship with
// otherID. The service refuses with a conflict if the relationship is no
// longer in the accepted state the caller saw.
func (c *Client) DeleteRelationship(ctx context.Context, userID, otherID int64, accepted bool) error {
	query := url.Values{"accepted": {strconv.FormatBool(accepted)}}
	return c.do(ctx, "delete_relationship", http.MethodDelete, relationshipPath(userID, otherID), query, nil, nil)
}

// ListUsers returns one zero-indexed page of users, optionally filtered by search.
func (c *Client) ListUsers(ctx context.Context, search string, page int) (*models.UserPage, error) {
	query := url.Values{}
	if search != "" {
		query.Set("search", search)
	}
	query.Set("page", strconv.Itoa(page))

	var result models.UserPage
	if err := c.do(ctx, "list_users", http.MethodGet, "/users", query, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetGraph(ctx context.Context) (*models.Graph, error) {
	var graph models.Graph
	if err := c.do(ctx, "get_graph", http.MethodGet, "/graph", nil, nil, &graph); err != nil {
		return nil, err
	}
	return &graph, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("cupid %s: %w", op, err)
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("cupid %s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("cupid %s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("cupid %s: %w", op, err)
	}
	defer resp.Body.Close()
	requestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := decodeError(resp)
		c.logger.Debug("Cupid API error",
			zap.String("operation", op),
			zap.Int("status", apiErr.StatusCode),
			zap.String("message", apiErr.Message))
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("cupid %s: decode response: %w", op, err)
	}
	return nil
}

func userPath(id int64) string {
	return "/users/" + strconv.FormatInt(id, 10)
}

func relationshipPath(userID, otherID int64) string {
	return userPath(userID) + "/relationships/" + strconv.FormatInt(otherID, 10)
}
