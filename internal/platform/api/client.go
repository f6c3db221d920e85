package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bczgroup/tracker/pkg/utils"
	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var (
	ErrTransport        = errors.New("platform request failed")
	ErrMalformedPayload = errors.New("malformed platform payload")
	ErrAPI              = errors.New("platform returned an error")
)

// DefaultTimeout bounds each request attempt.
const DefaultTimeout = 5 * time.Second

// maxBodySize caps how much of a response body is read.
const maxBodySize = 8 << 20

// DefaultMaxInFlight bounds concurrent requests across all callers.
const DefaultMaxInFlight = 16

// Endpoints are the platform URLs used by the client.
type Endpoints struct {
	GroupInfo   string
	OwnGroups   string
	UserDetails string
	HomePage    string
}

// DefaultEndpoints returns the production platform URLs.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		GroupInfo:   "https://group.baicizhan.com/group/information",
		OwnGroups:   "https://group.baicizhan.com/group/own_groups",
		UserDetails: "https://social.baicizhan.com/api/deskmate/personal_details",
		HomePage:    "https://social.baicizhan.com/api/deskmate/home_page",
	}
}

// ResponseError describes a failed platform call. Body holds the raw
// response body when one was received.
type ResponseError struct {
	URL    string
	Status int
	Body   string
	Err    error
}

func (e *ResponseError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %v", e.URL, e.Status, e.Err)
	}

	return fmt.Sprintf("%s: %v", e.URL, e.Err)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

// Options configures a Client.
type Options struct {
	MainToken   string
	Timeout     time.Duration
	MaxInFlight int
	Retry       utils.RetryOptions
	Endpoints   Endpoints
}

// Client calls the remote platform. Every call sends its token as the
// access_token cookie; the main token is used unless another is given.
type Client struct {
	http      *http.Client
	sem       *semaphore.Weighted
	mainToken string
	timeout   time.Duration
	retry     utils.RetryOptions
	endpoints Endpoints
	logger    *zap.Logger
}

// NewClient creates a platform client.
func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = DefaultMaxInFlight
	}

	if opts.Endpoints == (Endpoints{}) {
		opts.Endpoints = DefaultEndpoints()
	}

	return &Client{
		http:      &http.Client{},
		sem:       semaphore.NewWeighted(int64(opts.MaxInFlight)),
		mainToken: opts.MainToken,
		timeout:   opts.Timeout,
		retry:     opts.Retry,
		endpoints: opts.Endpoints,
		logger:    logger.Named("platform_api"),
	}
}

// MainToken returns the configured main token.
func (c *Client) MainToken() string {
	return c.mainToken
}

// GetGroupInfo fetches a group's detail and roster. An empty token uses the
// main token.
func (c *Client) GetGroupInfo(ctx context.Context, shareKey, token string) (*GroupDetail, error) {
	if token == "" {
		token = c.mainToken
	}

	return get[GroupDetail](ctx, c, withQuery(c.endpoints.GroupInfo, "shareKey", shareKey), token)
}

// GetUserGroups lists the groups owned by a user.
func (c *Client) GetUserGroups(ctx context.Context, uniqueID string) (*GroupList, error) {
	return get[GroupList](ctx, c, withQuery(c.endpoints.OwnGroups, "uniqueId", uniqueID), c.mainToken)
}

// GetUserInfo fetches a user's public details.
func (c *Client) GetUserInfo(ctx context.Context, uniqueID string) (*UserInfo, error) {
	return get[UserInfo](ctx, c, withQuery(c.endpoints.UserDetails, "uniqueId", uniqueID), c.mainToken)
}

// GetOwnInfo fetches the account behind a token. An empty token uses the
// main token.
func (c *Client) GetOwnInfo(ctx context.Context, token string) (*HomePage, error) {
	if token == "" {
		token = c.mainToken
	}

	return get[HomePage](ctx, c, c.endpoints.HomePage, token)
}

// get performs a GET with retries. Transport failures and 5xx responses are
// retried; API errors and malformed payloads are not.
func get[T any](ctx context.Context, c *Client, rawURL, token string) (*T, error) {
	return utils.WithRetry(ctx, func() (*T, error) {
		body, status, err := c.do(ctx, rawURL, token)
		if err != nil {
			return nil, &ResponseError{URL: rawURL, Err: fmt.Errorf("%w: %w", ErrTransport, err)}
		}

		if status >= http.StatusInternalServerError {
			return nil, &ResponseError{URL: rawURL, Status: status, Body: string(body), Err: ErrTransport}
		}

		if status != http.StatusOK {
			return nil, backoff.Permanent(&ResponseError{URL: rawURL, Status: status, Body: string(body), Err: ErrAPI})
		}

		var env envelope[T]
		if err := sonic.Unmarshal(body, &env); err != nil {
			return nil, backoff.Permanent(&ResponseError{
				URL: rawURL, Status: status, Body: string(body),
				Err: fmt.Errorf("%w: %w", ErrMalformedPayload, err),
			})
		}

		if env.Code != successCode {
			return nil, backoff.Permanent(&ResponseError{
				URL: rawURL, Status: status, Body: string(body),
				Err: fmt.Errorf("%w: code %d %s", ErrAPI, env.Code, env.Message),
			})
		}

		if env.Data == nil {
			return nil, backoff.Permanent(&ResponseError{
				URL: rawURL, Status: status, Body: string(body),
				Err: fmt.Errorf("%w: missing data", ErrMalformedPayload),
			})
		}

		return env.Data, nil
	}, c.retry)
}

// do sends one request bounded by the client timeout. Waiting for a free
// request slot does not count against the timeout.
func (c *Client) do(ctx context.Context, rawURL, token string) ([]byte, int, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, 0, fmt.Errorf("failed to acquire request slot: %w", err)
	}
	defer c.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}

	req.Header.Set("Cookie", fmt.Sprintf(`access_token="%s"`, token))
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, resp.StatusCode, err
	}

	c.logger.Debug("Platform request",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)))

	return body, resp.StatusCode, nil
}

func withQuery(base, key, value string) string {
	return base + "?" + url.Values{key: {value}}.Encode()
}
