// Package apiclient talks to the expense API over JSON and HTTP. The session cookie
// issued at login is kept in a cookie jar and sent on every call.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"spendly/internal/models"
)

const apiPrefix = "/api/v1"

type Client struct {
	baseURL *url.URL
	http    *http.Client
	timeout time.Duration
}

type Option func(*Client)

// WithHTTPClient sets the HTTP client to copy from. The caller's client is left
// untouched; the copy gets a cookie jar when it has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout whatever order the options come in.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}

	hc := *c.http
	if c.timeout > 0 {
		hc.Timeout = c.timeout
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		hc.Jar = jar
	}
	c.http = &hc
	return c, nil
}

// Cookies returns the cookies the jar would send to the API.
func (c *Client) Cookies() []*http.Cookie {
	return c.http.Jar.Cookies(c.baseURL)
}

func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.http.Jar.SetCookies(c.baseURL, cookies)
}

type messageResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

type loginResponse struct {
	Message string            `json:"message"`
	User    models.PublicUser `json:"user"`
	Success bool              `json:"success"`
}

type expensesResponse struct {
	Expense []models.ExpenseRecord `json:"expense"`
	Success bool                   `json:"success"`
}

type expenseResponse struct {
	Expense models.ExpenseRecord `json:"expense"`
	Success bool                 `json:"success"`
}

func (c *Client) Register(ctx context.Context, in models.Register) (string, error) {
	var out messageResponse
	if err := c.do(ctx, http.MethodPost, "/user/register", nil, in, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) Login(ctx context.Context, in models.Login) (models.PublicUser, error) {
	var out loginResponse
	if err := c.do(ctx, http.MethodPost, "/user/login", nil, in, &out); err != nil {
		return models.PublicUser{}, err
	}
	return out.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/user/logout", nil, nil, nil)
}

func (c *Client) ChangePassword(ctx context.Context, in models.PasswordChange) error {
	return c.do(ctx, http.MethodPut, "/user/password", nil, in, nil)
}

func (c *Client) GetExpenses(ctx context.Context, filter models.ExpenseFilter) ([]models.ExpenseRecord, error) {
	q := url.Values{}
	if filter.Category != "" {
		q.Set("category", filter.Category)
	}
	if filter.Done != nil {
		q.Set("done", strconv.FormatBool(*filter.Done))
	}

	var out expensesResponse
	if err := c.do(ctx, http.MethodGet, "/expense/getall", q, nil, &out); err != nil {
		return nil, err
	}
	if out.Expense == nil {
		return []models.ExpenseRecord{}, nil
	}
	return out.Expense, nil
}

func (c *Client) AddExpense(ctx context.Context, in models.NewExpense) (models.ExpenseRecord, error) {
	var out expenseResponse
	if err := c.do(ctx, http.MethodPost, "/expense/add", nil, in, &out); err != nil {
		return models.ExpenseRecord{}, err
	}
	return out.Expense, nil
}

func (c *Client) UpdateExpense(ctx context.Context, id string, in models.ExpenseUpdate) error {
	return c.do(ctx, http.MethodPut, "/expense/update/"+url.PathEscape(id), nil, in, nil)
}

func (c *Client) RemoveExpense(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/expense/remove/"+url.PathEscape(id), nil, nil, nil)
}

type removeAllResponse struct {
	Deleted int64 `json:"deleted"`
	Success bool  `json:"success"`
}

// RemoveAllExpenses deletes every expense of the signed-in user in one request and
// reports how many the server removed.
func (c *Client) RemoveAllExpenses(ctx context.Context) (int64, error) {
	var out removeAllResponse
	if err := c.do(ctx, http.MethodDelete, "/expense/removeall", nil, nil, &out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

func (c *Client) MarkAsDone(ctx context.Context, id string, done bool) error {
	return c.do(ctx, http.MethodPut, "/expense/"+url.PathEscape(id)+"/done", nil, models.DoneUpdate{Done: done}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + apiPrefix + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("API call")

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, payload)
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
