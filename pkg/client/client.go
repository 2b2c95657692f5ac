// Package client is a small HTTP client for the Stargate server. It mirrors
// the server's route surface and is what the CLI commands are built on.
package client

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

type Option func(*Client)

// WithAuthToken sets the bearer token sent with every request. Session
// endpoints expect a session JWT, admin endpoints an admin JWT.
func WithAuthToken(token string) Option {
	return func(c *Client) {
		c.authToken = token
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// urlBuilder assembles request URLs from the route constants, resolving
// "{name}" style path parameters the same way the server mux declares them.
type urlBuilder struct {
	base  string
	path  string
	query url.Values
}

func (c *Client) url() *urlBuilder {
	return &urlBuilder{
		base:  c.baseURL,
		query: url.Values{},
	}
}

func (b *urlBuilder) setPath(path string) *urlBuilder {
	b.path = path
	return b
}

func (b *urlBuilder) setPathParam(name, value string) *urlBuilder {
	b.path = strings.ReplaceAll(b.path, "{"+name+"}", url.PathEscape(value))
	return b
}

func (b *urlBuilder) addQueryParam(key string, value any) *urlBuilder {
	b.query.Add(key, fmt.Sprint(value))
	return b
}

func (b *urlBuilder) build() string {
	u := b.base + b.path
	if len(b.query) > 0 {
		u += "?" + b.query.Encode()
	}
	return u
}
