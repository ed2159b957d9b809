// Package http builds the pooled HTTP client used for outbound provider calls.
package http

import (
	"net/http"
	"time"
)

// Transport defaults.
const (
	DefaultMaxIdleConns          = 100
	DefaultMaxIdleConnsPerHost   = 10
	DefaultIdleConnTimeout       = 90 * time.Second
	DefaultResponseHeaderTimeout = 30 * time.Second
	DefaultTLSHandshakeTimeout   = 10 * time.Second
)

// ClientConfig configures an HTTP client. Zero values use the defaults.
type ClientConfig struct {
	// Timeout caps a whole request. Zero leaves it to the caller's context,
	// which is how provider calls are bounded.
	Timeout time.Duration

	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	IdleConnTimeout       time.Duration
	ResponseHeaderTimeout time.Duration
	TLSHandshakeTimeout   time.Duration
}

func (c *ClientConfig) setDefaults() {
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = DefaultMaxIdleConns
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = DefaultIdleConnTimeout
	}
	if c.ResponseHeaderTimeout == 0 {
		c.ResponseHeaderTimeout = DefaultResponseHeaderTimeout
	}
	if c.TLSHandshakeTimeout == 0 {
		c.TLSHandshakeTimeout = DefaultTLSHandshakeTimeout
	}
}

// NewClient creates a client with its own keep-alive pool. A nil cfg uses defaults.
func NewClient(cfg *ClientConfig) *http.Client {
	c := ClientConfig{}
	if cfg != nil {
		c = *cfg
	}
	c.setDefaults()

	return &http.Client{
		Timeout: c.Timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          c.MaxIdleConns,
			MaxIdleConnsPerHost:   c.MaxIdleConnsPerHost,
			IdleConnTimeout:       c.IdleConnTimeout,
			ResponseHeaderTimeout: c.ResponseHeaderTimeout,
			TLSHandshakeTimeout:   c.TLSHandshakeTimeout,
			ForceAttemptHTTP2:     true,
		},
	}
}
