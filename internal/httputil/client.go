// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pdiddy/venue-harvest/pkg/types"
)

const defaultTimeout = 30 * time.Second

// NewClient builds the single HTTP client a crawl reuses for every request.
// Keep-alive connections are pooled by the transport, so one client amortizes
// connection setup across pages and queries.
func NewClient(cfg types.HTTPConfig) (*http.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: time.Second,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
	}

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parsing proxy URL %q: %w", cfg.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &http.Client{Timeout: timeout, Transport: transport}, nil
}
