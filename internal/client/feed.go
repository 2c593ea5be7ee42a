package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"electrobot/catalog/internal/config"
	"electrobot/catalog/internal/proxy"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

// Validators are the caching tokens of the last successful fetch.
type Validators struct {
	ETag         string
	LastModified string
}

type FeedResponse struct {
	NotModified  bool
	StatusCode   int
	ContentType  string
	ETag         string
	LastModified string
	Body         []byte
}

// FeedClient retrieves the catalog feed conditionally.
type FeedClient interface {
	Fetch(ctx context.Context, validators Validators) (*FeedResponse, error)
	URL() string
	Close() error
}

type feedClient struct {
	rl            ratelimit.Limiter
	url           string
	httpClient    *resty.Client
	proxySupplier proxy.ProxySupplier
}

func NewFeedClient(cfg config.FeedConfig, proxySupplier proxy.ProxySupplier) FeedClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(2*time.Second).
		SetRetryMaxWaitTime(10*time.Second).
		SetHeader("User-Agent", "electrobot-catalog/1.0").
		SetHeader("Accept", "application/xml,text/xml,application/json,text/csv,application/zip;q=0.9,*/*;q=0.8")
	if cfg.Username != "" {
		client.SetBasicAuth(cfg.Username, cfg.Password)
	}
	if cfg.InsecureSkipVerify {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	if proxySupplier != nil {
		if proxyURL := proxySupplier.Get(); proxyURL != "" {
			client.SetProxy(proxyURL)
			log.Infof("🔗 Using initial feed proxy: %s", proxyURL)
		}
	}

	rl := ratelimit.NewUnlimited()
	if cfg.MaxRequestsPerSecond > 0 {
		rl = ratelimit.New(cfg.MaxRequestsPerSecond)
	}

	return &feedClient{
		rl:            rl,
		url:           cfg.URL,
		httpClient:    client,
		proxySupplier: proxySupplier,
	}
}

func (c *feedClient) URL() string {
	return c.url
}

func (c *feedClient) Close() error {
	return c.httpClient.Close()
}

// Fetch first asks with HEAD whether the feed changed since validators were
// issued, then downloads it with a conditional GET. A failing HEAD is not
// fatal; some feed hosts do not implement it.
func (c *feedClient) Fetch(ctx context.Context, validators Validators) (*FeedResponse, error) {
	if unchanged, ok := c.probe(ctx, validators); ok && unchanged {
		return &FeedResponse{NotModified: true, StatusCode: http.StatusNotModified,
			ETag: validators.ETag, LastModified: validators.LastModified}, nil
	}

	resp, err := c.get(ctx, validators)
	if err != nil {
		return nil, err
	}

	out := &FeedResponse{
		StatusCode:   resp.StatusCode(),
		ContentType:  resp.Header().Get("Content-Type"),
		ETag:         resp.Header().Get("ETag"),
		LastModified: resp.Header().Get("Last-Modified"),
	}
	switch {
	case resp.StatusCode() == http.StatusNotModified:
		out.NotModified = true
		if out.ETag == "" {
			out.ETag = validators.ETag
		}
		if out.LastModified == "" {
			out.LastModified = validators.LastModified
		}
		return out, nil
	case resp.IsError() || resp.StatusCode() >= http.StatusMultipleChoices:
		return nil, fmt.Errorf("feed responded with HTTP %d", resp.StatusCode())
	}

	out.Body = resp.Bytes()
	log.Debugf("Fetched %d bytes of %q from %s", len(out.Body), out.ContentType, c.url)
	return out, nil
}

// probe reports whether HEAD shows the feed unchanged; ok is false when HEAD
// gave no usable answer.
func (c *feedClient) probe(ctx context.Context, validators Validators) (unchanged, ok bool) {
	if validators.ETag == "" && validators.LastModified == "" {
		return false, false
	}

	c.rl.Take()
	resp, err := c.conditional(ctx, validators).Head(c.url)
	if err != nil {
		log.Debugf("HEAD %s failed, falling back to GET: %v", c.url, err)
		return false, false
	}
	if resp.StatusCode() == http.StatusNotModified {
		return true, true
	}
	if resp.IsError() {
		return false, false
	}

	etag := resp.Header().Get("ETag")
	lastModified := resp.Header().Get("Last-Modified")
	switch {
	case etag != "" && validators.ETag != "":
		return etag == validators.ETag, true
	case lastModified != "" && validators.LastModified != "":
		return lastModified == validators.LastModified, true
	}
	return false, true
}

func (c *feedClient) get(ctx context.Context, validators Validators) (*resty.Response, error) {
	c.rl.Take()
	resp, err := c.conditional(ctx, validators).Get(c.url)
	if err == nil {
		return resp, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
	}

	if c.proxySupplier != nil && c.proxySupplier.Len() > 0 {
		if newProxy := c.proxySupplier.Get(); newProxy != "" {
			log.Warnf("🔄 Feed request failed (%v), switching to proxy %s", err, newProxy)
			c.httpClient.SetProxy(newProxy)

			c.rl.Take()
			retryResp, retryErr := c.conditional(ctx, validators).Get(c.url)
			if retryErr == nil {
				log.Infof("✅ Retry successful with new proxy")
				return retryResp, nil
			}
			err = retryErr
		}
	}
	return nil, fmt.Errorf("failed to fetch feed %s: %w", c.url, err)
}

func (c *feedClient) conditional(ctx context.Context, validators Validators) *resty.Request {
	req := c.httpClient.R().SetContext(ctx)
	if validators.ETag != "" {
		req.SetHeader("If-None-Match", validators.ETag)
	}
	if validators.LastModified != "" {
		req.SetHeader("If-Modified-Since", validators.LastModified)
	}
	return req
}
