package proxy

import (
	"context"
	"crypto/tls"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"resty.dev/v3"
)

// ProxySupplier hands out working proxies in round-robin order.
type ProxySupplier interface {
	Get() string
	Len() int
}

type proxySupplier struct {
	proxies []string
	current int
	mutex   sync.Mutex
}

// Check describes the request each proxy must be able to forward.
type Check struct {
	URL                string
	Username           string
	Password           string
	InsecureSkipVerify bool
}

// NewProxySupplier keeps the proxies that forward the check request. Any
// answer from the target counts, whatever its status; only transport errors
// and proxy-level failures drop a proxy. An empty list yields a supplier that
// never returns a proxy.
func NewProxySupplier(ctx context.Context, proxies []string, check Check) ProxySupplier {
	if len(proxies) == 0 {
		return &proxySupplier{}
	}

	log.Infof("🔄 Checking %d feed proxies...", len(proxies))

	working := make([]bool, len(proxies))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(16)
	for i, proxyURL := range proxies {
		g.Go(func() error {
			working[i] = isProxyValid(gctx, proxyURL, check)
			if working[i] {
				log.Debugf("✅ Proxy %s is working", proxyURL)
			} else {
				log.Warnf("⚠️ Proxy %s is not working, skipping", proxyURL)
			}
			return nil
		})
	}
	_ = g.Wait()

	valid := make([]string, 0, len(proxies))
	for i, ok := range working {
		if ok {
			valid = append(valid, proxies[i])
		}
	}

	log.Infof("✅ %d of %d feed proxies are working", len(valid), len(proxies))
	return &proxySupplier{proxies: valid}
}

// Get returns the next proxy URL, or "" when none is available.
func (p *proxySupplier) Get() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	proxy := p.proxies[p.current]
	p.current = (p.current + 1) % len(p.proxies)
	return proxy
}

func (p *proxySupplier) Len() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.proxies)
}

func isProxyValid(ctx context.Context, proxyURL string, check Check) bool {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetRetryCount(0).
		SetTLSClientConfig(&tls.Config{InsecureSkipVerify: check.InsecureSkipVerify}).
		SetProxy(proxyURL)
	defer client.Close()
	if check.Username != "" {
		client.SetBasicAuth(check.Username, check.Password)
	}

	resp, err := client.R().
		SetContext(ctx).
		Head(check.URL)
	if err != nil {
		log.Debugf("Proxy check failed for %s: %v", proxyURL, err)
		return false
	}
	switch resp.StatusCode() {
	case http.StatusProxyAuthRequired, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		log.Debugf("Proxy check failed for %s with status: %s", proxyURL, resp.Status())
		return false
	}
	return true
}
