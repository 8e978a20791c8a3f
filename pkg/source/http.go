package source

import (
	"bytes"
	"context"
	"crypto/sha256"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatnav/pkg/dom"
)

const DefaultPollInterval = 2 * time.Second

type PollOption func(*pollConfig)

type pollConfig struct {
	interval time.Duration
	client   *http.Client
}

func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.interval = d
		}
	}
}

func WithHTTPClient(client *http.Client) PollOption {
	return func(c *pollConfig) {
		c.client = client
	}
}

// HTTPSource fetches a page over HTTP. Observation polls the page and
// reports a mutation whenever the body changes; the address is the final
// URL after redirects.
type HTTPSource struct {
	url    string
	config pollConfig

	mu     sync.Mutex
	closed bool
}

var _ Source = (*HTTPSource)(nil)

func NewHTTPSource(url string, opts ...PollOption) *HTTPSource {
	cfg := pollConfig{interval: DefaultPollInterval, client: http.DefaultClient}
	for _, o := range opts {
		o(&cfg)
	}
	return &HTTPSource{url: url, config: cfg}
}

func (h *HTTPSource) Snapshot(ctx context.Context) (*dom.Document, error) {
	body, address, err := h.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return dom.Parse(bytes.NewReader(body), address)
}

func (h *HTTPSource) fetch(ctx context.Context) ([]byte, string, error) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return nil, "", ErrSourceClosed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, "", errors.Wrapf(err, "http source: build request for %s", h.url)
	}
	resp, err := h.config.client.Do(req)
	if err != nil {
		return nil, "", errors.Wrapf(err, "http source: fetch %s", h.url)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode >= 400 {
		return nil, "", errors.Errorf("http source: fetch %s: status %d", h.url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", errors.Wrapf(err, "http source: read %s", h.url)
	}
	return body, resp.Request.URL.String(), nil
}

// Observe polls the page; target is ignored.
func (h *HTTPSource) Observe(ctx context.Context, _ string, fn MutationFunc) (Subscription, error) {
	body, _, err := h.fetch(ctx)
	if err != nil {
		return nil, err
	}
	last := sha256.Sum256(body)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(h.config.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				body, address, err := h.fetch(ctx)
				if err != nil {
					log.Debug().Err(err).Str("url", h.url).Msg("poll failed")
					continue
				}
				sum := sha256.Sum256(body)
				if sum == last {
					continue
				}
				last = sum
				fn([]Mutation{{Kind: ChildList, Address: address}})
			}
		}
	}()

	return subscriptionFunc(func() error {
		cancel()
		<-done
		return nil
	}), nil
}

func (h *HTTPSource) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}
