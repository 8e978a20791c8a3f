package source

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatnav/pkg/dom"
)

// observerGlobal is the window property the injected observer lives in.
const observerGlobal = "__chatnavObserver"

const installObserverJS = `(function(selector, key) {
  const prev = window[key];
  if (prev && prev.observer) {
    try { prev.observer.disconnect(); } catch (_) {}
  }
  const target = (selector && document.querySelector(selector)) || document.querySelector("main") || document.body;
  if (!target) return false;
  const state = { records: [], observer: null };
  state.observer = new MutationObserver((mutations) => {
    for (const m of mutations) {
      state.records.push({ kind: m.type, address: location.href });
    }
  });
  state.observer.observe(target, { childList: true, subtree: true });
  window[key] = state;
  return true;
})(%q, %q)`

const drainObserverJS = `(function(key) {
  const state = window[key];
  if (!state) return { installed: false, address: location.href, records: [] };
  const records = state.records;
  state.records = [];
  return { installed: true, address: location.href, records: records };
})(%q)`

const disconnectObserverJS = `(function(key) {
  const state = window[key];
  if (state && state.observer) state.observer.disconnect();
  delete window[key];
  return true;
})(%q)`

type drainResult struct {
	Installed bool       `json:"installed"`
	Address   string     `json:"address"`
	Records   []Mutation `json:"records"`
}

type ChromeOptions struct {
	// RemoteURL attaches to a running browser's DevTools websocket, so the
	// user's own logged-in tab can be observed. Empty launches a browser.
	RemoteURL string
	// URL is navigated to after connecting; empty keeps the current page.
	URL      string
	Headless bool
	// PollInterval is how often recorded mutations are collected.
	PollInterval time.Duration
}

// ChromeSource reads a live tab through the DevTools protocol. Mutations
// are recorded in the page by a MutationObserver and collected by polling.
type ChromeSource struct {
	ctx      context.Context
	cancels  []context.CancelFunc
	interval time.Duration

	mu     sync.Mutex
	closed bool
}

var _ Source = (*ChromeSource)(nil)

func NewChromeSource(ctx context.Context, opts ChromeOptions) (*ChromeSource, error) {
	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, opts.RemoteURL)
	} else {
		execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, execOpts...)
	}

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	c := &ChromeSource{
		ctx:      tabCtx,
		cancels:  []context.CancelFunc{tabCancel, allocCancel},
		interval: opts.PollInterval,
	}
	if c.interval <= 0 {
		c.interval = 500 * time.Millisecond
	}

	var actions []chromedp.Action
	if opts.URL != "" {
		actions = append(actions, chromedp.Navigate(opts.URL))
	}
	actions = append(actions, chromedp.WaitReady("body", chromedp.ByQuery))
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		_ = c.Close()
		return nil, errors.Wrap(err, "chrome source: connect")
	}
	return c, nil
}

func (c *ChromeSource) Snapshot(ctx context.Context) (*dom.Document, error) {
	if c.isClosed() {
		return nil, ErrSourceClosed
	}
	var html, address string
	err := c.run(ctx,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&address),
	)
	if err != nil {
		return nil, errors.Wrap(err, "chrome source: snapshot")
	}
	return dom.Parse(strings.NewReader(html), address)
}

// Observe injects a MutationObserver on target (falling back to main, then
// body) and polls its records. A page reload drops the observer; the poller
// notices, re-installs it and reports a mutation at the new address.
func (c *ChromeSource) Observe(ctx context.Context, target string, fn MutationFunc) (Subscription, error) {
	if c.isClosed() {
		return nil, ErrSourceClosed
	}
	if err := c.install(ctx, target); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				var res drainResult
				if err := c.run(ctx, evaluate(fmt.Sprintf(drainObserverJS, observerGlobal), &res)); err != nil {
					log.Debug().Err(err).Msg("could not collect mutations")
					continue
				}
				if !res.Installed {
					if err := c.install(ctx, target); err != nil {
						log.Debug().Err(err).Msg("could not re-install mutation observer")
						continue
					}
					fn([]Mutation{{Kind: ChildList, Address: res.Address}})
					continue
				}
				if len(res.Records) > 0 {
					fn(res.Records)
				}
			}
		}
	}()

	return subscriptionFunc(func() error {
		cancel()
		<-done
		var ok bool
		return c.run(context.Background(), evaluate(fmt.Sprintf(disconnectObserverJS, observerGlobal), &ok))
	}), nil
}

func (c *ChromeSource) install(ctx context.Context, target string) error {
	var ok bool
	if err := c.run(ctx, evaluate(fmt.Sprintf(installObserverJS, target, observerGlobal), &ok)); err != nil {
		return errors.Wrap(err, "chrome source: install observer")
	}
	if !ok {
		return errors.New("chrome source: page has no observable element")
	}
	return nil
}

// run executes actions on the tab, bounded by ctx as well as the tab.
func (c *ChromeSource) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func evaluate(expression string, res interface{}) chromedp.Action {
	return chromedp.Evaluate(expression, res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithSilent(true)
	})
}

func (c *ChromeSource) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *ChromeSource) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for _, cancel := range c.cancels {
		cancel()
	}
	return nil
}
