// Package reconcile keeps an outline in step with a live chat page. It
// debounces mutations, rescans only when the turn signature changed and
// re-attaches its observer when the page swaps its conversation container.
package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatnav/pkg/annotations"
	"github.com/go-go-golems/chatnav/pkg/dom"
	"github.com/go-go-golems/chatnav/pkg/events"
	"github.com/go-go-golems/chatnav/pkg/identity"
	"github.com/go-go-golems/chatnav/pkg/layout"
	"github.com/go-go-golems/chatnav/pkg/outline"
	"github.com/go-go-golems/chatnav/pkg/source"
)

type State int

const (
	Idle State = iota
	PendingScan
	Scanning
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PendingScan:
		return "pending-scan"
	case Scanning:
		return "scanning"
	default:
		return "unknown"
	}
}

const (
	DefaultAttachAttempts = 240
	// DefaultAttachInterval is roughly one animation frame.
	DefaultAttachInterval = 16 * time.Millisecond
)

var (
	ErrLoopClosed  = errors.New("loop is closed")
	ErrNotStarted  = errors.New("loop is not started")
	ErrKeyNotFound = errors.New("no turn with this key")
)

// Stats counts what the loop did since it started.
type Stats struct {
	Scans    int `json:"scans"`
	Rebuilds int `json:"rebuilds"`
	Skipped  int `json:"skipped"`
	Attaches int `json:"attaches"`
}

type Option func(*Loop)

func WithClock(c Clock) Option {
	return func(l *Loop) {
		l.clock = c
	}
}

func WithDebounce(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.debounce = d
		}
	}
}

// WithStrategy pins the layout family instead of picking it from the page
// address at start.
func WithStrategy(s layout.Strategy) Option {
	return func(l *Loop) {
		l.strategy = s
	}
}

func WithPanel(p outline.Panel) Option {
	return func(l *Loop) {
		l.panel = p
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(l *Loop) {
		l.publisher = p
	}
}

func WithOnlyFavorites(v bool) Option {
	return func(l *Loop) {
		l.onlyFavorites = v
	}
}

// WithAttachRetry bounds how long Start waits for the page to show a
// document root.
func WithAttachRetry(attempts int, interval time.Duration) Option {
	return func(l *Loop) {
		l.attachAttempts = attempts
		l.attachInterval = interval
	}
}

func WithSessionID(id string) Option {
	return func(l *Loop) {
		l.sessionID = id
	}
}

// Loop is one page session: it owns the annotation registry, the layout
// strategy, the debouncer and the observer subscription.
type Loop struct {
	source    source.Source
	notes     *annotations.Registry
	clock     Clock
	debounce  time.Duration
	panel     outline.Panel
	publisher events.Publisher
	sessionID string

	attachAttempts int
	attachInterval time.Duration

	debouncer *Debouncer

	// scanMu serializes scans.
	scanMu sync.Mutex

	mu            sync.Mutex
	ctx           context.Context
	started       bool
	closed        bool
	state         State
	strategy      layout.Strategy
	onlyFavorites bool
	address       string
	lastSig       identity.Signature
	last          *outline.Outline
	sub           source.Subscription
	target        string
	stats         Stats
}

func NewLoop(src source.Source, notes *annotations.Registry, options ...Option) *Loop {
	l := &Loop{
		source:         src,
		notes:          notes,
		clock:          RealClock(),
		debounce:       DefaultDebounce,
		publisher:      events.NopPublisher{},
		sessionID:      uuid.NewString(),
		attachAttempts: DefaultAttachAttempts,
		attachInterval: DefaultAttachInterval,
		ctx:            context.Background(),
	}
	for _, o := range options {
		o(l)
	}
	l.debouncer = NewDebouncer(l.clock, l.debounce, l.fire)
	return l
}

func (l *Loop) SessionID() string { return l.sessionID }

// Start loads the annotations, waits for the page to show a document root,
// runs the first forced scan and attaches the observer. A page that never
// shows a root is given up on quietly: Start returns nil and the loop stays
// idle.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLoopClosed
	}
	l.ctx = ctx
	l.mu.Unlock()

	l.notes.Load(ctx)

	doc, err := l.waitForRoot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Int("attempts", l.attachAttempts).Msg("page never showed a document root, giving up")
		return nil
	}

	l.mu.Lock()
	if l.strategy == nil {
		l.strategy = layout.ForURL(doc.URL)
	}
	l.address = doc.URL
	l.started = true
	l.mu.Unlock()

	log.Debug().
		Str("session_id", l.sessionID).
		Str("url", doc.URL).
		Str("layout", l.strategy.Name()).
		Msg("starting reconciliation loop")

	l.scanMu.Lock()
	defer l.scanMu.Unlock()
	l.evaluate(ctx, doc, true)
	return nil
}

func (l *Loop) waitForRoot(ctx context.Context) (*dom.Document, error) {
	attempts := l.attachAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(l.attachInterval):
			}
		}
		doc, err := l.source.Snapshot(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if doc.Root().Length() > 0 {
			return doc, nil
		}
		lastErr = errors.New("document has no main or body element")
	}
	return nil, lastErr
}

// HandleMutations is the observer callback. Child-list mutations schedule a
// scan; a batch observed at a new page address schedules a forced one.
func (l *Loop) HandleMutations(batch []source.Mutation) {
	childList := false
	address := ""
	for _, m := range batch {
		if m.Kind == source.ChildList {
			childList = true
		}
		if m.Address != "" {
			address = m.Address
		}
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	navigated := address != "" && address != l.address
	if navigated {
		log.Debug().Str("from", l.address).Str("to", address).Msg("page address changed")
		l.address = address
	}
	l.mu.Unlock()

	if childList {
		l.schedule(false)
	}
	if navigated {
		l.schedule(true)
	}
}

// ForceRescan schedules a scan that rebuilds the outline even when the
// signature did not change.
func (l *Loop) ForceRescan() {
	l.schedule(true)
}

func (l *Loop) schedule(force bool) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	if l.state == Idle {
		l.state = PendingScan
	}
	l.mu.Unlock()
	l.debouncer.Trigger(force)
}

// fire runs when the debounce period elapsed. A scan already in progress
// pushes the request to a new debounce cycle.
func (l *Loop) fire(force bool) {
	l.mu.Lock()
	ctx, closed, started := l.ctx, l.closed, l.started
	l.mu.Unlock()
	if closed || !started {
		return
	}

	if !l.scanMu.TryLock() {
		l.debouncer.Trigger(force)
		return
	}
	defer l.scanMu.Unlock()
	l.scan(ctx, force)
}

// ScanNow scans immediately, bypassing the debouncer, and returns the
// current outline.
func (l *Loop) ScanNow(ctx context.Context, force bool) (*outline.Outline, error) {
	l.mu.Lock()
	closed, started := l.closed, l.started
	l.mu.Unlock()
	if closed {
		return nil, ErrLoopClosed
	}
	if !started {
		return nil, ErrNotStarted
	}

	l.scanMu.Lock()
	defer l.scanMu.Unlock()
	if err := l.scan(ctx, force); err != nil {
		return nil, err
	}
	return l.Outline(), nil
}

func (l *Loop) scan(ctx context.Context, force bool) error {
	l.setState(Scanning)
	doc, err := l.source.Snapshot(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("could not snapshot page")
		l.settle()
		return err
	}
	l.evaluate(ctx, doc, force)
	return nil
}

// evaluate compares the signature of doc against the last accepted one and
// rebuilds the outline when it changed or when forced. Callers hold scanMu.
func (l *Loop) evaluate(ctx context.Context, doc *dom.Document, force bool) {
	l.setState(Scanning)
	defer l.settle()

	l.mu.Lock()
	s := l.strategy
	onlyFavorites := l.onlyFavorites
	l.mu.Unlock()

	regions := s.Locate(doc)
	keys := identity.DeriveKeys(s, regions)
	sig := identity.SignatureOfKeys(keys)

	l.mu.Lock()
	l.stats.Scans++
	if !force && sig == l.lastSig {
		l.stats.Skipped++
		l.mu.Unlock()
		log.Trace().Int("turns", len(regions)).Msg("signature unchanged, skipping rebuild")
		return
	}
	l.lastSig = sig
	l.mu.Unlock()

	o := outline.BuildFromKeys(s, doc, regions, keys, l.notes, outline.Options{OnlyFavorites: onlyFavorites})

	l.mu.Lock()
	l.last = o
	l.stats.Rebuilds++
	l.mu.Unlock()

	log.Debug().
		Int("turns", o.Total).
		Int("shown", len(o.Entries)).
		Bool("forced", force).
		Msg("rebuilt outline")

	if l.panel != nil {
		l.panel.Render(o)
	}
	l.publish(events.NewOutlineRebuilt(l.meta(doc.URL), o, force))

	l.attach(ctx, s, doc)
}

// attach subscribes to mutations under the observe target. Nothing happens
// when the target is the one already observed; otherwise the previous
// subscription is dropped first. Failures are logged.
func (l *Loop) attach(ctx context.Context, s layout.Strategy, doc *dom.Document) {
	target := s.ObserveTarget(doc)
	if target == nil || target.Length() == 0 {
		log.Debug().Msg("no observe target on page")
		return
	}
	path := dom.CSSPath(target)

	l.mu.Lock()
	prev, prevPath := l.sub, l.target
	l.mu.Unlock()
	if prev != nil && prevPath == path {
		return
	}
	if prev != nil {
		if err := prev.Disconnect(); err != nil {
			log.Warn().Err(err).Str("target", prevPath).Msg("could not disconnect observer")
		}
	}

	sub, err := l.source.Observe(ctx, path, l.HandleMutations)
	if err != nil {
		l.mu.Lock()
		l.sub, l.target = nil, ""
		l.mu.Unlock()
		log.Warn().Err(err).Str("target", path).Msg("could not attach observer")
		return
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		_ = sub.Disconnect()
		return
	}
	l.sub, l.target = sub, path
	l.stats.Attaches++
	l.mu.Unlock()

	log.Debug().Str("target", path).Msg("attached observer")
	l.publish(events.NewObserverAttached(l.meta(doc.URL), path))
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = s
}

// settle leaves Scanning for PendingScan when another scan is already
// scheduled, Idle otherwise.
func (l *Loop) settle() {
	next := Idle
	if l.debouncer.Pending() {
		next = PendingScan
	}
	l.setState(next)
}

func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// Outline is the last accepted outline, nil before the first scan.
func (l *Loop) Outline() *outline.Outline {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

func (l *Loop) Signature() identity.Signature {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSig
}

// Target is the selector of the observed element, "" when detached.
func (l *Loop) Target() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.target
}

func (l *Loop) Strategy() layout.Strategy {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.strategy
}

func (l *Loop) Registry() *annotations.Registry { return l.notes }

func (l *Loop) OnlyFavorites() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.onlyFavorites
}

// SetOnlyFavorites switches the favorites filter and forces a rescan.
func (l *Loop) SetOnlyFavorites(v bool) {
	l.mu.Lock()
	l.onlyFavorites = v
	l.mu.Unlock()
	l.ForceRescan()
}

// ToggleFavorite flips the favorite flag of key and forces a rescan. The
// returned error is the store's save error; the change is kept in memory
// either way.
func (l *Loop) ToggleFavorite(ctx context.Context, key identity.Key) (annotations.Annotation, error) {
	a, err := l.notes.ToggleFavorite(ctx, key)
	l.annotationChanged(key, a)
	return a, err
}

// Rename sets the custom name of key and forces a rescan.
func (l *Loop) Rename(ctx context.Context, key identity.Key, name string) (annotations.Annotation, error) {
	a, err := l.notes.Rename(ctx, key, name)
	l.annotationChanged(key, a)
	return a, err
}

func (l *Loop) annotationChanged(key identity.Key, a annotations.Annotation) {
	l.mu.Lock()
	address := l.address
	l.mu.Unlock()
	l.publish(events.NewAnnotationChanged(l.meta(address), key.String(), a.DisplayName(), a.IsFavorite()))
	l.ForceRescan()
}

// Locate finds the region currently carrying key on a fresh snapshot. When
// the key can't be found there, the region of the last outline is returned.
func (l *Loop) Locate(ctx context.Context, key identity.Key) (*goquery.Selection, error) {
	l.mu.Lock()
	s, last := l.strategy, l.last
	l.mu.Unlock()
	if s == nil {
		return nil, ErrNotStarted
	}

	doc, err := l.source.Snapshot(ctx)
	if err == nil {
		if region, _, ok := outline.Locate(s, doc, key); ok {
			return region, nil
		}
	} else {
		log.Debug().Err(err).Msg("could not snapshot page for locate")
	}

	if last != nil {
		if e, ok := last.Find(key); ok {
			return e.Region, nil
		}
	}
	return nil, errors.Wrapf(ErrKeyNotFound, "locate %s", key)
}

func (l *Loop) meta(address string) events.EventMetadata {
	return events.EventMetadata{
		SessionID: l.sessionID,
		URL:       address,
		Time:      time.Now(),
	}
}

func (l *Loop) publish(ev events.Event) {
	if err := l.publisher.Publish(ev); err != nil {
		log.Warn().Err(err).Str("type", string(ev.Type())).Msg("could not publish event")
	}
}

// Close stops the debouncer, disconnects the observer and closes the
// annotation registry. The source stays open.
func (l *Loop) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	sub := l.sub
	l.sub, l.target = nil, ""
	l.state = Idle
	l.mu.Unlock()

	l.debouncer.Stop()
	if sub != nil {
		if err := sub.Disconnect(); err != nil {
			log.Warn().Err(err).Msg("could not disconnect observer")
		}
	}
	return l.notes.Close()
}
