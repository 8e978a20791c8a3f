// Package cmds holds the chatnav subcommands.
package cmds

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/go-go-golems/chatnav/pkg/annotations"
	"github.com/go-go-golems/chatnav/pkg/dom"
	"github.com/go-go-golems/chatnav/pkg/identity"
	"github.com/go-go-golems/chatnav/pkg/layout"
	"github.com/go-go-golems/chatnav/pkg/outline"
	"github.com/go-go-golems/chatnav/pkg/reconcile"
	"github.com/go-go-golems/chatnav/pkg/source"
)

// rowProcessor is the part of the glazed processor the commands feed.
type rowProcessor interface {
	AddRow(ctx context.Context, row types.Row) error
}

// AddStoreFlags declares the annotation store settings.
func AddStoreFlags(fs *pflag.FlagSet) {
	fs.String("store", string(annotations.KindFile), "Annotation store (memory, file, sqlite, redis)")
	fs.String("store-path", "", "JSON file or SQLite database of the store (default in the user config dir)")
	fs.String("redis-url", "redis://localhost:6379/0", "Redis URL for --store redis")
	fs.String("store-key", annotations.DefaultStoreKey, "Name of the annotation document in sqlite and redis stores")
}

// AddSourceFlags declares how pages are read.
func AddSourceFlags(fs *pflag.FlagSet) {
	fs.String("source", "auto", "Page source (auto, file, http, chrome)")
	fs.String("layout", "auto", "Page layout (auto, chatgpt, gemini)")
	fs.Duration("poll-interval", source.DefaultPollInterval, "Poll interval of the http source")
	fs.String("chrome-remote-url", "", "DevTools websocket URL of a running browser for --source chrome")
	fs.Bool("headless", true, "Run the launched browser headless for --source chrome")
	fs.Bool("only-favorites", false, "Only show favorite turns")
	fs.Duration("debounce", reconcile.DefaultDebounce, "Quiet period after the last page change before rescanning")
}

func storeConfig() (annotations.Config, error) {
	kind := annotations.Kind(strings.ToLower(viper.GetString("store")))
	cfg := annotations.Config{
		Kind:     kind,
		Path:     viper.GetString("store-path"),
		RedisURL: viper.GetString("redis-url"),
		Key:      viper.GetString("store-key"),
	}
	if cfg.Path == "" && (kind == annotations.KindFile || kind == annotations.KindSQLite) {
		dir, err := os.UserConfigDir()
		if err != nil {
			return cfg, errors.Wrap(err, "locate user config dir")
		}
		name := "annotations.json"
		if kind == annotations.KindSQLite {
			name = "annotations.db"
		}
		cfg.Path = filepath.Join(dir, "chatnav", name)
	}
	if kind == annotations.KindSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return cfg, errors.Wrapf(err, "create directory of %s", cfg.Path)
		}
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg annotations.Config) (annotations.Store, error) {
	store, err := annotations.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("store", string(cfg.Kind)).Str("path", cfg.Path).Msg("opened annotation store")
	return store, nil
}

func newRegistry(store annotations.Store) *annotations.Registry {
	return annotations.NewRegistry(store, annotations.WithChangeListener(func(key identity.Key, a annotations.Annotation) {
		log.Debug().Str("key", key.String()).Bool("favorite", a.IsFavorite()).Str("name", a.DisplayName()).Msg("annotation changed")
	}))
}

func openRegistry(ctx context.Context) (*annotations.Registry, error) {
	cfg, err := storeConfig()
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	notes := newRegistry(store)
	notes.Load(ctx)
	return notes, nil
}

func openSource(ctx context.Context, location string) (source.Source, error) {
	kind := viper.GetString("source")
	if (kind == "" || kind == "auto") && viper.GetString("chrome-remote-url") != "" {
		kind = "chrome"
	}
	switch kind {
	case "", "auto":
		if location == "" {
			return nil, errors.New("a page location is required")
		}
		return source.Open(location, source.WithPollInterval(viper.GetDuration("poll-interval")))
	case "file":
		return source.NewFileSource(location)
	case "http":
		return source.NewHTTPSource(location, source.WithPollInterval(viper.GetDuration("poll-interval"))), nil
	case "chrome":
		return source.NewChromeSource(ctx, source.ChromeOptions{
			RemoteURL: viper.GetString("chrome-remote-url"),
			URL:       location,
			Headless:  viper.GetBool("headless"),
		})
	default:
		return nil, errors.Errorf("unknown source %q", kind)
	}
}

// page is one snapshot of a chat page with its annotations.
type page struct {
	src      source.Source
	doc      *dom.Document
	strategy layout.Strategy
	notes    *annotations.Registry
}

func openPage(ctx context.Context, location string) (*page, error) {
	src, err := openSource(ctx, location)
	if err != nil {
		return nil, err
	}
	doc, err := src.Snapshot(ctx)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	strategy, err := layout.ForName(viper.GetString("layout"), doc.URL)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	notes, err := openRegistry(ctx)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	return &page{src: src, doc: doc, strategy: strategy, notes: notes}, nil
}

func (p *page) outline(onlyFavorites bool) *outline.Outline {
	return outline.Build(p.strategy, p.doc, p.strategy.Locate(p.doc), p.notes, outline.Options{OnlyFavorites: onlyFavorites})
}

// resolveKey accepts an identity key or a 1-based turn ordinal.
func (p *page) resolveKey(arg string) (identity.Key, error) {
	o := p.outline(false)
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(o.Entries) {
			return "", errors.Errorf("turn %d out of range, the page has %d turns", n, len(o.Entries))
		}
		return o.Entries[n-1].Key, nil
	}
	key := identity.Key(arg)
	if _, ok := o.Find(key); !ok {
		return "", errors.Errorf("no turn with key %s on this page", arg)
	}
	return key, nil
}

func (p *page) Close() error {
	err := p.notes.Close()
	if serr := p.src.Close(); err == nil {
		err = serr
	}
	return err
}
