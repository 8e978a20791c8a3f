package cmds

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/chatnav/pkg/events"
	"github.com/go-go-golems/chatnav/pkg/layout"
	"github.com/go-go-golems/chatnav/pkg/outline"
	"github.com/go-go-golems/chatnav/pkg/reconcile"
)

type WatchSettings struct {
	Page          string `glazed.parameter:"page"`
	PrintEvents   bool   `glazed.parameter:"print-events"`
	VerboseEvents bool   `glazed.parameter:"verbose-events"`
}

type WatchCommand struct {
	*cmds.CommandDescription
}

var _ cmds.BareCommand = (*WatchCommand)(nil)

func NewWatchCommand() (*WatchCommand, error) {
	return &WatchCommand{
		CommandDescription: cmds.NewCommandDescription(
			"watch",
			cmds.WithShort("Keep the outline of a page up to date while it changes"),
			cmds.WithArguments(
				parameters.NewParameterDefinition(
					"page",
					parameters.ParameterTypeString,
					parameters.WithHelp("HTML file or URL of the chat page"),
				),
			),
			cmds.WithFlags(
				parameters.NewParameterDefinition(
					"print-events",
					parameters.ParameterTypeBool,
					parameters.WithHelp("Print every loop event as JSON to stderr"),
					parameters.WithDefault(false),
				),
				parameters.NewParameterDefinition(
					"verbose-events",
					parameters.ParameterTypeBool,
					parameters.WithHelp("Log the internals of the event router"),
					parameters.WithDefault(false),
				),
			),
		),
	}, nil
}

func (c *WatchCommand) Run(ctx context.Context, parsedLayers *layers.ParsedLayers) error {
	s := &WatchSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "could not initialize watch settings")
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	src, err := openSource(ctx, s.Page)
	if err != nil {
		return err
	}
	defer func() {
		_ = src.Close()
	}()

	cfg, err := storeConfig()
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	router, err := events.NewEventRouter(events.WithVerbose(s.VerboseEvents))
	if err != nil {
		return err
	}
	defer func() {
		_ = router.Close()
	}()

	if s.PrintEvents {
		router.AddHandler("dump", events.Topic, events.DumpEvents(os.Stderr))
	}
	router.AddEventHandler("log", func(_ context.Context, ev events.Event) error {
		log.Debug().
			Str("type", string(ev.Type())).
			Object("meta", ev.Metadata()).
			Msg("event")
		return nil
	})

	publisher := events.NewPublisherManager()
	publisher.SubscribePublisher(events.Topic, router.Publisher)

	options := []reconcile.Option{
		reconcile.WithPanel(&outline.WriterPanel{W: os.Stdout}),
		reconcile.WithPublisher(publisher),
		reconcile.WithDebounce(viper.GetDuration("debounce")),
		reconcile.WithOnlyFavorites(viper.GetBool("only-favorites")),
	}
	if name := viper.GetString("layout"); name != "" && name != "auto" {
		strategy, err := layout.ForName(name, "")
		if err != nil {
			return err
		}
		options = append(options, reconcile.WithStrategy(strategy))
	}
	loop := reconcile.NewLoop(src, newRegistry(store), options...)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return router.Run(ctx)
	})
	eg.Go(func() error {
		select {
		case <-router.Running():
		case <-ctx.Done():
			return nil
		}
		if err := loop.Start(ctx); err != nil {
			return err
		}
		log.Info().
			Str("session_id", loop.SessionID()).
			Str("target", loop.Target()).
			Msg("watching page, press Ctrl-C to stop")

		<-ctx.Done()
		stats := loop.Stats()
		log.Info().
			Int("scans", stats.Scans).
			Int("rebuilds", stats.Rebuilds).
			Int("skipped", stats.Skipped).
			Msg("stopped watching")
		return loop.Close()
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
