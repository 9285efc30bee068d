package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/google/omniwatch/internal/broadcast"
	"github.com/google/omniwatch/internal/config"
	"github.com/google/omniwatch/internal/metrics"
	"github.com/google/omniwatch/internal/procs"
	"github.com/google/omniwatch/internal/server"
	"github.com/google/omniwatch/internal/ui"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to a JSON configuration file (default: omniwatch.json if present)")
	mockMode := flag.Bool("mock", false, "Run with simulated metrics and processes")
	withTUI := flag.Bool("tui", false, "Also run the terminal viewer")
	addr := flag.String("addr", "", "Listen address, overrides the configuration")
	writeConfig := flag.String("write-config", "", "Write the effective configuration to this JSON file and exit")
	flag.Parse()

	// The terminal viewer owns the screen, so logs go to a file.
	if *withTUI {
		f, err := tea.LogToFile("omniwatch.log", "omniwatch")
		if err != nil {
			fmt.Printf("Error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *writeConfig != "" {
		if err := config.SaveConfig(cfg, *writeConfig); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		log.Printf("Configuration written to %s", *writeConfig)
		return
	}

	// Initialize OS adapters
	var provider metrics.Provider
	var source procs.Source
	if *mockMode {
		log.Println("Starting in MOCK mode...")
		provider = &metrics.MockProvider{}
		source = procs.DemoSource()
	} else {
		log.Println("Starting in REAL mode...")
		provider = &metrics.RealProvider{DisableGPU: !cfg.EnableGPU}
		source = procs.SystemSource{}
	}

	if err := provider.Init(); err != nil {
		log.Fatalf("Failed to initialize metrics provider: %v", err)
	}
	defer provider.Shutdown()

	sampler := metrics.NewSampler(provider, metrics.WithGPU(cfg.EnableGPU))
	sampler.Prime()
	snapshots := procs.NewSnapshotter(source)
	controller := procs.NewController(source, cfg.KillWait())

	hub := broadcast.NewHub(cfg.SendQueueSize)
	broadcaster := broadcast.NewBroadcaster(hub, sampler, snapshots,
		broadcast.WithIntervals(cfg.Refresh(), cfg.Backoff()))
	broadcaster.SetAutoRefresh(cfg.AutoRefresh)

	srv := server.New(server.Deps{
		Hub:              hub,
		Refresher:        broadcaster,
		Sampler:          sampler,
		Lister:           snapshots,
		Resolver:         procs.NewResolver(source, snapshots, cfg.OpenFilesLimit),
		Controller:       controller,
		BroadcastActions: cfg.BroadcastActions,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return broadcaster.Run(ctx)
	})
	g.Go(func() error {
		return srv.ListenAndServe(ctx, cfg.ListenAddr)
	})
	if *withTUI {
		g.Go(func() error {
			defer stop()
			return runViewer(ctx, hub, sampler, snapshots, controller, broadcaster)
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("omniwatch stopped: %v", err)
	}
	log.Println("Shut down cleanly")
}

func loadConfig(path string) (*config.Configuration, error) {
	var cfg *config.Configuration
	var err error
	if path != "" {
		cfg, err = config.LoadConfig(path)
	} else {
		cfg, err = config.LoadDefaultConfig()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runViewer runs the terminal viewer as one more hub subscriber until the
// user quits or ctx is cancelled.
func runViewer(ctx context.Context, hub *broadcast.Hub, sampler *metrics.Sampler, snapshots *procs.Snapshotter, controller *procs.Controller, broadcaster *broadcast.Broadcaster) error {
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	sub.Send(broadcast.Message{Event: broadcast.EventSystemMetrics, Data: sampler.Sample()})
	if list, err := snapshots.List(); err == nil {
		sub.Send(broadcast.Message{Event: broadcast.EventProcessList, Data: list})
	}

	p := tea.NewProgram(ui.NewRootModel(sub, controller, broadcaster), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("terminal viewer: %w", err)
	}
	return nil
}
