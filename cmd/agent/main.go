package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nuscape/windows-agent/internal/agentconfig"
	"github.com/nuscape/windows-agent/internal/agentrt"
	"github.com/nuscape/windows-agent/internal/devicestatus"
	"github.com/nuscape/windows-agent/internal/foreground"
	"github.com/nuscape/windows-agent/internal/metrics"
	"github.com/nuscape/windows-agent/internal/netusage"
	"github.com/nuscape/windows-agent/internal/queue"
	"github.com/nuscape/windows-agent/internal/register"
	"github.com/nuscape/windows-agent/internal/runtimeconfig"
	"github.com/nuscape/windows-agent/internal/storage"
	"github.com/nuscape/windows-agent/internal/tokenstore"
	"github.com/nuscape/windows-agent/internal/upload"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "agent",
		Short: "NuScape Windows usage-telemetry agent",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the runtime config file (defaults to the XDG config location)")

	rootCmd.AddCommand(runCmd(), registerCmd(), statusCmd(), queueCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type wiring struct {
	rtCfg    *runtimeconfig.Config
	paths    *storage.Paths
	config   *agentconfig.ConfigStore
	devices  *agentconfig.DeviceStore
	tokens   *tokenstore.Store
	queue    *queue.Store
	counters *netusage.CounterStore
}

func wireStores() (*wiring, error) {
	path := configPath
	if path == "" {
		path = runtimeconfig.DefaultPath()
	}
	rtCfg, err := runtimeconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load runtime config: %w", err)
	}

	paths, err := storage.New()
	if err != nil {
		return nil, fmt.Errorf("resolve data directory: %w", err)
	}

	cfgStore, err := agentconfig.NewConfigStore(paths)
	if err != nil {
		return nil, fmt.Errorf("load config store: %w", err)
	}
	devices, err := agentconfig.NewDeviceStore(paths)
	if err != nil {
		return nil, fmt.Errorf("load device store: %w", err)
	}
	tokens, err := tokenstore.New(paths)
	if err != nil {
		return nil, fmt.Errorf("load token store: %w", err)
	}

	return &wiring{
		rtCfg:    rtCfg,
		paths:    paths,
		config:   cfgStore,
		devices:  devices,
		tokens:   tokens,
		queue:    queue.New(paths.QueuePath()),
		counters: netusage.New(paths.CountersPath()),
	}, nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the agent's sampler, collector, and uploader loops until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := wireStores()
			if err != nil {
				return err
			}

			if !w.tokens.HasTokens() {
				base, ok := w.config.APIBase()
				if !ok {
					return fmt.Errorf("no api base configured and no tokens present; run 'agent register' first")
				}
				name := w.rtCfg.DeviceName
				log.Printf("no tokens on file, registering device %q", name)
				if err := register.Register(cmd.Context(), base, name, w.tokens, w.devices); err != nil {
					log.Printf("registration failed, will retry on a later cycle: %v", err)
				}
			}

			agent := agentrt.New(
				w.rtCfg,
				foreground.New(),
				foreground.NewDefaultProber(),
				netusage.NewCollector(w.counters, netusage.NewDefaultProbe()),
				devicestatus.NewBuilder(devicestatus.NewDefaultProbe()),
				w.devices,
				w.queue,
				upload.New(w.config, w.tokens, w.queue),
			)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if w.rtCfg.MetricsListenAddr != "" {
				go func() {
					mux := http.NewServeMux()
					mux.Handle("/metrics", metrics.Handler())
					log.Printf("metrics listening on %s", w.rtCfg.MetricsListenAddr)
					if err := http.ListenAndServe(w.rtCfg.MetricsListenAddr, mux); err != nil {
						log.Printf("metrics server stopped: %v", err)
					}
				}()
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				log.Println("shutting down...")
				cancel()
			}()

			agent.Run(ctx)
			return nil
		},
	}
}

func registerCmd() *cobra.Command {
	var apiBase, name string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register this device against an API base and store the resulting tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := wireStores()
			if err != nil {
				return err
			}
			if apiBase != "" {
				if err := w.config.SetAPIBase(apiBase); err != nil {
					return fmt.Errorf("persist api base: %w", err)
				}
			}
			base, ok := w.config.APIBase()
			if !ok {
				return fmt.Errorf("no api base configured; pass --api-base")
			}
			if name == "" {
				name = w.rtCfg.DeviceName
			}
			return register.Register(cmd.Context(), base, name, w.tokens, w.devices)
		},
	}
	cmd.Flags().StringVar(&apiBase, "api-base", "", "API base URL to register against")
	cmd.Flags().StringVar(&name, "name", "", "Device display name (defaults to the runtime config's device_name, which defaults to the hostname)")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show token, device, and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := wireStores()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer tw.Flush()

			deviceID, err := w.devices.GetOrCreate()
			if err != nil {
				return fmt.Errorf("resolve device id: %w", err)
			}
			base, hasBase := w.config.APIBase()
			fmt.Fprintf(tw, "device id:\t%s\n", deviceID)
			fmt.Fprintf(tw, "api base:\t%s\n", valueOrNone(base, hasBase))
			fmt.Fprintf(tw, "has tokens:\t%v\n", w.tokens.HasTokens())
			fmt.Fprintf(tw, "token expired:\t%v\n", w.tokens.IsExpired(time.Now().UTC()))
			fmt.Fprintf(tw, "queued batches:\t%d\n", w.queue.Size())
			return nil
		},
	}
}

func queueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect or manage the durable upload queue",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Discard every queued batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := wireStores()
			if err != nil {
				return err
			}
			n := w.queue.Size()
			if err := w.queue.Clear(); err != nil {
				return err
			}
			fmt.Printf("cleared %d queued batch(es)\n", n)
			return nil
		},
	})
	return cmd
}

func valueOrNone(v string, ok bool) string {
	if !ok {
		return "(none)"
	}
	return v
}
