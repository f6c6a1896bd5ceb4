package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ayusman/librasctl/internal/app"
	"github.com/ayusman/librasctl/internal/capture"
	"github.com/ayusman/librasctl/internal/config"
	"github.com/ayusman/librasctl/internal/detector"
	"github.com/ayusman/librasctl/internal/gesture"
	"github.com/ayusman/librasctl/internal/input"
	"github.com/ayusman/librasctl/internal/observability"
	"github.com/ayusman/librasctl/internal/server"
	"github.com/ayusman/librasctl/internal/store"
	"github.com/ayusman/librasctl/internal/tray"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	journalFile      = "historico.db"
	historyRetention = 30 * 24 * time.Hour
	shutdownTimeout  = 5 * time.Second
)

type options struct {
	configFile string
	tray       bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "librasctl [dataPort framesPort]",
		Short: "Control the keyboard and mouse with hand signs",
		Long: `librasctl reads the webcam, recognizes hand signs and presses the key bound
to each sign. A control websocket (dataPort) answers commands and a frame
websocket (framesPort) streams the annotated camera image.`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configFile, args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default is ./config.yaml)")
	cmd.Flags().BoolVar(&opts.tray, "tray", false, "show a system tray menu")
	cmd.AddCommand(newCamerasCmd(opts))
	return cmd
}

// loadConfig reads defaults, the optional config file and LIBRASCTL_
// environment variables. Positional ports override all of them.
func loadConfig(configFile string, args []string) (*config.Config, error) {
	v := viper.New()
	config.SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix("LIBRASCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	for i, key := range []string{"server.data_port", "server.frames_port"} {
		if i >= len(args) {
			break
		}
		port, err := strconv.Atoi(args[i])
		if err != nil {
			return nil, fmt.Errorf("invalid port %q: %w", args[i], err)
		}
		v.Set(key, port)
	}

	return config.Load(v)
}

func run(ctx context.Context, cfg *config.Config, opts *options) error {
	log := observability.NewStdoutLogger(cfg.Logger)
	defer log.Sync()

	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	gestures, err := store.NewGestureStore(cfg.Data.Dir)
	if err != nil {
		return err
	}
	binds, err := store.NewBindStore(cfg.Data.Dir)
	if err != nil {
		return err
	}
	settings, err := store.NewSettings(cfg.Data.Dir, cfg.Camera.Width, cfg.Camera.Height, log.Named(observability.Store))
	if err != nil {
		return err
	}

	journal, err := store.OpenJournal(filepath.Join(cfg.Data.Dir, journalFile))
	if err != nil {
		return err
	}
	defer journal.Close()
	if n, err := journal.Prune(ctx, time.Now().Add(-historyRetention)); err != nil {
		log.Warn("failed to prune input history", zap.Error(err))
	} else if n > 0 {
		log.Named(observability.Journal).Info("pruned input history", zap.Int64("entries", n))
	}

	inj, err := input.NewSystemInjector()
	if err != nil {
		return fmt.Errorf("failed to set up input injection: %w", err)
	}
	dispatcher := input.NewDispatcher(binds, inj, settings, journal, cfg.Input, log.Named(observability.Input))

	det := newDetector(cfg.Detector, log.Named(observability.Capture))
	defer det.Close()

	matcher := gesture.NewMatcher(gestures, gesture.NewMovementProbe(cfg.Gesture.ProbeWindow), settings, dispatcher, log.Named(observability.Gesture))

	lister := capture.NewLister(cfg.Camera.ProbeDevices, log.Named(observability.Capture))
	a := app.New(app.Config{
		Detector:  det,
		Matcher:   matcher,
		Board:     settings,
		Selection: settings,
		Lister:    lister,
	}, log.Named(observability.Capture))

	srv := server.New(cfg.Server, server.Deps{
		Detection: a,
		Gestures:  gestures,
		Binds:     binds,
		Settings:  settings,
		Cameras:   lister,
		History:   journal,
	}, a, cfg.Camera.Width, cfg.Camera.Height, log.Named(observability.Server))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.tray {
		err = runWithTray(ctx, stop, srv, a, settings, log)
	} else {
		err = srv.Run(ctx)
	}

	if cerr := a.Close(); cerr != nil {
		log.Warn("failed to stop detection", zap.Error(cerr))
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if cerr := dispatcher.Close(shutdownCtx); cerr != nil {
		log.Warn("failed to release active input", zap.Error(cerr))
	}

	log.Info("librasctl stopped")
	return err
}

// runWithTray runs the tray on the calling goroutine, which some platforms
// require, and the server beside it. Either one ending stops the other.
func runWithTray(ctx context.Context, stop context.CancelFunc, srv *server.Server, a *app.App, board tray.NameBoard, log *zap.Logger) error {
	t := tray.New(a, board, log.Named("tray"))
	t.OnQuit(stop)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx)
		t.Quit()
	}()

	t.Run()
	stop()
	return <-errCh
}

func newDetector(cfg config.DetectorConfig, log *zap.Logger) detector.Detector {
	d, err := detector.NewMediaPipeDetector(detector.Config{
		MaxHands:        cfg.MaxHands,
		MinConfidence:   cfg.MinConfidence,
		MinTrackingConf: cfg.MinTrackingConf,
		Python:          cfg.Python,
		Script:          cfg.Script,
	}, log)
	if err != nil {
		log.Warn("MediaPipe detector unavailable, hands will not be detected", zap.Error(err))
		return detector.NewMockDetector()
	}
	return d
}

func newCamerasCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cameras",
		Short: "List the cameras that can be selected",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configFile, nil)
			if err != nil {
				return err
			}
			devices, err := capture.NewLister(cfg.Camera.ProbeDevices, nil).Devices()
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				return errors.New("no cameras found")
			}
			for _, d := range devices {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", d.Index, d.Name)
			}
			return nil
		},
	}
}
