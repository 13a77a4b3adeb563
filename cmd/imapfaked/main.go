// Command imapfaked runs the IMAP server simulator on a TCP listener.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/sync/errgroup"

	"github.com/emersion/go-imapfake/imapserver"
	"github.com/emersion/go-imapfake/imapserver/imapmemserver"
	"github.com/emersion/go-imapfake/internal/config"
)

var (
	configPath string
	debug      bool
	overrides  config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file")

	flags := serveCmd.Flags()
	flags.StringVar(&overrides.Listen, "listen", "", "IMAP listening address")
	flags.StringVar(&overrides.MetricsListen, "metrics-listen", "", "Prometheus metrics listening address")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "Log level (debug, info, warning, error)")
	flags.StringVar(&overrides.Profile, "profile", "", "Server profile")
	flags.StringSliceVar(&overrides.Extensions, "extension", nil, "Extra extension to enable")
	flags.StringVar(&overrides.State, "state", "", "bbolt database holding the daemon state")
	flags.StringVar(&overrides.Username, "username", "", "Username")
	flags.StringVar(&overrides.Password, "password", "", "Password")
	flags.BoolVar(&debug, "debug", false, "Print all commands and responses")

	rootCmd.AddCommand(serveCmd, checkConfigCmd, profilesCmd)
}

var rootCmd = &cobra.Command{
	Use:   "imapfaked",
	Short: "IMAP server simulator",
	Long: `imapfaked runs a scriptable IMAP4rev1 server for client tests.

$ imapfaked serve --profile GMail --listen localhost:1143
$ imapfaked check-config -c imapfaked.yaml
`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve IMAP connections",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		d := imapmemserver.NewDaemon(cfg.DaemonFlags(), nil)
		if err := cfg.Setup(d); err != nil {
			return err
		}
		if _, err := imapserver.New(cfg.ServerOptions(d)); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "configuration OK")
		return nil
	},
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List server profiles",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range imapserver.Profiles() {
			exts, _ := imapserver.Profile(name)
			fmt.Fprintf(cmd.OutOrStdout(), "%v\t%v\n", name, exts)
		}
	},
}

// loadConfig reads the configuration file and applies the flags which were
// set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	for name, apply := range map[string]func(){
		"listen":         func() { cfg.Listen = overrides.Listen },
		"metrics-listen": func() { cfg.MetricsListen = overrides.MetricsListen },
		"log-level":      func() { cfg.LogLevel = overrides.LogLevel },
		"profile":        func() { cfg.Profile = overrides.Profile },
		"extension":      func() { cfg.Extensions = append(cfg.Extensions, overrides.Extensions...) },
		"state":          func() { cfg.State = overrides.State },
		"username":       func() { cfg.Username = overrides.Username },
		"password":       func() { cfg.Password = overrides.Password },
	} {
		if f := flags.Lookup(name); f != nil && f.Changed {
			apply()
		}
	}
	return cfg, cfg.Validate()
}

func serve(ctx context.Context, cfg *config.Config) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := log.New()
	logger.SetLevel(level)
	entry := logger.WithField("profile", cfg.Profile)

	var db *bolt.DB
	d := imapmemserver.NewDaemon(cfg.DaemonFlags(), nil)
	if cfg.State != "" {
		db, err = bolt.Open(cfg.State, 0600, &bolt.Options{Timeout: time.Second})
		if err != nil {
			return fmt.Errorf("failed to open state database: %w", err)
		}
		defer db.Close()

		d, err = imapmemserver.LoadDaemon(db, cfg.DaemonFlags(), func(d *imapmemserver.Daemon) {
			if err := d.Save(db); err != nil {
				entry.WithError(err).Error("failed to save state")
			}
		})
		if err != nil {
			return fmt.Errorf("failed to load state: %w", err)
		}
	}
	if err := cfg.Setup(d); err != nil {
		return err
	}

	options := cfg.ServerOptions(d)
	options.Logger = entry
	if debug {
		options.DebugWriter = logger.WriterLevel(log.DebugLevel)
		if level < log.DebugLevel {
			logger.SetLevel(log.DebugLevel)
		}
	}
	srv, err := imapserver.New(options)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	entry.WithField("addr", ln.Addr().String()).Info("IMAP server listening")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Serve(ln)
	})

	var metricsServer *http.Server
	if cfg.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.MetricsListen, Handler: mux}
		g.Go(func() error {
			entry.WithField("addr", cfg.MetricsListen).Info("metrics server listening")
			if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		entry.Info("shutting down")
		ln.Close()
		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metricsServer.Shutdown(shutdownCtx)
		}
		return nil
	})

	err = g.Wait()
	if db != nil {
		d.Lock()
		if saveErr := d.Save(db); saveErr != nil {
			entry.WithError(saveErr).Error("failed to save state")
		}
		d.Unlock()
	}
	if w, ok := options.DebugWriter.(io.Closer); ok {
		w.Close()
	}
	return err
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
