package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/Comcast/rxfsm/core"
	"github.com/Comcast/rxfsm/drivers"
	"github.com/Comcast/rxfsm/instrument"
	"github.com/Comcast/rxfsm/journal"
	"github.com/Comcast/rxfsm/script"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

type runOpts struct {
	config  string
	io      ioOpts
	journal string
	metrics string
	id      string
	timeout time.Duration
}

func newRunCmd(root *rootOpts) *cobra.Command {
	o := &runOpts{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a machine with its drivers",
		Long: `Run compiles the machine definition and runs it until its input
ends or it's interrupted.  By default the only driver is "io", which
reads JSON lines from stdin and writes requests as JSON lines on
stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			o.io.in = cmd.InOrStdin()
			o.io.out = cmd.OutOrStdout()
			return o.run(cmd.Context(), root)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&o.config, "config", "c", "", "YAML config file")
	fs.StringVar(&o.io.kind, "io", "std", "io driver: std, mqtt or ws")
	fs.BoolVar(&o.io.tags, "tags", false, "tag stdout lines")
	fs.BoolVar(&o.io.echo, "echo", false, "echo stdin lines to stdout")
	fs.StringVar(&o.journal, "journal", "", "journal file (BoltDB)")
	fs.StringVar(&o.metrics, "metrics", "", "address for /metrics, like :9090")
	fs.StringVar(&o.id, "id", "", "machine id (default random)")
	fs.DurationVar(&o.timeout, "script-timeout", time.Second, "timeout for each script (0 for none)")
	return cmd
}

func (o *runOpts) run(ctx context.Context, root *rootOpts) error {
	log := root.logger()

	cfg := &Config{}
	if o.config != "" {
		var err error
		if cfg, err = LoadConfig(o.config); err != nil {
			return err
		}
	}
	if o.journal == "" {
		o.journal = cfg.Journal
	}
	if o.metrics == "" {
		o.metrics = cfg.Metrics
	}

	s, err := root.load()
	if err != nil {
		return err
	}
	i := script.NewInterpreter()
	i.Timeout = o.timeout
	i.Logger = log
	m, err := s.Compile(i)
	if err != nil {
		return err
	}

	if o.id == "" {
		o.id = uuid.NewString()
	}
	log = log.With("definition", m.Name)

	var hooks []core.Hooks
	if o.journal != "" {
		j, err := journal.Open(o.journal)
		if err != nil {
			return err
		}
		defer j.Close()
		j.Logger = log
		hooks = append(hooks, j.Hooks())
	}
	if o.metrics != "" {
		ms, err := instrument.New(m.Name, prometheus.DefaultRegisterer)
		if err != nil {
			return err
		}
		hooks = append(hooks, ms.Hooks())
		stop := serveMetrics(o.metrics, log)
		defer stop()
	}

	c, err := m.Make(
		core.WithLogger(log),
		core.WithID(o.id),
		core.WithHooks(core.ChainHooks(hooks...)))
	if err != nil {
		return err
	}

	ds, eof, err := cfg.makeDrivers(o.io, log)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()
	if eof != nil {
		go func() {
			select {
			case <-eof:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	log.Info("running", "machine", o.id, "drivers", ds.Names())
	return drivers.Run(ctx, c, ds, &drivers.Config{Logger: log})
}

// serveMetrics serves /metrics in the background.  The returned
// function stops the server.
func serveMetrics(addr string, log *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		log.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}
