package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"CurveBoard/internal/config"
	"CurveBoard/internal/depgraph"
	"CurveBoard/internal/editcurve"
	"CurveBoard/internal/export"
	"CurveBoard/internal/fit"
	"CurveBoard/internal/geometry"
	boardnet "CurveBoard/internal/net"
	"CurveBoard/internal/session"
	"CurveBoard/internal/state"
)

const FeedURLScheme = "ws://"

var advertise = boardnet.Advertise

func main() {
	var (
		configPath = flag.String("config", "", "YAML configuration file")
		inPath     = flag.String("in", "", "stroke document (JSON)")
		opName     = flag.String("op", "enter", "operator to run: enter or write")
		pdfPath    = flag.String("pdf", "", "write the result as PDF")
		serve      = flag.Bool("serve", false, "keep serving the change feed after the operator ran")
		discover   = flag.Duration("discover", 0, "list change feeds on the local network for this long and exit")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if *discover > 0 {
		runDiscover(cfg, *discover)
		return
	}
	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "usage: curveboard -in strokes.json [-config board.yaml] [-op enter|write] [-pdf out.pdf] [-serve]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *inPath, *opName, *pdfPath, *serve); err != nil {
		logger.Error("curveboard failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, inPath, opName, pdfPath string, serve bool) error {
	doc, err := loadDocument(inPath)
	if err != nil {
		return err
	}
	logger.Info("document loaded", "name", doc.Name, "layers", len(doc.Layers), "site", session.SiteID())

	hub := boardnet.NewHub(logger)
	defer hub.Close()
	graph := depgraph.New()

	var srv *http.Server
	if serve {
		if srv, err = startFeed(cfg, hub, logger); err != nil {
			return err
		}
		defer shutdown(srv, logger)
	}

	op := editcurve.NewOperator(
		editcurve.NewUpdater(fit.Fitter{}, nil),
		editcurve.WithGeometry(geometry.Tessellator{}),
		editcurve.WithInvalidator(graph),
		editcurve.WithNotifier(hub),
		editcurve.WithLogger(logger),
	)

	report, err := apply(ctx, op, doc, cfg, opName)
	if errors.Is(err, editcurve.ErrCancelled) {
		// nothing to do is not a failure
		logger.Warn("operator could not run", "reason", err)
	} else if err != nil {
		return err
	} else {
		logger.Info("report", "op", report.Operator, "converted", report.Converted,
			"declined", report.Declined, "skipped", report.Skipped,
			"recalc", graph.Pending(doc).String())
	}

	if pdfPath != "" {
		if err := writePDF(pdfPath, doc, cfg); err != nil {
			return err
		}
		logger.Info("pdf written", "path", pdfPath)
	}

	if serve {
		<-ctx.Done()
	}
	return nil
}

// apply runs the named operator with the document's settings, overridden
// by whatever the config file sets.
func apply(ctx context.Context, op *editcurve.Operator, doc *state.Document, cfg *config.Config, opName string) (editcurve.Report, error) {
	fn := op.EnterEditMode
	switch opName {
	case "enter":
	case "write":
		fn = op.WriteCurveData
	default:
		return editcurve.Report{}, fmt.Errorf("unknown operator %q", opName)
	}
	editing, err := cfg.Editing(doc.Settings)
	if err != nil {
		return editcurve.Report{}, err
	}
	return fn(ctx, doc, editing)
}

func loadDocument(path string) (*state.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return state.LoadDocument(f)
}

func writePDF(path string, doc *state.Document, cfg *config.Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.PDF(f, doc, export.Options{PageSize: cfg.Export.PageSize, Margin: cfg.Export.Margin}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func startFeed(cfg *config.Config, hub *boardnet.Hub, logger *slog.Logger) (*http.Server, error) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Notify.Path, hub)
	srv := &http.Server{Addr: cfg.Notify.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("change feed stopped", "error", err)
		}
	}()

	port := 8888
	if _, p, err := net.SplitHostPort(cfg.Notify.Listen); err == nil {
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}
	ip := boardnet.LocalIPv4()
	logger.Info("change feed listening", "url", fmt.Sprintf("%s%s:%d%s", FeedURLScheme, ip, port, cfg.Notify.Path))

	if cfg.Notify.Advertise {
		mdnsSrv, err := advertise(cfg.Notify.Instance, cfg.Notify.Service, port,
			[]string{"path=" + cfg.Notify.Path, "site=" + session.SiteID()})
		if err != nil {
			shutdown(srv, logger)
			return nil, fmt.Errorf("advertise change feed: %w", err)
		}
		srv.RegisterOnShutdown(func() { _ = mdnsSrv.Shutdown() })
		logger.Info("change feed advertised", "service", cfg.Notify.Service)
	}
	return srv, nil
}

func shutdown(srv *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("change feed shutdown", "error", err)
	}
}

func runDiscover(cfg *config.Config, timeout time.Duration) {
	feeds, err := boardnet.Browse(cfg.Notify.Service, timeout)
	if err != nil {
		slog.Error("discovery failed", "error", err)
	}
	for _, f := range feeds {
		fmt.Printf("%s\t%s\t%v\n", f.Instance, f.Addr, f.Info)
	}
}
