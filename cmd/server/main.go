package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/thereceipt/parcel-receipt/internal/api"
	"github.com/thereceipt/parcel-receipt/internal/clock"
	"github.com/thereceipt/parcel-receipt/internal/command"
	"github.com/thereceipt/parcel-receipt/internal/config"
	"github.com/thereceipt/parcel-receipt/internal/desk"
	"github.com/thereceipt/parcel-receipt/internal/metrics"
	"github.com/thereceipt/parcel-receipt/internal/printer"
	"github.com/thereceipt/parcel-receipt/internal/receipt"
	"github.com/thereceipt/parcel-receipt/internal/sequencer"
	"github.com/thereceipt/parcel-receipt/internal/session"
	"github.com/thereceipt/parcel-receipt/internal/store"
	"github.com/thereceipt/parcel-receipt/internal/tui"
)

// Version is set during build via ldflags
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "parcel-receipt: %+v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	var (
		logs    *tui.LogPanel
		logSink io.Writer
	)
	if !cfg.Headless {
		logs = tui.NewLogPanel()
		logSink = logs
	}
	lg, err := config.NewLogger(cfg.Log, logSink)
	if err != nil {
		return err
	}
	defer func() { _ = lg.Sync() }()
	gin.SetMode(gin.ReleaseMode)

	lg.Info("Starting parcel-receipt",
		zap.String("version", Version),
		zap.String("store", cfg.Store.Driver),
		zap.String("paper", cfg.Receipt.PaperWidth))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, err := store.Open(ctx, store.Options{
		Driver:      cfg.Store.Driver,
		Path:        cfg.Store.Path,
		DatabaseURL: cfg.Store.DatabaseURL,
	})
	if err != nil {
		return errors.Wrap(err, "open counter store")
	}
	defer func() {
		if err := kv.Close(); err != nil {
			lg.Warn("Counter store close failed", zap.Error(err))
		}
	}()

	seq := sequencer.New(kv,
		sequencer.WithPrefix(cfg.Receipt.Prefix),
		sequencer.WithKey(cfg.Store.Key),
		sequencer.WithLogger(lg.Named("sequencer")),
	)
	clk := clock.NewSystem(loc)
	sess := session.New(seq, clk, session.WithLogger(lg.Named("session")))

	printers, err := printer.NewManager(cfg.Printers)
	if err != nil {
		return errors.Wrap(err, "printers")
	}
	for _, target := range printers.All() {
		lg.Info("Printer configured", zap.String("printer", target.String()))
	}

	m := metrics.New()
	sess.Subscribe(m.ObserveSession)

	var (
		server *api.Server
		app    *tui.App
	)
	pool := printer.NewConnectionPool(nil)
	queue := printer.NewPrintQueue(pool, printers,
		printer.WithMaxRetries(cfg.Print.Retries),
		printer.WithRetryDelay(cfg.Print.RetryDelay),
		printer.WithQueueLogger(lg.Named("queue")),
		printer.WithOnChange(func(job printer.PrintJob) {
			m.ObserveJob(job)
			if server != nil {
				server.BroadcastJob(job)
			}
			if app != nil {
				app.JobChanged(job)
			}
		}),
	)
	defer func() {
		queue.Stop()
		if err := pool.DisconnectAll(); err != nil {
			lg.Warn("Printer disconnect failed", zap.Error(err))
		}
	}()

	receiptOpts := receipt.Options{
		Title:      cfg.Receipt.Title,
		ShopName:   cfg.Receipt.ShopName,
		PaperWidth: cfg.Receipt.PaperWidth,
		Language:   cfg.Receipt.Language,
		Logo:       cfg.Receipt.Logo,
		Font:       cfg.Receipt.Font,
		QRCode:     cfg.Receipt.QRCode,
	}
	if cfg.Receipt.Template != "" {
		if receiptOpts.Template, err = receipt.LoadTemplate(cfg.Receipt.Template); err != nil {
			return err
		}
		lg.Info("Using receipt template", zap.String("path", cfg.Receipt.Template))
	}

	d := desk.New(sess, printers, queue, receiptOpts, clk, lg.Named("desk"))
	executor := command.NewExecutor(d, lg.Named("command"))

	server = api.NewServer(d, executor, m, lg.Named("api"))
	if !cfg.Headless {
		app = tui.New(d, executor, logs, cfg.Addr, lg.Named("tui"))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, cfg.Addr)
	})
	if app != nil {
		g.Go(func() error {
			// Quitting the UI shuts the server down too.
			defer stop()
			return app.Run(gctx)
		})
	}

	err = g.Wait()
	lg.Info("Shutting down")
	return err
}
