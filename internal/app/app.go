// Package app wires the bot's components together and owns their lifecycle.
package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JavedNissar/bgrapher/internal/config"
	"github.com/JavedNissar/bgrapher/internal/scheduler"
	"github.com/JavedNissar/bgrapher/internal/session"
	"github.com/JavedNissar/bgrapher/internal/store"
	"github.com/JavedNissar/bgrapher/internal/telegram"
	"github.com/JavedNissar/bgrapher/internal/tzlookup"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    store.Repo
	router  *telegram.Router
	sched   *scheduler.Scheduler
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv}, nil
}

// Run assembles the store, session service, router, and scheduler, then
// runs the update loop, the sweep, and the healthz server until a shutdown
// signal arrives. Shutdown stops intake without draining in-flight work.
func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting bgrapher",
		zap.String("http", a.cfg.HTTPAddr),
		zap.Duration("sweep_interval", a.cfg.SweepInterval),
	)

	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	defer func() { _ = repo.Close() }()
	a.log.Info("sqlite ready", zap.String("path", a.cfg.DBPath))

	zones, err := tzlookup.New()
	if err != nil {
		a.log.Error("timezone finder init failed", zap.Error(err))
		return err
	}

	sender := telegram.NewSender(a.bot)
	sessions := session.New(repo, sender, zones, a.log, a.cfg.DefaultTZ)
	a.router = telegram.NewRouter(a.log, sessions)
	a.sched = scheduler.New(repo, sender, a.log, a.cfg.SweepInterval)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return a.sched.Run(gctx)
	})

	g.Go(func() error {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 30
		updCh := a.bot.GetUpdatesChan(u)
		for {
			select {
			case <-gctx.Done():
				a.bot.StopReceivingUpdates()
				return nil
			case upd := <-updCh:
				a.router.Dispatch(gctx, upd)
			}
		}
	})

	<-gctx.Done()
	a.log.Info("shutdown signal received")

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := a.httpSrv.Shutdown(shCtx); err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}
	cancel()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
