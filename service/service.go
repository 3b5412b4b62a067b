package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"twitch-chat-viewer/comments"
	"twitch-chat-viewer/config"
	"twitch-chat-viewer/render"
)

// Runner — источник событий чата (Twitch клиент).
type Runner interface {
	Run(ctx context.Context) error
}

// Deps — зависимости Service.
type Deps struct {
	Client   Runner
	Store    *comments.Store
	Handler  *Handler
	Printer  *render.Printer
	Schedule config.ScheduleConfig

	// Repo и Saver заданы, только если настройки хранятся в Postgres.
	Repo  RuleStore
	Saver RuleSaver

	// Input — источник команд пульта; nil отключает пульт.
	Input io.Reader
}

// Service управляет жизненным циклом Twitch клиента, пульта и периодических задач.
type Service struct {
	deps      Deps
	rebuilder *rebuilder
	syncer    *syncer
	console   *Console
	cron      *cron.Cron

	lastActive atomic.Int64
}

// New собирает Service из зависимостей.
func New(deps Deps) *Service {
	rb := newRebuilder(deps.Store, deps.Printer)
	s := &Service{
		deps:      deps,
		rebuilder: rb,
		cron:      cron.New(),
	}

	saver := deps.Saver
	if deps.Repo != nil {
		s.syncer = newSyncer(deps.Repo, deps.Store.Rules(), rb, deps.Saver)
		saver = s.syncer
	}
	s.console = newConsole(deps.Store, deps.Printer, rb, saver)
	return s
}

// Console возвращает пульт управления.
func (s *Service) Console() *Console {
	return s.console
}

// Run подключает Twitch клиент и блокируется до отмены контекста или ошибки.
func (s *Service) Run(ctx context.Context) error {
	if s.syncer != nil {
		if err := s.syncer.Init(ctx); err != nil {
			return fmt.Errorf("load preferences: %w", err)
		}
	}

	if err := s.schedule(ctx); err != nil {
		return err
	}
	s.cron.Start()
	defer func() { <-s.cron.Stop().Done() }()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.deps.Client.Run(gctx)
	})
	if s.deps.Input != nil {
		g.Go(func() error {
			return s.console.Run(gctx, s.deps.Input)
		})
	}

	return g.Wait()
}

func (s *Service) schedule(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.deps.Schedule.ActivePoll, s.pollActive); err != nil {
		return fmt.Errorf("schedule active poll %q: %w", s.deps.Schedule.ActivePoll, err)
	}

	reload := s.rebuilder.Retry
	if s.syncer != nil {
		reload = func() { s.syncer.Sync(ctx) }
	}
	if _, err := s.cron.AddFunc(s.deps.Schedule.PreferencesReload, reload); err != nil {
		return fmt.Errorf("schedule preferences reload %q: %w", s.deps.Schedule.PreferencesReload, err)
	}

	return nil
}

// pollActive обновляет оценку активных зрителей; при недоступности
// оставляет прошлое значение.
func (s *Service) pollActive() {
	s.deps.Store.ActiveCount(func(active int, ok bool) {
		if ok {
			s.lastActive.Store(int64(active))
		}
		log.Printf("статус: сессия %s, показано %d из %d, активных %d",
			s.deps.Handler.Session(), s.deps.Store.Count(), s.deps.Store.Len(), s.lastActive.Load())
	})
}

// LastActive возвращает последнюю успешную оценку активных зрителей.
func (s *Service) LastActive() int {
	return int(s.lastActive.Load())
}
