package outbox

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/cfg"
	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/jitter"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
	"github.com/jackc/pgx/v5"
)

const (
	waitTimeout       = 30 * time.Second
	reconnectBase     = time.Second
	reconnectMaxDelay = 30 * time.Second
)

var errAttemptsExhausted = errors.New("delivery attempts exhausted")

// Worker доставляет события outbox всем обработчикам.
// Событие считается обработанным, только когда все обработчики завершились успешно,
// иначе оно возвращается в pending и будет доставлено повторно. После MaxAttempts
// неудачных попыток событие помечается failed и больше не выбирается.
type Worker struct {
	repo      usecase.OutboxRepository
	handlers  []usecase.EventHandler
	logger    logger.Logger
	cfg       *cfg.OutboxCfg
	dbConnStr string

	notify chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker создаёт воркер. MaxAttempts <= 0 снимает ограничение на число попыток. При пустом dbConnStr воркер только опрашивает таблицу по таймеру.
func NewWorker(
	repo usecase.OutboxRepository,
	handlers []usecase.EventHandler,
	logger logger.Logger,
	cfg *cfg.OutboxCfg,
	dbConnStr string,
) *Worker {
	return &Worker{
		repo:      repo,
		handlers:  handlers,
		logger:    logger,
		cfg:       cfg,
		dbConnStr: dbConnStr,
		notify:    make(chan struct{}, 1),
	}
}

func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()

	if w.dbConnStr != "" {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.listenOutboxNotifications(ctx)
		}()
	}
}

// Stop останавливает воркер и ждёт завершения текущей пачки.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	// Обрабатываем "остатки" при старте
	w.logger.Infof("Draining pending outbox events on startup...")
	w.drainAndLog(ctx)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Infof("Outbox worker stopped")
			return
		case <-ticker.C:
			w.drainAndLog(ctx)
		case <-w.notify:
			w.logger.Debugf("Received outbox notification, draining outbox events")
			w.drainAndLog(ctx)
		}
	}
}

func (w *Worker) drainAndLog(ctx context.Context) {
	if err := w.Drain(ctx); err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Warnf("Outbox batch processing failed: %v", err)
	}
}

// Drain обрабатывает пачки, пока в outbox есть готовые события.
func (w *Worker) Drain(ctx context.Context) error {
	for {
		hasMore, err := w.processBatch(ctx)
		if err != nil {
			return err
		}
		if !hasMore {
			return nil
		}
	}
}

func (w *Worker) processBatch(ctx context.Context) (bool, error) {
	events, err := w.repo.GetAndMarkAsProcessing(ctx, w.cfg.BatchSize)
	if err != nil {
		return false, e.Wrap("Worker.processBatch", err)
	}

	failed := 0
	for _, event := range events {
		// Событие вернулось после падения воркера посреди обработки и уже исчерпало попытки
		if w.cfg.MaxAttempts > 0 && event.Attempts > w.cfg.MaxAttempts {
			failed++
			w.giveUp(ctx, event, e.Wrap("Worker.processBatch", errAttemptsExhausted))
			continue
		}

		if err := w.processEvent(ctx, event); err != nil {
			failed++
			if w.cfg.MaxAttempts > 0 && event.Attempts >= w.cfg.MaxAttempts {
				w.giveUp(ctx, event, err)
				continue
			}
			w.logger.Warnf("outbox event %s (%s) failed, attempt %d: %v", event.EventID, event.EventType, event.Attempts, err)
			if err := w.repo.Release(ctx, event.ID, err.Error()); err != nil {
				w.logger.Warnf("release outbox event failed: %v", err)
			}
			continue
		}
		if err := w.repo.MarkAsProcessed(ctx, event.ID); err != nil {
			w.logger.Warnf("mark processed failed: %v", err)
		}
	}

	// Неудачные события вернулись в pending, сразу их не перечитываем
	return len(events) == w.cfg.BatchSize && failed == 0, nil
}

func (w *Worker) giveUp(ctx context.Context, event *usecase.OutboxEvent, cause error) {
	w.logger.Errorf(cause, "outbox event %s (%s) failed after %d attempts, marking as failed",
		event.EventID, event.EventType, event.Attempts)
	if err := w.repo.MarkAsFailed(ctx, event.ID, cause.Error()); err != nil {
		w.logger.Warnf("mark failed failed: %v", err)
	}
}

func (w *Worker) processEvent(ctx context.Context, event *usecase.OutboxEvent) error {
	for _, h := range w.handlers {
		if err := h.Handle(ctx, event); err != nil {
			return e.Wrap(h.Name(), err)
		}
	}
	return nil
}

// listenOutboxNotifications будит воркер по NOTIFY, не дожидаясь таймера.
func (w *Worker) listenOutboxNotifications(ctx context.Context) {
	for attempt := 0; ; attempt++ {
		err := w.listen(ctx)
		if ctx.Err() != nil {
			return
		}

		delay := jitter.ExponentialBackoff(reconnectBase, reconnectMaxDelay, attempt, jitter.DefaultJitter)
		w.logger.Warnf("Outbox LISTEN connection lost: %v. Reconnecting in %s", err, delay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (w *Worker) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, w.dbConnStr)
	if err != nil {
		return e.Wrap("failed to connect for LISTEN", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+usecase.OutboxChannel); err != nil {
		return e.Wrap("failed to LISTEN", err)
	}
	w.logger.Infof("Subscribed to '%s' channel", usecase.OutboxChannel)

	for {
		waitCtx, cancel := context.WithTimeout(ctx, waitTimeout)
		notif, err := conn.WaitForNotification(waitCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			return err
		}

		if notif != nil && notif.Channel == usecase.OutboxChannel {
			select {
			case w.notify <- struct{}{}:
			default:
			}
		}
	}
}
