package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"gitlab.com/manasline/api/wa-helpline-bot/internal/bot"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/config"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/model"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/observer"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/wa"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/logger"
)

// InboundTaskData carries one normalized webhook event into the worker pool.
type InboundTaskData struct {
	Ctx   context.Context // Context derived for the task, NOT the original request context
	Event model.InboundEvent
}

// IInboundWorker defines the interface for the inbound-event worker pool.
type IInboundWorker interface {
	SubmitTask(taskData InboundTaskData) error
	Stop()
}

// InboundWorker runs resolve -> dispatch -> send -> record for each inbound
// event, decoupled from the webhook acknowledgment.
type InboundWorker struct {
	pool       *ants.PoolWithFunc
	resolver   *Resolver
	dispatcher *bot.Dispatcher
	sender     wa.Sender
	recorder   *Recorder
	baseLogger *zap.Logger
}

// Ensure InboundWorker implements IInboundWorker
var _ IInboundWorker = (*InboundWorker)(nil)

// NewInboundWorker creates and initializes the inbound worker pool.
func NewInboundWorker(
	cfg config.WorkerPoolConfig,
	resolver *Resolver,
	dispatcher *bot.Dispatcher,
	sender wa.Sender,
	recorder *Recorder,
	baseLogger *zap.Logger,
) (*InboundWorker, error) {
	worker := &InboundWorker{
		resolver:   resolver,
		dispatcher: dispatcher,
		sender:     sender,
		recorder:   recorder,
		baseLogger: baseLogger.Named("inbound_worker"),
	}

	pool, err := ants.NewPoolWithFunc(cfg.PoolSize, func(i interface{}) {
		taskData, ok := i.(InboundTaskData)
		if !ok {
			worker.baseLogger.Error("Invalid task data type received", zap.Any("data", i))
			return
		}
		worker.processTask(taskData)
	},
		ants.WithExpiryDuration(cfg.ExpiryTime),
		ants.WithNonblocking(false),
		ants.WithMaxBlockingTasks(cfg.QueueSize),
		ants.WithPanicHandler(func(err interface{}) {
			worker.baseLogger.Error("Panic recovered in inbound worker", zap.Any("panic_error", err), zap.Stack("stack"))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create inbound worker pool: %w", err)
	}
	worker.pool = pool
	worker.baseLogger.Info("Inbound worker pool initialized",
		zap.Int("pool_size", cfg.PoolSize),
		zap.Int("queue_size", cfg.QueueSize),
		zap.Duration("expiry_time", cfg.ExpiryTime),
	)
	return worker, nil
}

// SubmitTask submits an inbound event to the worker pool.
func (w *InboundWorker) SubmitTask(taskData InboundTaskData) error {
	observer.IncWorkerTasksSubmitted()
	observer.SetWorkerQueueLength(w.pool.Waiting())

	if err := w.pool.Invoke(taskData); err != nil {
		w.baseLogger.Warn("Failed to submit inbound task to pool",
			zap.String("from", taskData.Event.From),
			zap.Error(err),
		)
		observer.IncWorkerTasksProcessed("submit_error")
		if errors.Is(err, ants.ErrPoolOverload) {
			return fmt.Errorf("inbound pool overload: %w", err)
		}
		return fmt.Errorf("failed to invoke inbound task: %w", err)
	}
	return nil
}

// processTask contains the actual logic executed by a worker goroutine.
// Failures are logged and counted; the webhook was already acknowledged.
func (w *InboundWorker) processTask(taskData InboundTaskData) {
	ctx := taskData.Ctx
	log := logger.FromContextOr(ctx, w.baseLogger).With(zap.String("from", taskData.Event.From))

	start := time.Now()
	status := "success"
	kind, _ := taskData.Event.Signal()
	signal := kind.String()

	resolution, err := w.resolver.Resolve(ctx, taskData.Event.From)
	if err != nil {
		log.Warn("Failed to resolve inbound identity", zap.Error(err))
		observer.IncWorkerTasksProcessed("failure_resolve")
		observer.IncWebhookEventFailed(signal)
		return
	}

	decision := w.dispatcher.Dispatch(taskData.Event)

	sendFailed := false
	if err := decision.Reply.Send(ctx, w.sender, resolution.User.PhoneNumber); err != nil {
		sendFailed = true
		status = "failure_send"
		log.Warn("Failed to send reply, attempting fallback",
			zap.String("flow_step", string(decision.FlowStep)),
			zap.Error(err),
		)
		if fbErr := bot.FallbackReply().Send(ctx, w.sender, resolution.User.PhoneNumber); fbErr != nil {
			log.Warn("Fallback reply failed too", zap.Error(fbErr))
		}
	}

	// The inbound record is written regardless of send outcome.
	w.recorder.Record(ctx, resolution.User, resolution.Session, taskData.Event, decision, sendFailed)

	duration := time.Since(start)
	observer.IncWorkerTasksProcessed(status)
	observer.IncWebhookEventProcessed(signal)
	observer.ObserveEventProcessingDuration(signal, duration)
	log.Debug("Finished processing inbound event",
		zap.String("flow_step", string(decision.FlowStep)),
		zap.Duration("duration", duration),
	)
}

// Stop gracefully shuts down the worker pool.
func (w *InboundWorker) Stop() {
	if w.pool != nil {
		w.baseLogger.Info("Releasing inbound worker pool")
		start := time.Now()
		w.pool.Release()
		w.baseLogger.Info("Inbound worker pool released", zap.Duration("duration", time.Since(start)))
	}
}
