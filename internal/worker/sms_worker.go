// Package worker bridges queued SMS messages to the recharge importer.
package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/Badr133ne/sim-charge-guardian/internal/amqp"
	"github.com/Badr133ne/sim-charge-guardian/internal/core"
	"github.com/Badr133ne/sim-charge-guardian/internal/log"
	"github.com/Badr133ne/sim-charge-guardian/internal/services"
	"github.com/Badr133ne/sim-charge-guardian/internal/store"
)

// Importer is the importer surface the worker needs.
type Importer interface {
	Import(ctx context.Context, msg core.SmsMessage) (services.ImportResult, error)
}

// Consumer is the queue surface the worker needs.
type Consumer interface {
	ConsumeSms(ctx context.Context, handler amqp.SmsHandler) error
}

// SmsWorker imports SMS messages arriving on the queue.
type SmsWorker struct {
	importer Importer
	logger   *log.Logger
}

func NewSmsWorker(importer Importer, logger *log.Logger) *SmsWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SmsWorker{
		importer: importer,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleSmsMessage imports one queued SMS. Failures that a redelivery cannot
// fix are marked with amqp.ErrDropMessage.
func (w *SmsWorker) HandleSmsMessage(ctx context.Context, msg *amqp.SmsSyncMessage) error {
	res, err := w.importer.Import(ctx, msg.SMS())
	switch {
	case err == nil:
		w.logger.InfoContext(ctx, "Queued SMS processed",
			log.FieldSimID, msg.SimID,
			"outcome", res.Outcome,
			log.FieldRechargeID, res.RechargeID)
		return nil
	case errors.Is(err, store.ErrPersist):
		// The recharge is in memory; the next successful write persists it.
		w.logger.WarnContext(ctx, "Recharge imported but not persisted",
			log.FieldSimID, msg.SimID,
			log.FieldError, err)
		return nil
	case errors.Is(err, core.ErrSimNotFound),
		errors.Is(err, core.ErrMissingSimID),
		errors.Is(err, core.ErrEmptySms),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidTime):
		return fmt.Errorf("%w: %w", amqp.ErrDropMessage, err)
	default:
		return err
	}
}

// Run consumes until ctx is done. Cancellation is not reported as an error.
func (w *SmsWorker) Run(ctx context.Context, consumer Consumer) error {
	w.logger.InfoContext(ctx, "SMS worker started")
	err := consumer.ConsumeSms(ctx, w.HandleSmsMessage)
	if errors.Is(err, context.Canceled) {
		w.logger.InfoContext(ctx, "SMS worker stopped")
		return nil
	}
	return err
}
