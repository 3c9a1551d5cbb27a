package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/Badr133ne/sim-charge-guardian/internal/cache"
	"github.com/Badr133ne/sim-charge-guardian/internal/core"
	"github.com/Badr133ne/sim-charge-guardian/internal/log"
	"github.com/Badr133ne/sim-charge-guardian/internal/metrics"
	"github.com/Badr133ne/sim-charge-guardian/internal/smsparser"
	"github.com/Badr133ne/sim-charge-guardian/internal/store"
)

// ImportOutcome classifies what happened to one SMS.
type ImportOutcome string

const (
	ImportAdded     ImportOutcome = "added"
	ImportIgnored   ImportOutcome = "ignored"
	ImportDuplicate ImportOutcome = "duplicate"
	ImportFailed    ImportOutcome = "failed"
)

const sourceSMS = "sms"

// ImportResult reports the outcome for one SMS together with what the parser
// extracted from it.
type ImportResult struct {
	Outcome     ImportOutcome `json:"outcome"`
	RechargeID  string        `json:"rechargeId,omitempty"`
	Amount      *float64      `json:"amount"`
	OperationID *string       `json:"operationId"`
	Reason      string        `json:"reason,omitempty"`
}

// RechargeRecorder is the part of the store the importer writes through.
type RechargeRecorder interface {
	GetSimByID(id string) (core.SimCard, bool)
	FindRechargeByOperationID(simID, operationID string) (core.Recharge, bool)
	AddRecharge(ctx context.Context, in core.NewRecharge) (string, error)
}

var _ RechargeRecorder = (*store.Store)(nil)

// ImporterConfig holds configuration for the recharge importer
type ImporterConfig struct {
	// DedupeSize bounds the number of remembered message fingerprints (default: 1024)
	DedupeSize int

	// DedupeTTL is how long a fingerprint is remembered (default: 24h)
	DedupeTTL time.Duration

	// Location is used to derive the recharge date and time from the
	// receive timestamp (default: time.Local)
	Location *time.Location
}

// DefaultImporterConfig returns sensible defaults
func DefaultImporterConfig() ImporterConfig {
	return ImporterConfig{
		DedupeSize: 1024,
		DedupeTTL:  24 * time.Hour,
		Location:   time.Local,
	}
}

// RechargeImporter turns carrier SMS messages into recharges. Only messages
// carrying both an amount and an operation id are recorded; they are not
// attributed to either user.
type RechargeImporter struct {
	recorder RechargeRecorder
	parser   *smsparser.Parser
	seen     *cache.LRUCache[struct{}]
	loc      *time.Location
	now      func() time.Time
	logger   *log.Logger
	metrics  *metrics.Metrics
}

func NewRechargeImporter(recorder RechargeRecorder, parser *smsparser.Parser, cfg ImporterConfig, logger *log.Logger, m *metrics.Metrics) *RechargeImporter {
	def := DefaultImporterConfig()
	if cfg.DedupeSize < 1 {
		cfg.DedupeSize = def.DedupeSize
	}
	if cfg.DedupeTTL <= 0 {
		cfg.DedupeTTL = def.DedupeTTL
	}
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	if parser == nil {
		parser = smsparser.New(smsparser.Options{})
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &RechargeImporter{
		recorder: recorder,
		parser:   parser,
		seen:     cache.NewLRUCache[struct{}](cfg.DedupeSize, cfg.DedupeTTL),
		loc:      cfg.Location,
		now:      time.Now,
		logger:   logger.WithComponent(log.ComponentSync),
		metrics:  m,
	}
}

// Fingerprints exposes the dedupe cache so a cache.Manager can sweep it.
func (i *RechargeImporter) Fingerprints() cache.Cleaner {
	return i.seen
}

// Import classifies, parses and, when complete and new, records one SMS.
// Validation failures and an unknown SIM are returned as errors. A persist
// failure is returned together with an ImportAdded result since the recharge
// is already in memory.
func (i *RechargeImporter) Import(ctx context.Context, msg core.SmsMessage) (ImportResult, error) {
	if err := msg.Validate(); err != nil {
		return ImportResult{Outcome: ImportFailed, Reason: err.Error()}, err
	}
	if _, ok := i.recorder.GetSimByID(msg.SimID); !ok {
		err := fmt.Errorf("import SMS for %s: %w", msg.SimID, core.ErrSimNotFound)
		return ImportResult{Outcome: ImportFailed, Reason: core.ErrSimNotFound.Error()}, err
	}

	if !smsparser.IsRechargeSms(msg.Body) {
		return i.finish(ctx, msg, ImportResult{Outcome: ImportIgnored, Reason: "not a recharge message"}), nil
	}

	parsed := i.parser.ParseRechargeSms(msg.Body)
	res := ImportResult{Amount: parsed.Amount, OperationID: parsed.OperationID}
	if !parsed.Complete() {
		res.Outcome = ImportIgnored
		res.Reason = "amount or operation id missing"
		return i.finish(ctx, msg, res), nil
	}

	if existing, ok := i.recorder.FindRechargeByOperationID(msg.SimID, *parsed.OperationID); ok {
		res.Outcome = ImportDuplicate
		res.RechargeID = existing.ID
		res.Reason = "operation id already recorded"
		return i.finish(ctx, msg, res), nil
	}

	fp := fingerprint(msg)
	if !i.seen.SetIfAbsent(fp, struct{}{}) {
		res.Outcome = ImportDuplicate
		res.Reason = "message already processed"
		return i.finish(ctx, msg, res), nil
	}

	at := msg.ReceivedAt
	if at.IsZero() {
		at = i.now()
	}
	at = at.In(i.loc)

	id, err := i.recorder.AddRecharge(ctx, core.NewRecharge{
		SimID:       msg.SimID,
		Date:        core.FormatDay(at),
		Time:        core.FormatClock(at),
		OperationID: *parsed.OperationID,
		Amount:      *parsed.Amount,
	})
	if err != nil && !errors.Is(err, store.ErrPersist) {
		i.seen.Delete(fp)
		res.Outcome = ImportFailed
		res.Reason = err.Error()
		i.finish(ctx, msg, res)
		return res, fmt.Errorf("add recharge: %w", err)
	}

	res.Outcome = ImportAdded
	res.RechargeID = id
	i.metrics.RechargeRecorded(sourceSMS)
	log.NewStructuredLogger(i.logger).LogRechargeRecorded(ctx, msg.SimID, id, *parsed.OperationID, *parsed.Amount, log.ComponentSync)
	return i.finish(ctx, msg, res), err
}

// ImportAll imports msgs in order. Per-message errors are reported in the
// results and do not stop the batch.
func (i *RechargeImporter) ImportAll(ctx context.Context, msgs []core.SmsMessage) []ImportResult {
	results := make([]ImportResult, 0, len(msgs))
	for _, m := range msgs {
		if ctx.Err() != nil {
			results = append(results, ImportResult{Outcome: ImportFailed, Reason: ctx.Err().Error()})
			continue
		}
		res, _ := i.Import(ctx, m)
		results = append(results, res)
	}
	return results
}

func (i *RechargeImporter) finish(ctx context.Context, msg core.SmsMessage, res ImportResult) ImportResult {
	i.metrics.SmsImported(string(res.Outcome))
	i.logger.DebugContext(ctx, "SMS processed",
		log.FieldSimID, msg.SimID,
		"outcome", res.Outcome,
		"reason", res.Reason)
	return res
}

func fingerprint(msg core.SmsMessage) string {
	h := sha256.New()
	h.Write([]byte(msg.SimID))
	h.Write([]byte{0})
	h.Write([]byte(msg.Body))
	return hex.EncodeToString(h.Sum(nil))
}
