package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Badr133ne/sim-charge-guardian/internal/core"
	"github.com/Badr133ne/sim-charge-guardian/internal/log"
	"github.com/Badr133ne/sim-charge-guardian/internal/services"
	"github.com/Badr133ne/sim-charge-guardian/internal/smsparser"
)

const (
	maxSyncMessages = 500
	maxSyncDelay    = 5 * time.Minute
)

type smsInput struct {
	Body       string     `json:"body"`
	Sender     string     `json:"sender"`
	ReceivedAt *time.Time `json:"receivedAt"`
}

type syncRequest struct {
	SimID        string     `json:"simId"`
	Messages     []smsInput `json:"messages"`
	DelaySeconds int        `json:"delaySeconds"`
}

type syncResponse struct {
	SimID   string                  `json:"simId"`
	Added   int                     `json:"added"`
	Results []services.ImportResult `json:"results"`
}

type scheduledResponse struct {
	TaskID       string `json:"taskId"`
	SimID        string `json:"simId"`
	DelaySeconds int    `json:"delaySeconds"`
}

type parseRequest struct {
	Message string `json:"message"`
}

type parseResponse struct {
	IsRecharge  bool     `json:"isRecharge"`
	Complete    bool     `json:"complete"`
	Amount      *float64 `json:"amount"`
	OperationID *string  `json:"operationId"`
}

// handleSyncSms imports a batch of SMS messages for a SIM. With a delay the
// batch is scheduled and dropped if another SIM becomes active first; only
// the active SIM can be scheduled.
func (s *Server) handleSyncSms(w http.ResponseWriter, r *http.Request) {
	if s.importer == nil {
		writeError(w, http.StatusServiceUnavailable, "SMS sync is not available")
		return
	}

	var req syncRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, log.OpImport, err)
		return
	}

	simID := strings.TrimSpace(req.SimID)
	if simID == "" {
		simID = s.store.CurrentSimID()
	}
	if simID == "" {
		fail(w, r, log.OpImport, invalid("please select a SIM card first"))
		return
	}
	if _, ok := s.store.GetSimByID(simID); !ok {
		fail(w, r, log.OpImport, fmt.Errorf("SIM %s: %w", simID, core.ErrSimNotFound))
		return
	}
	if len(req.Messages) == 0 || len(req.Messages) > maxSyncMessages {
		fail(w, r, log.OpImport, invalid("between 1 and %d messages are required", maxSyncMessages))
		return
	}
	delay := time.Duration(req.DelaySeconds) * time.Second
	if delay < 0 || delay > maxSyncDelay {
		fail(w, r, log.OpImport, invalid("delaySeconds must be between 0 and %d", int(maxSyncDelay.Seconds())))
		return
	}

	msgs := make([]core.SmsMessage, 0, len(req.Messages))
	for i, in := range req.Messages {
		m := core.SmsMessage{SimID: simID, Body: in.Body, Sender: sanitizeInput(in.Sender)}
		if in.ReceivedAt != nil {
			m.ReceivedAt = *in.ReceivedAt
		}
		if err := m.Validate(); err != nil {
			fail(w, r, log.OpImport, invalid("message %d: %s", i+1, err.Error()))
			return
		}
		msgs = append(msgs, m)
	}

	if delay > 0 {
		s.scheduleSync(w, r, simID, msgs, req.DelaySeconds)
		return
	}

	results := s.importer.ImportAll(r.Context(), msgs)
	added := 0
	for _, res := range results {
		if res.Outcome == services.ImportAdded {
			added++
		}
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "SMS batch imported",
		log.FieldSimID, simID,
		log.FieldOperation, log.OpImport,
		"messages", len(msgs),
		"added", added)
	writeJSON(w, http.StatusOK, syncResponse{SimID: simID, Added: added, Results: results})
}

func (s *Server) scheduleSync(w http.ResponseWriter, r *http.Request, simID string, msgs []core.SmsMessage, delaySeconds int) {
	if s.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "delayed SMS sync is not available")
		return
	}
	if simID != s.store.CurrentSimID() {
		writeError(w, http.StatusConflict, "delayed scans only run for the active SIM")
		return
	}

	task := s.scheduler.Schedule(simID, msgs, time.Duration(delaySeconds)*time.Second)
	log.FromContext(r.Context()).InfoContext(r.Context(), "SMS scan scheduled",
		log.FieldSimID, simID,
		"task_id", task.ID,
		"delay_seconds", delaySeconds)
	writeJSON(w, http.StatusAccepted, scheduledResponse{TaskID: task.ID, SimID: simID, DelaySeconds: delaySeconds})
}

// handleParseSms previews what the parser extracts without recording anything.
func (s *Server) handleParseSms(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, log.OpParse, err)
		return
	}
	res := s.parser.ParseRechargeSms(req.Message)
	writeJSON(w, http.StatusOK, parseResponse{
		IsRecharge:  smsparser.IsRechargeSms(req.Message),
		Complete:    res.Complete(),
		Amount:      res.Amount,
		OperationID: res.OperationID,
	})
}
