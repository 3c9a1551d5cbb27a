package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Badr133ne/sim-charge-guardian/internal/core"
	"github.com/Badr133ne/sim-charge-guardian/internal/log"
)

const sourceManual = "manual"

type createRechargeRequest struct {
	SimID       string      `json:"simId"`
	Date        string      `json:"date"`
	Time        string      `json:"time"`
	OperationID string      `json:"operationId"`
	Amount      amountInput `json:"amount"`
	ForUser1    bool        `json:"forUser1"`
	ForUser2    bool        `json:"forUser2"`
}

type updateRechargeRequest struct {
	SimID       *string     `json:"simId"`
	Date        *string     `json:"date"`
	Time        *string     `json:"time"`
	OperationID *string     `json:"operationId"`
	Amount      amountInput `json:"amount"`
	ForUser1    *bool       `json:"forUser1"`
	ForUser2    *bool       `json:"forUser2"`
}

// handleCreateRecharge records a recharge. simId defaults to the active SIM,
// date to today and time to the current minute.
func (s *Server) handleCreateRecharge(w http.ResponseWriter, r *http.Request) {
	var req createRechargeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}

	simID := strings.TrimSpace(req.SimID)
	if simID == "" {
		simID = s.store.CurrentSimID()
	}
	if simID == "" {
		fail(w, r, log.OpCreate, invalid("please select a SIM card first"))
		return
	}
	if _, ok := s.store.GetSimByID(simID); !ok {
		fail(w, r, log.OpCreate, fmt.Errorf("SIM %s: %w", simID, core.ErrSimNotFound))
		return
	}
	amount, err := req.Amount.value()
	if err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}

	now := s.now().In(s.loc)
	in := core.NewRecharge{
		SimID:       simID,
		Date:        strings.TrimSpace(req.Date),
		Time:        strings.TrimSpace(req.Time),
		OperationID: sanitizeInput(req.OperationID),
		Amount:      amount,
		ForUser1:    req.ForUser1,
		ForUser2:    req.ForUser2,
	}
	if in.Date == "" {
		in.Date = core.FormatDay(now)
	}
	if in.Time == "" {
		in.Time = core.FormatClock(now)
	}
	if err := core.ValidateDay(in.Date); err != nil {
		fail(w, r, log.OpCreate, invalid("date must be formatted as yyyy-mm-dd"))
		return
	}
	if err := core.ValidateClock(in.Time); err != nil {
		fail(w, r, log.OpCreate, invalid("time must be formatted as HH:mm"))
		return
	}

	id, err := s.store.AddRecharge(r.Context(), in)
	if err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}
	s.metrics.RechargeRecorded(sourceManual)
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogRechargeRecorded(r.Context(), simID, id, in.OperationID, in.Amount, log.ComponentHTTP)

	rec, _ := s.store.GetRechargeByID(id)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleUpdateRecharge(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.store.GetRechargeByID(id); !ok {
		fail(w, r, log.OpUpdate, fmt.Errorf("recharge %s: %w", id, errNotFound))
		return
	}

	var req updateRechargeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, log.OpUpdate, err)
		return
	}
	patch := core.RechargePatch{
		SimID:       req.SimID,
		Date:        req.Date,
		Time:        req.Time,
		OperationID: req.OperationID,
		ForUser1:    req.ForUser1,
		ForUser2:    req.ForUser2,
	}
	if req.Amount.set {
		amount, err := req.Amount.value()
		if err != nil {
			fail(w, r, log.OpUpdate, err)
			return
		}
		patch.Amount = &amount
	}
	if patch.Date != nil && core.ValidateDay(*patch.Date) != nil {
		fail(w, r, log.OpUpdate, invalid("date must be formatted as yyyy-mm-dd"))
		return
	}
	if patch.Time != nil && core.ValidateClock(*patch.Time) != nil {
		fail(w, r, log.OpUpdate, invalid("time must be formatted as HH:mm"))
		return
	}
	if patch.OperationID != nil {
		*patch.OperationID = sanitizeInput(*patch.OperationID)
	}

	if err := s.store.UpdateRecharge(r.Context(), id, patch); err != nil {
		fail(w, r, log.OpUpdate, err)
		return
	}
	rec, _ := s.store.GetRechargeByID(id)
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteRecharge(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteRecharge(r.Context(), id); err != nil {
		fail(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
