package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Badr133ne/sim-charge-guardian/internal/core"
	"github.com/Badr133ne/sim-charge-guardian/internal/log"
)

type createSimRequest struct {
	Number     string `json:"number"`
	Name       string `json:"name"`
	User1Label string `json:"user1Label"`
	User2Label string `json:"user2Label"`
}

type selectSimRequest struct {
	ID string `json:"id"`
}

type balanceResponse struct {
	SimID                string           `json:"simId"`
	Date                 string           `json:"date"`
	Balance              *core.SimBalance `json:"balance"`
	UndeclaredDifference *float64         `json:"undeclaredDifference"`
}

type totalsResponse struct {
	SimID string `json:"simId"`
	Date  string `json:"date"`
	core.DailyTotals
}

// today is the calendar day used when a request does not name one.
func (s *Server) today() string {
	return core.FormatDay(s.now().In(s.loc))
}

// dayParam reads ?date=, defaulting to today.
func (s *Server) dayParam(r *http.Request) (string, error) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		return s.today(), nil
	}
	if err := core.ValidateDay(date); err != nil {
		return "", invalid("date must be formatted as yyyy-mm-dd")
	}
	return date, nil
}

// simFromPath resolves the {id} path segment to a SIM card.
func (s *Server) simFromPath(r *http.Request) (core.SimCard, error) {
	id := r.PathValue("id")
	sim, ok := s.store.GetSimByID(id)
	if !ok {
		return core.SimCard{}, fmt.Errorf("SIM %s: %w", id, core.ErrSimNotFound)
	}
	return sim, nil
}

func (s *Server) handleCreateSim(w http.ResponseWriter, r *http.Request) {
	var req createSimRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}

	number := sanitizeInput(req.Number)
	if number == "" {
		fail(w, r, log.OpCreate, invalid("please enter a SIM card number"))
		return
	}
	name := sanitizeInput(req.Name)
	if name == "" {
		name = fmt.Sprintf("SIM %d", len(s.store.SimCards())+1)
	}

	id, err := s.store.AddSimCard(r.Context(), number, name, sanitizeInput(req.User1Label), sanitizeInput(req.User2Label))
	if err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}
	s.metrics.SetSimCards(len(s.store.SimCards()))

	log.FromContext(r.Context()).InfoContext(r.Context(), "SIM card added",
		log.FieldSimID, id,
		log.FieldOperation, log.OpCreate)

	sim, _ := s.store.GetSimByID(id)
	writeJSON(w, http.StatusCreated, sim)
}

// handleSelectSim changes the active SIM. An empty id clears the selection.
func (s *Server) handleSelectSim(w http.ResponseWriter, r *http.Request) {
	var req selectSimRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, log.OpSelect, err)
		return
	}
	if req.ID != "" {
		if _, ok := s.store.GetSimByID(req.ID); !ok {
			fail(w, r, log.OpSelect, fmt.Errorf("SIM %s: %w", req.ID, core.ErrSimNotFound))
			return
		}
	}
	if err := s.store.SetCurrentSim(r.Context(), req.ID); err != nil {
		fail(w, r, log.OpSelect, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"currentSimId": req.ID})
}

func (s *Server) handleUpdateSim(w http.ResponseWriter, r *http.Request) {
	sim, err := s.simFromPath(r)
	if err != nil {
		fail(w, r, log.OpUpdate, err)
		return
	}

	var patch core.SimCardPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		fail(w, r, log.OpUpdate, err)
		return
	}
	for _, f := range []*string{patch.Number, patch.Name, patch.User1Label, patch.User2Label} {
		if f != nil {
			*f = sanitizeInput(*f)
		}
	}
	if patch.Number != nil && *patch.Number == "" {
		fail(w, r, log.OpUpdate, invalid("please enter a SIM card number"))
		return
	}

	if err := s.store.UpdateSimCard(r.Context(), sim.ID, patch); err != nil {
		fail(w, r, log.OpUpdate, err)
		return
	}
	updated, _ := s.store.GetSimByID(sim.ID)
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteSim removes a SIM with its recharges and balance. Deleting an
// unknown SIM succeeds.
func (s *Server) handleDeleteSim(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteSimCard(r.Context(), id); err != nil {
		fail(w, r, log.OpDelete, err)
		return
	}
	s.metrics.SetSimCards(len(s.store.SimCards()))
	log.FromContext(r.Context()).InfoContext(r.Context(), "SIM card deleted",
		log.FieldSimID, id,
		log.FieldOperation, log.OpDelete)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListRecharges(w http.ResponseWriter, r *http.Request) {
	sim, err := s.simFromPath(r)
	if err != nil {
		fail(w, r, log.OpRead, err)
		return
	}
	if r.URL.Query().Get("date") == "all" {
		writeJSON(w, http.StatusOK, s.store.GetRechargesBySim(sim.ID))
		return
	}
	date, err := s.dayParam(r)
	if err != nil {
		fail(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store.GetRechargesBySimAndDate(sim.ID, date))
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	sim, err := s.simFromPath(r)
	if err != nil {
		fail(w, r, log.OpRead, err)
		return
	}
	date, err := s.dayParam(r)
	if err != nil {
		fail(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, totalsResponse{
		SimID:       sim.ID,
		Date:        date,
		DailyTotals: s.store.GetTotalsByDate(sim.ID, date),
	})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	sim, err := s.simFromPath(r)
	if err != nil {
		fail(w, r, log.OpRead, err)
		return
	}
	date, err := s.dayParam(r)
	if err != nil {
		fail(w, r, log.OpRead, err)
		return
	}

	resp := balanceResponse{SimID: sim.ID, Date: date}
	if b, ok := s.store.GetSimBalance(sim.ID); ok {
		resp.Balance = &b
	}
	if diff, ok := s.store.GetUndeclaredDifference(sim.ID, date); ok {
		resp.UndeclaredDifference = &diff
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePutBalance(w http.ResponseWriter, r *http.Request) {
	sim, err := s.simFromPath(r)
	if err != nil {
		fail(w, r, log.OpUpdate, err)
		return
	}

	var b core.SimBalance
	if err := decodeJSON(w, r, &b); err != nil {
		fail(w, r, log.OpUpdate, err)
		return
	}
	if b.ValidityDate == "" {
		fail(w, r, log.OpUpdate, invalid("please select a validity date"))
		return
	}
	for i := range b.Services {
		b.Services[i].Name = sanitizeInput(b.Services[i].Name)
		b.Services[i].Details = sanitizeInput(b.Services[i].Details)
	}
	if err := b.Validate(); err != nil {
		fail(w, r, log.OpUpdate, invalid("%s", err.Error()))
		return
	}
	if b.Services == nil {
		b.Services = []core.SimService{}
	}

	if err := s.store.UpdateSimBalance(r.Context(), sim.ID, b); err != nil {
		fail(w, r, log.OpUpdate, err)
		return
	}
	saved, _ := s.store.GetSimBalance(sim.ID)
	writeJSON(w, http.StatusOK, saved)
}
