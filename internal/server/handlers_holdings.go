package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

// holdingRequest is the request body for creating or updating a holding.
type holdingRequest struct {
	Symbol       string          `json:"symbol"`
	Category     models.Category `json:"category"`
	Balance      float64         `json:"balance"`
	PurchaseDate string          `json:"purchase_date,omitempty"`
	BuyPrice     float64         `json:"buy_price,omitempty"`
}

func validCategory(c models.Category) bool {
	switch c {
	case models.CategoryCrypto, models.CategoryStocks, models.CategoryGold:
		return true
	}
	return false
}

// validate checks the request fields and returns a user-facing error message.
func (req holdingRequest) validate() string {
	if req.Symbol == "" {
		return "symbol is required"
	}
	if !validCategory(req.Category) {
		return fmt.Sprintf("invalid category '%s' - expected crypto, stocks, or gold", req.Category)
	}
	if req.Balance < 0 {
		return "balance must not be negative"
	}
	if req.BuyPrice < 0 {
		return "buy_price must not be negative"
	}
	if req.PurchaseDate != "" {
		if _, err := time.Parse("2006-01-02", req.PurchaseDate); err != nil {
			return fmt.Sprintf("invalid purchase_date '%s' - use YYYY-MM-DD", req.PurchaseDate)
		}
	}
	return ""
}

// handleHoldings handles GET (list) and POST (create) on /api/holdings.
func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleHoldingList(w, r)
	case http.MethodPost:
		s.handleHoldingCreate(w, r)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleHoldingList(w http.ResponseWriter, r *http.Request) {
	holdings, err := s.app.Storage.Holdings().List(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Holdings error: %v", err))
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"holdings": holdings,
		"count":    len(holdings),
	})
}

func (s *Server) handleHoldingCreate(w http.ResponseWriter, r *http.Request) {
	var req holdingRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		WriteError(w, http.StatusBadRequest, msg)
		return
	}

	holding := models.NewHolding(req.Symbol, req.Category, req.Balance)
	holding.PurchaseDate = req.PurchaseDate
	holding.BuyPrice = req.BuyPrice

	if err := holding.Validate(time.Now()); err != nil {
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.app.Storage.Holdings().Upsert(r.Context(), holding); err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Holdings error: %v", err))
		return
	}

	s.logger.Info().Str("id", holding.ID).Str("symbol", holding.Symbol).Msg("Holding created")
	WriteJSON(w, http.StatusCreated, holding)
}

// handleHoldingByID handles GET, PUT, and DELETE on /api/holdings/{id}.
func (s *Server) handleHoldingByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		s.handleHoldingGet(w, r, id)
	case http.MethodPut:
		s.handleHoldingUpdate(w, r, id)
	case http.MethodDelete:
		s.handleHoldingDelete(w, r, id)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// findHolding looks up one holding by ID. Writes a 404 when absent.
func (s *Server) findHolding(w http.ResponseWriter, r *http.Request, id string) (models.Holding, bool) {
	holdings, err := s.app.Storage.Holdings().List(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Holdings error: %v", err))
		return models.Holding{}, false
	}
	for _, h := range holdings {
		if h.ID == id {
			return h, true
		}
	}
	WriteError(w, http.StatusNotFound, fmt.Sprintf("Holding '%s' not found", id))
	return models.Holding{}, false
}

func (s *Server) handleHoldingGet(w http.ResponseWriter, r *http.Request, id string) {
	holding, ok := s.findHolding(w, r, id)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, holding)
}

func (s *Server) handleHoldingUpdate(w http.ResponseWriter, r *http.Request, id string) {
	holding, ok := s.findHolding(w, r, id)
	if !ok {
		return
	}

	var req holdingRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		WriteError(w, http.StatusBadRequest, msg)
		return
	}

	holding.Symbol = req.Symbol
	holding.Category = req.Category
	holding.Balance = req.Balance
	holding.PurchaseDate = req.PurchaseDate
	holding.BuyPrice = req.BuyPrice

	if err := holding.Validate(time.Now()); err != nil {
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.app.Storage.Holdings().Upsert(r.Context(), holding); err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Holdings error: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, holding)
}

func (s *Server) handleHoldingDelete(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := s.findHolding(w, r, id); !ok {
		return
	}

	if err := s.app.Storage.Holdings().Delete(r.Context(), id); err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Holdings error: %v", err))
		return
	}

	s.logger.Info().Str("id", id).Msg("Holding deleted")
	w.WriteHeader(http.StatusNoContent)
}
