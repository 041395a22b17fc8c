package http

import (
	"net/http"

	"nzql/internal/advisory"
	"nzql/internal/core"
)

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleHolidays(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]string{"holidays": core.Holidays()})
}

func (s *Server) handleData(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	m, err := parseMonthParam(r, s.store.Now())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s.store.MonthSummary(m))
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	tx, err := s.store.AddTransaction(r.Context(), req.toDomain())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleAddAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	acc, err := s.store.AddAccount(r.Context(), req.toDomain())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, acc)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteAccount(r.Context(), r.PathValue("id")); err != nil {
		respondWithError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSaveShift(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if err := s.validate.Var(date, "iso_date"); err != nil {
		respondWithError(w, r, WithMessage(ErrInvalidInput, "date must be YYYY-MM-DD"))
		return
	}
	var req shiftRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	shift, err := s.store.SaveShift(r.Context(), req.toDomain(date))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, shift)
}

func (s *Server) handleAddShiftType(w http.ResponseWriter, r *http.Request) {
	var req shiftTypeRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	st, err := s.store.AddShiftType(r.Context(), req.toDomain())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, st)
}

func (s *Server) handleDeleteShiftType(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteShiftType(r.Context(), r.PathValue("id")); err != nil {
		respondWithError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	rec, err := s.store.AddRecurring(r.Context(), req.toDomain())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteRecurring(r.Context(), r.PathValue("id")); err != nil {
		respondWithError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	d, err := s.store.UpdateSettings(r.Context(), req.toDomain())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) handleAddTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	added, err := s.store.AddTag(r.Context(), sanitizeInput(req.Tag))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	respondJSON(w, status, map[string]any{"added": added, "tags": s.store.Snapshot().Tags})
}

type syncResponse struct {
	Success    bool   `json:"success"`
	Time       string `json:"time"`
	LastSynced string `json:"lastSynced"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		respondWithError(w, r, ErrNoSyncEndpoint)
		return
	}
	res, err := s.syncer.Sync(r.Context())
	if err != nil {
		appErr := mapError(err)
		if appErr.StatusCode == http.StatusInternalServerError {
			appErr = Wrap(ErrSyncFailed, err)
		}
		respondWithError(w, r, appErr)
		return
	}
	respondJSON(w, http.StatusOK, syncResponse{
		Success:    res.Success,
		Time:       res.Time,
		LastSynced: s.store.Snapshot().LastSynced,
	})
}

type adviceResponse struct {
	Month  core.Month `json:"month"`
	Advice string     `json:"advice"`
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	m, err := parseMonthParam(r, s.store.Now())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	text := advisory.UnavailableAdvice
	if s.adviser != nil {
		latest, ok := "", false
		if m == core.MonthOf(s.store.Now()) {
			latest, ok = s.adviser.Latest(m)
		}
		if ok {
			text = latest
		} else {
			text = s.adviser.Advice(r.Context(), s.store.Snapshot(), m)
		}
	}
	respondJSON(w, http.StatusOK, adviceResponse{Month: m, Advice: text})
}
