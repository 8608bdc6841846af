package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/michaelbrown/explorer/internal/assistant"
	"github.com/michaelbrown/explorer/internal/lessons"
	"github.com/michaelbrown/explorer/internal/sandbox"
	"github.com/michaelbrown/explorer/internal/storage"
)

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// writeStoreError maps journal errors to HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "run not found")
	case errors.Is(err, storage.ErrAmbiguous):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// --- Info ---

type infoResponse struct {
	Backend   string `json:"backend"`
	Journal   bool   `json:"journal"`
	Assistant bool   `json:"assistant"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, infoResponse{
		Backend:   s.runner.Backend(),
		Journal:   s.cfg.Journal.Enabled,
		Assistant: s.explainer != nil,
	})
}

// --- Playground ---

type runRequest struct {
	Code string `json:"code"`
}

type runResponse struct {
	RunID      string          `json:"run_id"`
	Outcome    sandbox.Outcome `json:"outcome"`
	Output     string          `json:"output"`
	Message    string          `json:"message,omitempty"`
	Truncated  bool            `json:"truncated,omitempty"`
	DurationMS int64           `json:"duration_ms"`
}

func newRunResponse(run *storage.Run) runResponse {
	return runResponse{
		RunID:      run.ID,
		Outcome:    run.Outcome,
		Output:     run.Output,
		Message:    run.Message,
		Truncated:  run.Truncated,
		DurationMS: run.DurationMS,
	}
}

// handleRun executes a snippet. A failing snippet is still a 200: the
// failure is the result.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	run := s.runner.Run(r.Context(), req.Code, nil)
	writeJSON(w, http.StatusOK, newRunResponse(run))
}

// --- Lessons ---

func (s *Server) handleLessons(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.lessons)
}

type variablesRequest struct {
	Number any    `json:"number"`
	Text   string `json:"text"`
	IsTrue bool   `json:"is_true"`
}

// numberText accepts the number widget's value as a JSON number or string.
func numberText(v any) (string, error) {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	case string:
		return n, nil
	case nil:
		return "", fmt.Errorf("number is required")
	default:
		return "", fmt.Errorf("number must be a number or a string")
	}
}

func (s *Server) handleVariables(w http.ResponseWriter, r *http.Request) {
	var req variablesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	number, err := numberText(req.Number)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := lessons.Assignment(number, req.Text, req.IsTrue)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type listRequest struct {
	Item string `json:"item"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	res, err := lessons.AppendToList(req.Item)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleTuple(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, lessons.TupleImmutability(r.Context(), s.runner.Sandbox()))
}

type dictRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (s *Server) handleDict(w http.ResponseWriter, r *http.Request) {
	var req dictRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	res, err := lessons.AddToDict(r.Context(), s.runner.Sandbox(), req.Key, req.Value)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- Assistant ---

type explainRequest struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	if s.explainer == nil {
		writeError(w, http.StatusServiceUnavailable, assistant.ErrDisabled.Error())
		return
	}

	var req explainRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	text, err := s.explainer.Explain(r.Context(), req.Code, req.Message)
	if err != nil {
		if errors.Is(err, assistant.ErrDisabled) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.log.Warn("explain failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, fmt.Sprintf("assistant error: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"explanation": text})
}

// --- Run journal ---

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	opts := storage.RunListOptions{}

	switch outcome := sandbox.Outcome(r.URL.Query().Get("outcome")); outcome {
	case "":
	case sandbox.OutcomeSuccess, sandbox.OutcomeFailure:
		opts.Outcome = outcome
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown outcome %q", outcome))
		return
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			opts.Limit = n
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil {
			opts.Offset = n
		}
	}

	runs, err := s.runner.Store().ListRuns(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if runs == nil {
		runs = []storage.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runner.Store().GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := s.runner.Store().DeleteRun(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
