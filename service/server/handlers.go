package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/brojonat/txplain/service/db"
	"github.com/brojonat/txplain/service/interpret"
	natspkg "github.com/brojonat/txplain/service/nats"
	"github.com/brojonat/txplain/service/sui"
	"github.com/brojonat/txplain/service/temporal"
)

const (
	maxExplainBodyBytes = 4 << 20
	sinkTimeout         = 5 * time.Second
	defaultListLimit    = 50
	maxListLimit        = 500
)

// Interpreter is the engine surface the handlers need.
type Interpreter interface {
	Interpret(ctx context.Context, src sui.Source, digest string) (*interpret.Result, error)
	InterpretRaw(ctx context.Context, raw *sui.RawTransaction, enriched map[string]*sui.EnrichedObject) *interpret.InterpretedTransaction
}

// Archive stores and serves past interpretations.
type Archive interface {
	SaveInterpretation(ctx context.Context, tx *interpret.InterpretedTransaction, source string) (*db.Interpretation, error)
	GetInterpretation(ctx context.Context, digest string) (*db.Interpretation, error)
	ListInterpretations(ctx context.Context, params db.ListInterpretationsParams) ([]*db.Interpretation, error)
}

// JobRunner runs interpretations as background workflows.
type JobRunner interface {
	StartInterpretWorkflow(ctx context.Context, digest string) (string, error)
	InterpretWorkflowResult(ctx context.Context, workflowID string) (*temporal.InterpretWorkflowResult, error)
}

// interpretResponse is the JSON response for an interpretation.
type interpretResponse struct {
	Transaction *interpret.InterpretedTransaction `json:"transaction"`
	Source      string                            `json:"source,omitempty"`
	Switched    bool                              `json:"switched"`
	Cached      bool                              `json:"cached"`
}

// errorResponse is the JSON body for failed requests. Kind is set for
// fetch failures.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// handleInterpretTransaction interprets a transaction by digest.
// GET /api/v1/transactions/{digest}?cached=true
func handleInterpretTransaction(engine Interpreter, active *sui.ActiveSource, archive Archive, sinks *sinks, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		digest := r.PathValue("digest")
		if err := sui.ValidateDigest(digest); err != nil {
			logger.Debug("invalid digest", "digest", digest, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if archive != nil && r.URL.Query().Get("cached") == "true" {
			if resp, ok := cachedInterpretation(r.Context(), archive, digest, logger); ok {
				writeJSON(w, resp, http.StatusOK)
				return
			}
		}

		src := active.Get()
		res, err := engine.Interpret(r.Context(), src, digest)
		if err != nil {
			writeInterpretError(w, err, logger)
			return
		}
		if res.Switched {
			active.Set(res.Source)
			logger.Info("active source switched", "from", src.Name, "to", res.Source.Name)
		}

		sinks.record(r.Context(), res.Transaction, res.Source.Name)

		writeJSON(w, interpretResponse{
			Transaction: res.Transaction,
			Source:      res.Source.Name,
			Switched:    res.Switched,
		}, http.StatusOK)
	})
}

func cachedInterpretation(ctx context.Context, archive Archive, digest string, logger *slog.Logger) (*interpretResponse, bool) {
	row, err := archive.GetInterpretation(ctx, digest)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			logger.Warn("failed to read archive", "digest", digest, "error", err)
		}
		return nil, false
	}
	tx, err := row.Decode()
	if err != nil {
		logger.Warn("failed to decode archived interpretation", "digest", digest, "error", err)
		return nil, false
	}
	resp := &interpretResponse{Transaction: tx, Cached: true}
	if row.Source != nil {
		resp.Source = *row.Source
	}
	return resp, true
}

// explainRequest carries an already-fetched transaction and, optionally,
// the objects it touched.
type explainRequest struct {
	Transaction *sui.RawTransaction            `json:"transaction"`
	Objects     map[string]*sui.EnrichedObject `json:"objects,omitempty"`
}

// handleExplainTransaction interprets a transaction supplied in the body
// without any RPC calls.
// POST /api/v1/explain
func handleExplainTransaction(engine Interpreter, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxExplainBodyBytes)

		var req explainRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, "request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			logger.Debug("invalid explain body", "error", err)
			writeError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Transaction == nil {
			writeError(w, "transaction is required", http.StatusBadRequest)
			return
		}

		tx := engine.InterpretRaw(r.Context(), req.Transaction, req.Objects)
		writeJSON(w, interpretResponse{Transaction: tx}, http.StatusOK)
	})
}

// handleGetInterpretation returns an archived interpretation.
// GET /api/v1/interpretations/{digest}
func handleGetInterpretation(archive Archive, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if archive == nil {
			writeError(w, "archive is not enabled", http.StatusNotFound)
			return
		}
		digest := r.PathValue("digest")
		resp, ok := cachedInterpretation(r.Context(), archive, digest, logger)
		if !ok {
			writeError(w, "interpretation not found", http.StatusNotFound)
			return
		}
		writeJSON(w, resp, http.StatusOK)
	})
}

// archivedSummary is one row of the archive listing.
type archivedSummary struct {
	Digest       string    `json:"digest"`
	Sender       string    `json:"sender"`
	Success      bool      `json:"success"`
	Headline     string    `json:"headline"`
	HeadlineTier string    `json:"headline_tier"`
	GasCostMist  string    `json:"gas_cost_mist"`
	Source       *string   `json:"source,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// handleListInterpretations lists archived interpretations.
// GET /api/v1/interpretations?sender=ADDRESS&limit=N&offset=N
func handleListInterpretations(archive Archive, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if archive == nil {
			writeError(w, "archive is not enabled", http.StatusNotFound)
			return
		}

		query := r.URL.Query()
		limit, err := parseBoundedInt(query.Get("limit"), defaultListLimit, 1, maxListLimit)
		if err != nil {
			writeError(w, "invalid limit parameter: "+err.Error(), http.StatusBadRequest)
			return
		}
		offset, err := parseBoundedInt(query.Get("offset"), 0, 0, math.MaxInt32)
		if err != nil {
			writeError(w, "invalid offset parameter: "+err.Error(), http.StatusBadRequest)
			return
		}

		rows, err := archive.ListInterpretations(r.Context(), db.ListInterpretationsParams{
			Sender: query.Get("sender"),
			Limit:  int32(limit),
			Offset: int32(offset),
		})
		if err != nil {
			logger.Error("failed to list interpretations", "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]archivedSummary, len(rows))
		for i, row := range rows {
			resp[i] = archivedSummary{
				Digest:       row.Digest,
				Sender:       row.Sender,
				Success:      row.Success,
				Headline:     row.Headline,
				HeadlineTier: row.HeadlineTier,
				GasCostMist:  row.GasCostMist,
				Source:       row.Source,
				CreatedAt:    row.CreatedAt,
			}
		}

		writeJSON(w, map[string]any{
			"interpretations": resp,
			"count":           len(resp),
			"limit":           limit,
			"offset":          offset,
		}, http.StatusOK)
	})
}

type startJobRequest struct {
	Digest string `json:"digest"`
}

// handleStartJob starts a background interpretation.
// POST /api/v1/jobs
func handleStartJob(jobs JobRunner, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<10)

		var req startJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if err := sui.ValidateDigest(req.Digest); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		workflowID, err := jobs.StartInterpretWorkflow(r.Context(), req.Digest)
		if err != nil {
			logger.Error("failed to start interpret workflow", "digest", req.Digest, "error", err)
			writeError(w, "failed to start job", http.StatusInternalServerError)
			return
		}

		writeJSON(w, map[string]string{
			"workflow_id": workflowID,
			"status":      "running",
		}, http.StatusAccepted)
	})
}

// handleGetJob reports the state of a background interpretation.
// GET /api/v1/jobs/{workflow_id}
func handleGetJob(jobs JobRunner, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		workflowID := r.PathValue("workflow_id")

		result, err := jobs.InterpretWorkflowResult(r.Context(), workflowID)
		if errors.Is(err, temporal.ErrWorkflowRunning) {
			writeJSON(w, map[string]string{
				"workflow_id": workflowID,
				"status":      "running",
			}, http.StatusAccepted)
			return
		}
		if err != nil {
			logger.Debug("job lookup failed", "workflow_id", workflowID, "error", err)
			writeJSON(w, map[string]string{
				"workflow_id": workflowID,
				"status":      "failed",
				"error":       err.Error(),
			}, http.StatusOK)
			return
		}

		writeJSON(w, map[string]any{
			"workflow_id": workflowID,
			"status":      "completed",
			"result":      result,
		}, http.StatusOK)
	})
}

// sinks archives and publishes interpretations. Failures are logged and
// never fail the request.
type sinks struct {
	archive   Archive
	publisher natspkg.Publisher
	logger    *slog.Logger
}

func (s *sinks) record(ctx context.Context, tx *interpret.InterpretedTransaction, source string) {
	if s.archive == nil && s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()

	if s.archive != nil {
		if _, err := s.archive.SaveInterpretation(ctx, tx, source); err != nil {
			s.logger.Warn("failed to archive interpretation", "digest", tx.Digest, "error", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishInterpretation(ctx, natspkg.FromInterpretation(tx, source)); err != nil {
			s.logger.Warn("failed to publish interpretation", "digest", tx.Digest, "error", err)
		}
	}
}

// fetchStatus maps fetch failure kinds to HTTP status codes.
var fetchStatus = map[sui.ErrorKind]int{
	sui.ErrorNotFound:     http.StatusNotFound,
	sui.ErrorRateLimited:  http.StatusTooManyRequests,
	sui.ErrorTimeout:      http.StatusGatewayTimeout,
	sui.ErrorConnectivity: http.StatusBadGateway,
}

func writeInterpretError(w http.ResponseWriter, err error, logger *slog.Logger) {
	if errors.Is(err, sui.ErrInvalidDigest) {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	fe := sui.Classify(err)
	logger.Warn("interpretation failed", "kind", fe.Kind.String(), "error", fe.Cause)
	writeJSON(w, errorResponse{Error: fe.Error(), Kind: fe.Kind.String()}, fetchStatus[fe.Kind])
}

func parseBoundedInt(raw string, def, lo, hi int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("must be an integer")
	}
	if v < lo {
		return 0, errors.New("must be at least " + strconv.Itoa(lo))
	}
	if v > hi {
		return 0, errors.New("cannot exceed " + strconv.Itoa(hi))
	}
	return v, nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, errorResponse{Error: message}, statusCode)
}
