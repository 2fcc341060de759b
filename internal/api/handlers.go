package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/entropy-casino-engine/internal/games"
	"github.com/MJE43/entropy-casino-engine/internal/logger"
	"github.com/MJE43/entropy-casino-engine/internal/store"
	"github.com/MJE43/entropy-casino-engine/internal/verify"
)

const maxBatchSize = 1000

// handleListGames returns the supported games
func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, GamesResponse{
		Games:         games.ListGames(),
		EngineVersion: EngineVersion,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, GetVersionInfo())
}

// handleProcess maps one entropy value to an outcome
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", err.Error())
		return
	}
	if req.Entropy == nil {
		s.errorHandler.HandleValidationError(w, r, "entropy", "entropy is required")
		return
	}

	kind, err := games.ParseKind(req.Game)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	game, err := games.Lookup(kind, s.now)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := game.Evaluate(*req.Entropy, req.Params)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	s.logger.Debug("outcome processed",
		slog.String("game", string(kind)),
		logger.Entropy(req.Entropy.String()),
		slog.Float64("metric", result.Metric),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	s.writeJSON(w, http.StatusOK, ProcessResponse{
		Result:        result,
		EngineVersion: EngineVersion,
	})
}

// handleVerify replays a single claimed outcome
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", err.Error())
		return
	}
	if req.Entropy == nil {
		s.errorHandler.HandleValidationError(w, r, "entropy", "entropy is required")
		return
	}

	rep, err := s.verifier.Verify(r.Context(), req.toVerify())
	s.respondReport(w, r, rep, err)
}

// handleVerifyStored replays a persisted GameResult or typed outcome
func (s *Server) handleVerifyStored(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", err.Error())
		return
	}

	rep, err := s.verifier.VerifyStored(r.Context(), raw)
	s.respondReport(w, r, rep, err)
}

func (s *Server) respondReport(w http.ResponseWriter, r *http.Request, rep verify.Report, err error) {
	if err != nil && !errors.Is(err, verify.ErrAudit) {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	if err != nil {
		s.logger.Error("verification audit failed",
			logger.Err(err),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	}
	s.logMismatch(r, rep)

	s.writeJSON(w, http.StatusOK, VerifyResponse{
		Report:        rep,
		EngineVersion: EngineVersion,
	})
}

func (s *Server) logMismatch(r *http.Request, rep verify.Report) {
	if rep.Verified || rep.Error != "" {
		return
	}
	s.logger.Warn("verification mismatch",
		slog.String("game", string(rep.Game)),
		logger.Entropy(rep.EntropyValue.String()),
		slog.String("reason", rep.Reason),
		slog.String("audit_id", rep.AuditID),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// handleVerifyBatch verifies several claims in request order
func (s *Server) handleVerifyBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchVerifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", err.Error())
		return
	}
	if len(req.Requests) == 0 || len(req.Requests) > maxBatchSize {
		s.errorHandler.HandleValidationError(w, r, "requests", "requests must hold between 1 and 1000 entries")
		return
	}

	reqs := make([]verify.Request, len(req.Requests))
	for i, vr := range req.Requests {
		if vr.Entropy == nil {
			s.errorHandler.HandleValidationError(w, r, "requests["+strconv.Itoa(i)+"].entropy", "entropy is required")
			return
		}
		reqs[i] = vr.toVerify()
	}

	reports, err := s.verifier.VerifyBatch(r.Context(), reqs)
	if err != nil && !errors.Is(err, verify.ErrAudit) {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	if err != nil {
		s.logger.Error("verification audit failed", logger.Err(err))
	}

	resp := BatchVerifyResponse{Reports: reports, EngineVersion: EngineVersion}
	for _, rep := range reports {
		s.logMismatch(r, rep)
		if rep.Verified {
			resp.Verified++
		} else {
			resp.Failed++
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleScan replays a game over an entropy range
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", err.Error())
		return
	}
	if req.Persist && s.db == nil {
		s.errorHandler.HandleUnavailable(w, r, "scan persistence")
		return
	}

	s.logger.Info("scan requested",
		slog.String("game", req.Game),
		logger.Entropy(req.EntropyStart.String()),
		slog.Uint64("count", req.Count),
		slog.String("target_op", string(req.TargetOp)),
		slog.Float64("target_val", req.TargetVal),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	result, err := s.scanner.Scan(r.Context(), req.ScanRequest)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	resp := ScanResponse{ScanResult: result}
	if req.Persist {
		if _, err := store.SaveScan(r.Context(), s.db, result); err != nil {
			s.errorHandler.HandleError(w, r, err)
			return
		}
		resp.Persisted = true
	}

	s.logger.Info("scan completed",
		slog.String("scan_id", result.ID),
		slog.Int("hits_found", result.Summary.HitsFound),
		slog.Uint64("total_evaluated", result.Summary.TotalEvaluated),
		slog.Bool("timed_out", result.Summary.TimedOut),
	)
	s.writeJSON(w, http.StatusOK, resp)
}

// handleRoulettePayout settles a roulette bet
func (s *Server) handleRoulettePayout(w http.ResponseWriter, r *http.Request) {
	var req PayoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", err.Error())
		return
	}

	var number int
	switch {
	case req.ResultNumber != nil && req.Entropy != nil:
		s.errorHandler.HandleValidationError(w, r, "resultNumber", "give either resultNumber or entropy, not both")
		return
	case req.ResultNumber != nil:
		number = *req.ResultNumber
	case req.Entropy != nil:
		number = games.RouletteNumber(*req.Entropy)
	default:
		s.errorHandler.HandleValidationError(w, r, "resultNumber", "resultNumber or entropy is required")
		return
	}

	betType, err := games.ParseBetType(req.BetType)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	payout, err := games.CalculatePayout(betType, req.BetValue, number, req.Amount)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, PayoutResponse{
		Payout:        payout,
		EngineVersion: EngineVersion,
	})
}

// handleAnalysis reports the static economics of a game configuration.
// Query parameters are passed through as game params.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	kind, err := games.ParseKind(chi.URLParam(r, "game"))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	game, err := games.Lookup(kind, nil)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	analysis, err := game.Analyze(queryParams(r.URL.Query()))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, AnalysisResponse{
		Analysis:      analysis,
		EngineVersion: EngineVersion,
	})
}

func queryParams(q url.Values) map[string]any {
	params := make(map[string]any, len(q))
	for key := range q {
		params[key] = q.Get(key)
	}
	return params
}

// ---- audit log ----

func (s *Server) handleListVerifications(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.errorHandler.HandleUnavailable(w, r, "audit log")
		return
	}

	q := r.URL.Query()
	query := store.VerificationsQuery{
		Game:    q.Get("game"),
		Page:    intQuery(q, "page"),
		PerPage: intQuery(q, "perPage"),
	}
	if raw := q.Get("verified"); raw != "" {
		verified, err := strconv.ParseBool(raw)
		if err != nil {
			s.errorHandler.HandleValidationError(w, r, "verified", "verified must be true or false")
			return
		}
		query.Verified = &verified
	}

	list, err := s.db.ListVerifications(r.Context(), query)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetVerification(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.errorHandler.HandleUnavailable(w, r, "audit log")
		return
	}

	v, err := s.db.GetVerification(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.errorHandler.HandleUnavailable(w, r, "scan persistence")
		return
	}

	q := r.URL.Query()
	list, err := s.db.ListRuns(r.Context(), store.RunsQuery{
		Game:    q.Get("game"),
		Page:    intQuery(q, "page"),
		PerPage: intQuery(q, "perPage"),
	})
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.errorHandler.HandleUnavailable(w, r, "scan persistence")
		return
	}

	run, err := s.db.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleGetRunHits(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.errorHandler.HandleUnavailable(w, r, "scan persistence")
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := s.db.GetRun(r.Context(), id); err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	q := r.URL.Query()
	page, err := s.db.GetRunHits(r.Context(), id, intQuery(q, "page"), intQuery(q, "perPage"))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

// intQuery returns 0 for missing or malformed values; the store applies
// its own defaults.
func intQuery(q url.Values, key string) int {
	n, err := strconv.Atoi(q.Get(key))
	if err != nil {
		return 0
	}
	return n
}
