package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/dpdp-scanner/internal/logger"
	"github.com/raaihank/dpdp-scanner/internal/source"
)

// DatabaseScanRequest is the body of POST /scan-database/
type DatabaseScanRequest struct {
	ConnectionString string `json:"connection_string"`
}

// errorResponse matches the {"detail": ...} body clients already parse
type errorResponse struct {
	Detail string `json:"detail"`
}

// handleRoot reports that the API is up
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "online",
		"message": "DPDP Scanner API is ready",
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"name":            "dpdp-scanner",
		"version":         Version,
		"detectors":       s.engine.Detectors(),
		"history_backend": s.config.History.Backend,
		"rate_limit":      s.config.RateLimit.Enabled,
	}
	if s.wsHub != nil {
		info["websocket"] = s.wsHub.GetStats()
	}
	writeJSON(w, http.StatusOK, info)
}

// handleHistory returns the most recent scans, newest first
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.history.Recent(r.Context(), s.config.History.RecentLimit)
	if err != nil {
		s.requestLogger(r).Error("Failed to load scan history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load scan history")
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// handleScanFile scans a multipart upload in field "file"
func (s *Server) handleScanFile(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(r)

	if s.config.Upload.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.Upload.MaxBytes)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds the maximum allowed size")
			return
		}
		writeError(w, http.StatusBadRequest, `multipart field "file" is required`)
		return
	}
	defer file.Close()

	src, err := source.SpoolUpload(s.config.Upload.TempDir, header.Filename, file)
	if err != nil {
		s.writeScanError(w, log, err)
		return
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Warn("Failed to remove spooled upload", zap.String("path", src.Path()), zap.Error(err))
		}
	}()

	log.Info("Scanning uploaded file",
		zap.String("filename", src.Name()),
		zap.Int64("size", header.Size),
	)

	s.runScan(w, r, log, src)
}

// handleScanDatabase samples every table of the database in the request
func (s *Server) handleScanDatabase(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(r)

	var req DatabaseScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ConnectionString == "" {
		writeError(w, http.StatusBadRequest, "connection_string is required")
		return
	}

	log.Info("Scanning live database", zap.String("dsn", source.MaskDSN(req.ConnectionString)))

	openCtx := r.Context()
	if s.config.Database.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		openCtx, cancel = context.WithTimeout(openCtx, s.config.Database.ConnectTimeout)
		defer cancel()
	}

	db, err := s.openDatabase(openCtx, s.config.Database.Driver, req.ConnectionString)
	if err != nil {
		s.writeScanError(w, log, err)
		return
	}
	defer db.Close()

	s.runScan(w, r, log, db)
}

// handleScanS3 samples objects from the bucket in the request
func (s *Server) handleScanS3(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(r)

	var target source.BucketTarget
	if err := json.NewDecoder(r.Body).Decode(&target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if target.Region == "" {
		target.Region = s.config.ObjectStore.DefaultRegion
	}
	// Clients may not point the server at arbitrary endpoints
	target.Endpoint = s.config.ObjectStore.Endpoint

	log.Info("Scanning S3 bucket",
		zap.String("bucket", target.Bucket),
		zap.String("region", target.Region),
	)

	bucket, err := s.openBucket(r.Context(), target)
	if err != nil {
		s.writeScanError(w, log, err)
		return
	}

	s.runScan(w, r, log, bucket)
}

func (s *Server) runScan(w http.ResponseWriter, r *http.Request, log *logger.Logger, src source.Source) {
	result, err := s.engine.Run(r.Context(), src)
	if err != nil {
		s.writeScanError(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// writeScanError maps adapter errors to client errors. Anything else is an
// internal failure and its message is not echoed back.
func (s *Server) writeScanError(w http.ResponseWriter, log *logger.Logger, err error) {
	var (
		validationErr *source.ValidationError
		connErr       *source.ConnectionError
		notFoundErr   *source.NotFoundError
	)

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &connErr):
		writeError(w, http.StatusBadRequest, connErr.Error())
	case errors.As(err, &notFoundErr):
		writeError(w, http.StatusBadRequest, notFoundErr.Error())
	default:
		log.Error("Scan failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "scan failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
