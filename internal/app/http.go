package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"planmark/api/internal/annotation"
	"planmark/api/internal/attachments"
	"planmark/api/internal/export"
	"planmark/api/internal/search"
	"planmark/api/internal/share"
	"planmark/api/internal/util"
)

const maxBodyBytes = 16 << 20

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

type planBody struct {
	Markdown string `json:"markdown" validate:"required"`
	Author   string `json:"author" validate:"max=200"`
}

type decisionBody struct {
	Author     string   `json:"author" validate:"max=200"`
	References []string `json:"references" validate:"dive,required"`
}

type shareBody struct {
	Plan        string                  `json:"plan" validate:"required"`
	Annotations []annotation.Annotation `json:"annotations"`
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		s.handleSearch(w, r)
		return
	}

	parts := splitPath(r.URL.Path)

	if len(parts) == 2 && parts[0] == "api" && parts[1] == "plans" {
		switch r.Method {
		case http.MethodGet:
			items, err := s.service.ListPlans(r.Context())
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"plans": items})
		case http.MethodPost:
			var body planBody
			if !decodeAndValidate(w, r, &body) {
				return
			}
			payload, err := s.service.CreatePlan(r.Context(), body.Markdown, body.Author)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, payload)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "plans" {
		s.handlePlan(w, r, parts[2], parts)
		return
	}

	if len(parts) == 2 && parts[0] == "api" && parts[1] == "share" && r.Method == http.MethodPost {
		var body shareBody
		if !decodeAndValidate(w, r, &body) {
			return
		}
		payload, err := s.service.CreateShare(r.Context(), share.Payload{Plan: body.Plan, Annotations: body.Annotations})
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, payload)
		return
	}

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "share" && r.Method == http.MethodGet {
		payload, err := s.service.GetShare(r.Context(), parts[2])
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if len(parts) == 4 && parts[0] == "api" && parts[1] == "attachments" && r.Method == http.MethodGet {
		s.handleAttachmentDownload(w, r, parts[2]+"/"+parts[3])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handlePlan(w http.ResponseWriter, r *http.Request, planID string, parts []string) {
	if len(parts) == 3 && r.Method == http.MethodGet {
		payload, err := s.service.GetPlan(r.Context(), planID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if len(parts) == 4 && parts[3] == "versions" {
		switch r.Method {
		case http.MethodGet:
			items, err := s.service.History(r.Context(), planID)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"planId": planID, "versions": items})
		case http.MethodPost:
			var body planBody
			if !decodeAndValidate(w, r, &body) {
				return
			}
			payload, err := s.service.AddVersion(r.Context(), planID, body.Markdown, body.Author)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			status := http.StatusCreated
			if !payload.Changed {
				status = http.StatusOK
			}
			writeJSON(w, status, payload)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(parts) == 4 && parts[3] == "diff" && r.Method == http.MethodGet {
		query := r.URL.Query()
		payload, err := s.service.Diff(r.Context(), planID, query.Get("from"), query.Get("to"))
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if len(parts) == 4 && parts[3] == "annotations" {
		switch r.Method {
		case http.MethodGet:
			items, err := s.service.ListAnnotations(r.Context(), planID)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"annotations": items})
		case http.MethodPost:
			var body annotation.Annotation
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			payload, err := s.service.AddAnnotation(r.Context(), planID, body)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, payload)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(parts) == 5 && parts[3] == "annotations" && r.Method == http.MethodDelete {
		if err := s.service.DeleteAnnotation(r.Context(), planID, parts[4]); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if len(parts) == 4 && parts[3] == "feedback" && r.Method == http.MethodGet {
		report, err := s.service.Feedback(r.Context(), planID, r.URL.Query()["reference"])
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"feedback": report})
		return
	}

	if len(parts) == 4 && parts[3] == "approve" && r.Method == http.MethodPost {
		var body decisionBody
		if !decodeAndValidate(w, r, &body) {
			return
		}
		payload, err := s.service.Approve(r.Context(), planID, body.Author)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if len(parts) == 4 && parts[3] == "deny" && r.Method == http.MethodPost {
		var body decisionBody
		if !decodeAndValidate(w, r, &body) {
			return
		}
		payload, err := s.service.Deny(r.Context(), planID, body.Author, body.References)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if len(parts) == 4 && parts[3] == "decisions" && r.Method == http.MethodGet {
		items, err := s.service.Decisions(r.Context(), planID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"decisions": items})
		return
	}

	if len(parts) == 4 && parts[3] == "markers" && r.Method == http.MethodGet {
		items, err := s.service.Markers(r.Context(), planID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"markers": items})
		return
	}

	if len(parts) == 4 && parts[3] == "attachments" && r.Method == http.MethodPost {
		s.handleAttachmentUpload(w, r, planID)
		return
	}

	if len(parts) == 4 && parts[3] == "export" && r.Method == http.MethodGet {
		s.handleExport(w, r, planID)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	resultType, ok := search.ParseResultType(query.Get("type"))
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "type must be plan, block or annotation", nil)
		return
	}
	limit := parseBoundedInt(query.Get("limit"), 20, 1, 100)
	offset := parseBoundedInt(query.Get("offset"), 0, 0, 10000)

	writeJSON(w, http.StatusOK, s.service.Search(r.Context(), search.Query{
		Text:         strings.TrimSpace(query.Get("q")),
		FilterType:   resultType,
		FilterPlanID: strings.TrimSpace(query.Get("planId")),
		Limit:        limit,
		Offset:       offset,
	}))
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request, planID string) {
	query := r.URL.Query()
	format, ok := export.ParseFormat(query.Get("format"))
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be 'pdf', 'docx' or 'html'", nil)
		return
	}
	version := query.Get("version")
	if version == "" {
		version = "latest"
	}
	includeAnnotations := query.Get("annotations") != "false"

	result, err := s.service.ExportPlan(r.Context(), export.Request{
		PlanID:             planID,
		Version:            version,
		Format:             format,
		IncludeAnnotations: includeAnnotations,
	})
	if err != nil {
		writeMappedError(w, err)
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=\""+result.Filename+"\"")
	w.Header().Set("Content-Type", result.MimeType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (s *HTTPServer) handleAttachmentUpload(w http.ResponseWriter, r *http.Request, planID string) {
	r.Body = http.MaxBytesReader(w, r.Body, attachments.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(attachments.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMappedError(w, attachments.ErrTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "multipart form with a file field is required", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "multipart form with a file field is required", nil)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		sniff := make([]byte, 512)
		n, _ := io.ReadFull(file, sniff)
		contentType = http.DetectContentType(sniff[:n])
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			writeMappedError(w, fmt.Errorf("rewind upload: %w", err))
			return
		}
	}

	path, err := s.service.UploadAttachment(r.Context(), planID, header.Filename, contentType, file, header.Size)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"path": path})
}

func (s *HTTPServer) handleAttachmentDownload(w http.ResponseWriter, r *http.Request, path string) {
	obj, err := s.service.OpenAttachment(r.Context(), path)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	defer obj.Body.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("attachment download interrupted")
	}
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = util.NewID("")
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", writer.status).
			Int64("duration_ms", time.Since(started).Milliseconds()).
			Msg("request")
	})
}

type requestIDKey struct{}

// RequestID returns the request ID stored by the middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeMappedError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		log.Error().Err(err).Str("code", code).Msg("request failed")
	}
	writeError(w, status, code, message, details)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) || errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := decodeBody(r, target); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return false
	}
	if err := validateBody(target); err != nil {
		writeMappedError(w, err)
		return false
	}
	return true
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func parseBoundedInt(value string, fallback, lower, upper int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return min(max(parsed, lower), upper)
}
