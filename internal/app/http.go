package app

import (
	"bufio"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"atomdeck/api/internal/assets"
	"atomdeck/api/internal/auth"
	"atomdeck/api/internal/export"
	"atomdeck/api/internal/operation"
	"atomdeck/api/internal/rbac"
	"atomdeck/api/internal/search"
	"go.uber.org/zap"
)

// wsHub serves live operation streams for one presentation.
type wsHub interface {
	ServeWS(w http.ResponseWriter, r *http.Request, presentationID, userID string)
}

type HTTPServer struct {
	service    *Service
	corsOrigin string
	hub        wsHub
	log        *zap.Logger
}

type ServerOption func(*HTTPServer)

func WithHub(hub wsHub) ServerOption {
	return func(s *HTTPServer) { s.hub = hub }
}

func NewHTTPServer(service *Service, corsOrigin string, opts ...ServerOption) *HTTPServer {
	s := &HTTPServer{service: service, corsOrigin: corsOrigin, log: service.log.Named("http")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

// forbid writes a 403 Forbidden response and logs the denial
func (s *HTTPServer) forbid(w http.ResponseWriter, r *http.Request, session Session, action rbac.Action) {
	s.log.Info("forbidden",
		zap.String("request_id", requestID(r.Context())),
		zap.String("user_id", session.UserID),
		zap.String("role", session.Role),
		zap.String("action", string(action)),
	)
	writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
}

func (s *HTTPServer) allow(w http.ResponseWriter, r *http.Request, session Session, action rbac.Action) bool {
	if s.service.Can(session.Role, action) {
		return true
	}
	s.forbid(w, r, session, action)
	return false
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, s.service.Health())
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

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/login" {
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.Login(r.Context(), body.Name)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		session, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "userName": session.UserName, "userId": session.UserID, "role": session.Role})
		return
	}

	parts := splitPath(r.URL.Path)

	// The suggestion service authenticates with its bridge key instead of a
	// user session.
	if key := strings.TrimSpace(r.Header.Get("X-Bridge-Key")); key != "" {
		if r.Method == http.MethodPost && len(parts) == 4 && parts[0] == "api" && parts[1] == "presentations" && parts[3] == "suggestions" {
			if err := s.service.CheckBridgeKey(key); err != nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
				return
			}
			s.handleSuggestion(w, r, parts[2])
			return
		}
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		if !s.allow(w, r, session, rbac.ActionRead) {
			return
		}
		query := r.URL.Query()
		limit, ok := intParam(w, query.Get("limit"), "limit")
		if !ok {
			return
		}
		offset, ok := intParam(w, query.Get("offset"), "offset")
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, s.service.Search(search.Query{
			Text:   query.Get("q"),
			UserID: strings.TrimSpace(query.Get("userId")),
			Limit:  limit,
			Offset: offset,
		}))
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/presentations" {
		if !s.allow(w, r, session, rbac.ActionRead) {
			return
		}
		query := r.URL.Query()
		limit, ok := intParam(w, query.Get("limit"), "limit")
		if !ok {
			return
		}
		offset, ok := intParam(w, query.Get("offset"), "offset")
		if !ok {
			return
		}
		items, err := s.service.ListPresentations(r.Context(), strings.TrimSpace(query.Get("userId")), limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list presentations", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"presentations": items})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/presentations" {
		if !s.allow(w, r, session, rbac.ActionEdit) {
			return
		}
		var body CreatePresentationInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		doc, err := s.service.CreatePresentation(r.Context(), session, body)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, doc)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/import" {
		if !s.allow(w, r, session, rbac.ActionEdit) {
			return
		}
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "Import body is too large", nil)
			return
		}
		doc, err := s.service.Import(r.Context(), session, raw)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, doc)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/assets" {
		if !s.allow(w, r, session, rbac.ActionEdit) {
			return
		}
		body := http.MaxBytesReader(w, r.Body, assets.MaxUploadBytes+1)
		defer body.Close()
		asset, err := s.service.UploadAsset(r.Context(), r.URL.Query().Get("presentationId"), r.Header.Get("Content-Type"), body, r.ContentLength)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, asset)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/operations/recent" {
		if !s.allow(w, r, session, rbac.ActionRead) {
			return
		}
		limit, ok := intParam(w, r.URL.Query().Get("limit"), "limit")
		if !ok {
			return
		}
		items, err := s.service.RecentOperations(r.Context(), strings.TrimSpace(r.URL.Query().Get("userId")), limit)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"operations": items})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/operations/stats" {
		if !s.allow(w, r, session, rbac.ActionRead) {
			return
		}
		stats, err := s.service.OperationStats(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/analytics/usage" {
		if !s.allow(w, r, session, rbac.ActionRead) {
			return
		}
		days, ok := intParam(w, r.URL.Query().Get("days"), "days")
		if !ok {
			return
		}
		usage, err := s.service.UsageAnalytics(r.Context(), days)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, usage)
		return
	}

	if r.URL.Path == "/api/user/preferences" {
		s.handlePreferences(w, r, session)
		return
	}

	if len(parts) >= 2 && parts[0] == "api" && parts[1] == "admin" {
		s.routeAdmin(w, r, session, parts[2:])
		return
	}

	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "presentations" {
		s.routePresentation(w, r, session, parts[2], parts[3:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) routePresentation(w http.ResponseWriter, r *http.Request, session Session, id string, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			if !s.allow(w, r, session, rbac.ActionRead) {
				return
			}
			doc, err := s.service.GetPresentation(r.Context(), id)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, doc)
		case http.MethodPut:
			if !s.allow(w, r, session, rbac.ActionEdit) {
				return
			}
			raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
			if err != nil {
				writeError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "Presentation body is too large", nil)
				return
			}
			doc, err := s.service.UpdatePresentation(r.Context(), id, raw)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, doc)
		case http.MethodDelete:
			if !s.allow(w, r, session, rbac.ActionEdit) {
				return
			}
			deleted, err := s.service.DeletePresentation(r.Context(), id)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "deleted": deleted})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	switch {
	case len(rest) == 1 && rest[0] == "operations" && r.Method == http.MethodPost:
		if !s.allow(w, r, session, rbac.ActionEdit) {
			return
		}
		var op operation.AtomicOperation
		if err := decodeBody(r, &op); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		res, err := s.service.ExecuteOperation(r.Context(), session, id, op)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)

	case len(rest) == 1 && rest[0] == "undo" && r.Method == http.MethodPost:
		if !s.allow(w, r, session, rbac.ActionEdit) {
			return
		}
		payload, err := s.service.Undo(r.Context(), id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)

	case len(rest) == 1 && rest[0] == "redo" && r.Method == http.MethodPost:
		if !s.allow(w, r, session, rbac.ActionEdit) {
			return
		}
		payload, err := s.service.Redo(r.Context(), id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)

	case len(rest) == 1 && rest[0] == "history" && r.Method == http.MethodGet:
		if !s.allow(w, r, session, rbac.ActionRead) {
			return
		}
		info, err := s.service.History(r.Context(), id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, info)

	case len(rest) == 1 && rest[0] == "suggestions" && r.Method == http.MethodPost:
		if !s.allow(w, r, session, rbac.ActionSuggest) {
			return
		}
		s.handleSuggestion(w, r, id)

	case len(rest) == 1 && rest[0] == "save" && r.Method == http.MethodPost:
		if !s.allow(w, r, session, rbac.ActionEdit) {
			return
		}
		payload, err := s.service.Save(r.Context(), id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)

	case len(rest) == 1 && rest[0] == "ws" && r.Method == http.MethodGet:
		if !s.allow(w, r, session, rbac.ActionRead) {
			return
		}
		if s.hub == nil {
			writeError(w, http.StatusServiceUnavailable, "LIVE_DISABLED", "Live updates are not enabled", nil)
			return
		}
		if _, err := s.service.GetPresentation(r.Context(), id); err != nil {
			s.fail(w, r, err)
			return
		}
		s.hub.ServeWS(w, r, id, session.UserID)

	case len(rest) == 1 && rest[0] == "export" && r.Method == http.MethodGet:
		if !s.allow(w, r, session, rbac.ActionExport) {
			return
		}
		result, err := s.service.Export(r.Context(), id, r.URL.Query().Get("format"))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Type", result.MimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Data)

	case len(rest) == 1 && rest[0] == "checkpoints":
		s.handleCheckpoints(w, r, session, id)

	case len(rest) == 3 && rest[0] == "checkpoints" && rest[2] == "restore" && r.Method == http.MethodPost:
		if !s.allow(w, r, session, rbac.ActionEdit) {
			return
		}
		doc, err := s.service.RestoreCheckpoint(r.Context(), id, rest[1])
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleSuggestion(w http.ResponseWriter, r *http.Request, presentationID string) {
	var op operation.AtomicOperation
	if err := decodeBody(r, &op); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	res, err := s.service.ApplySuggestion(r.Context(), presentationID, op)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleCheckpoints(w http.ResponseWriter, r *http.Request, session Session, presentationID string) {
	switch r.Method {
	case http.MethodGet:
		if !s.allow(w, r, session, rbac.ActionRead) {
			return
		}
		limit, ok := intParam(w, r.URL.Query().Get("limit"), "limit")
		if !ok {
			return
		}
		items, err := s.service.ListCheckpoints(r.Context(), presentationID, limit)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"checkpoints": items})
	case http.MethodPost:
		if !s.allow(w, r, session, rbac.ActionEdit) {
			return
		}
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		info, err := s.service.CreateCheckpoint(r.Context(), session, presentationID, body.Name)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, info)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handlePreferences(w http.ResponseWriter, r *http.Request, session Session) {
	switch r.Method {
	case http.MethodGet:
		prefs, err := s.service.Preferences(r.Context(), session.UserID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, prefs)
	case http.MethodPost:
		var body map[string]any
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		prefs, err := s.service.SavePreferences(r.Context(), session.UserID, body)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "preferences": prefs})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

// fail maps err to a response and logs server-side failures.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("request_id", requestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return Session{}, false
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", id)

		next.ServeHTTP(writer, r)

		s.log.Info("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", writer.status),
			zap.Int64("duration_ms", time.Since(started).Milliseconds()),
		)
	})
}

const maxDocumentBytes = 20 << 20

type requestIDKey struct{}

func requestID(ctx context.Context) string {
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

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, X-Bridge-Key")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
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

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// websocket handshakes, so the token query parameter is accepted as well.
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return strings.TrimSpace(r.URL.Query().Get("token"))
	}
	return ""
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// intParam parses an optional integer query value; absent means zero.
func intParam(w http.ResponseWriter, raw, name string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", name+" must be an integer", nil)
		return 0, false
	}
	return v, true
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}

	var validationErr *operation.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", validationErr.Error(), validationErr.Report
	}
	var notFoundErr *operation.NotFoundError
	if errors.As(err, &notFoundErr) {
		return http.StatusNotFound, "NOT_FOUND", notFoundErr.Error(), map[string]any{"target": notFoundErr.Target}
	}
	var unsupportedErr *operation.UnsupportedOperationError
	if errors.As(err, &unsupportedErr) {
		return http.StatusBadRequest, "UNSUPPORTED_OPERATION", unsupportedErr.Error(), map[string]any{"op": unsupportedErr.Op, "type": unsupportedErr.Type}
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE", "Request body is too large", nil
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken), errors.Is(err, auth.ErrBridgeKey):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	case errors.Is(err, assets.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", err.Error(), nil
	case errors.Is(err, assets.ErrEmptyUpload):
		return http.StatusUnprocessableEntity, "EMPTY_UPLOAD", err.Error(), nil
	case errors.Is(err, assets.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE", err.Error(), nil
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest, "UNSUPPORTED_FORMAT", err.Error(), nil
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return http.StatusNotImplemented, "EXPORT_UNAVAILABLE", err.Error(), nil
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT", "Request timed out", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Internal server error", nil
}
