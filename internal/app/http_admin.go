package app

import (
	"net/http"

	"atomdeck/api/internal/rbac"
)

func (s *HTTPServer) routeAdmin(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	if !s.allow(w, r, session, rbac.ActionAdmin) {
		return
	}

	switch {
	case len(parts) == 1 && parts[0] == "users" && r.Method == http.MethodGet:
		users, err := s.service.ListUsers(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": users})

	case len(parts) == 3 && parts[0] == "users" && parts[2] == "role" && r.Method == http.MethodPut:
		var body struct {
			Role string `json:"role"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.SetUserRole(r.Context(), session, parts[1], body.Role)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)

	case len(parts) == 1 && parts[0] == "reindex" && r.Method == http.MethodPost:
		if !s.service.Reindex(r.Context()) {
			writeError(w, http.StatusServiceUnavailable, "SEARCH_DISABLED", "Search index is not configured", nil)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})

	case len(parts) == 1 && parts[0] == "bridge" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, s.service.BridgeStats())

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}
