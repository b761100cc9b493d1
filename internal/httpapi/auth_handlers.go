package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"sitedesk.org/internal/audit"
	"sitedesk.org/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginEmployee struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

type loginData struct {
	Token    string        `json:"token"`
	Role     string        `json:"role"`
	Employee loginEmployee `json:"employee"`
}

const sessionTTL = 12 * time.Hour

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.directory == nil {
		writeError(w, r, http.StatusServiceUnavailable, "login unavailable")
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "username and password are required")
		return
	}

	employee, err := a.directory.FindByUsername(username)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "login failed")
		return
	}
	if employee.Status != auth.EmployeeStatusActive {
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := auth.VerifyPassword(employee.PasswordHash, req.Password); err != nil {
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateToken(employee.ID, employee.Role, sessionTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}

	_ = audit.LogEvent(r.Context(), "employee.login", map[string]any{
		"employee_id": employee.ID,
		"role":        employee.Role,
	})

	writeData(w, http.StatusOK, loginData{
		Token: token,
		Role:  employee.Role,
		Employee: loginEmployee{
			ID:       employee.ID,
			FullName: employee.FullName,
			Email:    employee.Email,
			Role:     employee.Role,
			Status:   employee.Status,
		},
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	// Tokens are stateless; logout only leaves an audit trail. The console
	// discards its persisted session.
	_ = audit.LogEvent(r.Context(), "employee.logout", nil)
	writeData(w, http.StatusOK, map[string]any{"message": "logged out"})
}
