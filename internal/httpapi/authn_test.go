package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sitedesk.org/internal/auth"
	"sitedesk.org/internal/registry"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "valid", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "missing header", header: "", wantErr: true},
		{name: "wrong scheme", header: "Basic dXNlcg==", wantErr: true},
		{name: "empty token", header: "Bearer   ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractBearerToken(tt.header)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("token = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsPublicPath(t *testing.T) {
	if !isPublicPath("/employee/login") || !isPublicPath("/healthz") {
		t.Fatal("login and health endpoints must be public")
	}
	if isPublicPath("/employee/reviews/pending") {
		t.Fatal("review endpoints must require auth")
	}
}

func TestWithAuthRejectsDisabledAccount(t *testing.T) {
	t.Setenv("SITEDESK_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()
	t.Cleanup(auth.ResetSecretForTests)

	reg := registry.NewInMemory()
	reg.PutEmployee(auth.Employee{
		ID:     "emp-off",
		Email:  "off@example.com",
		Role:   "REVIEWER",
		Status: auth.EmployeeStatusDisabled,
	})

	api := New(ReadyProbe{}, "test", reg, reg)
	h := api.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("disabled account must not reach the handler")
	}))

	token, err := auth.GenerateToken("emp-off", "REVIEWER", time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/employee/reviews/pending", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Fatal("WWW-Authenticate header missing")
	}
}

func TestWithAuthPopulatesEmployeeContext(t *testing.T) {
	t.Setenv("SITEDESK_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()
	t.Cleanup(auth.ResetSecretForTests)

	reg := registry.NewInMemory()
	reg.PutEmployee(auth.Employee{
		ID:     "emp-1",
		Email:  "reviewer@example.com",
		Role:   "REVIEWER",
		Status: auth.EmployeeStatusActive,
	})

	api := New(ReadyProbe{}, "test", reg, reg)
	var gotID, gotRole string
	h := api.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = auth.EmployeeIDFromContext(r.Context())
		gotRole = auth.RoleFromContext(r.Context())
	}))

	token, err := auth.GenerateToken("emp-1", "REVIEWER", time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/employee/reviews/pending", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotID != "emp-1" || gotRole != "REVIEWER" {
		t.Fatalf("context employee = %q/%q", gotID, gotRole)
	}
}
