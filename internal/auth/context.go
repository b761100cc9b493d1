package auth

import (
	"context"
	"strings"
)

type ctxKey string

const (
	employeeIDKey ctxKey = "auth_employee_id"
	roleKey       ctxKey = "auth_role"
)

// ContextWithEmployee stores the authenticated employee identity in the context.
func ContextWithEmployee(ctx context.Context, employeeID, role string) context.Context {
	ctx = context.WithValue(ctx, employeeIDKey, strings.TrimSpace(employeeID))
	role = strings.TrimSpace(strings.ToUpper(role))
	if role != "" {
		ctx = context.WithValue(ctx, roleKey, role)
	}
	return ctx
}

// EmployeeIDFromContext extracts the authenticated employee ID from context.
func EmployeeIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(employeeIDKey).(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// RoleFromContext returns the employee role stored in context.
func RoleFromContext(ctx context.Context) string {
	v, ok := ctx.Value(roleKey).(string)
	if !ok {
		return ""
	}
	return v
}

// HasRole checks whether the context carries the specified role.
func HasRole(ctx context.Context, role string) bool {
	role = strings.TrimSpace(strings.ToUpper(role))
	if role == "" {
		return false
	}
	return RoleFromContext(ctx) == role
}
