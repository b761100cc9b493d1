package auth

import "time"

// Employee is a back-office account allowed to use the review console.
type Employee struct {
	ID           string    `json:"id"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}

const (
	EmployeeStatusActive   = "ACTIVE"
	EmployeeStatusDisabled = "DISABLED"
)

// Directory resolves employee accounts for login and token authentication.
type Directory interface {
	FindByUsername(username string) (Employee, error)
	FindByID(id string) (Employee, error)
}
