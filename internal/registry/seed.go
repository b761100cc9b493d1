package registry

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"sitedesk.org/internal/auth"
	"sitedesk.org/internal/ids"
)

// SeedDemo populates the registry with reference geography, a demo reviewer
// account and a handful of pending registrations. Used when the API runs
// without a database.
func SeedDemo(s *InMemory, reviewerPassword string) error {
	areas := []Area{
		{ID: 1, Name: "Gulshan East"},
		{ID: 2, Name: "Model Town"},
		{ID: 3, Name: "Canal View"},
	}
	for _, a := range areas {
		s.PutArea(a)
	}
	blocks := []Block{
		{ID: 1, AreaID: 1, Name: "Block A"},
		{ID: 2, AreaID: 1, Name: "Block B"},
		{ID: 3, AreaID: 1, Name: "Block C"},
		{ID: 4, AreaID: 2, Name: "Block 1"},
		{ID: 5, AreaID: 2, Name: "Block 2"},
		{ID: 6, AreaID: 3, Name: "Sector North"},
		{ID: 7, AreaID: 3, Name: "Sector South"},
	}
	for _, b := range blocks {
		s.PutBlock(b)
	}

	hash, err := auth.HashPassword(reviewerPassword)
	if err != nil {
		return fmt.Errorf("seed reviewer account: %w", err)
	}
	s.PutEmployee(auth.Employee{
		ID:           "emp-1",
		FullName:     "Demo Reviewer",
		Email:        "reviewer@sitedesk.org",
		Role:         "REVIEWER",
		Status:       auth.EmployeeStatusActive,
		PasswordHash: hash,
	})

	now := time.Now().UTC()
	lat, lng, acc := 31.5204, 74.3587, 12.5
	samples := []struct {
		houseNo, street string
		area            Area
		block           Block
		priority        string
		status          string
		age             time.Duration
	}{
		{"14-B", "Iqbal Road", areas[0], Block{ID: 1, Name: "Block A"}, PriorityHigh, StatusPendingReview, 72 * time.Hour},
		{"112", "Liberty Lane", areas[1], Block{ID: 4, Name: "Block 1"}, PriorityNormal, StatusPendingReview, 48 * time.Hour},
		{"7", "Canal Bank Road", areas[2], Block{ID: 6, Name: "Sector North"}, PriorityUrgent, StatusUnderReview, 24 * time.Hour},
	}
	for i, sm := range samples {
		siteID := uuid.NewString()
		owner := User{
			ID:           uuid.NewString(),
			FirstName:    "Resident",
			LastName:     fmt.Sprintf("%d", i+1),
			Email:        fmt.Sprintf("resident%d@example.com", i+1),
			PrimaryPhone: fmt.Sprintf("+92300%07d", i+1),
		}
		review := Review{
			ID:        ids.New(),
			SiteID:    siteID,
			Status:    sm.status,
			Priority:  sm.priority,
			CreatedAt: now.Add(-sm.age),
			Site: Site{
				ID:           siteID,
				HouseNo:      sm.houseNo,
				Street:       sm.street,
				Area:         sm.area,
				Block:        sm.block,
				PinLat:       &lat,
				PinLng:       &lng,
				PinAccuracyM: &acc,
				Documents: []Document{
					{ID: uuid.NewString(), Type: "OWNERSHIP_PROOF", FileURI: fmt.Sprintf("https://files.sitedesk.org/%s/deed.pdf", siteID)},
				},
				Memberships: []Membership{
					{ID: uuid.NewString(), Role: "OWNER", IsActive: true, User: owner},
				},
				CreatedBy: &owner,
			},
		}
		s.PutReview(review)
	}
	return nil
}
