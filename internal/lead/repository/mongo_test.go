package repository

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"prospect-platform/backend/internal/lead/domain"
)

func TestDocToDomain(t *testing.T) {
	oid := primitive.NewObjectID()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l := docToDomain(&leadDoc{
		ID:             oid,
		ListedByUserID: "owner-1",
		UserID:         "user-1",
		PropertyID:     "prop-1",
		Status:         "active",
		CreatedAt:      created,
		UpdatedAt:      created,
	})
	if l.ID != oid.Hex() {
		t.Errorf("ID = %q, want %q", l.ID, oid.Hex())
	}
	if l.Status != domain.StatusActive {
		t.Errorf("Status = %q, want active", l.Status)
	}
	if l.ListedByUserID != "owner-1" || l.UserID != "user-1" || l.PropertyID != "prop-1" {
		t.Errorf("ids = %q/%q/%q", l.ListedByUserID, l.UserID, l.PropertyID)
	}
	if !l.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", l.CreatedAt, created)
	}
}
