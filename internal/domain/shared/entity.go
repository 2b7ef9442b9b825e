package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is anything in the ledger with its own identity
type Entity interface {
	GetID() uuid.UUID
}

// BaseEntity carries identity and audit timestamps
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// Touch stamps UpdatedAt with the current UTC time
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}

// NewBaseEntity assigns a fresh ID; both timestamps share one instant
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}
