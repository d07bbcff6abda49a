package models

import (
	"time"
)

type Tenant struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	Name      string    `json:"name" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

type CreateTenantRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}
