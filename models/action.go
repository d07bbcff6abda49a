package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const MaxActionsPerTenant = 100

// Action is unique per (tenant, name). ID is a monotonically increasing
// sequence and gives the insertion order used by List.
type Action struct {
	ID          uint64         `json:"id" gorm:"primaryKey;autoIncrement"`
	TenantID    string         `json:"-" gorm:"type:uuid;not null;uniqueIndex:idx_actions_tenant_name,priority:1"`
	Name        string         `json:"name" gorm:"not null;size:64;uniqueIndex:idx_actions_tenant_name,priority:2"`
	Description string         `json:"description"`
	WebhookURL  string         `json:"webhook_url" gorm:"not null"`
	JSONSchema  datatypes.JSON `json:"json_schema" gorm:"type:jsonb;not null"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (a *Action) Clone() *Action {
	c := *a
	c.JSONSchema = append(datatypes.JSON(nil), a.JSONSchema...)
	return &c
}

type CreateActionRequest struct {
	Name        string          `json:"name" validate:"required,max=64,action_name"`
	Description string          `json:"description" validate:"max=1024"`
	WebhookURL  string          `json:"webhook_url" validate:"required,url"`
	JSONSchema  json.RawMessage `json:"json_schema" validate:"required"`
}

// UpdateActionRequest carries a partial update; nil fields are left unchanged.
type UpdateActionRequest struct {
	Description *string         `json:"description" validate:"omitempty,max=1024"`
	WebhookURL  *string         `json:"webhook_url" validate:"omitempty,url"`
	JSONSchema  json.RawMessage `json:"json_schema"`
}

type ActionListResponse struct {
	Actions []*Action `json:"actions"`
	Total   int       `json:"total"`
}
