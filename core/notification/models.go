package notification

import (
	"time"

	"github.com/trezcool/mahudhurio/core"
)

type Type string

const (
	TypeAttendance Type = "attendance"
	TypeClass      Type = "class"
	TypeStudent    Type = "student"
	TypeFee        Type = "fee"
	TypeUser       Type = "user"
	TypeReport     Type = "report"
	TypeSystem     Type = "system"
)

var Types = []Type{TypeAttendance, TypeClass, TypeStudent, TypeFee, TypeUser, TypeReport, TypeSystem}

func (t Type) Valid() bool {
	switch t {
	case TypeAttendance, TypeClass, TypeStudent, TypeFee, TypeUser, TypeReport, TypeSystem:
		return true
	}
	return false
}

// Actions
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionDeleted   = "deleted"
	ActionTaken     = "taken"
	ActionUpgraded  = "upgraded"
	ActionCompleted = "completed"
	ActionApproved  = "approved"
	ActionPending   = "pending"
	ActionGenerated = "generated"
)

// Template describes an event worth notifying about.
type Template struct {
	Title      string `json:"title"`
	Message    string `json:"message"`
	Type       Type   `json:"type"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	ActorName  string `json:"actor_name,omitempty"`
	Action     string `json:"action,omitempty"`
}

func (t Template) Validate() error {
	if core.CleanString(t.Title) == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "title", Error: "this field is required"})
	}
	if core.CleanString(t.Message) == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "message", Error: "this field is required"})
	}
	if !t.Type.Valid() {
		return core.NewValidationError(nil, core.FieldError{Field: "type", Error: "invalid notification type"})
	}
	return nil
}

type Notification struct {
	ID         string    `json:"id" db:"id"`
	Title      string    `json:"title" db:"title"`
	Message    string    `json:"message" db:"message"`
	Type       Type      `json:"type" db:"type"`
	EntityType string    `json:"entity_type" db:"entity_type"`
	EntityID   string    `json:"entity_id" db:"entity_id"`
	ActorName  string    `json:"actor_name" db:"actor_name"`
	Action     string    `json:"action" db:"action"`
	IsRead     bool      `json:"is_read" db:"is_read"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"` // UTC
}

// FromTemplate builds an unread Notification out of a Template.
func FromTemplate(tmpl Template, now time.Time) Notification {
	return Notification{
		Title:      core.CleanString(tmpl.Title),
		Message:    core.CleanString(tmpl.Message),
		Type:       tmpl.Type,
		EntityType: tmpl.EntityType,
		EntityID:   tmpl.EntityID,
		ActorName:  tmpl.ActorName,
		Action:     tmpl.Action,
		CreatedAt:  now.UTC(),
	}
}

type QueryFilter struct {
	Unread bool `query:"unread"`
	Type   Type `query:"type"`
}

// Recipient is someone who opted in to receive notifications by email.
type Recipient struct {
	Name  string
	Email string
}
