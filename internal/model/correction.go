package model

import (
	"time"
)

// Correction types
const (
	CorrectionTypeTeachTerm  = "teach_term"
	CorrectionTypeWrongMatch = "wrong_match"
	CorrectionTypeManualTerm = "manual_term"
)

// Correction statuses. Applied and rejected are terminal.
const (
	CorrectionStatusPending  = "pending"
	CorrectionStatusApplied  = "applied"
	CorrectionStatusRejected = "rejected"
)

// Correction is an admin-submitted terminology fact (term heard, intended
// meaning) waiting to be folded into a new prompt version. Corrections are
// never deleted; once applied they carry a back-reference to the version
// they were merged into.
type Correction struct {
	ID                 uint      `json:"id" gorm:"primarykey"`
	OrderID            *uint     `json:"order_id,omitempty" gorm:"index"`
	Type               string    `json:"type" gorm:"type:varchar(20);not null"`
	TermHeard          string    `json:"term_heard" gorm:"type:text;not null"`
	TermMeaning        string    `json:"term_meaning" gorm:"type:text;not null"`
	CompanyID          string    `json:"company_id,omitempty" gorm:"type:varchar(100)"`
	Status             string    `json:"status" gorm:"type:varchar(20);index;not null"`
	AppliedToVersionID *uint     `json:"applied_to_version_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
