package model

import (
	"time"
)

// Order lifecycle states
const (
	OrderStatusProcessing = "processing"
	OrderStatusCompleted  = "completed"
	OrderStatusFailed     = "failed"
)

// Confidence levels reported by the model for matched items
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Order represents one voice-note-to-quotation request and its outcome.
// An order is created in "processing" and mutated exactly once by the
// pipeline, to "completed" with results or "failed" with an error.
type Order struct {
	ID                uint      `json:"id" gorm:"primarykey"`
	CompanyID         string    `json:"company_id" gorm:"type:varchar(100);index;not null"`
	CompanyName       string    `json:"company_name" gorm:"type:varchar(255);not null"`
	AudioID           string    `json:"audio_id" gorm:"type:varchar(255);not null"`
	Status            string    `json:"status" gorm:"type:varchar(20);index;not null"`
	PromptVersionID   *uint     `json:"prompt_version_id,omitempty"`
	Transcript        string    `json:"transcript,omitempty" gorm:"type:text"`
	RawGeminiResponse string    `json:"raw_gemini_response,omitempty" gorm:"type:text"`
	Error             string    `json:"error,omitempty" gorm:"type:text"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// OrderItem is a catalog-matched line of a completed order. CatalogPrice is
// always re-derived from the live catalog at validation time; LLMPrice keeps
// the model-proposed price for audit.
type OrderItem struct {
	ID           uint    `json:"id" gorm:"primarykey"`
	OrderID      uint    `json:"order_id" gorm:"index;not null"`
	Name         string  `json:"name" gorm:"type:varchar(255);not null"`
	Size         string  `json:"size" gorm:"type:varchar(100)"`
	CatalogPrice float64 `json:"catalog_price"`
	LLMPrice     float64 `json:"llm_price"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit" gorm:"type:varchar(50)"`
	Confidence   string  `json:"confidence" gorm:"type:varchar(10)"`
	Notes        string  `json:"notes" gorm:"type:text"`
}

// UnmatchedItem is a phrase from the audio that could not be mapped to any
// catalog product.
type UnmatchedItem struct {
	ID      uint   `json:"id" gorm:"primarykey"`
	OrderID uint   `json:"order_id" gorm:"index;not null"`
	Heard   string `json:"heard" gorm:"type:text"`
	Reason  string `json:"reason" gorm:"type:text"`
}
