package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ImportStatus string

const (
	ImportPending ImportStatus = "pending"
	ImportSuccess ImportStatus = "success"
	ImportFailed  ImportStatus = "failed"
)

// ImportRecord audits one bulk-import batch.
type ImportRecord struct {
	ID           uuid.UUID    `gorm:"type:char(36);primaryKey" json:"id"`
	ImportDate   time.Time    `gorm:"not null;index" json:"importDate"`
	RecordCount  int          `gorm:"not null" json:"recordCount"`
	Status       ImportStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	ErrorMessage string       `gorm:"type:text" json:"errorMessage,omitempty"`

	Rows        []CustomerTreatment `gorm:"foreignKey:ImportID;constraint:OnDelete:CASCADE" json:"-"`
	StagingRows []ImportStagingRow  `gorm:"foreignKey:ImportID;constraint:OnDelete:CASCADE" json:"-"`
}

func (r *ImportRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

// ImportStagingRow holds a parsed import line until the whole batch commits.
type ImportStagingRow struct {
	ID            uint            `gorm:"primaryKey" json:"-"`
	ImportID      uuid.UUID       `gorm:"type:char(36);index;not null" json:"importId"`
	LineNo        int             `gorm:"not null" json:"lineNo"`
	TreatmentDate time.Time       `gorm:"not null" json:"treatmentDate"`
	Name          string          `gorm:"not null" json:"name"`
	ContactMethod string          `gorm:"not null" json:"contactMethod"`
	Price         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
}
