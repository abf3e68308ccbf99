package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Treatment struct {
	ID           uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	Name         string          `gorm:"not null;uniqueIndex" json:"name"`
	PeakPrice    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"peakPrice"`
	NonPeakPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"nonPeakPrice"`
	IsCombo      bool            `gorm:"not null;default:false" json:"isCombo"`

	CanAddNeck           bool `gorm:"default:false" json:"canAddNeck"`
	HasRemainingSessions bool `gorm:"default:false" json:"hasRemainingSessions"`

	// Position in the seed catalog; keeps matching order deterministic.
	SortOrder int `gorm:"not null;default:0" json:"sortOrder"`

	Records []CustomerTreatment `gorm:"foreignKey:TreatmentID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (t *Treatment) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}
