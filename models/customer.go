package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Customer struct {
	ID uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`

	// Name already carries the disambiguation mark, e.g. "Amy(2)".
	Name          string `gorm:"not null;index:idx_customer_name" json:"name"`
	ContactMethod string `gorm:"not null" json:"contactMethod"`
	UniqueMark    string `gorm:"not null;default:''" json:"uniqueMark"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Treatments []CustomerTreatment `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"-"`
}

func (c *Customer) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}
