package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecordKind classifies a CustomerTreatment row. A row is exactly one of these.
type RecordKind string

const (
	KindPlain           RecordKind = "plain"
	KindPackagePurchase RecordKind = "package_purchase"
	KindPackageSession  RecordKind = "package_session"
	KindRetouch         RecordKind = "retouch"
)

// CustomerTreatment is one visit: a treatment given to a customer on a day.
type CustomerTreatment struct {
	ID            uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	CustomerID    uuid.UUID `gorm:"type:char(36);index;not null" json:"customerId"`
	TreatmentID   uuid.UUID `gorm:"type:char(36);index;not null" json:"treatmentId"`
	TreatmentDate time.Time `gorm:"not null;index:idx_treatment_date" json:"treatmentDate"`

	IsPeak        bool `gorm:"not null;default:false" json:"isPeak"`
	NeckTreatment bool `gorm:"not null;default:false" json:"neckTreatment"`

	// Set on the purchase and on every session drawn from the same package.
	PackageID         *int `gorm:"index" json:"packageId,omitempty"`
	RemainingSessions int  `gorm:"not null" json:"remainingSessions"`

	Price decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`

	RetouchParentID       *uuid.UUID `gorm:"type:char(36);index" json:"retouchParentId,omitempty"`
	RemainingRetouchCount int        `gorm:"not null" json:"remainingRetouchCount"`

	ImportID *uuid.UUID `gorm:"type:char(36);index" json:"importId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`

	Retouches []CustomerTreatment `gorm:"foreignKey:RetouchParentID;constraint:OnDelete:SET NULL" json:"-"`
}

func (ct *CustomerTreatment) BeforeCreate(tx *gorm.DB) (err error) {
	if ct.ID == uuid.Nil {
		ct.ID = uuid.New()
	}
	return
}

func (ct *CustomerTreatment) Kind() RecordKind {
	switch {
	case ct.RetouchParentID != nil:
		return KindRetouch
	case ct.PackageID != nil && ct.Price.IsPositive():
		return KindPackagePurchase
	case ct.PackageID != nil:
		return KindPackageSession
	default:
		return KindPlain
	}
}
