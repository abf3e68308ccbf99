package models

import (
	"fmt"

	"secrettime-backend/config"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels lists every table in dependency order.
func AllModels() []interface{} {
	return []interface{}{
		&Customer{},
		&Treatment{},
		&ImportRecord{},
		&CustomerTreatment{},
		&ImportStagingRow{},
		&Expense{},
	}
}

// Migrate creates or extends the schema, seeds the catalog and applies the
// additive data fixes. It never rewrites historical prices.
func Migrate(db *gorm.DB, policy config.Policy, catalog []config.CatalogEntry) error {
	log := config.GetLogger()

	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := SeedCatalog(db, policy, catalog); err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, method := range policy.ContactMethods {
			res := tx.Model(&Customer{}).
				Where("LOWER(contact_method) = LOWER(?) AND contact_method <> ?", method, method).
				Update("contact_method", method)
			if res.Error != nil {
				return fmt.Errorf("normalise contact method %s: %w", method, res.Error)
			}
			if res.RowsAffected > 0 {
				log.WithField("rows", res.RowsAffected).Infof("normalised contact method %s", method)
			}
		}

		// Retouches used to be booked as a zero-price single removal.
		if policy.LegacyRetouchSource != "" {
			res := tx.Exec(`
				UPDATE customer_treatments
				SET treatment_id = (SELECT id FROM treatments WHERE name = ?),
				    remaining_retouch_count = 0
				WHERE price = 0
				AND treatment_id = (SELECT id FROM treatments WHERE name = ?)
			`, policy.RetouchTreatment, policy.LegacyRetouchSource)
			if res.Error != nil {
				return fmt.Errorf("migrate legacy retouch rows: %w", res.Error)
			}
			if res.RowsAffected > 0 {
				log.WithField("rows", res.RowsAffected).Info("moved legacy retouch rows")
			}
		}
		return nil
	})
}

// SeedCatalog inserts catalog entries missing from the treatments table and
// sets the capability flags named by the policy.
func SeedCatalog(db *gorm.DB, policy config.Policy, catalog []config.CatalogEntry) error {
	if len(catalog) == 0 {
		return nil
	}
	treatments := make([]Treatment, 0, len(catalog))
	for i, e := range catalog {
		treatments = append(treatments, Treatment{
			Name:         e.Name,
			PeakPrice:    e.PeakPrice,
			NonPeakPrice: e.NonPeakPrice,
			IsCombo:      e.IsCombo,
			SortOrder:    i + 1,
		})
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&treatments).Error; err != nil {
			return fmt.Errorf("seed treatments: %w", err)
		}
		if err := tx.Model(&Treatment{}).Where("name = ?", policy.NeckTreatment).
			Update("can_add_neck", true).Error; err != nil {
			return fmt.Errorf("flag add-on treatment: %w", err)
		}
		if err := tx.Model(&Treatment{}).Where("name = ?", policy.PackageTreatment).
			Update("has_remaining_sessions", true).Error; err != nil {
			return fmt.Errorf("flag package treatment: %w", err)
		}
		return nil
	})
}
