package config

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CatalogEntry is one seed row of the treatment catalog.
type CatalogEntry struct {
	Name         string          `mapstructure:"name" json:"name"`
	PeakPrice    decimal.Decimal `mapstructure:"peak_price" json:"peakPrice"`
	NonPeakPrice decimal.Decimal `mapstructure:"non_peak_price" json:"nonPeakPrice"`
	IsCombo      bool            `mapstructure:"is_combo" json:"isCombo"`
}

// Policy holds the named business constants the rule engine works from.
type Policy struct {
	// Add-on surcharge and the only treatment it legitimately applies to.
	NeckSurcharge decimal.Decimal `mapstructure:"neck_surcharge"`
	NeckTreatment string          `mapstructure:"neck_treatment"`

	// Prepaid multi-session package.
	PackageTreatment string `mapstructure:"package_treatment"`
	PackageSessions  int    `mapstructure:"package_sessions"`

	// Free follow-up ("retouch") rules.
	RetouchTreatment    string   `mapstructure:"retouch_treatment"`
	RetouchSources      []string `mapstructure:"retouch_sources"`
	RetouchWindowDays   int      `mapstructure:"retouch_window_days"`
	LegacyRetouchSource string   `mapstructure:"legacy_retouch_source"`

	// When set, price matching reports only the first candidate.
	StrictSingleMatch bool `mapstructure:"strict_single_match"`

	ContactMethods    []string `mapstructure:"contact_methods"`
	ExpenseCategories []string `mapstructure:"expense_categories"`
}

const (
	einxel        = "Einxel Plus膠原修復針"
	einxelPackage = "組合療程：Einxel Plus膠原修復針 6次包套"
	retouch       = "補脫療程"
	singleRemoval = "熱能氣化 - 單次脫墨/疣"
)

func price(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// DefaultCatalog is the studio's treatment list, in display order.
func DefaultCatalog() []CatalogEntry {
	return []CatalogEntry{
		{Name: "超聲波注水護理", PeakPrice: price(580), NonPeakPrice: price(522)},
		{Name: "Exuviance果酸煥膚", PeakPrice: price(650), NonPeakPrice: price(585)},
		{Name: "24K純金箔排毒煥膚", PeakPrice: price(720), NonPeakPrice: price(648)},
		{Name: "等離子抗菌消炎細胞機", PeakPrice: price(880), NonPeakPrice: price(792)},
		{Name: "PULXE電脈衝緊緻水光槍", PeakPrice: price(780), NonPeakPrice: price(702)},
		{Name: "韓國幹細胞嬰兒針", PeakPrice: price(980), NonPeakPrice: price(882)},
		{Name: einxel, PeakPrice: price(1880), NonPeakPrice: price(1680)},
		{Name: "組合療程：Exuviance果酸煥膚 + 等離子抗菌消炎細胞機", PeakPrice: price(1071), NonPeakPrice: price(963), IsCombo: true},
		{Name: "組合療程：韓國幹細胞嬰兒針 + 等離子抗菌消炎細胞機", PeakPrice: price(1395), NonPeakPrice: price(1255), IsCombo: true},
		{Name: einxelPackage, PeakPrice: price(9926), NonPeakPrice: price(9926), IsCombo: true},
		{Name: singleRemoval, PeakPrice: price(0), NonPeakPrice: price(0)},
		{Name: "熱能氣化 - 10粒", PeakPrice: price(1600), NonPeakPrice: price(1600)},
		{Name: "熱能氣化 - 20粒", PeakPrice: price(1800), NonPeakPrice: price(1800)},
		{Name: "熱能氣化 - 40粒", PeakPrice: price(2800), NonPeakPrice: price(2800)},
		{Name: "熱能氣化 - 任脫 3800", PeakPrice: price(3800), NonPeakPrice: price(3800)},
		{Name: "熱能氣化 - 任脫 4800", PeakPrice: price(4800), NonPeakPrice: price(4800)},
		{Name: retouch, PeakPrice: price(0), NonPeakPrice: price(0)},
	}
}

// DefaultPolicy returns the rules the studio has always run with.
func DefaultPolicy() Policy {
	return Policy{
		NeckSurcharge:    price(300),
		NeckTreatment:    einxel,
		PackageTreatment: einxelPackage,
		PackageSessions:  6,
		RetouchTreatment: retouch,
		RetouchSources: []string{
			"熱能氣化 - 10粒",
			"熱能氣化 - 20粒",
			"熱能氣化 - 40粒",
			"熱能氣化 - 任脫 3800",
			"熱能氣化 - 任脫 4800",
		},
		RetouchWindowDays:   180,
		LegacyRetouchSource: singleRemoval,
		ContactMethods:      []string{"WhatsApp", "Instagram", "Facebook", "Phone"},
		ExpenseCategories:   []string{"房租", "水電費", "物料採購", "設備維護", "行銷費用", "其他"},
	}
}

// IsRetouchSource reports whether a paid session of the named treatment earns a retouch.
func (p Policy) IsRetouchSource(name string) bool {
	for _, n := range p.RetouchSources {
		if n == name {
			return true
		}
	}
	return false
}

// NormalizeContactMethod maps free-form input onto the configured vocabulary,
// ignoring case ("Whatsapp" becomes "WhatsApp"). ok is false for unknown methods.
func (p Policy) NormalizeContactMethod(method string) (string, bool) {
	method = strings.TrimSpace(method)
	for _, m := range p.ContactMethods {
		if strings.EqualFold(m, method) {
			return m, true
		}
	}
	return method, false
}

// ValidExpenseCategory reports whether category is in the configured vocabulary.
func (p Policy) ValidExpenseCategory(category string) bool {
	for _, c := range p.ExpenseCategories {
		if c == category {
			return true
		}
	}
	return false
}
