package services

import (
	"context"
	"errors"
	"testing"

	"secrettime-backend/config"
	"secrettime-backend/models"

	"github.com/shopspring/decimal"
)

func TestRecordPeakScenario(t *testing.T) {
	svc, _ := newTestServices(t)

	res := mustRecord(t, svc, visit("Amy", "2024-03-01", 1880))
	if res.Treatment.Name != einxelName {
		t.Fatalf("treatment = %s", res.Treatment.Name)
	}
	if !res.Record.IsPeak || res.Record.NeckTreatment {
		t.Fatalf("1880: peak=%v neck=%v, want peak without add-on", res.Record.IsPeak, res.Record.NeckTreatment)
	}
	if res.Kind != models.KindPlain || !res.CustomerCreated {
		t.Fatalf("kind=%s created=%v", res.Kind, res.CustomerCreated)
	}
	if res.Record.RemainingRetouchCount != 1 {
		t.Fatalf("retouch credit = %d, want 1", res.Record.RemainingRetouchCount)
	}

	customerID := res.Customer.ID
	neck := mustRecord(t, svc, RecordInput{CustomerID: &customerID, TreatmentDate: day("2024-03-08"), Price: money(2180)})
	if !neck.Record.NeckTreatment || !neck.Record.IsPeak || neck.CustomerCreated {
		t.Fatalf("2180: %+v", neck.Record)
	}
}

func TestRecordRejectsInconsistentInput(t *testing.T) {
	svc, db := newTestServices(t, func(c *config.Config) {
		c.Catalog = append(c.Catalog, config.CatalogEntry{
			Name:         "Test Facial",
			PeakPrice:    decimal.NewFromInt(580),
			NonPeakPrice: decimal.NewFromInt(500),
		})
	})
	ctx := context.Background()
	peak, offPeak := true, false

	tests := []struct {
		name string
		in   RecordInput
		want error
	}{
		{name: "no match", in: visit("Amy", "2024-03-01", 12345), want: ErrNoPriceMatch},
		{name: "zero price", in: visit("Amy", "2024-03-01", 0), want: ErrZeroPrice},
		{name: "negative price", in: visit("Amy", "2024-03-01", -5), want: ErrInvalidInput},
		{name: "ambiguous", in: visit("Amy", "2024-03-01", 580), want: ErrAmbiguousPrice},
		{name: "add-on on wrong treatment", in: func() RecordInput {
			in := visit("Amy", "2024-03-01", 880)
			in.TreatmentName = hydration
			return in
		}(), want: ErrNeckNotAllowed},
		{name: "named treatment not at this price", in: func() RecordInput {
			in := visit("Amy", "2024-03-01", 1880)
			in.TreatmentName = plasma
			return in
		}(), want: ErrNoPriceMatch},
		{name: "tier override mismatch", in: func() RecordInput {
			in := visit("Amy", "2024-03-01", 1680)
			in.IsPeak = &peak
			return in
		}(), want: ErrNoPriceMatch},
		{name: "retouch with price", in: func() RecordInput {
			in := visit("Amy", "2024-03-01", 100)
			in.Retouch = true
			return in
		}(), want: ErrInvalidInput},
		{name: "retouch without source", in: func() RecordInput {
			in := visit("Amy", "2024-03-01", 0)
			in.Retouch = true
			return in
		}(), want: ErrNotEligible},
		{name: "session without package", in: func() RecordInput {
			in := visit("Amy", "2024-03-01", 0)
			in.PackageSession = true
			return in
		}(), want: ErrNoActivePackage},
		{name: "retouch and session", in: func() RecordInput {
			in := visit("Amy", "2024-03-01", 0)
			in.Retouch, in.PackageSession = true, true
			return in
		}(), want: ErrInvalidInput},
		{name: "unknown contact", in: RecordInput{Name: "Amy", ContactMethod: "Telegram", TreatmentDate: day("2024-03-01"), Price: money(580)}, want: ErrInvalidInput},
		{name: "missing name", in: RecordInput{ContactMethod: "WhatsApp", TreatmentDate: day("2024-03-01"), Price: money(580)}, want: ErrInvalidInput},
		{name: "missing date", in: RecordInput{Name: "Amy", ContactMethod: "WhatsApp", Price: money(580)}, want: ErrInvalidInput},
	}
	for _, tt := range tests {
		_, err := svc.Records.Record(ctx, tt.in)
		if !errors.Is(err, tt.want) {
			t.Fatalf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
		if !IsValidation(err) {
			t.Fatalf("%s: %v is not a validation error", tt.name, err)
		}
	}

	if n := countRows(t, db, &models.Customer{}, ""); n != 0 {
		t.Fatalf("rejected records created %d customers", n)
	}
	if n := countRows(t, db, &models.CustomerTreatment{}, ""); n != 0 {
		t.Fatalf("rejected records created %d treatment rows", n)
	}

	// Naming one of the candidates resolves the ambiguity.
	in := visit("Amy", "2024-03-01", 580)
	in.TreatmentName = "Test Facial"
	res := mustRecord(t, svc, in)
	if res.Treatment.Name != "Test Facial" || !res.Record.IsPeak {
		t.Fatalf("picked %s peak=%v", res.Treatment.Name, res.Record.IsPeak)
	}

	_, err := svc.Records.Record(ctx, visit("Bob", "2024-03-01", 580))
	var ve *ValidationError
	if !errors.As(err, &ve) || len(ve.Candidates) != 2 {
		t.Fatalf("ambiguous price should list 2 candidates, got %v", err)
	}

	// An equal-tier treatment accepts either override.
	in = visit("Amy", "2024-03-02", 1600)
	in.IsPeak = &offPeak
	res = mustRecord(t, svc, in)
	if res.Record.IsPeak {
		t.Fatal("non-peak override ignored")
	}
}

func TestRecordDuplicateCustomers(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()

	first := mustRecord(t, svc, visit("Amy", "2024-03-01", 580))

	_, err := svc.Records.Record(ctx, RecordInput{Name: "Amy", ContactMethod: "whatsapp", TreatmentDate: day("2024-03-02"), Price: money(580)})
	var dup *DuplicateCustomerError
	if !errors.As(err, &dup) {
		t.Fatalf("second Amy: err = %v, want DuplicateCustomerError", err)
	}
	if len(dup.Candidates) != 1 || dup.Candidates[0].ID != first.Customer.ID {
		t.Fatalf("candidates = %+v", dup.Candidates)
	}
	if n := countRows(t, db, &models.CustomerTreatment{}, ""); n != 1 {
		t.Fatalf("duplicate prompt wrote rows: %d", n)
	}

	// Same person: reuse the id.
	id := first.Customer.ID
	same := mustRecord(t, svc, RecordInput{CustomerID: &id, TreatmentDate: day("2024-03-02"), Price: money(580)})
	if same.CustomerCreated || same.Customer.ID != id {
		t.Fatalf("reuse created a customer: %+v", same.Customer)
	}

	// Different person: composite name.
	in := visit("Amy", "2024-03-03", 580)
	in.UniqueMark = "2"
	other := mustRecord(t, svc, in)
	if !other.CustomerCreated || other.Customer.Name != "Amy(2)" || other.Customer.UniqueMark != "2" {
		t.Fatalf("marked customer = %+v", other.Customer)
	}

	_, err = svc.Records.Record(ctx, in)
	if !errors.As(err, &dup) || dup.Name != "Amy(2)" {
		t.Fatalf("repeated mark: err = %v", err)
	}

	if n := countRows(t, db, &models.Customer{}, "name = ? AND contact_method = ?", "Amy", "WhatsApp"); n != 1 {
		t.Fatalf("plain duplicates stored: %d", n)
	}
}

func TestPackageSessions(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()

	purchase := mustRecord(t, svc, visit("Amy", "2024-03-01", 9926))
	if purchase.Kind != models.KindPackagePurchase {
		t.Fatalf("kind = %s", purchase.Kind)
	}
	if purchase.Record.PackageID == nil || *purchase.Record.PackageID != 1 || purchase.Record.RemainingSessions != 5 {
		t.Fatalf("purchase row = %+v", purchase.Record)
	}
	customerID := purchase.Customer.ID

	status, err := svc.Rules.RemainingSessions(ctx, customerID, packageName)
	if err != nil || status == nil || status.RemainingSessions != 5 || status.PackageID != 1 {
		t.Fatalf("after purchase: %+v, %v", status, err)
	}

	dates := []string{"2024-03-08", "2024-03-15", "2024-03-22", "2024-03-29", "2024-04-05"}
	for i, d := range dates {
		res := mustRecord(t, svc, RecordInput{CustomerID: &customerID, TreatmentDate: day(d), PackageSession: true})
		want := 4 - i
		if res.Kind != models.KindPackageSession || res.Record.RemainingSessions != want || *res.Record.PackageID != 1 {
			t.Fatalf("session %d: kind=%s remaining=%d", i+1, res.Kind, res.Record.RemainingSessions)
		}
		if res.PackageCompleted != (want == 0) {
			t.Fatalf("session %d: completed=%v", i+1, res.PackageCompleted)
		}
		status, err := svc.Rules.RemainingSessions(ctx, customerID, packageName)
		if err != nil || status.RemainingSessions != want {
			t.Fatalf("session %d: tracker says %+v, %v", i+1, status, err)
		}
	}

	_, err = svc.Records.Record(ctx, RecordInput{CustomerID: &customerID, TreatmentDate: day("2024-04-12"), PackageSession: true})
	if !errors.Is(err, ErrPackageExhausted) {
		t.Fatalf("exhausted package: err = %v", err)
	}

	// A new purchase the same day as the last session starts a fresh package.
	again := mustRecord(t, svc, RecordInput{CustomerID: &customerID, TreatmentDate: day("2024-04-05"), Price: money(9926)})
	if *again.Record.PackageID != 2 || again.Record.RemainingSessions != 5 {
		t.Fatalf("second purchase = %+v", again.Record)
	}
	res := mustRecord(t, svc, RecordInput{CustomerID: &customerID, TreatmentDate: day("2024-04-12"), PackageSession: true})
	if *res.Record.PackageID != 2 || res.Record.RemainingSessions != 4 {
		t.Fatalf("session on second package = %+v", res.Record)
	}

	_, err = svc.Records.Record(ctx, RecordInput{CustomerID: &customerID, TreatmentDate: day("2024-04-19"), Price: money(100), PackageSession: true})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("paid session: err = %v", err)
	}
}

func TestPackageSessionsEnteredOutOfOrder(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()

	purchase := mustRecord(t, svc, visit("Amy", "2024-03-01", 9926))
	customerID := purchase.Customer.ID

	// Late entries carry earlier dates than sessions already booked.
	dates := []string{"2024-03-10", "2024-03-05", "2024-03-20", "2024-03-15", "2024-03-30"}
	for i, d := range dates {
		res := mustRecord(t, svc, RecordInput{CustomerID: &customerID, TreatmentDate: day(d), PackageSession: true})
		if want := 4 - i; res.Record.RemainingSessions != want {
			t.Fatalf("session on %s: remaining = %d, want %d", d, res.Record.RemainingSessions, want)
		}
	}

	for _, d := range []string{"2024-04-10", "2024-03-02"} {
		_, err := svc.Records.Record(ctx, RecordInput{CustomerID: &customerID, TreatmentDate: day(d), PackageSession: true})
		if !errors.Is(err, ErrPackageExhausted) {
			t.Fatalf("session on %s after the package ran out: err = %v", d, err)
		}
	}
	if n := countRows(t, db, &models.CustomerTreatment{}, "package_id = ?", 1); n != 6 {
		t.Fatalf("package rows = %d, want purchase + 5 sessions", n)
	}
}

func TestPackageSessionBeforePurchaseRejected(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()

	purchase := mustRecord(t, svc, visit("Amy", "2024-03-01", 9926))
	customerID := purchase.Customer.ID

	for i := 0; i < 3; i++ {
		_, err := svc.Records.Record(ctx, RecordInput{CustomerID: &customerID, TreatmentDate: day("2024-02-01"), PackageSession: true})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("attempt %d: err = %v, want ErrInvalidInput", i+1, err)
		}
	}
	if n := countRows(t, db, &models.CustomerTreatment{}, "package_id = ?", 1); n != 1 {
		t.Fatalf("package rows = %d, want only the purchase", n)
	}

	// The purchase day itself is a valid session date.
	res := mustRecord(t, svc, RecordInput{CustomerID: &customerID, TreatmentDate: day("2024-03-01"), PackageSession: true})
	if res.Record.RemainingSessions != 4 {
		t.Fatalf("same-day session remaining = %d", res.Record.RemainingSessions)
	}
	status, err := svc.Rules.RemainingSessions(ctx, customerID, packageName)
	if err != nil || status.RecordID != purchase.Record.ID || status.RemainingSessions != 4 {
		t.Fatalf("tracker = %+v, %v", status, err)
	}
}

func TestStrictMatchStillHonoursNamedTreatment(t *testing.T) {
	svc, _ := newTestServices(t, func(c *config.Config) {
		c.Policy.StrictSingleMatch = true
		c.Catalog = append(c.Catalog, config.CatalogEntry{
			Name:         "Test Facial",
			PeakPrice:    decimal.NewFromInt(580),
			NonPeakPrice: decimal.NewFromInt(500),
		})
	})

	matches, err := svc.Rules.MatchTreatment(context.Background(), money(580))
	if err != nil || len(matches) != 1 || matches[0].Treatment.Name != hydration {
		t.Fatalf("strict match = %+v, %v", matches, err)
	}

	first := mustRecord(t, svc, visit("Amy", "2024-03-01", 580))
	if first.Treatment.Name != hydration {
		t.Fatalf("unnamed visit booked as %s", first.Treatment.Name)
	}

	in := visit("Bob", "2024-03-01", 580)
	in.TreatmentName = "Test Facial"
	named := mustRecord(t, svc, in)
	if named.Treatment.Name != "Test Facial" || !named.Record.IsPeak {
		t.Fatalf("named visit booked as %s peak=%v", named.Treatment.Name, named.Record.IsPeak)
	}
}
