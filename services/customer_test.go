package services

import (
	"context"
	"errors"
	"testing"

	"secrettime-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func TestCustomerListAndHistory(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()

	src := mustRecord(t, svc, visit("Amy", "2024-01-10", 1600))
	amyID := src.Customer.ID
	mustRecord(t, svc, RecordInput{CustomerID: &amyID, TreatmentDate: day("2024-02-01"), Price: money(9926)})
	mustRecord(t, svc, RecordInput{CustomerID: &amyID, TreatmentDate: day("2024-02-08"), PackageSession: true})
	mustRecord(t, svc, visit("Bob", "2024-02-01", 580))

	list, err := svc.Customers.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "Amy" || list[0].Visits != 3 || !list[0].TotalSpent.Equal(money(11526)) {
		t.Fatalf("list = %+v", list)
	}
	filtered, err := svc.Customers.List(ctx, "bo")
	if err != nil || len(filtered) != 1 || filtered[0].Name != "Bob" {
		t.Fatalf("search = %+v, %v", filtered, err)
	}

	history, err := svc.Customers.History(ctx, amyID)
	if err != nil {
		t.Fatal(err)
	}
	wantKinds := []models.RecordKind{models.KindPackageSession, models.KindPackagePurchase, models.KindPlain}
	if len(history) != len(wantKinds) {
		t.Fatalf("history has %d entries", len(history))
	}
	for i, k := range wantKinds {
		if history[i].Kind != k {
			t.Fatalf("history[%d] kind = %s, want %s", i, history[i].Kind, k)
		}
	}
	if history[2].TreatmentName != tenSpots || !history[2].RetouchAvailable {
		t.Fatalf("source visit = %+v", history[2])
	}
	if history[1].RetouchAvailable {
		t.Fatal("package purchase offered a retouch")
	}

	mustRecord(t, svc, RecordInput{CustomerID: &amyID, TreatmentDate: day("2024-03-01"), Retouch: true})
	history, err = svc.Customers.History(ctx, amyID)
	if err != nil {
		t.Fatal(err)
	}
	if history[0].Kind != models.KindRetouch || history[len(history)-1].RetouchAvailable {
		t.Fatalf("after retouch: newest=%s source available=%v", history[0].Kind, history[len(history)-1].RetouchAvailable)
	}

	if _, err := svc.Customers.History(ctx, uuid.New()); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("unknown customer: err = %v", err)
	}
}

func TestCustomerUpdate(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()

	amy := mustRecord(t, svc, visit("Amy", "2024-03-01", 580)).Customer
	bob := mustRecord(t, svc, visit("Bob", "2024-03-01", 580)).Customer

	_, err := svc.Customers.Update(ctx, bob.ID, CustomerUpdate{Name: "Amy", ContactMethod: "WhatsApp"})
	var dup *DuplicateCustomerError
	if !errors.As(err, &dup) || dup.Candidates[0].ID != amy.ID {
		t.Fatalf("rename onto Amy: err = %v", err)
	}

	updated, err := svc.Customers.Update(ctx, bob.ID, CustomerUpdate{Name: "Amy", ContactMethod: "WhatsApp", UniqueMark: "B"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Name != "Amy(B)" || updated.UniqueMark != "B" {
		t.Fatalf("updated = %+v", updated)
	}

	// Sending the stored name back unchanged keeps it.
	again, err := svc.Customers.Update(ctx, bob.ID, CustomerUpdate{Name: "Amy(B)", ContactMethod: "phone", UniqueMark: "B"})
	if err != nil {
		t.Fatal(err)
	}
	if again.Name != "Amy(B)" || again.ContactMethod != "Phone" {
		t.Fatalf("again = %+v", again)
	}

	if _, err := svc.Customers.Update(ctx, amy.ID, CustomerUpdate{Name: "Amy", ContactMethod: "Pager"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad contact: err = %v", err)
	}
}

func TestCustomerDeleteCascades(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()

	amy := mustRecord(t, svc, visit("Amy", "2024-01-10", 1600))
	amyID := amy.Customer.ID
	mustRecord(t, svc, RecordInput{CustomerID: &amyID, TreatmentDate: day("2024-01-20"), Retouch: true})
	mustRecord(t, svc, visit("Bob", "2024-01-10", 580))

	if err := svc.Customers.Delete(ctx, amyID); err != nil {
		t.Fatal(err)
	}
	if n := countRows(t, db, &models.CustomerTreatment{}, "customer_id = ?", amyID); n != 0 {
		t.Fatalf("history left behind: %d", n)
	}
	if n := countRows(t, db, &models.CustomerTreatment{}, ""); n != 1 {
		t.Fatalf("other customers' rows = %d, want 1", n)
	}
	if err := svc.Customers.Delete(ctx, amyID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("second delete: err = %v", err)
	}
}
