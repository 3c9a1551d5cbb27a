package core

import "testing"

func strp(s string) *string { return &s }

func TestNewRechargeValidate(t *testing.T) {
	good := NewRecharge{SimID: "s1", Date: "2025-01-31", Time: "09:05", Amount: 100}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []NewRecharge{
		{SimID: "", Date: "2025-01-31", Time: "09:05", Amount: 100},
		{SimID: "s1", Date: "2025-01-31", Time: "09:05", Amount: 0},
		{SimID: "s1", Date: "2025-01-31", Time: "09:05", Amount: -3},
		{SimID: "s1", Date: "31/01/2025", Time: "09:05", Amount: 100},
		{SimID: "s1", Date: "2025-02-30", Time: "09:05", Amount: 100},
		{SimID: "s1", Date: "2025-01-31", Time: "9h05", Amount: 100},
	}
	for i, r := range bads {
		if err := r.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestSimCardLabelsDefault(t *testing.T) {
	l1, l2 := SimCard{}.Labels()
	if l1 != DefaultUser1Label || l2 != DefaultUser2Label {
		t.Fatalf("unexpected defaults: %q %q", l1, l2)
	}
	l1, l2 = SimCard{User1Label: "Amine", User2Label: " "}.Labels()
	if l1 != "Amine" || l2 != DefaultUser2Label {
		t.Fatalf("unexpected labels: %q %q", l1, l2)
	}
}

func TestPatchApplyKeepsUnsetFields(t *testing.T) {
	sim := SimCard{ID: "a", Number: "0550", Name: "Perso"}
	got := SimCardPatch{Name: strp("Work")}.Apply(sim)
	if got.Name != "Work" || got.Number != "0550" || got.ID != "a" {
		t.Fatalf("unexpected patched sim: %+v", got)
	}

	amount := 250.0
	r := Recharge{ID: "r", SimID: "a", Amount: 100, ForUser1: true}
	gotR := RechargePatch{Amount: &amount}.Apply(r)
	if gotR.Amount != 250 || !gotR.ForUser1 || gotR.SimID != "a" {
		t.Fatalf("unexpected patched recharge: %+v", gotR)
	}
}

func TestSimBalanceValidate(t *testing.T) {
	b := SimBalance{Credit: 0, ValidityDate: "2025-06-01", Services: []SimService{{Name: "Dima", ExpiryDate: "2025-06-01"}}}
	if err := b.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	b.Services = append(b.Services, SimService{Name: "", ExpiryDate: "2025-06-01"})
	if err := b.Validate(); err == nil {
		t.Fatalf("expected error for unnamed service")
	}
	if err := (SimBalance{ValidityDate: ""}).Validate(); err == nil {
		t.Fatalf("expected error for missing validity date")
	}
}

func TestValidateUsername(t *testing.T) {
	if err := ValidateUsername(" a "); err == nil {
		t.Fatalf("expected error for short username")
	}
	if err := ValidateUsername("ab"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}
