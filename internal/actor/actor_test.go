package actor

import "testing"

func TestNewActor(t *testing.T) {
	a, err := New("Kaelen")
	if err != nil {
		t.Fatalf("new actor: %v", err)
	}
	if !a.IsValid() {
		t.Fatal("expected valid actor")
	}
	if a.Version != 1 {
		t.Fatalf("expected version 1, got %d", a.Version)
	}
	if len(a.ID) != 26 {
		t.Fatalf("expected 26-character id, got %q", a.ID)
	}
}

func TestBuffMutationsBumpVersion(t *testing.T) {
	a, err := New("Kaelen")
	if err != nil {
		t.Fatalf("new actor: %v", err)
	}

	a.AddBuff("haste")
	if a.Version != 2 {
		t.Fatalf("expected version 2 after add, got %d", a.Version)
	}
	if !a.HasBuff("haste") {
		t.Fatal("expected haste buff")
	}

	// Duplicate adds are no-ops and must not bump the version.
	a.AddBuff("haste")
	if a.Version != 2 {
		t.Fatalf("expected version 2 after duplicate add, got %d", a.Version)
	}

	if !a.RemoveBuff("haste") {
		t.Fatal("expected buff removed")
	}
	if a.Version != 3 {
		t.Fatalf("expected version 3 after remove, got %d", a.Version)
	}
	if a.RemoveBuff("haste") {
		t.Fatal("expected second remove to report absence")
	}
}

func TestSubsystemRefMutations(t *testing.T) {
	a, err := New("Kaelen")
	if err != nil {
		t.Fatalf("new actor: %v", err)
	}

	a.AddSubsystemRef(SubsystemRef{SystemID: "equipment", Priority: 10, Enabled: true})
	if !a.HasSubsystemRef("equipment") {
		t.Fatal("expected equipment subsystem ref")
	}
	if a.Version != 2 {
		t.Fatalf("expected version 2, got %d", a.Version)
	}

	if !a.RemoveSubsystemRef("equipment") {
		t.Fatal("expected subsystem ref removed")
	}
	if a.HasSubsystemRef("equipment") {
		t.Fatal("expected equipment subsystem ref gone")
	}
	if a.RemoveSubsystemRef("equipment") {
		t.Fatal("expected second remove to report absence")
	}
}

func TestClearBuffs(t *testing.T) {
	a, err := New("Kaelen")
	if err != nil {
		t.Fatalf("new actor: %v", err)
	}

	a.ClearBuffs()
	if a.Version != 1 {
		t.Fatalf("expected no version bump clearing empty buffs, got %d", a.Version)
	}

	a.AddBuff("haste")
	a.AddBuff("shield")
	version := a.Version
	a.ClearBuffs()
	if a.Version != version+1 {
		t.Fatalf("expected one version bump, got %d", a.Version)
	}
	if a.HasBuff("haste") || a.HasBuff("shield") {
		t.Fatal("expected all buffs cleared")
	}
}
