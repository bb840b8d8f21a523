package results

import "testing"

func TestResolver_PrefersID(t *testing.T) {
	r := NewResolver()
	key, ok := r.Resolve("R1", Row{ID: "BTNOR1", Bib: "4", Name: "Anna Berg"})
	if !ok || key != "id:BTNOR1" {
		t.Errorf("Resolve() = %q, %v, want id:BTNOR1", key, ok)
	}
}

func TestResolver_NameMapsToKnownID(t *testing.T) {
	r := NewResolver()
	r.Learn([]Row{{ID: "BTNOR1", Name: "Anna  Berg"}})

	key, ok := r.Resolve("R2", Row{Bib: "12", Name: "anna berg"})
	if !ok || key != "id:BTNOR1" {
		t.Errorf("Resolve() = %q, %v, want id:BTNOR1", key, ok)
	}
}

func TestResolver_AmbiguousNameExcluded(t *testing.T) {
	r := NewResolver()
	r.Learn([]Row{
		{ID: "BT1", Name: "Lisa Meier"},
		{ID: "BT2", Name: "Lisa Meier"},
	})
	if !r.Ambiguous("Lisa Meier") {
		t.Fatal("name with two ids should be ambiguous")
	}

	if _, ok := r.Resolve("R1", Row{Bib: "30", Name: "Lisa Meier"}); ok {
		t.Error("id-less row with ambiguous name must be excluded")
	}

	// rows that carry an id are still attributed to that id
	if key, ok := r.Resolve("R1", Row{ID: "BT2", Name: "Lisa Meier"}); !ok || key != "id:BT2" {
		t.Errorf("Resolve() = %q, %v, want id:BT2", key, ok)
	}
}

func TestResolver_StableAfterWeakKey(t *testing.T) {
	r := NewResolver()
	first, ok := r.Resolve("R1", Row{Bib: "5", Name: "Ida Lund"})
	if !ok || !IsWeakKey(first) {
		t.Fatalf("first key = %q, want a weak bib key", first)
	}

	second, _ := r.Resolve("R2", Row{ID: "BTSWE9", Name: "Ida Lund"})
	third, _ := r.Resolve("R3", Row{ID: "BTSWE9", Name: "Ida Lund"})
	if second != first || third != first {
		t.Errorf("keys = %q, %q, %q, want all %q", first, second, third, first)
	}
}

func TestResolver_BibScopedToRace(t *testing.T) {
	r := NewResolver()
	a, _ := r.Resolve("R1", Row{Bib: "5"})
	b, _ := r.Resolve("R2", Row{Bib: "5"})
	if a == b {
		t.Errorf("bib-only rows of different races share key %q", a)
	}
}

func TestResolver_NoIdentity(t *testing.T) {
	r := NewResolver()
	if _, ok := r.Resolve("R1", Row{}); ok {
		t.Error("row without id, bib or name must be excluded")
	}
	if key, ok := r.Resolve("R1", Row{Name: "Solo"}); !ok || key != "name:solo" {
		t.Errorf("Resolve() = %q, %v, want name:solo", key, ok)
	}
}

func TestResolver_SecondIDOnWeakKeyIsAmbiguous(t *testing.T) {
	r := NewResolver()
	weak, _ := r.Resolve("R1", Row{Name: "Anna Berg", Bib: "7"})

	first, _ := r.Resolve("R2", Row{ID: "111", Name: "Anna Berg"})
	second, ok := r.Resolve("R2", Row{ID: "222", Name: "Anna Berg"})
	if first != weak {
		t.Errorf("first id key = %q, want %q", first, weak)
	}
	if !ok || second != "id:222" {
		t.Errorf("second id key = %q, %v, want id:222", second, ok)
	}
	if first == second {
		t.Fatalf("ids 111 and 222 share key %q", first)
	}
	if !r.Ambiguous("Anna Berg") {
		t.Error("name carried by two ids should be ambiguous")
	}
	if _, ok := r.Resolve("R3", Row{Name: "Anna Berg", Bib: "9"}); ok {
		t.Error("id-less row with ambiguous name must be excluded")
	}
	if again, _ := r.Resolve("R3", Row{ID: "111", Name: "Anna Berg"}); again != weak {
		t.Errorf("first id re-resolved to %q, want %q", again, weak)
	}
}
