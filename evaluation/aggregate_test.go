package evaluation

import (
	"testing"

	"sistemaAcademico/store"
)

func enroll(t *testing.T, m *store.Memory, cedula, nombre, apellido, sectionID string) {
	t.Helper()
	cells := []string{cedula, apellido, "", nombre, "", "", "", sectionID, "", ""}
	if err := m.AppendRow(store.TableStudents, cells); err != nil {
		t.Fatal(err)
	}
}

func TestAggregateWeightedTotals(t *testing.T) {
	t.Parallel()
	s, m := newService(t)
	enroll(t, m, "1-1111-1111", "Luis", "Mora", "SEC01")

	ids := make([]string, 3)
	for i, w := range []float64{40, 30, 30} {
		id, err := s.CreateInstrument(payload(w), admin)
		if err != nil {
			t.Fatal(err)
		}
		ids[i] = id
	}

	// 80 on the 40% instrument, 90 on one 30% instrument, nothing on the
	// last: 80*0.4 + 90*0.3 = 59.00.
	batch := []GradeEntry{
		{InstrumentID: ids[0], StudentID: "1-1111-1111", Score: "80"},
		{InstrumentID: ids[1], StudentID: "1-1111-1111", Score: "90"},
	}
	if err := s.UpsertGrades(batch, admin); err != nil {
		t.Fatal(err)
	}

	totals, err := s.Aggregate("SEC01", "MAT01", "2026")
	if err != nil {
		t.Fatal(err)
	}
	if len(totals) != 1 {
		t.Fatalf("totals: got %d, want 1", len(totals))
	}
	if totals[0].Total != 59 {
		t.Errorf("Total: got %v, want 59", totals[0].Total)
	}
	if totals[0].Name != "Luis Mora" {
		t.Errorf("Name: got %q, want %q", totals[0].Name, "Luis Mora")
	}
}

func TestAggregateExcludesDeactivatedInstruments(t *testing.T) {
	t.Parallel()
	s, m := newService(t)
	enroll(t, m, "1-1111-1111", "Luis", "Mora", "SEC01")

	keep, err := s.CreateInstrument(payload(50), admin)
	if err != nil {
		t.Fatal(err)
	}
	drop, err := s.CreateInstrument(payload(50), admin)
	if err != nil {
		t.Fatal(err)
	}

	batch := []GradeEntry{
		{InstrumentID: keep, StudentID: "1-1111-1111", Score: "100"},
		{InstrumentID: drop, StudentID: "1-1111-1111", Score: "100"},
	}
	if err := s.UpsertGrades(batch, admin); err != nil {
		t.Fatal(err)
	}
	if err := s.Deactivate(drop, admin); err != nil {
		t.Fatal(err)
	}

	totals, err := s.Aggregate("SEC01", "MAT01", "2026")
	if err != nil {
		t.Fatal(err)
	}
	if totals[0].Total != 50 {
		t.Errorf("Total: got %v, want 50", totals[0].Total)
	}
}

func TestAggregateCoversWholeRoster(t *testing.T) {
	t.Parallel()
	s, m := newService(t)
	enroll(t, m, "1-1111-1111", "Luis", "Mora", "SEC01")
	enroll(t, m, "2-2222-2222", "Ana", "Rojas", "SEC01")
	enroll(t, m, "3-3333-3333", "Eva", "Solís", "SEC02")

	id, err := s.CreateInstrument(payload(100), admin)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertGrades([]GradeEntry{{InstrumentID: id, StudentID: "1-1111-1111", Score: "75"}}, admin); err != nil {
		t.Fatal(err)
	}

	totals, err := s.Aggregate("SEC01", "MAT01", "2026")
	if err != nil {
		t.Fatal(err)
	}
	// Both section students appear, the ungraded one at zero; the SEC02
	// student does not.
	if len(totals) != 2 {
		t.Fatalf("totals: got %d, want 2", len(totals))
	}
	byID := map[string]float64{}
	for _, st := range totals {
		byID[st.StudentID] = st.Total
	}
	if byID["1-1111-1111"] != 75 {
		t.Errorf("graded student: got %v, want 75", byID["1-1111-1111"])
	}
	if byID["2-2222-2222"] != 0 {
		t.Errorf("ungraded student: got %v, want 0", byID["2-2222-2222"])
	}
}
