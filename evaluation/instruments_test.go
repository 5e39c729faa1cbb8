package evaluation

import (
	"testing"

	"sistemaAcademico/apperr"
	"sistemaAcademico/assignment"
	"sistemaAcademico/auth"
	"sistemaAcademico/logger"
	"sistemaAcademico/store"
)

var (
	admin   = auth.Principal{Identity: "admin@colegio.cr", Role: auth.RoleAdmin}
	teacher = auth.Principal{Identity: "doc@colegio.cr", Role: auth.RoleTeacher}
	other   = auth.Principal{Identity: "otro@colegio.cr", Role: auth.RoleTeacher}
	parent  = auth.Principal{Identity: "padre@colegio.cr", Role: auth.RoleGuardian}
)

func newService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	m := store.NewMemory()
	for _, table := range []string{store.TableEvaluations, store.TableGrades, store.TableAssignments, store.TableStudents} {
		if err := m.CreateTable(table, store.DefaultHeaders[table]); err != nil {
			t.Fatal(err)
		}
	}
	assignments := assignment.NewService(m, logger.GetInstance())
	return NewService(m, assignments, logger.GetInstance()), m
}

func assign(t *testing.T, m *store.Memory, email, subjectID, sectionID, term string) {
	t.Helper()
	if err := m.AppendRow(store.TableAssignments, []string{email, subjectID, sectionID, "Titular", term}); err != nil {
		t.Fatal(err)
	}
}

func payload(weight float64) InstrumentPayload {
	return InstrumentPayload{
		SubjectID: "MAT01",
		SectionID: "SEC01",
		TypeID:    "TIPO01",
		TypeLabel: "Examen",
		Date:      "2026-03-10",
		Weight:    weight,
		Term:      "2026",
	}
}

func TestCreateInstrument(t *testing.T) {
	t.Parallel()
	s, m := newService(t)
	assign(t, m, "doc@colegio.cr", "MAT01", "SEC01", "2026")

	id, err := s.CreateInstrument(payload(40), teacher)
	if err != nil {
		t.Fatal(err)
	}

	in, err := s.GetInstrument(id)
	if err != nil {
		t.Fatal(err)
	}
	if !in.Active {
		t.Error("Active: got false, want true")
	}
	if in.Weight != 40 {
		t.Errorf("Weight: got %v, want 40", in.Weight)
	}
	if in.CreatedBy != "doc@colegio.cr" {
		t.Errorf("CreatedBy: got %q", in.CreatedBy)
	}
}

func TestCreateInstrumentValidation(t *testing.T) {
	t.Parallel()
	s, _ := newService(t)

	cases := []struct {
		name string
		p    InstrumentPayload
	}{
		{"missing subject", InstrumentPayload{SectionID: "SEC01", TypeID: "T", Weight: 10}},
		{"missing section", InstrumentPayload{SubjectID: "MAT01", TypeID: "T", Weight: 10}},
		{"zero weight", payload(0)},
		{"negative weight", payload(-5)},
		{"weight above 100", payload(101)},
	}
	for _, tc := range cases {
		if _, err := s.CreateInstrument(tc.p, admin); apperr.KindOf(err) != apperr.ValidationFailed {
			t.Errorf("%s: got %v, want ValidationFailed", tc.name, err)
		}
	}
}

func TestCreateInstrumentRoleGate(t *testing.T) {
	t.Parallel()
	s, _ := newService(t)

	if _, err := s.CreateInstrument(payload(10), parent); apperr.KindOf(err) != apperr.Unauthorized {
		t.Errorf("guardian: got %v, want Unauthorized", err)
	}
	// A teacher without a matching assignment is refused too.
	if _, err := s.CreateInstrument(payload(10), teacher); apperr.KindOf(err) != apperr.Unauthorized {
		t.Errorf("unassigned teacher: got %v, want Unauthorized", err)
	}
	// Staff need no assignment.
	if _, err := s.CreateInstrument(payload(10), admin); err != nil {
		t.Errorf("admin: got %v, want nil", err)
	}
}

func TestWeightBudgetEnforced(t *testing.T) {
	t.Parallel()
	s, _ := newService(t)

	for _, w := range []float64{40, 35, 25} {
		if _, err := s.CreateInstrument(payload(w), admin); err != nil {
			t.Fatal(err)
		}
	}

	// Budget is now exactly 100; anything more must bounce without a write.
	_, err := s.CreateInstrument(payload(0.5), admin)
	if apperr.KindOf(err) != apperr.BudgetExceeded {
		t.Fatalf("got %v, want BudgetExceeded", err)
	}

	list, err := s.ListFor(admin)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Errorf("instruments after rejection: got %d, want 3", len(list))
	}
}

func TestWeightBudgetScopedPerGroup(t *testing.T) {
	t.Parallel()
	s, _ := newService(t)

	if _, err := s.CreateInstrument(payload(100), admin); err != nil {
		t.Fatal(err)
	}

	// Another section has its own budget.
	p := payload(100)
	p.SectionID = "SEC02"
	if _, err := s.CreateInstrument(p, admin); err != nil {
		t.Errorf("other section: got %v, want nil", err)
	}

	// Another term too.
	p = payload(100)
	p.Term = "2027"
	if _, err := s.CreateInstrument(p, admin); err != nil {
		t.Errorf("other term: got %v, want nil", err)
	}
}

func TestDeactivateReleasesBudget(t *testing.T) {
	t.Parallel()
	s, _ := newService(t)

	id, err := s.CreateInstrument(payload(100), admin)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateInstrument(payload(10), admin); apperr.KindOf(err) != apperr.BudgetExceeded {
		t.Fatalf("full budget: got %v, want BudgetExceeded", err)
	}

	if err := s.Deactivate(id, admin); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateInstrument(payload(10), admin); err != nil {
		t.Errorf("after deactivation: got %v, want nil", err)
	}
}

func TestDeactivateAuthorization(t *testing.T) {
	t.Parallel()
	s, m := newService(t)
	assign(t, m, "doc@colegio.cr", "MAT01", "SEC01", "2026")

	id, err := s.CreateInstrument(payload(40), teacher)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Deactivate(id, other); apperr.KindOf(err) != apperr.Unauthorized {
		t.Errorf("non-creator teacher: got %v, want Unauthorized", err)
	}
	if err := s.Deactivate(id, teacher); err != nil {
		t.Errorf("creator: got %v, want nil", err)
	}
	if err := s.Deactivate("EVAL-0", admin); apperr.KindOf(err) != apperr.NotFound {
		t.Errorf("unknown id: got %v, want NotFound", err)
	}
}

func TestListForTeacherScope(t *testing.T) {
	t.Parallel()
	s, m := newService(t)
	assign(t, m, "doc@colegio.cr", "MAT01", "SEC01", "2026")

	if _, err := s.CreateInstrument(payload(20), teacher); err != nil {
		t.Fatal(err)
	}
	foreign := payload(20)
	foreign.SectionID = "SEC09"
	if _, err := s.CreateInstrument(foreign, admin); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListFor(teacher)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("teacher view: got %d instruments, want 1", len(list))
	}

	list, err = s.ListFor(admin)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("staff view: got %d instruments, want 2", len(list))
	}
}

func TestGeneratedIDsAreUnique(t *testing.T) {
	t.Parallel()
	s, _ := newService(t)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		p := payload(1)
		id, err := s.CreateInstrument(p, admin)
		if err != nil {
			t.Fatal(err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
