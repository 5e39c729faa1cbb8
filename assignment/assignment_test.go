package assignment

import (
	"testing"

	"sistemaAcademico/apperr"
	"sistemaAcademico/auth"
	"sistemaAcademico/logger"
	"sistemaAcademico/store"
)

var (
	staff   = auth.Principal{Identity: "sec@colegio.cr", Role: auth.RoleRegistrar}
	teacher = auth.Principal{Identity: "doc@colegio.cr", Role: auth.RoleTeacher}
)

func newService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	m := store.NewMemory()
	if err := m.CreateTable(store.TableAssignments, store.DefaultHeaders[store.TableAssignments]); err != nil {
		t.Fatal(err)
	}
	return NewService(m, logger.GetInstance()), m
}

func TestAddAndIsAssigned(t *testing.T) {
	t.Parallel()
	s, _ := newService(t)

	a := Assignment{Email: "doc@colegio.cr", SubjectID: "MAT01", SectionID: "SEC01", Type: "Titular", Term: "2026"}
	if err := s.Add(a, staff); err != nil {
		t.Fatal(err)
	}

	ok, err := s.IsAssigned("DOC@colegio.cr", "MAT01", "SEC01")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("IsAssigned: got false, want true")
	}

	ok, err = s.IsAssigned("doc@colegio.cr", "MAT02", "SEC01")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("IsAssigned other subject: got true, want false")
	}
}

func TestAddRejectsDuplicateKey(t *testing.T) {
	t.Parallel()
	s, _ := newService(t)

	a := Assignment{Email: "doc@colegio.cr", SubjectID: "MAT01", SectionID: "SEC01", Term: "2026"}
	if err := s.Add(a, staff); err != nil {
		t.Fatal(err)
	}

	a.SubjectID = "MAT02"
	err := s.Add(a, staff)
	if apperr.KindOf(err) != apperr.DuplicateKey {
		t.Errorf("got %v, want DuplicateKey", err)
	}
}

func TestAddRequiresStaff(t *testing.T) {
	t.Parallel()
	s, _ := newService(t)

	err := s.Add(Assignment{Email: "doc@colegio.cr", SectionID: "SEC01", Term: "2026"}, teacher)
	if apperr.KindOf(err) != apperr.Unauthorized {
		t.Errorf("got %v, want Unauthorized", err)
	}
}

func TestUpdateMovesAssignment(t *testing.T) {
	t.Parallel()
	s, _ := newService(t)

	if err := s.Add(Assignment{Email: "doc@colegio.cr", SubjectID: "MAT01", SectionID: "SEC01", Term: "2026"}, staff); err != nil {
		t.Fatal(err)
	}

	updated := Assignment{Email: "doc@colegio.cr", SubjectID: "MAT01", SectionID: "SEC02", Type: "Titular", Term: "2026"}
	if err := s.Update(Key{"doc@colegio.cr", "SEC01", "2026"}, updated, staff); err != nil {
		t.Fatal(err)
	}

	ok, _ := s.IsAssigned("doc@colegio.cr", "MAT01", "SEC02")
	if !ok {
		t.Error("IsAssigned after move: got false, want true")
	}
	ok, _ = s.IsAssigned("doc@colegio.cr", "MAT01", "SEC01")
	if ok {
		t.Error("old assignment still present after move")
	}
}

func TestUpdateRejectsMoveOntoExistingKey(t *testing.T) {
	t.Parallel()
	s, _ := newService(t)

	if err := s.Add(Assignment{Email: "doc@colegio.cr", SubjectID: "MAT01", SectionID: "SEC01", Term: "2026"}, staff); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(Assignment{Email: "doc@colegio.cr", SubjectID: "MAT02", SectionID: "SEC02", Term: "2026"}, staff); err != nil {
		t.Fatal(err)
	}

	moved := Assignment{Email: "doc@colegio.cr", SubjectID: "MAT01", SectionID: "SEC02", Term: "2026"}
	err := s.Update(Key{"doc@colegio.cr", "SEC01", "2026"}, moved, staff)
	if apperr.KindOf(err) != apperr.DuplicateKey {
		t.Errorf("got %v, want DuplicateKey", err)
	}
}

func TestUpdateUnknownKey(t *testing.T) {
	t.Parallel()
	s, _ := newService(t)

	err := s.Update(Key{"nadie@colegio.cr", "SEC01", "2026"}, Assignment{}, staff)
	if apperr.KindOf(err) != apperr.NotFound {
		t.Errorf("got %v, want NotFound", err)
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()
	s, _ := newService(t)

	if err := s.Add(Assignment{Email: "doc@colegio.cr", SubjectID: "MAT01", SectionID: "SEC01", Term: "2026"}, staff); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(Key{"doc@colegio.cr", "SEC01", "2026"}, staff); err != nil {
		t.Fatal(err)
	}

	if err := s.Remove(Key{"doc@colegio.cr", "SEC01", "2026"}, staff); apperr.KindOf(err) != apperr.NotFound {
		t.Errorf("second remove: got %v, want NotFound", err)
	}
}
