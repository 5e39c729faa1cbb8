package assignment

import (
	"strings"

	"sistemaAcademico/apperr"
	"sistemaAcademico/auth"
	"sistemaAcademico/logger"
	"sistemaAcademico/store"
)

// Assignment is one CargaAcademica row: the authorization for a teacher to
// work a subject in a section during a term. Natural key: (Email,
// id_seccion, Ciclo).
type Assignment struct {
	Email     string
	SubjectID string
	SectionID string
	Type      string
	Term      string
}

type Key struct {
	Email     string
	SectionID string
	Term      string
}

type Service struct {
	store store.TabularStore
	logr  *logger.Logger
}

func NewService(st store.TabularStore, logr *logger.Logger) *Service {
	return &Service{store: st, logr: logr}
}

// IsAssigned reports whether email holds an assignment for the subject and
// section, in any term. This is the check grading authorization rides on.
func (s *Service) IsAssigned(email, subjectID, sectionID string) (bool, error) {
	rows, err := s.store.ReadAll(store.TableAssignments)
	if err != nil {
		return false, apperr.Wrap(apperr.StoreUnavailable, err, "cannot read teaching assignments")
	}

	email = strings.ToLower(strings.TrimSpace(email))
	for _, row := range rows {
		if strings.ToLower(row.Get("Email")) == email &&
			row.Get("id_materia") == strings.TrimSpace(subjectID) &&
			row.Get("id_seccion") == strings.TrimSpace(sectionID) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) List() ([]Assignment, error) {
	rows, err := s.store.ReadAll(store.TableAssignments)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, err, "cannot read teaching assignments")
	}

	out := make([]Assignment, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, nil
}

func (s *Service) Add(a Assignment, who auth.Principal) error {
	if !who.IsStaff() {
		return apperr.New(apperr.Unauthorized, "only staff may manage teaching assignments")
	}

	rows, err := s.store.ReadAll(store.TableAssignments)
	if err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, err, "cannot read teaching assignments")
	}
	if _, found := findByKey(rows, Key{a.Email, a.SectionID, a.Term}); found {
		return apperr.New(apperr.DuplicateKey, "assignment already exists for %s in %s (%s)", a.Email, a.SectionID, a.Term)
	}

	if err := s.store.AppendRow(store.TableAssignments, []string{a.Email, a.SubjectID, a.SectionID, a.Type, a.Term}); err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, err, "cannot append teaching assignment")
	}
	s.logr.Infof("assignment: added %s -> %s/%s (%s)", a.Email, a.SubjectID, a.SectionID, a.Term)
	return nil
}

func (s *Service) Update(original Key, a Assignment, who auth.Principal) error {
	if !who.IsStaff() {
		return apperr.New(apperr.Unauthorized, "only staff may manage teaching assignments")
	}

	rows, err := s.store.ReadAll(store.TableAssignments)
	if err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, err, "cannot read teaching assignments")
	}

	row, found := findByKey(rows, original)
	if !found {
		return apperr.New(apperr.NotFound, "no assignment for %s in %s (%s)", original.Email, original.SectionID, original.Term)
	}

	moved := a.Email != original.Email || a.SectionID != original.SectionID || a.Term != original.Term
	if moved {
		if dup, dupFound := findByKey(rows, Key{a.Email, a.SectionID, a.Term}); dupFound && dup.Num != row.Num {
			return apperr.New(apperr.DuplicateKey, "assignment already exists for %s in %s (%s)", a.Email, a.SectionID, a.Term)
		}
	}

	cells := map[string]string{
		"Email":          a.Email,
		"id_materia":     a.SubjectID,
		"id_seccion":     a.SectionID,
		"TipoAsignacion": a.Type,
		"Ciclo":          a.Term,
	}
	for column, value := range cells {
		if err := s.store.SetCell(store.TableAssignments, row.Num, column, value); err != nil {
			return apperr.Wrap(apperr.StoreUnavailable, err, "cannot update teaching assignment")
		}
	}
	return nil
}

func (s *Service) Remove(key Key, who auth.Principal) error {
	if !who.IsStaff() {
		return apperr.New(apperr.Unauthorized, "only staff may manage teaching assignments")
	}

	rows, err := s.store.ReadAll(store.TableAssignments)
	if err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, err, "cannot read teaching assignments")
	}

	row, found := findByKey(rows, key)
	if !found {
		return apperr.New(apperr.NotFound, "no assignment for %s in %s (%s)", key.Email, key.SectionID, key.Term)
	}

	if err := s.store.DeleteRow(store.TableAssignments, row.Num); err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, err, "cannot delete teaching assignment")
	}
	s.logr.Infof("assignment: removed %s in %s (%s)", key.Email, key.SectionID, key.Term)
	return nil
}

func fromRow(row store.Row) Assignment {
	return Assignment{
		Email:     row.Get("Email"),
		SubjectID: row.Get("id_materia"),
		SectionID: row.Get("id_seccion"),
		Type:      row.Get("TipoAsignacion"),
		Term:      row.Get("Ciclo"),
	}
}

func findByKey(rows []store.Row, key Key) (store.Row, bool) {
	email := strings.ToLower(strings.TrimSpace(key.Email))
	for _, row := range rows {
		if strings.ToLower(row.Get("Email")) == email &&
			row.Get("id_seccion") == strings.TrimSpace(key.SectionID) &&
			row.Get("Ciclo") == strings.TrimSpace(key.Term) {
			return row, true
		}
	}
	return store.Row{}, false
}
