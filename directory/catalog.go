package directory

import (
	"fmt"
	"strconv"
	"strings"

	"sistemaAcademico/apperr"
	"sistemaAcademico/auth"
	"sistemaAcademico/store"
)

type Subject struct {
	ID   string
	Code string
	Name string
}

type Section struct {
	ID       string
	Level    string
	Group    string
	Subgroup string
}

// AddSubject appends a subject under a generated MAT## correlative id.
// Duplicate code or name is rejected.
func (s *Service) AddSubject(code, name string, who auth.Principal) (string, error) {
	if !who.IsStaff() {
		return "", apperr.New(apperr.Unauthorized, "only staff may manage subjects")
	}
	if strings.TrimSpace(code) == "" || strings.TrimSpace(name) == "" {
		return "", apperr.New(apperr.ValidationFailed, "code and name are required")
	}

	subjects, err := s.ListSubjects()
	if err != nil {
		return "", err
	}
	for _, sub := range subjects {
		if strings.EqualFold(sub.Code, code) || strings.EqualFold(sub.Name, name) {
			return "", apperr.New(apperr.DuplicateKey, "subject with that code or name already exists")
		}
	}

	id := fmt.Sprintf("MAT%02d", nextCorrelative(subjectIDs(subjects)))
	if err := s.store.AppendRow(store.TableSubjects, []string{id, code, name}); err != nil {
		return "", apperr.Wrap(apperr.StoreUnavailable, err, "cannot append subject")
	}
	s.logr.Infof("directory: added subject %s (%s)", id, name)
	return id, nil
}

func (s *Service) ListSubjects() ([]Subject, error) {
	rows, err := s.store.ReadAll(store.TableSubjects)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, err, "cannot read subjects")
	}

	var out []Subject
	for _, row := range rows {
		if row.Get("id_materia") == "" {
			continue
		}
		out = append(out, Subject{
			ID:   row.Get("id_materia"),
			Code: row.Get("codigo"),
			Name: row.Get("nombre"),
		})
	}
	return out, nil
}

// AddSection appends a section under a generated SEC## id. The composite
// (Nivel, Grupo, Subgrupo) must be unique.
func (s *Service) AddSection(level, group, subgroup string, who auth.Principal) (string, error) {
	if !who.IsStaff() {
		return "", apperr.New(apperr.Unauthorized, "only staff may manage sections")
	}
	if strings.TrimSpace(level) == "" || strings.TrimSpace(group) == "" {
		return "", apperr.New(apperr.ValidationFailed, "level and group are required")
	}

	sections, err := s.ListSections()
	if err != nil {
		return "", err
	}
	var ids []string
	for _, sec := range sections {
		ids = append(ids, sec.ID)
		if sec.Level == strings.TrimSpace(level) && sec.Group == strings.TrimSpace(group) && sec.Subgroup == strings.TrimSpace(subgroup) {
			return "", apperr.New(apperr.DuplicateKey, "section %s-%s-%s already exists", level, group, subgroup)
		}
	}

	id := fmt.Sprintf("SEC%02d", nextCorrelative(ids))
	if err := s.store.AppendRow(store.TableSections, []string{id, level, group, subgroup}); err != nil {
		return "", apperr.Wrap(apperr.StoreUnavailable, err, "cannot append section")
	}
	s.logr.Infof("directory: added section %s", id)
	return id, nil
}

func (s *Service) ListSections() ([]Section, error) {
	rows, err := s.store.ReadAll(store.TableSections)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, err, "cannot read sections")
	}

	var out []Section
	for _, row := range rows {
		if row.Get("id_seccion") == "" {
			continue
		}
		out = append(out, Section{
			ID:       row.Get("id_seccion"),
			Level:    row.Get("Nivel"),
			Group:    row.Get("Grupo"),
			Subgroup: row.Get("Subgrupo"),
		})
	}
	return out, nil
}

func subjectIDs(subjects []Subject) []string {
	ids := make([]string, 0, len(subjects))
	for _, s := range subjects {
		ids = append(ids, s.ID)
	}
	return ids
}

// nextCorrelative derives the next numeric suffix from ids like MAT07: the
// largest embedded number plus one.
func nextCorrelative(ids []string) int {
	max := 0
	for _, id := range ids {
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, id)
		if digits == "" {
			continue
		}
		if n, err := strconv.Atoi(digits); err == nil && n > max {
			max = n
		}
	}
	return max + 1
}
