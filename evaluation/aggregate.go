package evaluation

import (
	"math"
	"strconv"
	"strings"

	"sistemaAcademico/apperr"
	"sistemaAcademico/store"
)

// StudentTotal is the weighted sum of a student's grades over the active
// instruments of one (section, subject, term).
type StudentTotal struct {
	StudentID string
	Name      string
	Total     float64
}

// Aggregate projects the final weighted score for every student enrolled in
// the section. An instrument with no grade recorded for a student simply
// contributes zero. Read-only: nothing is written back.
func (s *Service) Aggregate(sectionID, subjectID, term string) ([]StudentTotal, error) {
	instruments, err := s.store.ReadAll(store.TableEvaluations)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, err, "cannot read instruments")
	}

	weights := make(map[string]float64)
	for _, row := range instruments {
		in := instrumentFromRow(row)
		if in.Active && in.SectionID == sectionID && in.SubjectID == subjectID && in.Term == term {
			weights[in.ID] = in.Weight
		}
	}

	grades, err := s.store.ReadAll(store.TableGrades)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, err, "cannot read grades")
	}

	roster, err := s.sectionRoster(sectionID)
	if err != nil {
		return nil, err
	}

	out := make([]StudentTotal, 0, len(roster))
	for _, student := range roster {
		var total float64
		for id, weight := range weights {
			grade, ok := findGrade(grades, id, student.StudentID)
			if !ok {
				continue
			}
			score, _ := strconv.ParseFloat(grade.Get("Nota"), 64)
			total += score * weight / 100
		}
		student.Total = math.Round(total*100) / 100
		out = append(out, student)
	}
	return out, nil
}

// sectionRoster lists the section's students with their display names
// assembled from the Estudiantes name columns.
func (s *Service) sectionRoster(sectionID string) ([]StudentTotal, error) {
	rows, err := s.store.ReadAll(store.TableStudents)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, err, "cannot read students")
	}

	var out []StudentTotal
	for _, row := range rows {
		if row.Get("Sección") != strings.TrimSpace(sectionID) {
			continue
		}
		parts := []string{row.Get("Nombre"), row.Get("Primer apellido"), row.Get("Segundo apellido")}
		var name []string
		for _, p := range parts {
			if p != "" {
				name = append(name, p)
			}
		}
		out = append(out, StudentTotal{
			StudentID: row.Get("Cédula"),
			Name:      strings.Join(name, " "),
		})
	}
	return out, nil
}

func findGrade(rows []store.Row, instrumentID, studentID string) (store.Row, bool) {
	for _, row := range rows {
		if row.Get("id_evaluacion") == instrumentID && row.Get("Cedula") == studentID {
			return row, true
		}
	}
	return store.Row{}, false
}
