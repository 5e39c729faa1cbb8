package evaluation

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"sistemaAcademico/apperr"
	"sistemaAcademico/auth"
	"sistemaAcademico/store"
)

// GradeEntry is one submitted grade. Score arrives as text and must parse to
// a number in [0,100]; it is persisted with fixed two-decimal formatting.
type GradeEntry struct {
	InstrumentID string
	StudentID    string
	StudentName  string
	Score        string
	Remarks      string
}

// UpsertGrades processes entries sequentially. Each entry is validated,
// authorized and written before the next is looked at; the first failure
// aborts the call and is the only thing reported. Writes already made stay
// committed — the caller cannot tell from the error which earlier entries
// landed. That asymmetry is inherited behavior and is pinned by tests; do
// not quietly make the batch atomic.
func (s *Service) UpsertGrades(entries []GradeEntry, who auth.Principal) error {
	if !(who.IsStaff() || who.Role == auth.RoleTeacher) {
		return apperr.New(apperr.Unauthorized, "role %q may not record grades", who.Role)
	}
	if len(entries) == 0 {
		return apperr.New(apperr.ValidationFailed, "no grade entries supplied")
	}

	for _, entry := range entries {
		if err := s.upsertOne(entry, who); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) upsertOne(entry GradeEntry, who auth.Principal) error {
	instrumentID := strings.TrimSpace(entry.InstrumentID)
	studentID := strings.TrimSpace(entry.StudentID)
	if instrumentID == "" || studentID == "" {
		return apperr.New(apperr.ValidationFailed, "grade entry needs instrument and student ids")
	}

	score, err := strconv.ParseFloat(strings.TrimSpace(entry.Score), 64)
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "score %q is not a number", entry.Score)
	}
	if score < 0 || score > 100 {
		return apperr.New(apperr.ValidationFailed, "score %.2f outside [0,100]", score)
	}

	instrument, err := s.GetInstrument(instrumentID)
	if err != nil {
		return err
	}

	if err := s.authorizeGrading(instrument, who); err != nil {
		return err
	}

	rows, err := s.store.ReadAll(store.TableGrades)
	if err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, err, "cannot read grades")
	}

	now := nowStamp()
	for _, row := range rows {
		if row.Get("id_evaluacion") != instrumentID || row.Get("Cedula") != studentID {
			continue
		}
		// Existing (instrument, student) pair: update in place, never a
		// second row for the same key.
		updates := map[string]string{
			"Nota":               formatScore(score),
			"Observaciones":      entry.Remarks,
			"FechaCalificacion":  now,
			"CalificadoPorEmail": who.Identity,
		}
		for column, value := range updates {
			if err := s.store.SetCell(store.TableGrades, row.Num, column, value); err != nil {
				return apperr.Wrap(apperr.StoreUnavailable, err, "cannot update grade for %s/%s", instrumentID, studentID)
			}
		}
		s.logr.Infof("grades: %s updated %s for %s", who.Identity, instrumentID, studentID)
		return nil
	}

	id := fmt.Sprintf("CAL-%d-%d", timestampToken(), rand.Intn(1000))
	cells := []string{
		id,
		instrumentID,
		studentID,
		entry.StudentName,
		formatScore(score),
		entry.Remarks,
		now,
		who.Identity,
	}
	if err := s.store.AppendRow(store.TableGrades, cells); err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, err, "cannot append grade for %s/%s", instrumentID, studentID)
	}
	s.logr.Infof("grades: %s recorded %s for %s", who.Identity, instrumentID, studentID)
	return nil
}

// authorizeGrading admits staff, the instrument's creator, and teachers
// whose assignment covers the instrument's subject and section.
func (s *Service) authorizeGrading(instrument Instrument, who auth.Principal) error {
	if who.IsStaff() {
		return nil
	}
	if strings.EqualFold(instrument.CreatedBy, who.Identity) {
		return nil
	}
	assigned, err := s.assignments.IsAssigned(who.Identity, instrument.SubjectID, instrument.SectionID)
	if err != nil {
		return err
	}
	if !assigned {
		return apperr.New(apperr.Unauthorized, "%s may not grade instrument %s", who.Identity, instrument.ID)
	}
	return nil
}
