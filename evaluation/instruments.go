package evaluation

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"sistemaAcademico/apperr"
	"sistemaAcademico/assignment"
	"sistemaAcademico/auth"
	"sistemaAcademico/logger"
	"sistemaAcademico/store"
)

// weightTolerance absorbs float error when summing instrument weights
// against the 100% budget.
const weightTolerance = 1e-9

// Instrument is one Evaluaciones row: a gradable assessment carrying a
// percentage weight toward the final score of (subject, section, term).
type Instrument struct {
	ID          string
	SubjectID   string
	ClassID     string
	SectionID   string
	TypeID      string
	TypeLabel   string
	Date        string
	Weight      float64
	Description string
	CreatedBy   string
	Term        string
	Active      bool
	CreatedAt   string
}

// InstrumentPayload is the caller-supplied part of a new instrument.
type InstrumentPayload struct {
	SubjectID   string
	ClassID     string
	SectionID   string
	TypeID      string
	TypeLabel   string
	Date        string
	Weight      float64
	Description string
	Term        string
}

// Service covers both sides of evaluation: weight allocation over
// instruments and the grade ledger beneath them.
type Service struct {
	store       store.TabularStore
	assignments *assignment.Service
	logr        *logger.Logger
}

func NewService(st store.TabularStore, assignments *assignment.Service, logr *logger.Logger) *Service {
	return &Service{store: st, assignments: assignments, logr: logr}
}

// CreateInstrument validates and appends a new instrument. The weight budget
// check sums the active instruments of the same (subject, section, term)
// against a snapshot; it is a hard guarantee for sequential calls only — two
// concurrent creates can each pass against stale reads.
func (s *Service) CreateInstrument(p InstrumentPayload, who auth.Principal) (string, error) {
	if p.SubjectID == "" || p.SectionID == "" || p.TypeID == "" || p.Weight == 0 {
		return "", apperr.New(apperr.ValidationFailed, "missing required fields")
	}
	if p.Weight < 0 || p.Weight > 100 {
		return "", apperr.New(apperr.ValidationFailed, "weight %.2f outside (0,100]", p.Weight)
	}
	if !(who.IsStaff() || who.Role == auth.RoleTeacher) {
		return "", apperr.New(apperr.Unauthorized, "role %q may not create instruments", who.Role)
	}
	if who.Role == auth.RoleTeacher {
		assigned, err := s.assignments.IsAssigned(who.Identity, p.SubjectID, p.SectionID)
		if err != nil {
			return "", err
		}
		if !assigned {
			return "", apperr.New(apperr.Unauthorized, "%s is not assigned to %s/%s", who.Identity, p.SubjectID, p.SectionID)
		}
	}

	rows, err := s.store.ReadAll(store.TableEvaluations)
	if err != nil {
		return "", apperr.Wrap(apperr.StoreUnavailable, err, "cannot read instruments")
	}

	var sum float64
	for _, row := range rows {
		in := instrumentFromRow(row)
		if in.Active && in.SubjectID == p.SubjectID && in.SectionID == p.SectionID && in.Term == p.Term {
			sum += in.Weight
		}
	}
	if sum+p.Weight > 100+weightTolerance {
		return "", apperr.New(apperr.BudgetExceeded, "weight sum would exceed 100 (current: %.2f, new: %.2f)", sum, p.Weight)
	}

	id := fmt.Sprintf("EVAL-%d", timestampToken())
	cells := []string{
		id,
		p.SubjectID,
		p.ClassID,
		p.SectionID,
		p.TypeID,
		p.Date,
		p.TypeLabel,
		formatScore(p.Weight),
		p.Description,
		who.Identity,
		p.Term,
		"true",
		nowStamp(),
	}
	if err := s.store.AppendRow(store.TableEvaluations, cells); err != nil {
		return "", apperr.Wrap(apperr.StoreUnavailable, err, "cannot append instrument")
	}

	s.logr.Infof("evaluation: %s created %s (%.2f%% of %s/%s %s)", who.Identity, id, p.Weight, p.SubjectID, p.SectionID, p.Term)
	return id, nil
}

// GetInstrument resolves an instrument by id.
func (s *Service) GetInstrument(id string) (Instrument, error) {
	rows, err := s.store.ReadAll(store.TableEvaluations)
	if err != nil {
		return Instrument{}, apperr.Wrap(apperr.StoreUnavailable, err, "cannot read instruments")
	}
	for _, row := range rows {
		if row.Get("id_evaluacion") == strings.TrimSpace(id) {
			return instrumentFromRow(row), nil
		}
	}
	return Instrument{}, apperr.New(apperr.NotFound, "instrument %s not found", id)
}

// ListFor returns the instruments visible to the caller: staff see all,
// teachers see what they created plus what their assignments cover.
func (s *Service) ListFor(who auth.Principal) ([]Instrument, error) {
	rows, err := s.store.ReadAll(store.TableEvaluations)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, err, "cannot read instruments")
	}

	out := make([]Instrument, 0, len(rows))
	for _, row := range rows {
		in := instrumentFromRow(row)
		if who.IsStaff() {
			out = append(out, in)
			continue
		}
		if strings.EqualFold(in.CreatedBy, who.Identity) {
			out = append(out, in)
			continue
		}
		assigned, err := s.assignments.IsAssigned(who.Identity, in.SubjectID, in.SectionID)
		if err != nil {
			return nil, err
		}
		if assigned {
			out = append(out, in)
		}
	}
	return out, nil
}

// Deactivate retires an instrument from the weight budget and aggregation.
// Instruments are never structurally edited; this is the only state change
// they support.
func (s *Service) Deactivate(id string, who auth.Principal) error {
	rows, err := s.store.ReadAll(store.TableEvaluations)
	if err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, err, "cannot read instruments")
	}

	for _, row := range rows {
		if row.Get("id_evaluacion") != strings.TrimSpace(id) {
			continue
		}
		creator := strings.ToLower(row.Get("CreadoPorEmail"))
		if !who.IsStaff() && creator != strings.ToLower(who.Identity) {
			return apperr.New(apperr.Unauthorized, "%s may not deactivate %s", who.Identity, id)
		}
		if err := s.store.SetCell(store.TableEvaluations, row.Num, "Activo", "false"); err != nil {
			return apperr.Wrap(apperr.StoreUnavailable, err, "cannot deactivate %s", id)
		}
		s.logr.Infof("evaluation: %s deactivated %s", who.Identity, id)
		return nil
	}
	return apperr.New(apperr.NotFound, "instrument %s not found", id)
}

func instrumentFromRow(row store.Row) Instrument {
	weight, _ := strconv.ParseFloat(row.Get("PorcentajePonderado"), 64)
	return Instrument{
		ID:          row.Get("id_evaluacion"),
		SubjectID:   row.Get("id_materia"),
		ClassID:     row.Get("id_clase"),
		SectionID:   row.Get("id_seccion"),
		TypeID:      row.Get("id_tipo_evaluacion"),
		TypeLabel:   row.Get("TipoEvaluacionLabel"),
		Date:        row.Get("Fecha"),
		Weight:      weight,
		Description: row.Get("Descripcion"),
		CreatedBy:   row.Get("CreadoPorEmail"),
		Term:        row.Get("Ciclo"),
		Active:      strings.EqualFold(row.Get("Activo"), "true"),
		CreatedAt:   row.Get("creadoEn"),
	}
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func nowStamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

// Generated ids are prefixed millisecond tokens. The guard keeps them
// strictly increasing within the process so two creations in the same
// millisecond cannot collide.
var (
	stampMu   sync.Mutex
	lastStamp int64
)

func timestampToken() int64 {
	stampMu.Lock()
	defer stampMu.Unlock()

	now := time.Now().UnixMilli()
	if now <= lastStamp {
		now = lastStamp + 1
	}
	lastStamp = now
	return now
}
