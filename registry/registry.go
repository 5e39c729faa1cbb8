package registry

import (
	"strings"

	"sistemaAcademico/access"
	"sistemaAcademico/apperr"
	"sistemaAcademico/auth"
	"sistemaAcademico/logger"
	"sistemaAcademico/store"
)

// Student is one Estudiantes row. Cedula is the natural key and is never
// generated here; it arrives from the caller as trimmed text.
type Student struct {
	Cedula        string
	FirstSurname  string
	SecondSurname string
	Name          string
	Nationality   string
	Sex           string
	BirthDate     string
	SectionID     string
	GuardianID    string
	Phone         string
}

// Service maintains student records. Guardian changes are the only path
// that touches the access ledger, and only when the reference actually
// changed value.
type Service struct {
	store  store.TabularStore
	ledger *access.Ledger
	logr   *logger.Logger
}

func NewService(st store.TabularStore, ledger *access.Ledger, logr *logger.Logger) *Service {
	return &Service{store: st, ledger: ledger, logr: logr}
}

func (s *Service) Create(student Student, who auth.Principal) error {
	if !who.IsStaff() {
		return apperr.New(apperr.Unauthorized, "only staff may create students")
	}
	student.Cedula = strings.TrimSpace(student.Cedula)
	if student.Cedula == "" || student.Name == "" {
		return apperr.New(apperr.ValidationFailed, "cedula and name are required")
	}

	rows, err := s.store.ReadAll(store.TableStudents)
	if err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, err, "cannot read students")
	}
	if _, found := findStudent(rows, student.Cedula); found {
		return apperr.New(apperr.DuplicateKey, "student %s already exists", student.Cedula)
	}

	guardianEmail, err := s.guardianEmail(student.GuardianID)
	if err != nil {
		return err
	}

	cells := []string{
		student.Cedula,
		student.FirstSurname,
		student.SecondSurname,
		student.Name,
		student.Nationality,
		student.Sex,
		student.BirthDate,
		student.SectionID,
		student.GuardianID,
		student.Phone,
	}
	if err := s.store.AppendRow(store.TableStudents, cells); err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, err, "cannot append student")
	}

	if err := s.ledger.Attach(guardianEmail, student.Cedula); err != nil {
		return err
	}

	s.logr.Infof("registry: created student %s (guardian %s)", student.Cedula, student.GuardianID)
	return nil
}

// Update rewrites a student's editable fields. When the guardian reference
// changed, the attachment moves through the ledger; an unchanged guardian
// must not touch the ledger at all.
func (s *Service) Update(student Student, who auth.Principal) error {
	if !who.IsStaff() {
		return apperr.New(apperr.Unauthorized, "only staff may edit students")
	}
	student.Cedula = strings.TrimSpace(student.Cedula)

	rows, err := s.store.ReadAll(store.TableStudents)
	if err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, err, "cannot read students")
	}
	row, found := findStudent(rows, student.Cedula)
	if !found {
		return apperr.New(apperr.NotFound, "student %s not found", student.Cedula)
	}

	previousGuardian := row.Get("Encargado ID")
	newGuardian := strings.TrimSpace(student.GuardianID)

	if previousGuardian != newGuardian {
		oldEmail, err := s.guardianEmail(previousGuardian)
		if err != nil {
			return err
		}
		newEmail, err := s.guardianEmail(newGuardian)
		if err != nil {
			return err
		}
		if err := s.ledger.Reassign(oldEmail, newEmail, student.Cedula); err != nil {
			return err
		}
	}

	updates := map[string]string{
		"Nombre":              student.Name,
		"Primer apellido":     student.FirstSurname,
		"Segundo apellido":    student.SecondSurname,
		"Sección":             student.SectionID,
		"Nacionalidad":        student.Nationality,
		"Sexo":                student.Sex,
		"Fecha de nacimiento": student.BirthDate,
		"Teléfono":            student.Phone,
		"Encargado ID":        newGuardian,
	}
	for column, value := range updates {
		if err := s.store.SetCell(store.TableStudents, row.Num, column, value); err != nil {
			return apperr.Wrap(apperr.StoreUnavailable, err, "cannot update student %s", student.Cedula)
		}
	}
	return nil
}

// Delete removes the student row, frees the guardian's attachment, and
// cascades into Calificaciones. There is no transaction underneath: a crash
// mid-delete leaves partial state, same as the store allows everywhere else.
func (s *Service) Delete(cedula string, who auth.Principal) error {
	if !who.IsStaff() {
		return apperr.New(apperr.Unauthorized, "only staff may delete students")
	}
	cedula = strings.TrimSpace(cedula)
	if cedula == "" {
		return apperr.New(apperr.ValidationFailed, "cedula is required")
	}

	rows, err := s.store.ReadAll(store.TableStudents)
	if err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, err, "cannot read students")
	}
	row, found := findStudent(rows, cedula)
	if !found {
		return apperr.New(apperr.NotFound, "student %s not found", cedula)
	}

	if guardianID := row.Get("Encargado ID"); guardianID != "" {
		email, err := s.guardianEmail(guardianID)
		if err == nil {
			if derr := s.ledger.Detach(email, cedula); derr != nil && apperr.KindOf(derr) != apperr.NotAttached {
				return derr
			}
		}
	}

	if err := s.store.DeleteRow(store.TableStudents, row.Num); err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, err, "cannot delete student %s", cedula)
	}

	// Cascade: drop the student's grade rows, bottom-up so the shifting
	// row numbers stay valid.
	grades, err := s.store.ReadAll(store.TableGrades)
	if err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, err, "cannot read grades")
	}
	for i := len(grades) - 1; i >= 0; i-- {
		if grades[i].Get("Cedula") == cedula {
			if err := s.store.DeleteRow(store.TableGrades, grades[i].Num); err != nil {
				return apperr.Wrap(apperr.StoreUnavailable, err, "cannot delete grades of %s", cedula)
			}
		}
	}

	s.logr.Infof("registry: deleted student %s", cedula)
	return nil
}

// AssignSection moves a student to another section.
func (s *Service) AssignSection(cedula, newSection string, who auth.Principal) error {
	if !who.IsStaff() {
		return apperr.New(apperr.Unauthorized, "only staff may reassign sections")
	}
	if strings.TrimSpace(newSection) == "" {
		return apperr.New(apperr.ValidationFailed, "new section is required")
	}

	rows, err := s.store.ReadAll(store.TableStudents)
	if err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, err, "cannot read students")
	}
	row, found := findStudent(rows, strings.TrimSpace(cedula))
	if !found {
		return apperr.New(apperr.NotFound, "student %s not found", cedula)
	}

	if err := s.store.SetCell(store.TableStudents, row.Num, "Sección", strings.TrimSpace(newSection)); err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, err, "cannot reassign section for %s", cedula)
	}
	s.logr.Infof("registry: %s moved to section %s", cedula, newSection)
	return nil
}

// ListFor filters students by the caller's role: staff see everyone,
// teachers see the sections in their access set, guardians see the students
// attached to their guardian record.
func (s *Service) ListFor(who auth.Principal) ([]Student, error) {
	rows, err := s.store.ReadAll(store.TableStudents)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, err, "cannot read students")
	}

	var out []Student
	switch {
	case who.IsStaff():
		for _, row := range rows {
			out = append(out, studentFromRow(row))
		}
	case who.Role == auth.RoleTeacher:
		for _, row := range rows {
			if who.HasAccess(row.Get("Sección")) {
				out = append(out, studentFromRow(row))
			}
		}
	case who.Role == auth.RoleGuardian:
		guardianID, err := s.guardianIDByEmail(who.Identity)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if guardianID != "" && row.Get("Encargado ID") == guardianID {
				out = append(out, studentFromRow(row))
			}
		}
	}
	return out, nil
}

// guardianEmail resolves a guardian id to the Correo of its Encargados row.
func (s *Service) guardianEmail(guardianID string) (string, error) {
	guardianID = strings.TrimSpace(guardianID)
	if guardianID == "" {
		return "", apperr.New(apperr.ValidationFailed, "guardian id is required")
	}

	rows, err := s.store.ReadAll(store.TableGuardians)
	if err != nil {
		return "", apperr.Wrap(apperr.StoreUnavailable, err, "cannot read guardians")
	}
	for _, row := range rows {
		if row.Get("ID") == guardianID {
			email := row.Get("Correo")
			if email == "" {
				return "", apperr.New(apperr.ValidationFailed, "guardian %s has no email on record", guardianID)
			}
			return email, nil
		}
	}
	return "", apperr.New(apperr.NotFound, "guardian %s not found", guardianID)
}

func (s *Service) guardianIDByEmail(email string) (string, error) {
	rows, err := s.store.ReadAll(store.TableGuardians)
	if err != nil {
		return "", apperr.Wrap(apperr.StoreUnavailable, err, "cannot read guardians")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, row := range rows {
		if strings.ToLower(row.Get("Correo")) == email {
			return row.Get("ID"), nil
		}
	}
	return "", nil
}

func studentFromRow(row store.Row) Student {
	return Student{
		Cedula:        row.Get("Cédula"),
		FirstSurname:  row.Get("Primer apellido"),
		SecondSurname: row.Get("Segundo apellido"),
		Name:          row.Get("Nombre"),
		Nationality:   row.Get("Nacionalidad"),
		Sex:           row.Get("Sexo"),
		BirthDate:     row.Get("Fecha de nacimiento"),
		SectionID:     row.Get("Sección"),
		GuardianID:    row.Get("Encargado ID"),
		Phone:         row.Get("Teléfono"),
	}
}

func findStudent(rows []store.Row, cedula string) (store.Row, bool) {
	for _, row := range rows {
		if row.Get("Cédula") == cedula {
			return row, true
		}
	}
	return store.Row{}, false
}
