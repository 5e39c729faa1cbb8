package directory

import (
	"strings"

	"sistemaAcademico/access"
	"sistemaAcademico/apperr"
	"sistemaAcademico/auth"
	"sistemaAcademico/logger"
	"sistemaAcademico/store"
)

// Service maintains the directory tables: user accounts, guardian records,
// and the subject/section catalog. Everything here is plain keyed CRUD; the
// only invariants are the duplicate-key checks, done against a fresh scan
// because the store enforces nothing.
type Service struct {
	store store.TabularStore
	logr  *logger.Logger
}

func NewService(st store.TabularStore, logr *logger.Logger) *Service {
	return &Service{store: st, logr: logr}
}

type User struct {
	Email string
	Name  string
	Role  auth.Role
}

// GuardianDetails carries the extra fields a Guardian account needs; its ID
// is what student records reference.
type GuardianDetails struct {
	ID    string
	Phone string
}

type Guardian struct {
	ID    string
	Name  string
	Email string
	Phone string
}

// AddUser registers an account, and for guardians also the Encargados row
// the registry will resolve later. Accounts start with an empty access set.
func (s *Service) AddUser(u User, details *GuardianDetails, who auth.Principal) error {
	if who.Role != auth.RoleAdmin {
		return apperr.New(apperr.Unauthorized, "only administrators may add users")
	}
	u.Email = strings.TrimSpace(u.Email)
	if u.Email == "" || u.Name == "" {
		return apperr.New(apperr.ValidationFailed, "email and name are required")
	}

	users, err := s.store.ReadAll(store.TableUsers)
	if err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, err, "cannot read users")
	}
	for _, row := range users {
		if strings.EqualFold(row.Get("Email"), u.Email) {
			return apperr.New(apperr.DuplicateKey, "user %s already exists", u.Email)
		}
	}

	if u.Role == auth.RoleGuardian {
		if details == nil || strings.TrimSpace(details.ID) == "" {
			return apperr.New(apperr.ValidationFailed, "guardian id must not be empty")
		}
		id := strings.TrimSpace(details.ID)

		guardians, err := s.store.ReadAll(store.TableGuardians)
		if err != nil {
			return apperr.Wrap(apperr.StoreUnavailable, err, "cannot read guardians")
		}
		for _, row := range guardians {
			if row.Get("ID") == id {
				return apperr.New(apperr.DuplicateKey, "guardian %s already exists", id)
			}
		}

		if err := s.store.AppendRow(store.TableGuardians, []string{id, u.Name, u.Email, details.Phone}); err != nil {
			return apperr.Wrap(apperr.StoreUnavailable, err, "cannot append guardian")
		}
	}

	if err := s.store.AppendRow(store.TableUsers, []string{u.Email, u.Name, string(u.Role), ""}); err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, err, "cannot append user")
	}

	s.logr.Infof("directory: added user %s (%s)", u.Email, u.Role)
	return nil
}

// UpdateUser rewrites an account's name and access set. Guardian edits land
// on the Encargados row (matched by Correo) and leave Acceso alone, since a
// guardian's student attachments move only through the access ledger. Every
// other role gets its Acceso written here; this is how section ids reach a
// teacher's account.
func (s *Service) UpdateUser(email, newName string, accessSet []string, role auth.Role, who auth.Principal) error {
	if who.Role != auth.RoleAdmin {
		return apperr.New(apperr.Unauthorized, "only administrators may edit users")
	}
	email = strings.TrimSpace(email)

	table, emailColumn := store.TableUsers, "Email"
	if role == auth.RoleGuardian {
		table, emailColumn = store.TableGuardians, "Correo"
	}

	rows, err := s.store.ReadAll(table)
	if err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, err, "cannot read %s", table)
	}
	for _, row := range rows {
		if !strings.EqualFold(row.Get(emailColumn), email) {
			continue
		}
		if err := s.store.SetCell(table, row.Num, "Nombre", newName); err != nil {
			return apperr.Wrap(apperr.StoreUnavailable, err, "cannot update %s", email)
		}
		if role != auth.RoleGuardian {
			if err := s.store.SetCell(table, row.Num, "Acceso", access.JoinSet(accessSet)); err != nil {
				return apperr.Wrap(apperr.StoreUnavailable, err, "cannot update access for %s", email)
			}
		}
		return nil
	}
	return apperr.New(apperr.NotFound, "no user with email %s", email)
}

func (s *Service) ListUsers() ([]User, error) {
	rows, err := s.store.ReadAll(store.TableUsers)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, err, "cannot read users")
	}

	var out []User
	for _, row := range rows {
		if row.Get("Email") == "" {
			continue
		}
		out = append(out, User{
			Email: row.Get("Email"),
			Name:  row.Get("Nombre"),
			Role:  auth.NormalizeRole(row.Get("Rol")),
		})
	}
	return out, nil
}

func (s *Service) ListGuardians() ([]Guardian, error) {
	rows, err := s.store.ReadAll(store.TableGuardians)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, err, "cannot read guardians")
	}

	var out []Guardian
	for _, row := range rows {
		if row.Get("ID") == "" {
			continue
		}
		out = append(out, Guardian{
			ID:    row.Get("ID"),
			Name:  row.Get("Nombre"),
			Email: row.Get("Correo"),
			Phone: row.Get("Teléfono"),
		})
	}
	return out, nil
}
