package auth

import (
	"strings"

	"sistemaAcademico/access"
	"sistemaAcademico/logger"
	"sistemaAcademico/store"
)

type Role string

const (
	RoleAdmin      Role = "Administrador"
	RoleRegistrar  Role = "Secretaria"
	RoleTeacher    Role = "Docente"
	RoleGuardian   Role = "Encargado"
	RoleUnassigned Role = ""
)

// Principal is the resolved acting identity. AccessSet carries student ids
// for guardians and section ids for teachers; the meaning is the caller's
// business, the gate only splits the stored string.
type Principal struct {
	Identity    string
	DisplayName string
	Role        Role
	AccessSet   []string
}

func (p Principal) IsStaff() bool {
	return p.Role == RoleAdmin || p.Role == RoleRegistrar
}

func (p Principal) HasAccess(id string) bool {
	id = strings.TrimSpace(id)
	for _, a := range p.AccessSet {
		if a == id {
			return true
		}
	}
	return false
}

type Gate struct {
	store store.TabularStore
	logr  *logger.Logger
}

func NewGate(st store.TabularStore, logr *logger.Logger) *Gate {
	return &Gate{store: st, logr: logr}
}

// Resolve maps an identity to its role and access set by a case-insensitive
// lookup over Usuarios. Any failure resolves to Unassigned: an unreadable
// store must never grant access.
func (g *Gate) Resolve(identity string) Principal {
	identity = strings.ToLower(strings.TrimSpace(identity))
	unassigned := Principal{Identity: identity, Role: RoleUnassigned}

	rows, err := g.store.ReadAll(store.TableUsers)
	if err != nil {
		g.logr.Warnf("user lookup failed, treating %q as unassigned: %v", identity, err)
		return unassigned
	}

	for _, row := range rows {
		email := strings.ToLower(row.Get("Email"))
		if email == "" || email != identity {
			continue
		}
		return Principal{
			Identity:    identity,
			DisplayName: row.Get("Nombre"),
			Role:        NormalizeRole(row.Get("Rol")),
			AccessSet:   access.SplitSet(row.Get("Acceso")),
		}
	}

	return unassigned
}

// NormalizeRole folds the spellings the Usuarios sheet has accumulated over
// the years into the canonical roles.
func NormalizeRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "administrador":
		return RoleAdmin
	case "secretaria":
		return RoleRegistrar
	case "docente", "profesor":
		return RoleTeacher
	case "encargado", "padre":
		return RoleGuardian
	default:
		return RoleUnassigned
	}
}
