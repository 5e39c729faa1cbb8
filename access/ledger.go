package access

import (
	"strings"
	"sync"

	"sistemaAcademico/apperr"
	"sistemaAcademico/logger"
	"sistemaAcademico/store"
)

const (
	colEmail  = "Email"
	colAccess = "Acceso"
)

// Ledger owns the Acceso column of Usuarios and its one invariant: a student
// id is attached to at most one account at any time. The column itself is a
// comma-joined denormalized set, so every mutation is a read-modify-write
// over the whole table; the mutex serializes those within this process. A
// concurrent writer in another process can still lose an update, but the
// strip phase of Attach keeps the final state single-valued either way.
type Ledger struct {
	mu    sync.Mutex
	store store.TabularStore
	logr  *logger.Logger
}

func NewLedger(st store.TabularStore, logr *logger.Logger) *Ledger {
	return &Ledger{store: st, logr: logr}
}

// Attach grants identity view access to studentID. It first strips the id
// from every account holding it, then adds it to the target, so a stale or
// inconsistent prior state heals itself on the next attach.
func (l *Ledger) Attach(identity, studentID string) error {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return apperr.New(apperr.ValidationFailed, "student id must not be empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.store.ReadAll(store.TableUsers)
	if err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, err, "cannot read user accounts")
	}

	for _, row := range rows {
		set := SplitSet(row.Get(colAccess))
		if !contains(set, studentID) {
			continue
		}
		if err := l.store.SetCell(store.TableUsers, row.Num, colAccess, JoinSet(remove(set, studentID))); err != nil {
			return apperr.Wrap(apperr.StoreUnavailable, err, "cannot revoke %s from %s", studentID, row.Get(colEmail))
		}
		l.logr.Infof("access: revoked %s from %s", studentID, row.Get(colEmail))
	}

	target, ok := findAccount(rows, identity)
	if !ok {
		return apperr.New(apperr.NotFound, "no account for %s", identity)
	}

	set := SplitSet(target.Get(colAccess))
	if !contains(set, studentID) {
		set = append(set, studentID)
	}
	if err := l.store.SetCell(store.TableUsers, target.Num, colAccess, JoinSet(set)); err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, err, "cannot grant %s to %s", studentID, identity)
	}

	l.logr.Infof("access: granted %s to %s", studentID, identity)
	return nil
}

// Detach removes studentID from identity's access set. A missing account and
// a missing attachment are distinct failures: callers freeing a slot must
// know whether it actually happened.
func (l *Ledger) Detach(identity, studentID string) error {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return apperr.New(apperr.ValidationFailed, "student id must not be empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.store.ReadAll(store.TableUsers)
	if err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, err, "cannot read user accounts")
	}

	target, ok := findAccount(rows, identity)
	if !ok {
		return apperr.New(apperr.NotFound, "no account for %s", identity)
	}

	set := SplitSet(target.Get(colAccess))
	if !contains(set, studentID) {
		return apperr.New(apperr.NotAttached, "%s is not attached to %s", studentID, identity)
	}

	if err := l.store.SetCell(store.TableUsers, target.Num, colAccess, JoinSet(remove(set, studentID))); err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, err, "cannot revoke %s from %s", studentID, identity)
	}

	l.logr.Infof("access: revoked %s from %s", studentID, identity)
	return nil
}

// Reassign moves an attachment from one account to another. Callers must
// only invoke it when the guardian reference actually changed; a no-op
// reassignment is not allowed to touch the ledger.
func (l *Ledger) Reassign(oldIdentity, newIdentity, studentID string) error {
	if err := l.Detach(oldIdentity, studentID); err != nil {
		return err
	}
	return l.Attach(newIdentity, studentID)
}

// SplitSet parses the stored Acceso string: comma-separated, entries
// trimmed, empties dropped.
func SplitSet(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func JoinSet(ids []string) string {
	return strings.Join(ids, ",")
}

func findAccount(rows []store.Row, identity string) (store.Row, bool) {
	identity = strings.ToLower(strings.TrimSpace(identity))
	for _, row := range rows {
		if strings.ToLower(row.Get(colEmail)) == identity && identity != "" {
			return row, true
		}
	}
	return store.Row{}, false
}

func contains(set []string, id string) bool {
	for _, s := range set {
		if s == id {
			return true
		}
	}
	return false
}

func remove(set []string, id string) []string {
	out := set[:0]
	for _, s := range set {
		if s != id {
			out = append(out, s)
		}
	}
	return out
}
