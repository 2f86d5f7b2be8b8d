package sqlite

import (
	"context"
	"database/sql"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so the same queries run
// inside and outside a transaction.
type dbtx interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type queries struct {
	db dbtx
}

func newQueries(db dbtx) *queries {
	return &queries{db: db}
}

type principalRow struct {
	ID        string
	Identity  string
	Name      string
	CreatedAt int64
	UpdatedAt int64
}

const principalColumns = `id, identity, name, created_at, updated_at`

func scanPrincipal(row *sql.Row) (principalRow, error) {
	var r principalRow
	err := row.Scan(&r.ID, &r.Identity, &r.Name, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

const getPrincipalByID = `SELECT ` + principalColumns + ` FROM principals WHERE id = ?`

func (q *queries) GetPrincipalByID(ctx context.Context, id string) (principalRow, error) {
	return scanPrincipal(q.db.QueryRowContext(ctx, getPrincipalByID, id))
}

const getPrincipalByIdentity = `SELECT ` + principalColumns + ` FROM principals WHERE identity = ?`

func (q *queries) GetPrincipalByIdentity(ctx context.Context, identity string) (principalRow, error) {
	return scanPrincipal(q.db.QueryRowContext(ctx, getPrincipalByIdentity, identity))
}

const createPrincipal = `INSERT INTO principals (id, identity, name, password_hash, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *queries) CreatePrincipal(ctx context.Context, r principalRow, passwordHash sql.NullString) error {
	_, err := q.db.ExecContext(ctx, createPrincipal, r.ID, r.Identity, r.Name, passwordHash, r.CreatedAt, r.UpdatedAt)
	return err
}

const deletePrincipal = `DELETE FROM principals WHERE id = ?`

func (q *queries) DeletePrincipal(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deletePrincipal, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type challengeRow struct {
	Identity  string
	CodeHash  string
	ExpiresAt int64
	CreatedAt int64
}

// Upsert keeps the one-challenge-per-identity rule in a single statement.
const upsertChallenge = `INSERT INTO otp_challenges (identity, code_hash, expires_at, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (identity) DO UPDATE SET
    code_hash  = excluded.code_hash,
    expires_at = excluded.expires_at,
    created_at = excluded.created_at`

func (q *queries) UpsertChallenge(ctx context.Context, r challengeRow) error {
	_, err := q.db.ExecContext(ctx, upsertChallenge, r.Identity, r.CodeHash, r.ExpiresAt, r.CreatedAt)
	return err
}

const getChallenge = `SELECT identity, code_hash, expires_at, created_at FROM otp_challenges WHERE identity = ?`

func (q *queries) GetChallenge(ctx context.Context, identity string) (challengeRow, error) {
	var r challengeRow
	err := q.db.QueryRowContext(ctx, getChallenge, identity).Scan(&r.Identity, &r.CodeHash, &r.ExpiresAt, &r.CreatedAt)
	return r, err
}

const deleteChallenge = `DELETE FROM otp_challenges WHERE identity = ?`

func (q *queries) DeleteChallenge(ctx context.Context, identity string) error {
	_, err := q.db.ExecContext(ctx, deleteChallenge, identity)
	return err
}

const deleteExpiredChallenges = `DELETE FROM otp_challenges WHERE expires_at <= ?`

func (q *queries) DeleteExpiredChallenges(ctx context.Context, nowMillis int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpiredChallenges, nowMillis)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type registrationRow struct {
	Identity  string
	ExpiresAt int64
	CreatedAt int64
}

const upsertRegistration = `INSERT INTO pending_registrations (identity, expires_at, created_at)
VALUES (?, ?, ?)
ON CONFLICT (identity) DO UPDATE SET
    expires_at = excluded.expires_at,
    created_at = excluded.created_at`

func (q *queries) UpsertRegistration(ctx context.Context, r registrationRow) error {
	_, err := q.db.ExecContext(ctx, upsertRegistration, r.Identity, r.ExpiresAt, r.CreatedAt)
	return err
}

const getRegistration = `SELECT identity, expires_at, created_at FROM pending_registrations WHERE identity = ?`

func (q *queries) GetRegistration(ctx context.Context, identity string) (registrationRow, error) {
	var r registrationRow
	err := q.db.QueryRowContext(ctx, getRegistration, identity).Scan(&r.Identity, &r.ExpiresAt, &r.CreatedAt)
	return r, err
}

const deleteRegistration = `DELETE FROM pending_registrations WHERE identity = ?`

func (q *queries) DeleteRegistration(ctx context.Context, identity string) error {
	_, err := q.db.ExecContext(ctx, deleteRegistration, identity)
	return err
}

const deleteExpiredRegistrations = `DELETE FROM pending_registrations WHERE expires_at <= ?`

func (q *queries) DeleteExpiredRegistrations(ctx context.Context, nowMillis int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpiredRegistrations, nowMillis)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
