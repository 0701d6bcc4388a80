package decisor

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/theneilagencia/glimora-sub000/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS accounts (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	name            TEXT NOT NULL,
	linkedin_url    TEXT,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_accounts_organization_id ON accounts(organization_id);

CREATE TABLE IF NOT EXISTS decisors (
	id               TEXT PRIMARY KEY,
	account_id       TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	first_name       TEXT NOT NULL,
	last_name        TEXT NOT NULL DEFAULT '',
	title            TEXT NOT NULL DEFAULT '',
	linkedin_url     TEXT,
	avatar_url       TEXT NOT NULL DEFAULT '',
	location         TEXT NOT NULL DEFAULT '',
	tenure_months    INTEGER,
	decisor_score    INTEGER NOT NULL DEFAULT 0,
	decisor_label    TEXT NOT NULL DEFAULT 'IRRELEVANT_CONTACT',
	profile_complete BOOLEAN NOT NULL DEFAULT 0,
	scraped_at       DATETIME,
	seller_feedback  TEXT,
	feedback_notes   TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisors_account_url ON decisors(account_id, linkedin_url);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	var a model.Account
	err := s.db.QueryRowContext(ctx,
		`SELECT id, organization_id, name, linkedin_url FROM accounts WHERE id = ?`,
		id,
	).Scan(&a.ID, &a.OrganizationID, &a.Name, &a.LinkedInURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get account %s", id)
	}
	return &a, nil
}

func (s *SQLiteStore) ListAccountsWithLinkedInURL(ctx context.Context, filter AccountFilter) ([]model.Account, error) {
	query := `SELECT id, organization_id, name, linkedin_url FROM accounts
		WHERE linkedin_url IS NOT NULL AND linkedin_url <> ''`
	var arg string
	switch {
	case filter.AccountID != "":
		query += ` AND id = ?`
		arg = filter.AccountID
	case filter.OrganizationID != "":
		query += ` AND organization_id = ?`
		arg = filter.OrganizationID
	default:
		return nil, eris.New("sqlite: list accounts: empty filter")
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list accounts")
	}
	defer rows.Close() //nolint:errcheck

	var accounts []model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.OrganizationID, &a.Name, &a.LinkedInURL); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan account")
		}
		accounts = append(accounts, a)
	}
	return accounts, eris.Wrap(rows.Err(), "sqlite: iterate accounts")
}

func (s *SQLiteStore) CreateAccount(ctx context.Context, acct model.Account) (*model.Account, error) {
	if acct.ID == "" {
		acct.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, organization_id, name, linkedin_url) VALUES (?, ?, ?, ?)`,
		acct.ID, acct.OrganizationID, acct.Name, acct.LinkedInURL,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert account")
	}
	return &acct, nil
}

func (s *SQLiteStore) FindDecisorByNormalizedURL(ctx context.Context, accountID, normalizedURL string) (*model.Decisor, error) {
	d, err := scanDecisor(s.db.QueryRowContext(ctx,
		`SELECT `+decisorColumns+` FROM decisors WHERE account_id = ? AND linkedin_url = ? LIMIT 1`,
		accountID, normalizedURL,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: find decisor by url %s", normalizedURL)
	}
	return &d, nil
}

func (s *SQLiteStore) CreateDecisor(ctx context.Context, nd model.NewDecisor) (*model.Decisor, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO decisors (id, account_id, first_name, last_name, title, linkedin_url, avatar_url, location,
			tenure_months, decisor_score, decisor_label, profile_complete, scraped_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, nd.AccountID, nd.FirstName, nd.LastName, nd.Title, nd.LinkedInURL, nd.AvatarURL, nd.Location,
		nd.TenureMonths, nd.DecisorScore, string(nd.DecisorLabel), nd.ProfileComplete, nd.ScrapedAt.UTC(), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert decisor")
	}
	return newDecisorRecord(id, nd, now), nil
}

// UpdateDecisor mirrors the Postgres write: score and label only move while
// seller_feedback is NULL.
func (s *SQLiteStore) UpdateDecisor(ctx context.Context, id string, u model.DecisorUpdate) (*model.Decisor, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE decisors SET
			first_name = ?, last_name = ?, title = ?, avatar_url = ?, location = ?,
			tenure_months = ?, profile_complete = ?, scraped_at = ?,
			decisor_score = CASE WHEN seller_feedback IS NULL THEN COALESCE(?, decisor_score) ELSE decisor_score END,
			decisor_label = CASE WHEN seller_feedback IS NULL THEN COALESCE(?, decisor_label) ELSE decisor_label END,
			updated_at = ?
		WHERE id = ?`,
		u.FirstName, u.LastName, u.Title, u.AvatarURL, u.Location,
		u.TenureMonths, u.ProfileComplete, u.ScrapedAt.UTC(),
		u.DecisorScore, labelArg(u.DecisorLabel), time.Now().UTC(), id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update decisor %s", id)
	}
	if err := checkRowsAffected(res, "decisor", id); err != nil {
		return nil, err
	}
	return s.getDecisor(ctx, id)
}

func (s *SQLiteStore) FindDecisorsForDeletion(ctx context.Context, accountID string, excludeURLs []string) ([]model.Decisor, error) {
	query := `SELECT ` + decisorColumns + ` FROM decisors
		WHERE account_id = ? AND seller_feedback IS NULL AND linkedin_url IS NOT NULL`
	args := []any{accountID}
	if len(excludeURLs) > 0 {
		query += ` AND linkedin_url NOT IN (` + placeholders(len(excludeURLs)) + `)`
		for _, u := range excludeURLs {
			args = append(args, u)
		}
	}
	query += ` ORDER BY created_at, id`
	return s.queryDecisors(ctx, "find decisors for deletion", query, args...)
}

func (s *SQLiteStore) FindDecisorsWithInvalidURL(ctx context.Context, accountID string) ([]model.Decisor, error) {
	return s.queryDecisors(ctx, "find decisors with invalid url",
		`SELECT `+decisorColumns+` FROM decisors
		WHERE account_id = ? AND seller_feedback IS NULL AND (linkedin_url IS NULL OR linkedin_url = '')
		ORDER BY created_at, id`,
		accountID,
	)
}

func (s *SQLiteStore) ListDecisors(ctx context.Context, accountID string) ([]model.Decisor, error) {
	return s.queryDecisors(ctx, "list decisors",
		`SELECT `+decisorColumns+` FROM decisors WHERE account_id = ?
		ORDER BY decisor_score DESC, last_name, first_name, id`,
		accountID,
	)
}

func (s *SQLiteStore) DeleteDecisors(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM decisors WHERE id IN (`+placeholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete decisors")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}

func (s *SQLiteStore) SetSellerFeedback(ctx context.Context, id string, feedback model.SellerFeedback, notes string) (*model.Decisor, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE decisors SET seller_feedback = ?, feedback_notes = ?, updated_at = ? WHERE id = ?`,
		string(feedback), notes, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: set seller feedback %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return nil, nil
	}
	return s.getDecisor(ctx, id)
}

func (s *SQLiteStore) getDecisor(ctx context.Context, id string) (*model.Decisor, error) {
	d, err := scanDecisor(s.db.QueryRowContext(ctx,
		`SELECT `+decisorColumns+` FROM decisors WHERE id = ?`, id,
	))
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get decisor %s", id)
	}
	return &d, nil
}

func (s *SQLiteStore) queryDecisors(ctx context.Context, op, query string, args ...any) ([]model.Decisor, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: %s", op)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Decisor
	for rows.Next() {
		d, err := scanDecisor(rows)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: %s: scan", op)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "sqlite: %s: iterate", op)
	}
	return out, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
