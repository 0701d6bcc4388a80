package decisor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/theneilagencia/glimora-sub000/internal/db"
	"github.com/theneilagencia/glimora-sub000/internal/model"
)

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres opens a pool and wraps it in a PostgresStore.
func NewPostgres(ctx context.Context, connString string, poolCfg db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Open(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: open")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. The caller keeps ownership.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS accounts (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	organization_id TEXT NOT NULL,
	name            TEXT NOT NULL,
	linkedin_url    TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_accounts_organization_id ON accounts(organization_id);

CREATE TABLE IF NOT EXISTS decisors (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
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
	profile_complete BOOLEAN NOT NULL DEFAULT false,
	scraped_at       TIMESTAMPTZ,
	seller_feedback  TEXT CHECK (seller_feedback IN ('CONFIRMED_DECISOR', 'NOT_DECISOR', 'NEEDS_REVIEW')),
	feedback_notes   TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_decisors_account_url ON decisors(account_id, linkedin_url);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, postgresMigration)
		return eris.Wrap(err, "postgres: migrate")
	})
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	var a model.Account
	err := s.pool.QueryRow(ctx,
		`SELECT id, organization_id, name, linkedin_url FROM accounts WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.OrganizationID, &a.Name, &a.LinkedInURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get account %s", id)
	}
	return &a, nil
}

func (s *PostgresStore) ListAccountsWithLinkedInURL(ctx context.Context, filter AccountFilter) ([]model.Account, error) {
	query := `SELECT id, organization_id, name, linkedin_url FROM accounts
		WHERE linkedin_url IS NOT NULL AND linkedin_url <> ''`
	var args []any
	switch {
	case filter.AccountID != "":
		query += ` AND id = $1`
		args = append(args, filter.AccountID)
	case filter.OrganizationID != "":
		query += ` AND organization_id = $1`
		args = append(args, filter.OrganizationID)
	default:
		return nil, eris.New("postgres: list accounts: empty filter")
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list accounts")
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.OrganizationID, &a.Name, &a.LinkedInURL); err != nil {
			return nil, eris.Wrap(err, "postgres: scan account")
		}
		accounts = append(accounts, a)
	}
	return accounts, eris.Wrap(rows.Err(), "postgres: iterate accounts")
}

func (s *PostgresStore) CreateAccount(ctx context.Context, acct model.Account) (*model.Account, error) {
	if acct.ID == "" {
		acct.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts (id, organization_id, name, linkedin_url) VALUES ($1, $2, $3, $4)`,
		acct.ID, acct.OrganizationID, acct.Name, acct.LinkedInURL,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert account")
	}
	return &acct, nil
}

func (s *PostgresStore) FindDecisorByNormalizedURL(ctx context.Context, accountID, normalizedURL string) (*model.Decisor, error) {
	d, err := scanDecisor(s.pool.QueryRow(ctx,
		`SELECT `+decisorColumns+` FROM decisors WHERE account_id = $1 AND linkedin_url = $2 LIMIT 1`,
		accountID, normalizedURL,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: find decisor by url %s", normalizedURL)
	}
	return &d, nil
}

func (s *PostgresStore) CreateDecisor(ctx context.Context, nd model.NewDecisor) (*model.Decisor, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO decisors (id, account_id, first_name, last_name, title, linkedin_url, avatar_url, location,
			tenure_months, decisor_score, decisor_label, profile_complete, scraped_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		id, nd.AccountID, nd.FirstName, nd.LastName, nd.Title, nd.LinkedInURL, nd.AvatarURL, nd.Location,
		nd.TenureMonths, nd.DecisorScore, string(nd.DecisorLabel), nd.ProfileComplete, nd.ScrapedAt, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert decisor")
	}
	return newDecisorRecord(id, nd, now), nil
}

// UpdateDecisor writes u. The score and label columns are only replaced
// while seller_feedback is NULL, so a reviewer verdict that lands between
// read and write still wins.
func (s *PostgresStore) UpdateDecisor(ctx context.Context, id string, u model.DecisorUpdate) (*model.Decisor, error) {
	d, err := scanDecisor(s.pool.QueryRow(ctx,
		`UPDATE decisors SET
			first_name = $1, last_name = $2, title = $3, avatar_url = $4, location = $5,
			tenure_months = $6, profile_complete = $7, scraped_at = $8,
			decisor_score = CASE WHEN seller_feedback IS NULL THEN COALESCE($9, decisor_score) ELSE decisor_score END,
			decisor_label = CASE WHEN seller_feedback IS NULL THEN COALESCE($10, decisor_label) ELSE decisor_label END,
			updated_at = $11
		WHERE id = $12
		RETURNING `+decisorColumns,
		u.FirstName, u.LastName, u.Title, u.AvatarURL, u.Location,
		u.TenureMonths, u.ProfileComplete, u.ScrapedAt,
		u.DecisorScore, labelArg(u.DecisorLabel), time.Now().UTC(), id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("decisor not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: update decisor %s", id)
	}
	return &d, nil
}

func (s *PostgresStore) FindDecisorsForDeletion(ctx context.Context, accountID string, excludeURLs []string) ([]model.Decisor, error) {
	if excludeURLs == nil {
		excludeURLs = []string{}
	}
	return s.queryDecisors(ctx, "find decisors for deletion",
		`SELECT `+decisorColumns+` FROM decisors
		WHERE account_id = $1 AND seller_feedback IS NULL AND linkedin_url <> ALL($2)
		ORDER BY created_at, id`,
		accountID, excludeURLs,
	)
}

func (s *PostgresStore) FindDecisorsWithInvalidURL(ctx context.Context, accountID string) ([]model.Decisor, error) {
	return s.queryDecisors(ctx, "find decisors with invalid url",
		`SELECT `+decisorColumns+` FROM decisors
		WHERE account_id = $1 AND seller_feedback IS NULL AND (linkedin_url IS NULL OR linkedin_url = '')
		ORDER BY created_at, id`,
		accountID,
	)
}

func (s *PostgresStore) ListDecisors(ctx context.Context, accountID string) ([]model.Decisor, error) {
	return s.queryDecisors(ctx, "list decisors",
		`SELECT `+decisorColumns+` FROM decisors WHERE account_id = $1
		ORDER BY decisor_score DESC, last_name, first_name, id`,
		accountID,
	)
}

func (s *PostgresStore) DeleteDecisors(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM decisors WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete decisors")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) SetSellerFeedback(ctx context.Context, id string, feedback model.SellerFeedback, notes string) (*model.Decisor, error) {
	d, err := scanDecisor(s.pool.QueryRow(ctx,
		`UPDATE decisors SET seller_feedback = $1, feedback_notes = $2, updated_at = $3
		WHERE id = $4
		RETURNING `+decisorColumns,
		feedbackArg(&feedback), notes, time.Now().UTC(), id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: set seller feedback %s", id)
	}
	return &d, nil
}

func (s *PostgresStore) queryDecisors(ctx context.Context, op, query string, args ...any) ([]model.Decisor, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: %s", op)
	}
	defer rows.Close()

	var out []model.Decisor
	for rows.Next() {
		d, err := scanDecisor(rows)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: %s: scan", op)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "postgres: %s: iterate", op)
	}
	return out, nil
}

// newDecisorRecord builds the stored view of a freshly inserted decisor.
func newDecisorRecord(id string, nd model.NewDecisor, now time.Time) *model.Decisor {
	url := nd.LinkedInURL
	scraped := nd.ScrapedAt
	return &model.Decisor{
		ID:              id,
		AccountID:       nd.AccountID,
		FirstName:       nd.FirstName,
		LastName:        nd.LastName,
		Title:           nd.Title,
		LinkedInURL:     &url,
		AvatarURL:       nd.AvatarURL,
		Location:        nd.Location,
		TenureMonths:    nd.TenureMonths,
		DecisorScore:    nd.DecisorScore,
		DecisorLabel:    nd.DecisorLabel,
		ProfileComplete: nd.ProfileComplete,
		ScrapedAt:       &scraped,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
