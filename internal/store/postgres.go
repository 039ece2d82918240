package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-cli/internal/db"
	"github.com/sells-group/crm-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_crm_result": `INSERT INTO crm_results (id, company_name, official_company_name, website, ai_insights, research, user_notes, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"insert_audit":      `INSERT INTO audits (id, company_name, audit, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
	"get_history":       `SELECT id, company_name, official_company_name, website, ai_insights, research, user_notes, created_at FROM crm_results WHERE company_name = $1 ORDER BY created_at DESC`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id                    TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company_name          TEXT NOT NULL UNIQUE,
	official_company_name TEXT,
	website               TEXT,
	industry              TEXT,
	location              TEXT,
	notes                 TEXT,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS crm_results (
	id                    TEXT PRIMARY KEY,
	company_name          TEXT NOT NULL,
	official_company_name TEXT,
	website               TEXT,
	ai_insights           JSONB NOT NULL,
	research              JSONB,
	user_notes            TEXT,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS audits (
	id           TEXT PRIMARY KEY,
	company_name TEXT NOT NULL,
	audit        JSONB NOT NULL,
	status       TEXT NOT NULL DEFAULT 'Draft',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_crm_results_company ON crm_results(company_name, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_audits_company ON audits(company_name, created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveCompanyProfile(ctx context.Context, profile *model.CompanyProfile, officialName string) error {
	if officialName == "" {
		officialName = profile.Name
	}
	now := time.Now().UTC()
	return db.Upsert(ctx, s.pool, db.UpsertConfig{
		Table: "companies",
		Columns: []string{
			"id", "company_name", "official_company_name", "website",
			"industry", "location", "notes", "created_at", "updated_at",
		},
		ConflictKeys: []string{"company_name"},
		UpdateCols: []string{
			"official_company_name", "website", "industry", "location",
			"notes", "updated_at",
		},
	}, []any{
		uuid.New().String(), profile.Name, officialName, profile.Website,
		profile.Industry, profile.Location, profile.Notes, now, now,
	})
}

func (s *PostgresStore) SaveCRMRecord(ctx context.Context, result *model.EnrichmentResult) error {
	if result.CRM == nil {
		return eris.New("postgres: no CRM record to save")
	}

	insightsJSON, err := json.Marshal(result.CRM)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal crm record")
	}
	var researchJSON []byte
	if result.Research != nil {
		researchJSON, err = json.Marshal(result.Research)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal research")
		}
	}

	official := result.OfficialName
	if official == "" {
		official = result.Profile.Name
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO crm_results (id, company_name, official_company_name, website, ai_insights, research, user_notes, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New().String(), result.Profile.Name, official, result.Profile.Website,
		insightsJSON, researchJSON, result.Profile.Notes, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: insert crm result for %s", result.Profile.Name)
}

func (s *PostgresStore) UpdateCRMRecord(ctx context.Context, companyName string, crm *model.CRMRecord) error {
	if crm == nil {
		return eris.New("postgres: no CRM record to update")
	}

	insightsJSON, err := json.Marshal(crm)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal crm record")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE crm_results SET ai_insights = $2
		 WHERE id = (SELECT id FROM crm_results WHERE company_name = $1 ORDER BY created_at DESC LIMIT 1)`,
		companyName, insightsJSON,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update crm result for %s", companyName)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: no crm result to update for %s", companyName)
	}
	return nil
}

func (s *PostgresStore) SaveAudit(ctx context.Context, companyName string, audit *model.AuditRecord) error {
	auditJSON, err := json.Marshal(audit)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal audit")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO audits (id, company_name, audit, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), companyName, auditJSON,
		string(audit.AuditMetadata.Status), time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: insert audit for %s", companyName)
}

func (s *PostgresStore) GetHistory(ctx context.Context, companyName string) ([]model.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, company_name, official_company_name, website, ai_insights, research, user_notes, created_at FROM crm_results WHERE company_name = $1 ORDER BY created_at DESC`,
		companyName,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get history for %s", companyName)
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		var e model.HistoryEntry
		var insightsJSON []byte
		var researchJSON []byte
		if err := rows.Scan(&e.ID, &e.CompanyName, &e.OfficialName, &e.Website, &insightsJSON, &researchJSON, &e.Notes, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan history entry")
		}
		if len(insightsJSON) > 0 {
			e.CRM = &model.CRMRecord{}
			if err := json.Unmarshal(insightsJSON, e.CRM); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal crm record")
			}
		}
		if len(researchJSON) > 0 {
			e.Research = &model.ResearchResult{}
			if err := json.Unmarshal(researchJSON, e.Research); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal research")
			}
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: history iterate")
}
