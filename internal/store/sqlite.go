package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/crm-cli/internal/model"
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
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id                    TEXT PRIMARY KEY,
	company_name          TEXT NOT NULL UNIQUE,
	official_company_name TEXT,
	website               TEXT,
	industry              TEXT,
	location              TEXT,
	notes                 TEXT,
	created_at            DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at            DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS crm_results (
	id                    TEXT PRIMARY KEY,
	company_name          TEXT NOT NULL,
	official_company_name TEXT,
	website               TEXT,
	ai_insights           TEXT NOT NULL,
	research              TEXT,
	user_notes            TEXT,
	created_at            DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS audits (
	id           TEXT PRIMARY KEY,
	company_name TEXT NOT NULL,
	audit        TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'Draft',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_crm_results_company ON crm_results(company_name, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_audits_company ON audits(company_name, created_at DESC);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveCompanyProfile(ctx context.Context, profile *model.CompanyProfile, officialName string) error {
	if officialName == "" {
		officialName = profile.Name
	}
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (id, company_name, official_company_name, website, industry, location, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(company_name) DO UPDATE SET
		   official_company_name = excluded.official_company_name,
		   website = excluded.website,
		   industry = excluded.industry,
		   location = excluded.location,
		   notes = excluded.notes,
		   updated_at = excluded.updated_at`,
		uuid.New().String(), profile.Name, officialName, profile.Website,
		profile.Industry, profile.Location, profile.Notes, now, now,
	)
	return eris.Wrapf(err, "sqlite: upsert company %s", profile.Name)
}

func (s *SQLiteStore) SaveCRMRecord(ctx context.Context, result *model.EnrichmentResult) error {
	if result.CRM == nil {
		return eris.New("sqlite: no CRM record to save")
	}

	insightsJSON, err := json.Marshal(result.CRM)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal crm record")
	}
	var researchJSON sql.NullString
	if result.Research != nil {
		b, err := json.Marshal(result.Research)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal research")
		}
		researchJSON = sql.NullString{String: string(b), Valid: true}
	}

	official := result.OfficialName
	if official == "" {
		official = result.Profile.Name
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO crm_results (id, company_name, official_company_name, website, ai_insights, research, user_notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), result.Profile.Name, official, result.Profile.Website,
		string(insightsJSON), researchJSON, result.Profile.Notes, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert crm result for %s", result.Profile.Name)
}

func (s *SQLiteStore) UpdateCRMRecord(ctx context.Context, companyName string, crm *model.CRMRecord) error {
	if crm == nil {
		return eris.New("sqlite: no CRM record to update")
	}

	insightsJSON, err := json.Marshal(crm)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal crm record")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE crm_results SET ai_insights = ?
		 WHERE id = (SELECT id FROM crm_results WHERE company_name = ? ORDER BY created_at DESC LIMIT 1)`,
		string(insightsJSON), companyName,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update crm result for %s", companyName)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: no crm result to update for %s", companyName)
	}
	return nil
}

func (s *SQLiteStore) SaveAudit(ctx context.Context, companyName string, audit *model.AuditRecord) error {
	auditJSON, err := json.Marshal(audit)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal audit")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audits (id, company_name, audit, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), companyName, string(auditJSON),
		string(audit.AuditMetadata.Status), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert audit for %s", companyName)
}

func (s *SQLiteStore) GetHistory(ctx context.Context, companyName string) ([]model.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, company_name, official_company_name, website, ai_insights, research, user_notes, created_at
		 FROM crm_results WHERE company_name = ? ORDER BY created_at DESC`,
		companyName,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get history for %s", companyName)
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		var e model.HistoryEntry
		var official, website, notes sql.NullString
		var insightsJSON string
		var researchJSON sql.NullString
		if err := rows.Scan(&e.ID, &e.CompanyName, &official, &website, &insightsJSON, &researchJSON, &notes, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan history entry")
		}
		e.OfficialName = official.String
		e.Website = website.String
		e.Notes = notes.String

		e.CRM = &model.CRMRecord{}
		if err := json.Unmarshal([]byte(insightsJSON), e.CRM); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal crm record")
		}
		if researchJSON.Valid {
			e.Research = &model.ResearchResult{}
			if err := json.Unmarshal([]byte(researchJSON.String), e.Research); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal research")
			}
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: history iterate")
}
