package db

import (
	"context"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpsertSQL(t *testing.T) {
	sql, err := BuildUpsertSQL(UpsertConfig{
		Table:        "companies",
		Columns:      []string{"company_name", "website", "updated_at"},
		ConflictKeys: []string{"company_name"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "companies" ("company_name", "website", "updated_at") VALUES ($1, $2, $3) `+
			`ON CONFLICT ("company_name") DO UPDATE SET "website" = EXCLUDED."website", "updated_at" = EXCLUDED."updated_at"`,
		sql,
	)
}

func TestBuildUpsertSQL_SchemaQualified(t *testing.T) {
	sql, err := BuildUpsertSQL(UpsertConfig{
		Table:        "crm.companies",
		Columns:      []string{"company_name", "website"},
		ConflictKeys: []string{"company_name"},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, `"crm"."companies"`)
}

func TestBuildUpsertSQL_ExplicitUpdateCols(t *testing.T) {
	sql, err := BuildUpsertSQL(UpsertConfig{
		Table:        "companies",
		Columns:      []string{"company_name", "website", "created_at", "updated_at"},
		ConflictKeys: []string{"company_name"},
		UpdateCols:   []string{"website", "updated_at"},
	})
	require.NoError(t, err)
	assert.NotContains(t, sql, `"created_at" = EXCLUDED`)
	assert.Contains(t, sql, `"updated_at" = EXCLUDED."updated_at"`)
}

func TestBuildUpsertSQL_Validation(t *testing.T) {
	_, err := BuildUpsertSQL(UpsertConfig{Table: "t", ConflictKeys: []string{"k"}})
	assert.Error(t, err)

	_, err = BuildUpsertSQL(UpsertConfig{Table: "t", Columns: []string{"a"}})
	assert.Error(t, err)
}

func TestUpsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "companies"`)).
		WithArgs("Acme", "https://acme.com").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = Upsert(context.Background(), mock, UpsertConfig{
		Table:        "companies",
		Columns:      []string{"company_name", "website"},
		ConflictKeys: []string{"company_name"},
	}, []any{"Acme", "https://acme.com"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_ValueCountMismatch(t *testing.T) {
	err := Upsert(context.Background(), nil, UpsertConfig{
		Table:        "companies",
		Columns:      []string{"a", "b"},
		ConflictKeys: []string{"a"},
	}, []any{"only-one"})
	assert.Error(t, err)
}
