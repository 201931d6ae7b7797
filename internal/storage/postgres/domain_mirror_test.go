package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/bounty-scope-crawler/internal/crawler"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestExportUpsertsEveryRecord(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Unix(1700000000, 0).UTC()
	mirror, err := NewDomainMirrorWithPool(mock, "domains", fixedClock{now})
	require.NoError(t, err)
	require.Equal(t, "postgres", mirror.Name())

	table := crawler.NewDomainTable()
	table.Merge(
		crawler.DomainRecord{Domain: "b.example.com", SourceURL: "https://site/b"},
		crawler.DomainRecord{Domain: "a.example.com", SourceURL: "https://site/a"},
	)

	mock.ExpectExec("INSERT INTO domains").
		WithArgs("a.example.com", "https://site/a", "run-1", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO domains").
		WithArgs("b.example.com", "https://site/b", "run-1", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, mirror.Export(context.Background(), "run-1", table))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportStopsOnError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mirror, err := NewDomainMirrorWithPool(mock, "", fixedClock{time.Unix(0, 0)})
	require.NoError(t, err)

	table := crawler.NewDomainTable()
	table.Merge(
		crawler.DomainRecord{Domain: "a.example.com", SourceURL: "https://site/a"},
		crawler.DomainRecord{Domain: "b.example.com", SourceURL: "https://site/b"},
	)
	mock.ExpectExec("INSERT INTO scope_domains").
		WithArgs("a.example.com", "https://site/a", "run", pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	err = mirror.Export(context.Background(), "run", table)
	require.ErrorContains(t, err, "upsert a.example.com")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mirror, err := NewDomainMirrorWithPool(mock, "scope", nil)
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS scope").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	require.NoError(t, mirror.EnsureTable(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMirrorValidation(t *testing.T) {
	t.Parallel()

	_, err := NewDomainMirrorWithPool(nil, "x", nil)
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	_, err = NewDomainMirrorWithPool(mock, "bad;name", nil)
	require.Error(t, err)

	_, err = NewDomainMirror(context.Background(), MirrorConfig{}, nil)
	require.Error(t, err)
	_, err = NewDomainMirror(context.Background(), MirrorConfig{DSN: "postgres://x", Table: "1bad"}, nil)
	require.Error(t, err)
}

func TestExportNilTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mirror, err := NewDomainMirrorWithPool(mock, "x", nil)
	require.NoError(t, err)
	require.NoError(t, mirror.Export(context.Background(), "run", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
