package database

import (
	"errors"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	files := fstest.MapFS{
		"001_init.sql":     {Data: []byte("CREATE TABLE users (id UUID PRIMARY KEY);")},
		"002_bookings.sql": {Data: []byte("CREATE TABLE bookings (id UUID PRIMARY KEY);")},
		"README.md":        {Data: []byte("not a migration")},
	}

	t.Run("Applies only pending files in order", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		logger, hook := test.NewNullLogger()

		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT version FROM schema_migrations`).
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("001_init"))
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE bookings")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO schema_migrations`).WithArgs("002_bookings").WillReturnResult(sqlmock.NewResult(1, 1))

		count, err := Migrate(&mockDatabase{db: db}, files, logger)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		require.Len(t, hook.Entries, 1)
		assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
		assert.Equal(t, "002_bookings", hook.LastEntry().Data["version"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Stops at the first failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		logger, _ := test.NewNullLogger()

		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT version FROM schema_migrations`).WillReturnRows(sqlmock.NewRows([]string{"version"}))
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE users")).WillReturnError(errors.New("syntax error"))

		count, err := Migrate(&mockDatabase{db: db}, files, logger)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "001_init.sql")
		assert.Equal(t, 0, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
