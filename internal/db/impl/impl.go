package impl

import (
	"database/sql"
	"errors"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/kepler-social/kepler/internal/db"
)

type dbImpl struct {
	db *sql.DB
}

func New(d *sql.DB) db.DB {
	return &dbImpl{db: d}
}

// HandleError takes a database error and returns a higher level error that hides the implementation details
// and can be more easily handled by the calling functions without doing type assertions, checking error codes and
// comparing to sentinel errors.
func (d *dbImpl) HandleError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return db.ErrNotFound
	default:
		log.Error().Err(err).Msg("database error")
		return err
	}
}

func (d *dbImpl) WithTx(f func(tx *sql.Tx) error) (err error) {
	tx, err := d.db.Begin()
	if err != nil {
		return d.HandleError(err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
		} else if err != nil {
			_ = tx.Rollback()
		} else {
			err = d.HandleError(tx.Commit())
		}
	}()

	err = f(tx)
	return
}

// prefixed qualifies a comma separated column list with a table name, for
// joins that reuse the single-table lists.
func prefixed(columns, prefix string) string {
	parts := strings.Split(columns, ",")
	for i := range parts {
		parts[i] = prefix + strings.TrimSpace(parts[i])
	}
	return strings.Join(parts, ", ")
}

// uriString flattens optional URLs for storage.
func uriString(u *url.URL) sql.NullString {
	if u == nil {
		return sql.NullString{}
	}
	return sql.NullString{Valid: true, String: u.String()}
}

func parseURI(s sql.NullString) *url.URL {
	if !s.Valid || s.String == "" {
		return nil
	}
	u, err := url.Parse(s.String)
	if err != nil {
		return nil
	}
	return u
}
