package impl

import (
	"context"
	"database/sql"
	"net/url"

	"github.com/google/uuid"

	"github.com/kepler-social/kepler/internal/db"
	"github.com/kepler-social/kepler/internal/domain"
)

const userColumns = `id, username, name, domain, summary, url, ap_id, inbox, outbox,
	followers, following, public_key, private_key, local, created, last_updated`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (domain.User, error) {
	var user domain.User
	var id string
	var uri, apID, inbox, outbox, followers, following sql.NullString

	err := row.Scan(&id, &user.Username, &user.Name, &user.Domain, &user.Summary,
		&uri, &apID, &inbox, &outbox, &followers, &following,
		&user.PublicKey, &user.PrivateKey, &user.Local, &user.Created, &user.LastUpdated)
	if err != nil {
		return domain.User{}, err
	}

	user.ID, err = uuid.Parse(id)
	if err != nil {
		return domain.User{}, err
	}
	user.URL = parseURI(uri)
	user.ApID = parseURI(apID)
	user.Inbox = parseURI(inbox)
	user.Outbox = parseURI(outbox)
	user.Followers = parseURI(followers)
	user.Following = parseURI(following)
	return user, nil
}

func (d *dbImpl) UserByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id.String())
	user, err := scanUser(row)
	return user, d.HandleError(err)
}

func (d *dbImpl) UserByIRI(ctx context.Context, iri *url.URL) (domain.User, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE ap_id = ?`, iri.String())
	user, err := scanUser(row)
	return user, d.HandleError(err)
}

func (d *dbImpl) UserByUsername(ctx context.Context, username string) (domain.User, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? AND local = TRUE`, username)
	user, err := scanUser(row)
	return user, d.HandleError(err)
}

func (d *dbImpl) CreateUser(ctx context.Context, user domain.User) error {
	_, err := d.db.ExecContext(ctx, `INSERT INTO users(`+userColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		user.ID.String(), user.Username, user.Name, user.Domain, user.Summary,
		uriString(user.URL), uriString(user.ApID), uriString(user.Inbox), uriString(user.Outbox),
		uriString(user.Followers), uriString(user.Following),
		user.PublicKey, user.PrivateKey, user.Local, user.Created, user.LastUpdated)
	return d.HandleError(err)
}

func (d *dbImpl) DeleteUserByIRI(ctx context.Context, iri *url.URL) error {
	return d.deleteByIRI(ctx, "users", iri)
}

func (d *dbImpl) PrivateKeyByIRI(ctx context.Context, iri *url.URL) (string, error) {
	var key string
	err := d.db.QueryRowContext(ctx,
		`SELECT private_key FROM users WHERE ap_id = ?`, iri.String()).Scan(&key)
	return key, d.HandleError(err)
}

// deleteByIRI reports a miss as ErrNotFound so callers can tell "gone" from
// "never existed".
func (d *dbImpl) deleteByIRI(ctx context.Context, table string, iri *url.URL) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE ap_id = ?`, iri.String())
	if err != nil {
		return d.HandleError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return d.HandleError(err)
	}
	if affected == 0 {
		return db.ErrNotFound
	}
	return nil
}
