package impl

import (
	"context"
	"database/sql"
	"net/url"

	"github.com/google/uuid"

	"github.com/kepler-social/kepler/internal/domain"
)

const orbitColumns = `id, name, summary, ap_id, inbox, outbox, followers,
	public_key, private_key, local, created`

func scanOrbit(row scanner) (domain.Orbit, error) {
	var orbit domain.Orbit
	var id string
	var apID, inbox, outbox, followers sql.NullString

	err := row.Scan(&id, &orbit.Name, &orbit.Summary, &apID, &inbox, &outbox, &followers,
		&orbit.PublicKey, &orbit.PrivateKey, &orbit.Local, &orbit.Created)
	if err != nil {
		return domain.Orbit{}, err
	}

	if orbit.ID, err = uuid.Parse(id); err != nil {
		return domain.Orbit{}, err
	}
	orbit.ApID = parseURI(apID)
	orbit.Inbox = parseURI(inbox)
	orbit.Outbox = parseURI(outbox)
	orbit.Followers = parseURI(followers)
	return orbit, nil
}

func (d *dbImpl) OrbitByID(ctx context.Context, id uuid.UUID) (domain.Orbit, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+orbitColumns+` FROM orbits WHERE id = ?`, id.String())
	orbit, err := scanOrbit(row)
	return orbit, d.HandleError(err)
}

func (d *dbImpl) OrbitByIRI(ctx context.Context, iri *url.URL) (domain.Orbit, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+orbitColumns+` FROM orbits WHERE ap_id = ?`, iri.String())
	orbit, err := scanOrbit(row)
	return orbit, d.HandleError(err)
}

func (d *dbImpl) CreateOrbit(ctx context.Context, orbit domain.Orbit) error {
	_, err := d.db.ExecContext(ctx, `INSERT INTO orbits(`+orbitColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		orbit.ID.String(), orbit.Name, orbit.Summary, uriString(orbit.ApID),
		uriString(orbit.Inbox), uriString(orbit.Outbox), uriString(orbit.Followers),
		orbit.PublicKey, orbit.PrivateKey, orbit.Local, orbit.Created)
	return d.HandleError(err)
}

// AddMember tolerates duplicate joins: redelivered follows are routine.
func (d *dbImpl) AddMember(ctx context.Context, orbitID, userID uuid.UUID, iri *url.URL) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO orbit_members(orbit_id, user_id, ap_id, created)
		VALUES (?,?,?,CURRENT_TIMESTAMP)`,
		orbitID.String(), userID.String(), uriString(iri))
	return d.HandleError(err)
}

func (d *dbImpl) RemoveMember(ctx context.Context, orbitID, userID uuid.UUID) error {
	res, err := d.db.ExecContext(ctx,
		`DELETE FROM orbit_members WHERE orbit_id = ? AND user_id = ?`,
		orbitID.String(), userID.String())
	return d.affected(res, err)
}

func (d *dbImpl) RemoveMemberByIRI(ctx context.Context, iri *url.URL) error {
	return d.deleteByIRI(ctx, "orbit_members", iri)
}

func (d *dbImpl) LocalMembers(ctx context.Context, orbitID uuid.UUID) ([]domain.User, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+prefixed(userColumns, "users.")+`
		FROM users JOIN orbit_members ON users.id = orbit_members.user_id
		WHERE orbit_members.orbit_id = ? AND users.local = TRUE`, orbitID.String())
	if err != nil {
		return nil, d.HandleError(err)
	}
	defer rows.Close()
	return collectUsers(rows)
}
