package impl

import (
	"context"
	"database/sql"
	"errors"
	"net/url"

	"github.com/google/uuid"

	"github.com/kepler-social/kepler/internal/db"
	"github.com/kepler-social/kepler/internal/domain"
)

func (d *dbImpl) CreateFollow(ctx context.Context, follow domain.Follow) (uuid.UUID, error) {
	var existing string
	err := d.db.QueryRowContext(ctx,
		`SELECT id FROM follows WHERE follower_id = ? AND followee_id = ?`,
		follow.FollowerID.String(), follow.FolloweeID.String()).Scan(&existing)
	if err == nil {
		return uuid.Parse(existing)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, d.HandleError(err)
	}

	_, err = d.db.ExecContext(ctx,
		`INSERT INTO follows(id, ap_id, follower_id, followee_id, created) VALUES (?,?,?,?,?)`,
		follow.ID.String(), uriString(follow.ApID),
		follow.FollowerID.String(), follow.FolloweeID.String(), follow.Created)
	if err != nil {
		return uuid.Nil, d.HandleError(err)
	}
	return follow.ID, nil
}

func (d *dbImpl) DeleteFollow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	res, err := d.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`,
		followerID.String(), followeeID.String())
	return d.affected(res, err)
}

func (d *dbImpl) DeleteFollowByIRI(ctx context.Context, iri *url.URL) error {
	return d.deleteByIRI(ctx, "follows", iri)
}

func (d *dbImpl) FollowersOf(ctx context.Context, followeeID uuid.UUID) ([]domain.User, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+prefixed(userColumns, "users.")+`
		FROM users JOIN follows ON users.id = follows.follower_id
		WHERE follows.followee_id = ?`, followeeID.String())
	if err != nil {
		return nil, d.HandleError(err)
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (d *dbImpl) CreateLike(ctx context.Context, like domain.Like) (uuid.UUID, error) {
	var existing string
	err := d.db.QueryRowContext(ctx,
		`SELECT id FROM likes WHERE user_id = ? AND post_id = ?`,
		like.UserID.String(), like.PostID.String()).Scan(&existing)
	if err == nil {
		return uuid.Parse(existing)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, d.HandleError(err)
	}

	_, err = d.db.ExecContext(ctx,
		`INSERT INTO likes(id, ap_id, user_id, post_id, created) VALUES (?,?,?,?,?)`,
		like.ID.String(), uriString(like.ApID),
		like.UserID.String(), like.PostID.String(), like.Created)
	if err != nil {
		return uuid.Nil, d.HandleError(err)
	}
	return like.ID, nil
}

func (d *dbImpl) DeleteLike(ctx context.Context, userID, postID uuid.UUID) error {
	res, err := d.db.ExecContext(ctx,
		`DELETE FROM likes WHERE user_id = ? AND post_id = ?`,
		userID.String(), postID.String())
	return d.affected(res, err)
}

func (d *dbImpl) DeleteLikeByIRI(ctx context.Context, iri *url.URL) error {
	return d.deleteByIRI(ctx, "likes", iri)
}

func (d *dbImpl) affected(res sql.Result, err error) error {
	if err != nil {
		return d.HandleError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return d.HandleError(err)
	}
	if n == 0 {
		return db.ErrNotFound
	}
	return nil
}

func collectUsers(rows *sql.Rows) ([]domain.User, error) {
	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
