package impl

import (
	"context"
	"database/sql"
	"net/url"

	"github.com/google/uuid"

	"github.com/kepler-social/kepler/internal/domain"
)

const postColumns = `id, ap_id, author_id, orbit_id, content, media_type, sensitive,
	visibility, published, updated`

func scanPost(row scanner) (domain.Post, error) {
	var post domain.Post
	var id, author string
	var apID, orbit sql.NullString
	var visibility uint8

	err := row.Scan(&id, &apID, &author, &orbit, &post.Content, &post.MediaType,
		&post.Sensitive, &visibility, &post.Published, &post.Updated)
	if err != nil {
		return domain.Post{}, err
	}

	if post.ID, err = uuid.Parse(id); err != nil {
		return domain.Post{}, err
	}
	if post.AuthorID, err = uuid.Parse(author); err != nil {
		return domain.Post{}, err
	}
	if orbit.Valid {
		if post.OrbitID, err = uuid.Parse(orbit.String); err != nil {
			return domain.Post{}, err
		}
	}
	post.ApID = parseURI(apID)
	post.Visibility = domain.Visibility(visibility)
	return post, nil
}

func nullUUID(id uuid.UUID) sql.NullString {
	if id == uuid.Nil {
		return sql.NullString{}
	}
	return sql.NullString{Valid: true, String: id.String()}
}

func (d *dbImpl) PostByID(ctx context.Context, id uuid.UUID) (domain.Post, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id.String())
	post, err := scanPost(row)
	return post, d.HandleError(err)
}

func (d *dbImpl) PostByIRI(ctx context.Context, iri *url.URL) (domain.Post, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE ap_id = ?`, iri.String())
	post, err := scanPost(row)
	return post, d.HandleError(err)
}

func (d *dbImpl) CreatePost(ctx context.Context, post domain.Post) error {
	_, err := d.db.ExecContext(ctx, `INSERT INTO posts(`+postColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		post.ID.String(), uriString(post.ApID), post.AuthorID.String(), nullUUID(post.OrbitID),
		post.Content, post.MediaType, post.Sensitive, uint8(post.Visibility),
		post.Published, post.Updated)
	return d.HandleError(err)
}

func (d *dbImpl) UpdatePost(ctx context.Context, post domain.Post) error {
	_, err := d.db.ExecContext(ctx, `UPDATE posts SET content = ?, media_type = ?,
		sensitive = ?, visibility = ?, updated = ? WHERE id = ?`,
		post.Content, post.MediaType, post.Sensitive, uint8(post.Visibility),
		post.Updated, post.ID.String())
	return d.HandleError(err)
}

func (d *dbImpl) DeletePostByIRI(ctx context.Context, iri *url.URL) error {
	return d.deleteByIRI(ctx, "posts", iri)
}
