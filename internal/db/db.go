// Package db declares the repository interfaces the federation engine
// consumes. The engine never issues queries itself; implementations live in
// the impl subpackage or in the host application.
package db

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal database error")
)

type DB interface {
	Users
	Posts
	Follows
	Likes
	Orbits
	Jobs
}
