package federation

import (
	"context"
	"net/url"

	"github.com/google/uuid"

	"github.com/kepler-social/kepler/internal/apub"
	"github.com/kepler-social/kepler/internal/db"
	"github.com/kepler-social/kepler/internal/domain"
)

// fakeStore keeps everything in maps keyed by IRI and records destructive
// calls so tests can assert on them.
type fakeStore struct {
	users  map[string]domain.User
	posts  map[string]domain.Post
	orbits map[string]domain.Orbit
	jobs   map[uuid.UUID]domain.Job

	followersOf []domain.User
	members     []domain.User

	followIRIs map[string]bool
	likeIRIs   map[string]bool
	memberIRIs map[string]bool

	createdFollows []domain.Follow
	createdLikes   []domain.Like
	addedMembers   []uuid.UUID
	deletedFollows []string
	deletedUsers   []string
	deletedPosts   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      make(map[string]domain.User),
		posts:      make(map[string]domain.Post),
		orbits:     make(map[string]domain.Orbit),
		jobs:       make(map[uuid.UUID]domain.Job),
		followIRIs: make(map[string]bool),
		likeIRIs:   make(map[string]bool),
		memberIRIs: make(map[string]bool),
	}
}

func (s *fakeStore) UserByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	for _, user := range s.users {
		if user.ID == id {
			return user, nil
		}
	}
	return domain.User{}, db.ErrNotFound
}

func (s *fakeStore) UserByIRI(ctx context.Context, iri *url.URL) (domain.User, error) {
	user, ok := s.users[iri.String()]
	if !ok {
		return domain.User{}, db.ErrNotFound
	}
	return user, nil
}

func (s *fakeStore) UserByUsername(ctx context.Context, username string) (domain.User, error) {
	for _, user := range s.users {
		if user.Username == username && user.Local {
			return user, nil
		}
	}
	return domain.User{}, db.ErrNotFound
}

func (s *fakeStore) CreateUser(ctx context.Context, user domain.User) error {
	s.users[user.ApID.String()] = user
	return nil
}

func (s *fakeStore) DeleteUserByIRI(ctx context.Context, iri *url.URL) error {
	if _, ok := s.users[iri.String()]; !ok {
		return db.ErrNotFound
	}
	delete(s.users, iri.String())
	s.deletedUsers = append(s.deletedUsers, iri.String())
	return nil
}

func (s *fakeStore) PrivateKeyByIRI(ctx context.Context, iri *url.URL) (string, error) {
	user, ok := s.users[iri.String()]
	if !ok {
		return "", db.ErrNotFound
	}
	return user.PrivateKey, nil
}

func (s *fakeStore) PostByID(ctx context.Context, id uuid.UUID) (domain.Post, error) {
	for _, post := range s.posts {
		if post.ID == id {
			return post, nil
		}
	}
	return domain.Post{}, db.ErrNotFound
}

func (s *fakeStore) PostByIRI(ctx context.Context, iri *url.URL) (domain.Post, error) {
	post, ok := s.posts[iri.String()]
	if !ok {
		return domain.Post{}, db.ErrNotFound
	}
	return post, nil
}

func (s *fakeStore) CreatePost(ctx context.Context, post domain.Post) error {
	s.posts[post.ApID.String()] = post
	return nil
}

func (s *fakeStore) UpdatePost(ctx context.Context, post domain.Post) error {
	s.posts[post.ApID.String()] = post
	return nil
}

func (s *fakeStore) DeletePostByIRI(ctx context.Context, iri *url.URL) error {
	if _, ok := s.posts[iri.String()]; !ok {
		return db.ErrNotFound
	}
	delete(s.posts, iri.String())
	s.deletedPosts = append(s.deletedPosts, iri.String())
	return nil
}

func (s *fakeStore) CreateFollow(ctx context.Context, follow domain.Follow) (uuid.UUID, error) {
	s.createdFollows = append(s.createdFollows, follow)
	return follow.ID, nil
}

func (s *fakeStore) DeleteFollow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	return nil
}

func (s *fakeStore) DeleteFollowByIRI(ctx context.Context, iri *url.URL) error {
	if !s.followIRIs[iri.String()] {
		return db.ErrNotFound
	}
	s.deletedFollows = append(s.deletedFollows, iri.String())
	return nil
}

func (s *fakeStore) FollowersOf(ctx context.Context, followeeID uuid.UUID) ([]domain.User, error) {
	return s.followersOf, nil
}

func (s *fakeStore) CreateLike(ctx context.Context, like domain.Like) (uuid.UUID, error) {
	s.createdLikes = append(s.createdLikes, like)
	return like.ID, nil
}

func (s *fakeStore) DeleteLike(ctx context.Context, userID, postID uuid.UUID) error {
	return nil
}

func (s *fakeStore) DeleteLikeByIRI(ctx context.Context, iri *url.URL) error {
	if !s.likeIRIs[iri.String()] {
		return db.ErrNotFound
	}
	return nil
}

func (s *fakeStore) OrbitByID(ctx context.Context, id uuid.UUID) (domain.Orbit, error) {
	for _, orbit := range s.orbits {
		if orbit.ID == id {
			return orbit, nil
		}
	}
	return domain.Orbit{}, db.ErrNotFound
}

func (s *fakeStore) OrbitByIRI(ctx context.Context, iri *url.URL) (domain.Orbit, error) {
	orbit, ok := s.orbits[iri.String()]
	if !ok {
		return domain.Orbit{}, db.ErrNotFound
	}
	return orbit, nil
}

func (s *fakeStore) CreateOrbit(ctx context.Context, orbit domain.Orbit) error {
	s.orbits[orbit.ApID.String()] = orbit
	return nil
}

func (s *fakeStore) AddMember(ctx context.Context, orbitID, userID uuid.UUID, iri *url.URL) error {
	s.addedMembers = append(s.addedMembers, userID)
	return nil
}

func (s *fakeStore) RemoveMember(ctx context.Context, orbitID, userID uuid.UUID) error {
	return nil
}

func (s *fakeStore) RemoveMemberByIRI(ctx context.Context, iri *url.URL) error {
	if !s.memberIRIs[iri.String()] {
		return db.ErrNotFound
	}
	return nil
}

func (s *fakeStore) LocalMembers(ctx context.Context, orbitID uuid.UUID) ([]domain.User, error) {
	return s.members, nil
}

func (s *fakeStore) CreateJob(ctx context.Context, job domain.Job) error {
	s.jobs[job.ID] = job
	return nil
}

func (s *fakeStore) JobByID(ctx context.Context, id uuid.UUID) (domain.Job, error) {
	job, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, db.ErrNotFound
	}
	return job, nil
}

func (s *fakeStore) UpdateJob(ctx context.Context, job domain.Job) error {
	s.jobs[job.ID] = job
	return nil
}

type delivery struct {
	doc   apub.Document
	inbox string
	from  string
	key   string
}

type fakeDeliverer struct {
	deliveries []delivery
}

func (f *fakeDeliverer) Deliver(ctx context.Context, doc apub.Document, inbox *url.URL, from *url.URL, privateKeyPem string) error {
	f.deliveries = append(f.deliveries, delivery{
		doc:   doc,
		inbox: inbox.String(),
		from:  from.String(),
		key:   privateKeyPem,
	})
	return nil
}

// fakeFetcher serves canned documents by IRI.
type fakeFetcher struct {
	docs map[string]apub.Document
}

func (f *fakeFetcher) GetDocument(ctx context.Context, iri *url.URL) (apub.Document, error) {
	doc, ok := f.docs[iri.String()]
	if !ok {
		return apub.Document{}, errNoSuchDocument
	}
	return doc, nil
}
