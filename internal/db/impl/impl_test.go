package impl

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/kepler-social/kepler/internal/db"
	"github.com/kepler-social/kepler/internal/domain"
)

func openTestDB(t *testing.T) db.DB {
	t.Helper()

	d, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })

	folder := filepath.Join("..", "..", "..", "migrations")
	entries, err := os.ReadDir(folder)
	if err != nil {
		t.Fatal(err)
	}
	var ups []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			ups = append(ups, entry.Name())
		}
	}
	sort.Strings(ups)
	for _, name := range ups {
		schema, err := os.ReadFile(filepath.Join(folder, name))
		if err != nil {
			t.Fatal(err)
		}
		if _, err = d.Exec(string(schema)); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
	return New(d)
}

func testUser(t *testing.T, username, host string, local bool) domain.User {
	t.Helper()
	iri, err := url.Parse("https://" + host + "/users/" + username)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now().UTC().Truncate(time.Second)
	return domain.User{
		UserCore: domain.UserCore{
			ID:       uuid.New(),
			Username: username,
			Domain:   host,
		},
		ApID:        iri,
		Inbox:       mustJoin(iri, "inbox"),
		Outbox:      mustJoin(iri, "outbox"),
		Followers:   mustJoin(iri, "followers"),
		Following:   mustJoin(iri, "following"),
		Local:       local,
		Created:     now,
		LastUpdated: now,
	}
}

func mustJoin(u *url.URL, segment string) *url.URL {
	return u.JoinPath(segment)
}

func TestUserRoundTrip(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	user := testUser(t, "ada", "remote.example", false)
	if err := d.CreateUser(ctx, user); err != nil {
		t.Fatal(err)
	}

	got, err := d.UserByIRI(ctx, user.ApID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(user, got); diff != "" {
		t.Error(diff)
	}

	if _, err = d.UserByUsername(ctx, "ada"); !isNotFound(err) {
		t.Errorf("remote user resolvable by username: %v", err)
	}

	local := testUser(t, "bob", "local.example", true)
	if err = d.CreateUser(ctx, local); err != nil {
		t.Fatal(err)
	}
	if _, err = d.UserByUsername(ctx, "bob"); err != nil {
		t.Errorf("local user not resolvable by username: %v", err)
	}
}

func TestCreateFollowIsIdempotent(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	ada := testUser(t, "ada", "remote.example", false)
	bob := testUser(t, "bob", "local.example", true)
	for _, u := range []domain.User{ada, bob} {
		if err := d.CreateUser(ctx, u); err != nil {
			t.Fatal(err)
		}
	}

	follow := domain.Follow{
		ID:         uuid.New(),
		FollowerID: ada.ID,
		FolloweeID: bob.ID,
		Created:    time.Now(),
	}
	follow.ApID, _ = url.Parse("https://remote.example/activities/follow-1")

	first, err := d.CreateFollow(ctx, follow)
	if err != nil {
		t.Fatal(err)
	}

	duplicate := follow
	duplicate.ID = uuid.New()
	second, err := d.CreateFollow(ctx, duplicate)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("duplicate follow created a second edge: %s vs %s", first, second)
	}

	followers, err := d.FollowersOf(ctx, bob.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(followers) != 1 || followers[0].ID != ada.ID {
		t.Errorf("followers = %+v", followers)
	}
}

func TestDeleteByIRIDistinguishesMisses(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	missing, _ := url.Parse("https://local.example/activities/unknown")
	if err := d.DeleteFollowByIRI(ctx, missing); !isNotFound(err) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := d.DeleteLikeByIRI(ctx, missing); !isNotFound(err) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := d.DeletePostByIRI(ctx, missing); !isNotFound(err) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPostLifecycle(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	ada := testUser(t, "ada", "remote.example", false)
	if err := d.CreateUser(ctx, ada); err != nil {
		t.Fatal(err)
	}

	apID, _ := url.Parse("https://remote.example/notes/1")
	now := time.Now().UTC().Truncate(time.Second)
	post := domain.Post{
		ID:         uuid.New(),
		ApID:       apID,
		AuthorID:   ada.ID,
		Content:    "hello",
		MediaType:  "text/plain",
		Visibility: domain.PublicFederated,
		Published:  now,
		Updated:    now,
	}
	if err := d.CreatePost(ctx, post); err != nil {
		t.Fatal(err)
	}

	got, err := d.PostByIRI(ctx, apID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(post, got); diff != "" {
		t.Error(diff)
	}

	got.Content = "edited"
	got.Updated = now.Add(time.Minute)
	if err = d.UpdatePost(ctx, got); err != nil {
		t.Fatal(err)
	}
	updated, err := d.PostByID(ctx, post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Content != "edited" {
		t.Errorf("content = %q", updated.Content)
	}

	if err = d.DeletePostByIRI(ctx, apID); err != nil {
		t.Fatal(err)
	}
	if _, err = d.PostByIRI(ctx, apID); !isNotFound(err) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestOrbitMembership(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	bob := testUser(t, "bob", "local.example", true)
	dan := testUser(t, "dan", "remote.example", false)
	for _, u := range []domain.User{bob, dan} {
		if err := d.CreateUser(ctx, u); err != nil {
			t.Fatal(err)
		}
	}

	apID, _ := url.Parse("https://local.example/orbits/astronomy")
	orbit := domain.Orbit{
		ID:        uuid.New(),
		Name:      "astronomy",
		ApID:      apID,
		Inbox:     apID.JoinPath("inbox"),
		Outbox:    apID.JoinPath("outbox"),
		Followers: apID.JoinPath("followers"),
		Local:     true,
		Created:   time.Now().UTC().Truncate(time.Second),
	}
	if err := d.CreateOrbit(ctx, orbit); err != nil {
		t.Fatal(err)
	}

	joinIRI, _ := url.Parse("https://local.example/activities/join-1")
	for i := 0; i < 2; i++ {
		if err := d.AddMember(ctx, orbit.ID, bob.ID, joinIRI); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}
	if err := d.AddMember(ctx, orbit.ID, dan.ID, nil); err != nil {
		t.Fatal(err)
	}

	members, err := d.LocalMembers(ctx, orbit.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 || members[0].ID != bob.ID {
		t.Errorf("local members = %+v", members)
	}

	if err = d.RemoveMemberByIRI(ctx, joinIRI); err != nil {
		t.Fatal(err)
	}
	members, err = d.LocalMembers(ctx, orbit.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 0 {
		t.Error("membership survived removal by IRI")
	}
}

func TestJobLifecycle(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	job := domain.Job{
		ID:      uuid.New(),
		Status:  domain.JobNotStarted,
		Created: now,
		Updated: now,
	}
	if err := d.CreateJob(ctx, job); err != nil {
		t.Fatal(err)
	}

	job.Status = domain.JobFailed
	job.FailedCount = 2
	job.Updated = now.Add(time.Second)
	if err := d.UpdateJob(ctx, job); err != nil {
		t.Fatal(err)
	}

	got, err := d.JobByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.JobFailed || got.FailedCount != 2 {
		t.Errorf("job = %+v", got)
	}
	if got.RecordID != uuid.Nil || got.CreatedByID != uuid.Nil {
		t.Errorf("optional ids decoded as %v, %v", got.RecordID, got.CreatedByID)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, db.ErrNotFound)
}
