// The initialization package contains functions that set up required
// dependencies such as the SQLite database and the job transport.
package initialization

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/golang-migrate/migrate"
	"github.com/golang-migrate/migrate/database/sqlite3"
	_ "github.com/golang-migrate/migrate/source/file"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/kepler-social/kepler/internal/config"
	"github.com/kepler-social/kepler/internal/keys"
	"github.com/kepler-social/kepler/internal/queue"
)

// SetupDB creates the database, if it does not yet exist, and applies all
// remaining migrations.
func SetupDB(cfg *config.Configuration, db *sql.DB, folder, dbname string) error {
	log.Info().Msg("starting migrations")
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		log.Error().Err(err).Msg("failed to create sqlite3 migration driver")
		return err
	}

	mig, err := migrate.NewWithDatabaseInstance(
		"file://"+folder,
		dbname,
		driver,
	)

	if err != nil {
		log.Error().Err(err).Msg("failed to create Migrate object")
		return err
	}

	err = mig.Up()
	if err != nil && err != migrate.ErrNoChange {
		log.Error().Err(err).Msg("failed to run migrations")
		return err
	}

	return EnsureInstance(db, cfg)
}

func OpenDB(connString string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", connString)
	if err != nil {
		log.Error().Err(err).Str("connection string", connString).Msg("failed to open database")
	}
	return db, err
}

// EnsureInstance creates the instance actor, the local user that signs
// fetches and deliveries made on the server's own behalf.
func EnsureInstance(db *sql.DB, cfg *config.Configuration) error {
	row := db.QueryRow("SELECT EXISTS(SELECT TRUE FROM users WHERE ap_id = ?)", cfg.Url.String())
	var exists bool
	err := row.Scan(&exists)
	if err != nil {
		return err
	}

	if exists {
		return nil
	}
	log.Info().Msg("inserting server data into the database")
	inbox := cfg.Url.JoinPath("inbox").String()
	outbox := cfg.Url.JoinPath("outbox").String()
	followers := cfg.Url.JoinPath("followers").String()
	following := cfg.Url.JoinPath("following").String()

	pub, priv, err := keys.GenerateKeysPem(cfg.RsaKeySize)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = db.Exec(`INSERT INTO users(
				id,
				username,
				name,
				domain,
				ap_id,
				inbox,
				outbox,
				followers,
				following,
				public_key,
				private_key,
				local,
				created,
				last_updated
			) VALUES (?,?,?,?,?,?,?,?,?,?,?,TRUE,?,?)`,
		uuid.NewString(), cfg.Name, cfg.Name, cfg.Domain, cfg.Url.String(),
		inbox, outbox, followers, following, pub, priv, now, now)
	if err != nil {
		log.Error().Err(err).Msg("insert failed")
	}
	return err
}

// InitQueue builds the job transport named by the configuration.
func InitQueue(cfg *config.Configuration) (queue.Backend, error) {
	switch cfg.Queue.Backend {
	case config.BackendMemory:
		return queue.NewMemoryBackend(0), nil
	case config.BackendAmqp:
		return queue.NewAmqpBackend(cfg.Queue.AmqpUrl, cfg.Queue.AmqpQueue)
	case config.BackendSqs:
		sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.Queue.SqsRegion)})
		if err != nil {
			return nil, err
		}
		return queue.NewSqsBackend(sess, cfg.Queue.SqsQueueUrl), nil
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.Queue.Backend)
	}
}
