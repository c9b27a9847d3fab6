package impl

import (
	"context"

	"github.com/google/uuid"

	"github.com/kepler-social/kepler/internal/domain"
)

func optionalUUID(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func parseOptionalUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}

func (d *dbImpl) CreateJob(ctx context.Context, job domain.Job) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO jobs(id, record_id, associated_record_id, created_by, status, failed_count, created, updated)
		VALUES (?,?,?,?,?,?,?,?)`,
		job.ID.String(), optionalUUID(job.RecordID), optionalUUID(job.AssociatedRecordID),
		optionalUUID(job.CreatedByID), uint8(job.Status), job.FailedCount, job.Created, job.Updated)
	return d.HandleError(err)
}

func (d *dbImpl) JobByID(ctx context.Context, id uuid.UUID) (domain.Job, error) {
	var job domain.Job
	var jobID, record, associated, createdBy string
	var status uint8

	err := d.db.QueryRowContext(ctx,
		`SELECT id, record_id, associated_record_id, created_by, status, failed_count, created, updated
		FROM jobs WHERE id = ?`, id.String()).
		Scan(&jobID, &record, &associated, &createdBy, &status, &job.FailedCount, &job.Created, &job.Updated)
	if err != nil {
		return domain.Job{}, d.HandleError(err)
	}

	if job.ID, err = uuid.Parse(jobID); err != nil {
		return domain.Job{}, err
	}
	if job.RecordID, err = parseOptionalUUID(record); err != nil {
		return domain.Job{}, err
	}
	if job.AssociatedRecordID, err = parseOptionalUUID(associated); err != nil {
		return domain.Job{}, err
	}
	if job.CreatedByID, err = parseOptionalUUID(createdBy); err != nil {
		return domain.Job{}, err
	}
	job.Status = domain.JobStatus(status)
	return job, nil
}

// UpdateJob is last writer wins; the worker is the only writer after creation.
func (d *dbImpl) UpdateJob(ctx context.Context, job domain.Job) error {
	_, err := d.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, failed_count = ?, updated = ? WHERE id = ?`,
		uint8(job.Status), job.FailedCount, job.Updated, job.ID.String())
	return d.HandleError(err)
}
