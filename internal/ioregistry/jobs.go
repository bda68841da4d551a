package ioregistry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/horizonml/horizon/pkg/schema"
	"gorm.io/gorm"
)

// StartJob records a queued job and immediately marks it running.
// RunSeq is monotonic across all jobs, so retries are distinguishable
// and job history has a total order.
func (r *Registry) StartJob(ctx context.Context, projectID, kind string) (*schema.Job, error) {
	j := &schema.Job{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Kind:      kind,
		Status:    schema.JobQueued,
		CreatedAt: time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq uint
		row := tx.Model(&schema.Job{}).Select("COALESCE(MAX(run_seq), 0)").Row()
		if err := row.Scan(&maxSeq); err != nil {
			return err
		}
		j.RunSeq = maxSeq + 1
		return tx.Create(j).Error
	})
	if err != nil {
		return nil, err
	}
	if err := r.setJobStatus(ctx, j.ID, schema.JobRunning, ""); err != nil {
		return nil, err
	}
	j.Status = schema.JobRunning
	return j, nil
}

// FinishJob moves a job to its terminal state. A non-nil cause marks it
// failed with the cause recorded.
func (r *Registry) FinishJob(ctx context.Context, jobID string, cause error) error {
	if cause != nil {
		return r.setJobStatus(ctx, jobID, schema.JobFailed, cause.Error())
	}
	return r.setJobStatus(ctx, jobID, schema.JobCompleted, "")
}

func (r *Registry) setJobStatus(ctx context.Context, jobID, status, errMsg string) error {
	return r.db.WithContext(ctx).Model(&schema.Job{}).
		Where("id = ?", jobID).
		Updates(map[string]any{
			"status": status,
			"error":  errMsg,
		}).Error
}

// ListJobs returns a project's jobs in run order.
func (r *Registry) ListJobs(ctx context.Context, projectID string) ([]schema.Job, error) {
	var res []schema.Job
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("run_seq").
		Find(&res).Error
	return res, err
}
