package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/MemberFox/MemberFox/app/models"
	"github.com/MemberFox/MemberFox/internal/pkg/database"
	"github.com/MemberFox/MemberFox/internal/pkg/memberexport"
)

// processMemberExportJob builds the full member CSV and uploads it to the
// configured S3 bucket. Progress is tracked on the export record so the
// admin UI can show it.
func (q *Queue) processMemberExportJob(ctx context.Context, job *Job) error {
	var payload MemberExportJobPayload
	if err := job.decodePayload(&payload); err != nil {
		return fmt.Errorf("export job %s: bad payload: %w", job.ID, err)
	}

	log.Infof("[MemberExport] export %d started (requested by user %d)", payload.ExportID, payload.RequestedByID)

	config, err := memberexport.LoadConfig()
	if err != nil {
		return fmt.Errorf("load export config: %w", err)
	}
	if !config.IsEnabled() {
		return fmt.Errorf("member exports are disabled")
	}

	db := database.GetDB()
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	export, err := models.FindMemberExportByID(db, payload.ExportID)
	if err != nil {
		return fmt.Errorf("find export record: %w", err)
	}
	if err := export.MarkAsRunning(db); err != nil {
		return fmt.Errorf("mark export running: %w", err)
	}

	fail := func(cause error) error {
		if markErr := export.MarkAsFailed(db, cause.Error()); markErr != nil {
			log.Errorf("[MemberExport] mark export %d failed: %v", export.ID, markErr)
		}
		return cause
	}

	data, rowCount, err := memberexport.BuildCSV(db)
	if err != nil {
		return fail(fmt.Errorf("build member CSV: %w", err))
	}

	client, err := memberexport.NewClient(config)
	if err != nil {
		return fail(fmt.Errorf("create export storage client: %w", err))
	}

	objectKey := config.GetObjectKey(time.Now())
	log.Infof("[MemberExport] uploading %d member rows as %s", rowCount, objectKey)
	result, err := client.UploadCSV(data, objectKey)
	if err != nil {
		return fail(fmt.Errorf("upload export: %w", err))
	}

	if err := export.MarkAsCompleted(db, result.BucketName, result.ObjectKey, rowCount, result.Size); err != nil {
		return fmt.Errorf("mark export completed: %w", err)
	}

	log.Infof("[MemberExport] exported %d members to s3://%s/%s", rowCount, result.BucketName, result.ObjectKey)

	// Exports carry the full member list. Only the newest ones stay around.
	pruneOldExports(db, client)
	return nil
}

// exportRetainCount is how many completed exports survive a prune sweep.
const exportRetainCount = 10

// pruneOldExports deletes completed exports beyond the retention count, object
// first, record second. Failures are logged and skipped; the next sweep
// retries them.
func pruneOldExports(db *gorm.DB, client *memberexport.Client) {
	stale, err := models.FindPrunableExports(db, exportRetainCount)
	if err != nil {
		log.Errorf("[MemberExport] prune: list stale exports: %v", err)
		return
	}

	for _, export := range stale {
		if export.ObjectKey != "" {
			exists, err := client.ObjectExists(export.ObjectKey)
			if err != nil {
				log.Errorf("[MemberExport] prune: check export %d object: %v", export.ID, err)
				continue
			}
			if exists {
				if err := client.DeleteFile(export.ObjectKey); err != nil {
					log.Errorf("[MemberExport] prune: delete export %d object: %v", export.ID, err)
					continue
				}
			}
		}
		if err := models.DeleteMemberExportRecord(db, export.ID); err != nil {
			log.Errorf("[MemberExport] prune: delete export %d record: %v", export.ID, err)
			continue
		}
		log.Infof("[MemberExport] pruned export %d (%s)", export.ID, export.ObjectKey)
	}
}

// EnqueueMemberExportJob creates a pending export record and queues the job
// that fills it. The record is returned even when enqueueing fails so the
// caller can show the failure.
func (q *Queue) EnqueueMemberExportJob(requestedByID uint) (*models.MemberExport, *Job, error) {
	db := database.GetDB()
	if db == nil {
		return nil, nil, fmt.Errorf("database connection is nil")
	}

	export, err := models.CreateMemberExportRecord(db, requestedByID)
	if err != nil {
		return nil, nil, fmt.Errorf("create export record: %w", err)
	}

	job, err := q.Enqueue(JobTypeMemberExport, MemberExportJobPayload{
		ExportID:      export.ID,
		RequestedByID: requestedByID,
	})
	if err != nil {
		if markErr := export.MarkAsFailed(db, err.Error()); markErr != nil {
			log.Errorf("[MemberExport] mark export %d failed: %v", export.ID, markErr)
		}
		return export, nil, err
	}

	return export, job, nil
}
