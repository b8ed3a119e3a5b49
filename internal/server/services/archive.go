package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/tourdesk/internal/common"
	"github.com/dmitrijs2005/tourdesk/internal/dbx"
	"github.com/dmitrijs2005/tourdesk/internal/logging"
	sc "github.com/dmitrijs2005/tourdesk/internal/server/config"
	"github.com/dmitrijs2005/tourdesk/internal/server/metrics"
	"github.com/dmitrijs2005/tourdesk/internal/server/models"
	"github.com/dmitrijs2005/tourdesk/internal/server/repositories/repomanager"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

// ArchiveResult describes one uploaded audit archive.
type ArchiveResult struct {
	Bucket  string
	Key     string
	Entries int
}

// ArchiveService exports the audit log to S3-compatible object storage as
// JSON lines. The log itself is left intact.
type ArchiveService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	logger      logging.Logger
	now         func() time.Time
}

func NewArchiveService(db *sql.DB, rm repomanager.RepositoryManager, config *sc.Config, logger logging.Logger) *ArchiveService {
	return &ArchiveService{db: db, repomanager: rm, config: config, logger: logger.With("module", "archive"), now: time.Now}
}

func archiveKey(t time.Time) string {
	return fmt.Sprintf("audit/%d/%02d/%02d/%v.jsonl", t.Year(), t.Month(), t.Day(), uuid.New())
}

func (s *ArchiveService) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// Export uploads every audit entry and then records the export itself in
// the audit log. Admin only. The upload is not transactional: if recording
// fails after a successful upload the archive stays in the bucket.
func (s *ArchiveService) Export(ctx context.Context, actor models.Actor) (*ArchiveResult, error) {
	if !actor.IsAdmin() {
		return nil, common.ErrorForbidden
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	count := 0
	err := s.repomanager.Audit(s.db).Each(ctx, func(e models.AuditEntry) error {
		count++
		return enc.Encode(e)
	})
	if err != nil {
		return nil, classify(ctx, s.logger, "read audit log", err)
	}

	client, err := s.getClient(ctx)
	if err != nil {
		metrics.AuditExportsTotal.WithLabelValues("error").Inc()
		return nil, classify(ctx, s.logger, "s3 client", err)
	}

	res := &ArchiveResult{Bucket: s.config.S3Bucket, Key: archiveKey(s.now()), Entries: count}
	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(res.Bucket),
		Key:         aws.String(res.Key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		metrics.AuditExportsTotal.WithLabelValues("error").Inc()
		return nil, classify(ctx, s.logger, "upload audit archive", err)
	}
	metrics.AuditExportsTotal.WithLabelValues("ok").Inc()

	entry := &models.AuditEntry{
		UserID:      actor.ID,
		Action:      models.ActionAuditExport,
		Description: fmt.Sprintf("Audit log exported by %s: %d entries to %s/%s.", actor.UserName, count, res.Bucket, res.Key),
		CreatedAt:   s.now(),
	}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return appendAudit(ctx, s.repomanager, tx, entry)
	})
	if err != nil {
		return nil, classify(ctx, s.logger, "record audit export", err)
	}
	committed(entry)

	s.logger.Info(ctx, "audit log exported", "key", res.Key, "entries", count)
	return res, nil
}
