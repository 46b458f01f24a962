package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"rawdahkids_go/database"
	"rawdahkids_go/middleware"
	"rawdahkids_go/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// LogBufferMaxAge is how long a log may sit in the Redis buffer before the
// scheduled flusher persists it.
const LogBufferMaxAge = 24 * time.Hour

// LogArchiveService drains the Redis activity-log buffer into the database
// and ships old rows off to S3 as zipped JSON so the hot table stays small.
type LogArchiveService struct {
	redisClient *redis.Client
	awsConfig   aws.Config
}

// archiveEntry is the flattened row format written into archive files. User
// identity is denormalized so archives stay readable after account deletion.
type archiveEntry struct {
	ID         uint           `json:"id"`
	UserID     uint           `json:"user_id"`
	Username   string         `json:"username,omitempty"`
	UserRole   string         `json:"user_role,omitempty"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID uint           `json:"resource_id"`
	Details    map[string]any `json:"details,omitempty"`
	IPAddress  string         `json:"ip_address"`
	UserAgent  string         `json:"user_agent"`
	CreatedAt  time.Time      `json:"created_at"`
}

func toArchiveEntry(log models.ActivityLog) archiveEntry {
	entry := archiveEntry{
		ID:         log.ID,
		UserID:     log.UserID,
		Action:     log.Action,
		Resource:   log.Resource,
		ResourceID: log.ResourceID,
		IPAddress:  log.IPAddress,
		UserAgent:  log.UserAgent,
		CreatedAt:  log.CreatedAt,
	}
	if len(log.Details) > 0 {
		var details map[string]any
		if err := json.Unmarshal(log.Details, &details); err == nil {
			entry.Details = details
		}
	}
	if log.User.ID > 0 {
		entry.Username = log.User.Username
		entry.UserRole = log.User.Role
	}
	return entry
}

func NewLogArchiveService() *LogArchiveService {
	cfg, err := awscfg.LoadDefaultConfig(context.Background(), awscfg.WithRegion(os.Getenv("AWS_REGION")))
	if err != nil {
		logrus.WithError(err).Warn("Failed to load AWS config; S3 operations will fail until configured")
	}

	return &LogArchiveService{
		redisClient: database.GetRedisClient(),
		awsConfig:   cfg,
	}
}

// flushCutoff returns the sorted-set score bound for a flush: entries scored
// at or below it get drained. maxAge <= 0 means flush the whole buffer.
func flushCutoff(now time.Time, maxAge time.Duration) string {
	if maxAge > 0 {
		now = now.Add(-maxAge)
	}
	return fmt.Sprintf("%d", now.UnixNano())
}

// FlushCachedLogsToDatabase drains buffered logs older than maxAge from the
// Redis sorted set into the activity_logs table; maxAge <= 0 drains the whole
// buffer (the manual admin flush). Entries are removed from the buffer only
// after the batch insert succeeds.
func (las *LogArchiveService) FlushCachedLogsToDatabase(maxAge time.Duration) error {
	if las.redisClient == nil {
		return fmt.Errorf("redis client not available")
	}

	ctx := context.Background()
	cutoff := flushCutoff(time.Now(), maxAge)

	raw, err := las.redisClient.ZRangeByScore(ctx, middleware.ActivityLogQueueKey, &redis.ZRangeBy{
		Min: "0",
		Max: cutoff,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to read log buffer: %v", err)
	}
	if len(raw) == 0 {
		return nil
	}

	logs := make([]models.ActivityLog, 0, len(raw))
	skipped := 0
	for _, payload := range raw {
		var entry models.ActivityLog
		if err := json.Unmarshal([]byte(payload), &entry); err != nil {
			skipped++
			continue
		}
		logs = append(logs, entry)
	}

	if len(logs) > 0 {
		if err := database.DB.CreateInBatches(&logs, 500).Error; err != nil {
			return fmt.Errorf("failed to persist buffered logs: %v", err)
		}
	}

	if err := las.redisClient.ZRemRangeByScore(ctx, middleware.ActivityLogQueueKey, "0", cutoff).Err(); err != nil {
		logrus.WithError(err).Error("Failed to trim flushed entries from log buffer")
	}

	logrus.WithFields(logrus.Fields{
		"flushed": len(logs),
		"skipped": skipped,
	}).Info("Flushed buffered activity logs to database")
	return nil
}

// ArchiveOldLogs exports rows older than daysOld into a zipped JSON file on
// S3, records the archive, and deletes the exported rows.
func (las *LogArchiveService) ArchiveOldLogs(daysOld int) error {
	if daysOld < 7 {
		return fmt.Errorf("minimum archive age is 7 days")
	}

	cutoffDate := time.Now().AddDate(0, 0, -daysOld)

	var entries []archiveEntry
	batchSize := 1000
	for offset := 0; ; offset += batchSize {
		var logs []models.ActivityLog
		err := database.DB.
			Preload("User").
			Where("created_at < ?", cutoffDate).
			Order("created_at ASC").
			Limit(batchSize).
			Offset(offset).
			Find(&logs).Error
		if err != nil {
			return fmt.Errorf("failed to fetch logs for archiving: %v", err)
		}
		if len(logs) == 0 {
			break
		}
		for _, log := range logs {
			entries = append(entries, toArchiveEntry(log))
		}
	}

	if len(entries) == 0 {
		logrus.Info("No activity logs old enough to archive")
		return nil
	}

	fileName := fmt.Sprintf("activity_logs_%s.zip", cutoffDate.Format("2006-01-02"))
	zipBuffer, err := las.buildArchiveZip(entries, fileName)
	if err != nil {
		return fmt.Errorf("failed to build archive: %v", err)
	}

	s3Key := fmt.Sprintf("logs/archived/%d/%02d/%s", cutoffDate.Year(), cutoffDate.Month(), fileName)
	if err := las.uploadToS3(s3Key, zipBuffer); err != nil {
		return fmt.Errorf("failed to upload archive to S3: %v", err)
	}

	result := database.DB.Where("created_at < ?", cutoffDate).Delete(&models.ActivityLog{})
	if result.Error != nil {
		return fmt.Errorf("archive uploaded but cleanup failed: %v", result.Error)
	}

	archive := models.LogArchive{
		FileName:    fileName,
		S3Key:       s3Key,
		StartDate:   entries[0].CreatedAt,
		EndDate:     cutoffDate,
		RecordCount: len(entries),
		FileSize:    int64(zipBuffer.Len()),
		Status:      "completed",
	}
	if err := database.DB.Create(&archive).Error; err != nil {
		logrus.WithError(err).Error("Failed to record archive metadata")
	}

	logrus.WithFields(logrus.Fields{
		"s3_key":  s3Key,
		"records": len(entries),
		"deleted": result.RowsAffected,
	}).Info("Archived old activity logs to S3")
	return nil
}

// buildArchiveZip packs the entries plus a metadata manifest into a zip.
func (las *LogArchiveService) buildArchiveZip(entries []archiveEntry, fileName string) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	logsFile, err := zw.Create("activity_logs.json")
	if err != nil {
		return nil, err
	}
	enc := json.NewEncoder(logsFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{
		"export_date":  time.Now().UTC(),
		"record_count": len(entries),
		"logs":         entries,
	}); err != nil {
		return nil, err
	}

	manifest, err := zw.Create("metadata.json")
	if err != nil {
		return nil, err
	}
	if err := json.NewEncoder(manifest).Encode(map[string]any{
		"file_name":    fileName,
		"created_at":   time.Now().UTC(),
		"record_count": len(entries),
		"date_range": map[string]any{
			"start": entries[0].CreatedAt,
			"end":   entries[len(entries)-1].CreatedAt,
		},
		"description": "Rawdah Kids activity log archive",
	}); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf, nil
}

func (las *LogArchiveService) uploadToS3(key string, data *bytes.Buffer) error {
	if las.awsConfig.Region == "" {
		return fmt.Errorf("AWS not configured")
	}

	client := s3.NewFromConfig(las.awsConfig)
	bucket := os.Getenv("S3_BUCKET_NAME")

	_, err := client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(data.Bytes()),
		ContentType: aws.String("application/zip"),
	})
	return err
}

func (las *LogArchiveService) downloadFromS3(key string) (io.ReadCloser, error) {
	if las.awsConfig.Region == "" {
		return nil, fmt.Errorf("AWS not configured")
	}

	client := s3.NewFromConfig(las.awsConfig)
	bucket := os.Getenv("S3_BUCKET_NAME")

	result, err := client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, err
	}
	return result.Body, nil
}

// GetArchivedLogs lists recorded archives, newest first.
func (las *LogArchiveService) GetArchivedLogs() ([]models.LogArchive, error) {
	var archives []models.LogArchive
	if err := database.DB.Order("created_at DESC").Find(&archives).Error; err != nil {
		return nil, fmt.Errorf("failed to list archives: %v", err)
	}
	return archives, nil
}

// DownloadArchivedLogs streams one archive back from S3.
func (las *LogArchiveService) DownloadArchivedLogs(archiveID uint) (io.ReadCloser, string, error) {
	var archive models.LogArchive
	if err := database.DB.First(&archive, archiveID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, "", fmt.Errorf("archive not found")
		}
		return nil, "", fmt.Errorf("failed to load archive record: %v", err)
	}

	reader, err := las.downloadFromS3(archive.S3Key)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download archive from S3: %v", err)
	}
	return reader, archive.FileName, nil
}
