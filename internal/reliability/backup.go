package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"solsentinel/internal/database"
)

// BackupMetadata describes one archive's contents, serialized alongside the
// database snapshot inside the archive. msgpack is used here (rather than
// JSON, as the teacher's R2 backup service used) because it is the binary
// encoding the rest of this retrieval pack reaches for on internal payloads;
// see DESIGN.md.
type BackupMetadata struct {
	Timestamp time.Time `msgpack:"timestamp"`
	Database  string    `msgpack:"database"`
	SizeBytes int64     `msgpack:"size_bytes"`
}

// BackupInfo is one archive already present in the backup bucket.
type BackupInfo struct {
	Key       string
	Timestamp time.Time
	SizeBytes int64
}

const archivePrefix = "solsentinel-backup-"
const archiveTimeLayout = "2006-01-02-150405"

// BackupService snapshots the sqlite database, packages it with msgpack
// metadata into a tar.gz archive, and ships it to an S3-compatible bucket.
// Structure (stage, upload, rotate) and the minimum-3-backups-kept rotation
// rule are grounded on the teacher's R2BackupService; the teacher's own
// R2Client wrapper wasn't in the retrieval pack, so this talks to
// aws-sdk-go-v2's S3 client directly.
type BackupService struct {
	db       *database.DB
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	dataDir  string
	log      zerolog.Logger
}

// BackupConfig configures the destination bucket and credentials. Endpoint
// is optional; when set, it points at an S3-compatible provider (e.g.
// Cloudflare R2) instead of AWS's own endpoint resolution.
type BackupConfig struct {
	Bucket    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

func NewBackupService(ctx context.Context, db *database.DB, dataDir string, cfg BackupConfig, log zerolog.Logger) (*BackupService, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
		}
		o.UsePathStyle = true
	})

	return &BackupService{
		db:       db,
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		dataDir:  dataDir,
		log:      log.With().Str("service", "backup").Logger(),
	}, nil
}

// CreateAndUpload snapshots the live database with VACUUM INTO (safe
// against concurrent writers, unlike a raw file copy of a WAL-mode sqlite
// file), packages it with its metadata into a tar.gz archive, and uploads
// the archive to the configured bucket.
func (s *BackupService) CreateAndUpload(ctx context.Context) error {
	start := time.Now()
	s.log.Info().Msg("starting backup")

	stagingDir := filepath.Join(s.dataDir, "backup-staging")
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	snapshotPath := filepath.Join(stagingDir, "sentinel.db")
	if err := s.snapshotDatabase(ctx, snapshotPath); err != nil {
		return fmt.Errorf("snapshot database: %w", err)
	}

	info, err := os.Stat(snapshotPath)
	if err != nil {
		return fmt.Errorf("stat snapshot: %w", err)
	}
	meta := BackupMetadata{Timestamp: start.UTC(), Database: "sentinel", SizeBytes: info.Size()}
	metaPath := filepath.Join(stagingDir, "metadata.msgpack")
	if err := writeMsgpackFile(metaPath, meta); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	archiveName := archivePrefix + start.Format(archiveTimeLayout) + ".tar.gz"
	archivePath := filepath.Join(stagingDir, archiveName)
	if err := createArchive(archivePath, []string{snapshotPath, metaPath}); err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	archive, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archive.Close()

	if _, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &archiveName,
		Body:   archive,
	}); err != nil {
		return fmt.Errorf("upload archive: %w", err)
	}

	s.log.Info().
		Dur("duration", time.Since(start)).
		Str("archive", archiveName).
		Msg("backup uploaded")
	return nil
}

func (s *BackupService) snapshotDatabase(ctx context.Context, dest string) error {
	_ = os.Remove(dest)
	_, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", strings.ReplaceAll(dest, "'", "''")))
	return err
}

// ListBackups lists every archive currently in the bucket, newest first.
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: &s.bucket,
		Prefix: awsStr(archivePrefix),
	})
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	backups := make([]BackupInfo, 0, len(out.Contents))
	for _, obj := range out.Contents {
		if obj.Key == nil {
			continue
		}
		ts, ok := parseArchiveTimestamp(*obj.Key)
		if !ok {
			continue
		}
		var size int64
		if obj.Size != nil {
			size = *obj.Size
		}
		backups = append(backups, BackupInfo{Key: *obj.Key, Timestamp: ts, SizeBytes: size})
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].Timestamp.After(backups[j].Timestamp) })
	return backups, nil
}

// minBackupsToKeep bounds rotation so a misconfigured retention window can
// never delete every backup in the bucket.
const minBackupsToKeep = 3

// RotateOldBackups deletes archives older than retentionDays, always
// keeping at least minBackupsToKeep regardless of age. retentionDays <= 0
// disables rotation entirely.
func (s *BackupService) RotateOldBackups(ctx context.Context, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	backups, err := s.ListBackups(ctx)
	if err != nil {
		return err
	}
	if len(backups) <= minBackupsToKeep {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for i, b := range backups {
		if i < minBackupsToKeep || !b.Timestamp.Before(cutoff) {
			continue
		}
		if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &b.Key}); err != nil {
			s.log.Error().Err(err).Str("key", b.Key).Msg("failed to delete old backup")
			continue
		}
		deleted++
	}
	s.log.Info().Int("deleted", deleted).Int("remaining", len(backups)-deleted).Msg("backup rotation complete")
	return nil
}

func parseArchiveTimestamp(key string) (time.Time, bool) {
	if !strings.HasPrefix(key, archivePrefix) || !strings.HasSuffix(key, ".tar.gz") {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(key, archivePrefix), ".tar.gz")
	ts, err := time.Parse(archiveTimeLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func writeMsgpackFile(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return msgpack.NewEncoder(f).Encode(v)
}

func createArchive(archivePath string, files []string) error {
	archive, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer archive.Close()

	gz := gzip.NewWriter(archive)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	for _, path := range files {
		if err := addFileToArchive(tw, path); err != nil {
			return fmt.Errorf("add %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

func addFileToArchive(tw *tar.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header := &tar.Header{Name: filepath.Base(path), Size: info.Size(), Mode: int64(info.Mode()), ModTime: info.ModTime()}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}

func awsStr(s string) *string { return &s }
