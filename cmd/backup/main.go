package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"med-watch/storage"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// backupPrefix kennzeichnet die Objekte, die rotiert werden.
const backupPrefix = "backup-"

// BackupConfig enthält die Konfiguration für Datenbank-Backups des Referenz-Backends.
type BackupConfig struct {
	PostgresHost     string `envconfig:"POSTGRES_HOST" required:"true"`
	PostgresUser     string `envconfig:"POSTGRES_USER" required:"true"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	PostgresDB       string `envconfig:"POSTGRES_DB" required:"true"`
	BackupBucket     string `envconfig:"BACKUP_S3_BUCKET" required:"true"`
	BackupEndpoint   string `envconfig:"BACKUP_S3_ENDPOINT" required:"true"`
	BackupAccessKey  string `envconfig:"BACKUP_S3_ACCESS_KEY" required:"true"`
	BackupSecretKey  string `envconfig:"BACKUP_S3_SECRET_KEY" required:"true"`
	BackupRegion     string `envconfig:"BACKUP_S3_REGION" required:"true"`
	KeepBackups      int    `envconfig:"KEEP_BACKUPS" default:"4"`
	// Leer: einmaliger Lauf. Sonst Cron-Ausdruck, z.B. "0 3 * * *".
	Schedule string `envconfig:"BACKUP_SCHEDULE"`
}

func (c BackupConfig) s3Settings() storage.S3Settings {
	return storage.S3Settings{
		Endpoint:  c.BackupEndpoint,
		Region:    c.BackupRegion,
		AccessKey: c.BackupAccessKey,
		SecretKey: c.BackupSecretKey,
		Bucket:    c.BackupBucket,
	}
}

// dumpFunc erzeugt einen Datenbank-Dump.
type dumpFunc func(ctx context.Context, cfg BackupConfig) (io.ReadCloser, func() error, error)

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	_ = godotenv.Load()
	var cfg BackupConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logging.Fatal("Fehler beim Laden der Konfiguration", zap.Error(err))
	}
	if cfg.KeepBackups < 0 {
		logging.Fatal("KEEP_BACKUPS darf nicht negativ sein", zap.Int("keep", cfg.KeepBackups))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s3Client, err := storage.NewS3Client(ctx, cfg.s3Settings())
	if err != nil {
		logging.Fatal("Fehler beim Erstellen des S3-Clients", zap.Error(err))
	}

	job := &backupJob{cfg: cfg, store: s3Client, dump: pgDump, logger: logging, now: time.Now}

	if cfg.Schedule == "" {
		if err := job.run(ctx); err != nil {
			logging.Fatal("Backup fehlgeschlagen", zap.Error(err))
		}
		return
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Schedule, func() {
		if err := job.run(ctx); err != nil {
			logging.Error("Scheduled backup failed", zap.Error(err))
		}
	}); err != nil {
		logging.Fatal("Ungültiger BACKUP_SCHEDULE", zap.String("schedule", cfg.Schedule), zap.Error(err))
	}
	scheduler.Start()
	logging.Info("Backup scheduler started", zap.String("schedule", cfg.Schedule))

	<-ctx.Done()
	<-scheduler.Stop().Done()
	logging.Info("Backup scheduler stopped")
}

type backupJob struct {
	cfg    BackupConfig
	store  storage.ObjectStore
	dump   dumpFunc
	logger *zap.Logger
	now    func() time.Time
}

// run erstellt einen Dump, lädt ihn hoch und rotiert alte Backups.
func (j *backupJob) run(ctx context.Context) error {
	j.logger.Info("Starte Backup-Prozess...")

	data, err := j.createDump(ctx)
	if err != nil {
		return fmt.Errorf("create dump: %w", err)
	}

	fileName := fmt.Sprintf("%s%s.sql.gz", backupPrefix, j.now().UTC().Format("2006-01-02T15-04-05Z"))
	link, err := storage.UploadFile(ctx, j.store, j.cfg.s3Settings(), fileName, data)
	if err != nil {
		return fmt.Errorf("upload %s: %w", fileName, err)
	}
	j.logger.Info("Backup hochgeladen", zap.String("link", link), zap.Int("bytes", len(data)))

	deleted, err := storage.RotateObjects(ctx, j.store, j.cfg.BackupBucket, backupPrefix, j.cfg.KeepBackups)
	if err != nil {
		return fmt.Errorf("rotate backups: %w", err)
	}
	if len(deleted) > 0 {
		j.logger.Info("Alte Backups gelöscht", zap.Strings("keys", deleted))
	}

	j.logger.Info("Backup-Prozess erfolgreich abgeschlossen.")
	return nil
}

// createDump komprimiert die Ausgabe des Dumps mit gzip.
func (j *backupJob) createDump(ctx context.Context) ([]byte, error) {
	out, wait, err := j.dump(ctx, j.cfg)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	if _, err := io.Copy(gzipWriter, out); err != nil {
		return nil, err
	}
	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}
	if err := wait(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func pgDump(ctx context.Context, cfg BackupConfig) (io.ReadCloser, func() error, error) {
	cmd := exec.CommandContext(ctx, "pg_dump",
		"-h", cfg.PostgresHost,
		"-U", cfg.PostgresUser,
		"-d", cfg.PostgresDB,
		"-t", "medications",
		"-w", // Passwort wird über PGPASSWORD bereitgestellt
	)
	cmd.Env = append(os.Environ(), fmt.Sprintf("PGPASSWORD=%s", cfg.PostgresPassword))

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}
	return stdout, cmd.Wait, nil
}
