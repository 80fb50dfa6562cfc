package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kevinpineda22/backend-inventario-sub000/models"
	"github.com/kevinpineda22/backend-inventario-sub000/services"
	"github.com/kevinpineda22/backend-inventario-sub000/snapshot"
	"go.uber.org/zap"
)

// PhaseFile tags the per-file sync log entry written by the processor.
const PhaseFile = "file"

type Folders struct {
	Pending   string
	Processed string
	Error     string
}

type Syncer interface {
	Sync(ctx context.Context, snap services.CatalogSnapshot) (*services.SyncResult, error)
}

// FileResult is the outcome of one pending file.
type FileResult struct {
	File    string
	MovedTo string
	Result  *services.SyncResult
	Err     error
}

// Processor drains a folder of catalog snapshots dropped by the ERP export.
type Processor struct {
	folders  Folders
	syncer   Syncer
	logs     services.SyncLogStore
	notifier services.Notifier
	log      *zap.Logger
	now      func() time.Time
}

func New(folders Folders, syncer Syncer, logs services.SyncLogStore, notifier services.Notifier, log *zap.Logger) *Processor {
	if notifier == nil {
		notifier = services.NopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		folders:  folders,
		syncer:   syncer,
		logs:     logs,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// ProcessPending syncs every supported file in the pending folder, oldest name first.
// A file that fails to parse or sync is moved to the error folder and does not stop the rest.
func (p *Processor) ProcessPending(ctx context.Context) ([]FileResult, error) {
	entries, err := os.ReadDir(p.folders.Pending)
	if err != nil {
		return nil, fmt.Errorf("read pending folder: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !snapshot.Supported(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(p.folders.Pending, entry.Name()))
	}
	sort.Strings(files)

	p.log.Info("processing pending catalog files", zap.String("folder", p.folders.Pending), zap.Int("files", len(files)))

	results := make([]FileResult, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, p.processFile(ctx, file))
	}
	return results, nil
}

func (p *Processor) processFile(ctx context.Context, path string) FileResult {
	name := filepath.Base(path)
	out := FileResult{File: name}

	out.Result, out.Err = p.syncFile(ctx, path)

	target := p.folders.Processed
	if out.Err != nil {
		target = p.folders.Error
		p.log.Error("catalog file failed", zap.String("file", name), zap.Error(out.Err))
	} else {
		p.log.Info("catalog file processed", zap.String("file", name), zap.String("sync_id", out.Result.SyncID))
	}

	moved, err := p.move(path, target)
	if err != nil {
		p.log.Error("move catalog file", zap.String("file", name), zap.String("target", target), zap.Error(err))
	}
	out.MovedTo = moved

	p.record(ctx, name, out)

	if err := p.notifier.SyncCompleted(ctx, name, out.Result, out.Err); err != nil {
		p.log.Warn("sync notification failed", zap.String("file", name), zap.Error(err))
	}
	return out
}

func (p *Processor) syncFile(ctx context.Context, path string) (*services.SyncResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	rows, err := snapshot.ReadRows(f, path)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	snap, err := snapshot.ParseCatalog(rows, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return p.syncer.Sync(ctx, snap)
}

func (p *Processor) record(ctx context.Context, name string, out FileResult) {
	if p.logs == nil {
		return
	}
	entry := models.SyncLog{
		Source: name,
		Phase:  PhaseFile,
		Status: models.SyncStatusOK,
	}
	if out.Result != nil {
		entry.SyncID = out.Result.SyncID
		entry.KeyCount = out.Result.ItemsUpserted + out.Result.BarcodesUpserted +
			out.Result.ItemsDeactivated + out.Result.BarcodesDeactivated
		entry.Message = fmt.Sprintf("items %d/%d barcodes %d/%d skipped %d",
			out.Result.ItemsUpserted, out.Result.ItemsDeactivated,
			out.Result.BarcodesUpserted, out.Result.BarcodesDeactivated,
			out.Result.Skipped)
	} else {
		entry.SyncID = uuid.NewString()
	}
	if out.Err != nil {
		entry.Status = models.SyncStatusFailed
		entry.Message = out.Err.Error()
	}
	if err := p.logs.WriteSyncLogs(ctx, []models.SyncLog{entry}); err != nil {
		p.log.Warn("write file sync log", zap.String("file", name), zap.Error(err))
	}
}

// move relocates a file, falling back to copy and delete across volumes.
// An existing file with the same name is kept by suffixing the new one with a timestamp.
func (p *Processor) move(src, dir string) (string, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", err
	}
	dst := filepath.Join(dir, filepath.Base(src))
	if _, err := os.Stat(dst); err == nil {
		ext := filepath.Ext(dst)
		dst = fmt.Sprintf("%s_%s%s", dst[:len(dst)-len(ext)], p.now().Format("20060102150405"), ext)
	}
	if err := os.Rename(src, dst); err != nil {
		if err := copyAndDeleteFile(src, dst); err != nil {
			return "", err
		}
	}
	return dst, nil
}

func copyAndDeleteFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destinationFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(destinationFile, sourceFile); err != nil {
		destinationFile.Close()
		return errors.Join(err, os.Remove(dst))
	}
	if err := destinationFile.Close(); err != nil {
		return err
	}
	sourceFile.Close()
	return os.Remove(src)
}
