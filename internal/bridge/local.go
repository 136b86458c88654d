package bridge

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/hpungsan/invoicename/internal/db"
	"github.com/hpungsan/invoicename/internal/errors"
	"github.com/hpungsan/invoicename/internal/invoice"
)

// Defaults match the desktop shell's rename loop.
const (
	DefaultRetries         = 10
	DefaultRetryDelay      = 180 * time.Millisecond
	DefaultMaxPreviewBytes = 20 * 1024 * 1024
)

var errNotAvailable = stderrors.New("bridge not available")

// previewTypes maps supported extensions to preview kind and MIME type.
var previewTypes = map[string][2]string{
	"pdf":  {"pdf", "application/pdf"},
	"png":  {"image", "image/png"},
	"jpg":  {"image", "image/jpeg"},
	"jpeg": {"image", "image/jpeg"},
}

// Local renames files on this machine.
type Local struct {
	Retries         int
	RetryDelay      time.Duration
	MaxPreviewBytes int64

	// Journal, when set, receives one row per executed plan item.
	Journal *sql.DB

	log    zerolog.Logger
	sleep  func(time.Duration)
	rename func(oldpath, newpath string) error

	mu      sync.Mutex
	entropy io.Reader
}

var _ Bridge = (*Local)(nil)

// NewLocal creates a local bridge with default retry and preview limits.
func NewLocal(log zerolog.Logger) *Local {
	return &Local{
		Retries:         DefaultRetries,
		RetryDelay:      DefaultRetryDelay,
		MaxPreviewBytes: DefaultMaxPreviewBytes,
		log:             log,
		sleep:           time.Sleep,
		rename:          os.Rename,
		entropy:         ulid.Monotonic(rand.Reader, 0),
	}
}

func (l *Local) Available() bool { return true }

// Rename executes one plan item. Non-rename actions are skipped; a missing
// source fails without touching the filesystem; a target held open by another
// process is retried.
func (l *Local) Rename(ctx context.Context, taskID string, item invoice.CommitPlanItem) (*invoice.CommitResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &invoice.CommitResult{
		ItemID:     item.ItemID,
		SourcePath: item.SourcePath,
		TargetPath: item.TargetPath,
	}

	switch {
	case item.Action != invoice.ActionRename:
		result.Result = invoice.ResultSkipped
		result.Message = invoice.Str(MsgSkippedByPlan)
	case !exists(item.SourcePath):
		result.Result = invoice.ResultFailed
		result.Message = invoice.Str(MsgSourceNotFound)
	default:
		if err := l.renameWithRetry(item.SourcePath, item.TargetPath); err != nil {
			result.Result = invoice.ResultFailed
			if isFileInUse(err) {
				result.Message = invoice.Str(fmt.Sprintf("%s:%v", MsgFileInUse, err))
			} else {
				result.Message = invoice.Str(err.Error())
			}
		} else {
			result.Result = invoice.ResultRenamed
		}
	}

	l.log.Info().
		Str("task_id", taskID).
		Str("item_id", item.ItemID).
		Str("result", string(result.Result)).
		Str("target", item.TargetPath).
		Msg("bridge rename")

	l.record(taskID, result)
	return result, nil
}

func (l *Local) renameWithRetry(source, target string) error {
	attempts := l.Retries
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; ; attempt++ {
		err := l.rename(source, target)
		if err == nil {
			return nil
		}
		if !isFileInUse(err) || attempt >= attempts {
			return err
		}
		l.log.Debug().Err(err).Int("attempt", attempt).Str("source", source).Msg("file in use, retrying")
		l.sleep(l.RetryDelay)
	}
}

// record appends the outcome to the journal. Journal failures are logged only.
func (l *Local) record(taskID string, r *invoice.CommitResult) {
	if l.Journal == nil {
		return
	}
	entry := &db.JournalEntry{
		ID:         l.newID(),
		TaskID:     taskID,
		ItemID:     r.ItemID,
		SourcePath: r.SourcePath,
		TargetPath: r.TargetPath,
		Result:     string(r.Result),
		Message:    r.Message,
		CreatedAt:  time.Now().Unix(),
	}
	if err := db.InsertJournal(l.Journal, entry); err != nil {
		l.log.Warn().Err(err).Str("item_id", r.ItemID).Msg("journal write failed")
	}
}

func (l *Local) newID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), l.entropy).String()
}

// ReadPreview reads a pdf or image for display, refusing symlinks and files
// larger than MaxPreviewBytes.
func (l *Local) ReadPreview(ctx context.Context, sourcePath string) (*Preview, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(sourcePath), "."))
	kind, ok := previewTypes[ext]
	if !ok {
		return nil, errors.NewInvalidRequest(MsgUnsupportedFormat)
	}

	f, err := openFileNoFollowRead(sourcePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("read_metadata_failed:%w", err))
	}
	if !info.Mode().IsRegular() {
		return nil, errors.NewInvalidRequest("preview source is not a regular file")
	}
	if l.MaxPreviewBytes > 0 && info.Size() > l.MaxPreviewBytes {
		e := errors.NewInvalidRequest(MsgTooLarge)
		e.Detail = fmt.Sprintf("%s is %s, limit is %s",
			filepath.Base(sourcePath),
			humanize.IBytes(uint64(info.Size())),
			humanize.IBytes(uint64(l.MaxPreviewBytes)))
		return nil, e
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("read_file_failed:%w", err))
	}

	return &Preview{
		Kind:       kind[0],
		MIME:       kind[1],
		Base64Data: base64.StdEncoding.EncodeToString(data),
		FileName:   filepath.Base(sourcePath),
	}, nil
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
