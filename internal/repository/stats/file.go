package stats

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/ghost-host/internal/config"
	domain "github.com/oshokin/ghost-host/internal/domain/performance"
)

// Document keys.
const (
	keyPerformances   = "performances"
	keyRejected       = "rejected"
	keyLastSource     = "last_source"
	keyLastClip       = "last_clip"
	keyLastStartedAt  = "last_started_at"
	keyLastFinishedAt = "last_finished_at"
	keyLastOutcome    = "last_outcome"
)

// Repository defines persistence operations for performance statistics.
type Repository interface {
	Load(ctx context.Context) (domain.Stats, error)
	Save(ctx context.Context, stats domain.Stats) error
}

// FileRepository persists statistics to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the JSON file.
	path string
	// mu protects concurrent access to the file.
	mu sync.Mutex
}

// ErrNotFound is returned when the statistics file does not exist yet.
var ErrNotFound = errors.New("stats not found")

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads statistics from disk.
func (r *FileRepository) Load(_ context.Context) (domain.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Stats{}, ErrNotFound
		}

		return domain.Stats{}, fmt.Errorf("read stats file: %w", err)
	}

	var doc structpb.Struct
	if err = protojson.Unmarshal(contents, &doc); err != nil {
		return domain.Stats{}, fmt.Errorf("decode stats file: %w", err)
	}

	return fromStruct(&doc), nil
}

// Save writes statistics to disk.
func (r *FileRepository) Save(_ context.Context, stats domain.Stats) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := ToStruct(stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}

	data, err := protojson.MarshalOptions{Multiline: true}.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write stats file: %w", err)
	}

	return nil
}

// ToStruct converts statistics into their document form.
func ToStruct(stats domain.Stats) (*structpb.Struct, error) {
	fields := map[string]any{
		keyPerformances: stats.Performances,
		keyRejected:     stats.Rejected,
		keyLastClip:     stats.LastClip,
		keyLastOutcome:  stats.LastOutcome.String(),
	}

	if stats.LastSource.Valid() {
		fields[keyLastSource] = stats.LastSource.String()
	}

	if !stats.LastStartedAt.IsZero() {
		fields[keyLastStartedAt] = stats.LastStartedAt.UTC().Format(time.RFC3339Nano)
	}

	if !stats.LastFinishedAt.IsZero() {
		fields[keyLastFinishedAt] = stats.LastFinishedAt.UTC().Format(time.RFC3339Nano)
	}

	return structpb.NewStruct(fields)
}

// fromStruct converts the document form back into statistics.
// Unknown or malformed fields are left at their zero value.
func fromStruct(doc *structpb.Struct) domain.Stats {
	fields := doc.GetFields()

	stats := domain.Stats{
		Performances: int64(fields[keyPerformances].GetNumberValue()),
		Rejected:     int64(fields[keyRejected].GetNumberValue()),
		LastClip:     fields[keyLastClip].GetStringValue(),
		LastOutcome:  domain.ParseOutcome(fields[keyLastOutcome].GetStringValue()),
	}

	if name := fields[keyLastSource].GetStringValue(); name != "" {
		if source, err := domain.ParseTriggerSource(name); err == nil {
			stats.LastSource = source
		}
	}

	stats.LastStartedAt = parseTime(fields[keyLastStartedAt].GetStringValue())
	stats.LastFinishedAt = parseTime(fields[keyLastFinishedAt].GetStringValue())

	return stats
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}

	return t
}
