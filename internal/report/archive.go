package report

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotArchived is returned when no archived file has the requested name.
var ErrNotArchived = errors.New("report: file not archived")

// ErrInvalidName is returned for file names outside the report naming scheme.
var ErrInvalidName = errors.New("report: invalid file name")

var namePattern = regexp.MustCompile(`^visitors-(daily|weekly|monthly)-report-[0-9-]+(-to-[0-9-]+)?\.csv$`)

const archivePrefix = "report:archive:"

// Archive stores generated CSV files in Redis.
type Archive struct {
	R   *redis.Client
	TTL time.Duration
}

// ValidName reports whether name follows the report naming scheme.
func ValidName(name string) bool { return namePattern.MatchString(name) }

// Save stores body under name, replacing any previous file.
func (a *Archive) Save(ctx context.Context, name string, body []byte) error {
	if a == nil || a.R == nil {
		return errors.New("report archive not configured")
	}
	if !ValidName(name) {
		return ErrInvalidName
	}
	return a.R.Set(ctx, archivePrefix+name, body, a.TTL).Err()
}

// Get returns the archived file named name.
func (a *Archive) Get(ctx context.Context, name string) ([]byte, error) {
	if a == nil || a.R == nil {
		return nil, ErrNotArchived
	}
	if !ValidName(name) {
		return nil, ErrInvalidName
	}
	body, err := a.R.Get(ctx, archivePrefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotArchived
	}
	return body, err
}
