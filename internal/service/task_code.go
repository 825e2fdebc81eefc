package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/noah-isme/grid-mediation-api/pkg/errors"
)

// Code prefixes derived from the task type name. Anything that matches
// neither keyword falls back to the generic prefix.
const (
	codePrefixDispute = "DP"
	codePrefixLegal   = "LA"
	codePrefixGeneric = "TK"

	codeSequenceWidth = 4
	codeSequenceMax   = 9999
)

type taskCodeRepository interface {
	MaxCodeForPrefix(ctx context.Context, prefix string) (string, error)
}

// TaskCodeGenerator allocates human-readable task codes of the form
// PREFIX + YYYYMMDD + zero-padded sequence. The sequence restarts daily
// per prefix. Generation is read-then-insert: the unique index on the code
// column is the real arbiter, and callers retry on a duplicate.
type TaskCodeGenerator struct {
	repo taskCodeRepository
	now  func() time.Time
}

// NewTaskCodeGenerator constructs a generator backed by the task store.
func NewTaskCodeGenerator(repo taskCodeRepository) *TaskCodeGenerator {
	return &TaskCodeGenerator{repo: repo, now: time.Now}
}

// PrefixForTypeName maps a task type name to its code prefix by keyword.
func PrefixForTypeName(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "dispute"):
		return codePrefixDispute
	case strings.Contains(lower, "legal"):
		return codePrefixLegal
	default:
		return codePrefixGeneric
	}
}

// Next returns the next free code for the given task type name. Two
// concurrent callers can receive the same code; the insert's unique
// constraint decides the winner.
func (g *TaskCodeGenerator) Next(ctx context.Context, typeName string) (string, error) {
	dayPrefix := PrefixForTypeName(typeName) + g.now().UTC().Format("20060102")

	max, err := g.repo.MaxCodeForPrefix(ctx, dayPrefix)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read code sequence")
	}

	seq := 1
	if max != "" && len(max) == len(dayPrefix)+codeSequenceWidth {
		parsed, err := strconv.Atoi(max[len(dayPrefix):])
		if err == nil {
			seq = parsed + 1
		}
	}
	if seq > codeSequenceMax {
		return "", appErrors.Clone(appErrors.ErrCodeExhausted, "daily code sequence exhausted")
	}

	return fmt.Sprintf("%s%0*d", dayPrefix, codeSequenceWidth, seq), nil
}
