package reconcile

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEnumeration   = errors.New("enumeration error")
	ErrConfiguration = errors.New("configuration error")
	ErrPreflight     = errors.New("preflight failed")
	ErrMerge         = errors.New("merge error")
	ErrRouting       = errors.New("routing error")
)

// Wrap builds an error message that includes stage context while tagging it
// with marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		return fmt.Errorf("%s: %w", detail, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{stage, operation, message} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "run failure"
	}
	return strings.Join(parts, ": ")
}
