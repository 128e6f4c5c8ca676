package scoring

import (
	"errors"
	"fmt"

	"github.com/mcdev12/quizbowl/go/internal/models"
)

// ErrUnknownCategory is matched by every CategoryError.
var ErrUnknownCategory = errors.New("unknown scoring category")

// CategoryError reports a category key the format does not define.
type CategoryError struct {
	Category models.Category
	Format   models.Format
}

func (e *CategoryError) Error() string {
	return fmt.Sprintf("category %q is not defined for format %s", e.Category, e.Format)
}

func (e *CategoryError) Is(target error) bool { return target == ErrUnknownCategory }
