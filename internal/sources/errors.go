package sources

import "fmt"

// MissingInputError reports an absent raw file or archive. Callers log it
// and continue with an empty sample set.
type MissingInputError struct {
	Path string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing input: %s", e.Path)
}
