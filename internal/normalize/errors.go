package normalize

import "fmt"

// NoDataError means no metric produced a single day for a run. It is an
// operator error and aborts the run.
type NoDataError struct {
	Source string
	UserID string
}

func (e *NoDataError) Error() string {
	if e.UserID == "" {
		return fmt.Sprintf("no daily data found in %s records", e.Source)
	}
	return fmt.Sprintf("no daily data found in %s records for user %s", e.Source, e.UserID)
}
