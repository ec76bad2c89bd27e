package articles

import "fmt"

// InvalidDateError reports a date string that is not a real calendar day.
type InvalidDateError struct {
	Input string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q: want YYYY-MM-DD", e.Input)
}

// FetchError reports a provider failure or timeout for one date. Nothing is
// stored for the date, so a later request fetches again.
type FetchError struct {
	Date string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch articles for %s: %v", e.Date, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
