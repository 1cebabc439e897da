package usecase

// DomainError: the request itself is wrong (bad sync kind, malformed
// intake payload). Handlers map these to 4xx.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	_, ok := err.(*DomainError)
	return ok
}

// TechnicalError: the system could not do its work (store unreachable).
// The only run-fatal class; per-candidate and per-tenant problems go into
// the report's error list instead.
type TechnicalError struct {
	Code    string
	Message string
}

func (e *TechnicalError) Error() string {
	return e.Message
}

func IsTechnicalError(err error) bool {
	_, ok := err.(*TechnicalError)
	return ok
}
