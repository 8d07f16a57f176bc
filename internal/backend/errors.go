package backend

import "errors"

// PermanentError marks a backend failure that will not succeed on retry,
// such as a rejected document or a reference to something deleted remotely.
// The worker retires such operations instead of retrying them forever.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return "permanent: " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// MarkPermanent wraps err as non-retryable.
func MarkPermanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was marked non-retryable. Anything else is
// treated as transient and retried on a later run.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
