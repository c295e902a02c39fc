package docmerge

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// Kind classifies a merge service failure.
type Kind string

const (
	KindAuth      Kind = "auth"
	KindUsage     Kind = "usage"
	KindInput     Kind = "input"
	KindTransient Kind = "transient"
)

// ServiceError is a failure reported by the merge service.
type ServiceError struct {
	Kind       Kind
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("merge service %s error: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("merge service %s error (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
}

// IsKind reports whether err is a ServiceError of kind k.
func IsKind(err error, k Kind) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Kind == k
}

func kindForStatus(code int) Kind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusTooManyRequests:
		return KindUsage
	case code >= 500:
		return KindTransient
	default:
		return KindInput
	}
}

// tokenError converts a failed token exchange into an auth ServiceError.
func tokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		msg := re.ErrorDescription
		if msg == "" {
			msg = re.ErrorCode
		}
		if msg == "" {
			msg = string(re.Body)
		}
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		return &ServiceError{Kind: KindAuth, StatusCode: status, Message: msg}
	}
	return err
}
