package container

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Dependency names one node of the service graph. The optional services use
// the same names as FEEDORA_REQUIRE_<NAME>.
type Dependency string

const (
	DepDatabase Dependency = "database"
	DepMedia    Dependency = "media store"
	DepAuth     Dependency = "auth service"
	DepRedis    Dependency = "redis"
	DepSearch   Dependency = "elasticsearch"
)

// InitializationError lists the dependencies a container could not provide.
// Cause holds the connection error when one was attempted.
type InitializationError struct {
	Missing []Dependency
	Cause   error
}

func missing(cause error, deps ...Dependency) *InitializationError {
	return &InitializationError{Missing: deps, Cause: cause}
}

func (e *InitializationError) Error() string {
	names := make([]string, len(e.Missing))
	for i, d := range e.Missing {
		names[i] = string(d)
	}
	msg := "missing required dependencies: " + strings.Join(names, ", ")
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *InitializationError) Unwrap() error { return e.Cause }

// Has reports whether d is among the missing dependencies.
func (e *InitializationError) Has(d Dependency) bool {
	return slices.Contains(e.Missing, d)
}

// IsMissing reports whether err is an InitializationError naming d.
func IsMissing(err error, d Dependency) bool {
	var ie *InitializationError
	return errors.As(err, &ie) && ie.Has(d)
}
