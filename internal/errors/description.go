// Package errors turns upstream failures into the normalized descriptions the
// console presents to operators, and classifies them for display.
package errors

// Category tells the presenter how loud a failure should be.
type Category int

const (
	// SystemError covers server faults, transport failures and anything that
	// arrived without a status code.
	SystemError Category = iota
	// UserError covers rejections in the 4xx class that the operator can fix
	// without looking at backend logs.
	UserError
)

// String returns the category name used in logs and hints.
func (c Category) String() string {
	switch c {
	case UserError:
		return "user"
	case SystemError:
		return "system"
	default:
		return "unknown"
	}
}

// IsUser reports whether c is UserError.
func (c Category) IsUser() bool {
	return c == UserError
}

// Description is the normalized form of one failure. Callers build a fresh
// value per failure and never modify it afterwards.
type Description struct {
	// Message is the human-readable text shown to the operator.
	Message string `json:"message" yaml:"message"`
	// TraceID correlates the failure with backend logs. Empty when unknown.
	TraceID string `json:"traceId,omitempty" yaml:"trace_id,omitempty"`
	// Status is the HTTP-style status code. Zero when no response was received.
	Status int `json:"status,omitempty" yaml:"status,omitempty"`
}

// HasTraceID reports whether a correlation identifier is present.
func (d Description) HasTraceID() bool {
	return d.TraceID != ""
}

// HasStatus reports whether a status code is present.
func (d Description) HasStatus() bool {
	return d.Status != 0
}

// IsZero reports whether d carries nothing worth presenting.
func (d Description) IsZero() bool {
	return d == Description{}
}

// Classify derives the presentation category. Only a present status in
// [400, 500) is a UserError; a missing status counts as a SystemError since
// the caller never got a structured rejection.
func Classify(d Description) Category {
	if d.HasStatus() && d.Status >= 400 && d.Status < 500 {
		return UserError
	}
	return SystemError
}
