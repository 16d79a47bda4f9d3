package timenorm

import "github.com/PabloGalante/chatplanner/internal/domain"

// Reconcile repairs a start/end pair so that both are empty, or both are set
// with from <= to. Descriptors of the same shape are compared as strings,
// which orders them correctly because every dateTime carries the same offset.
// A missing or incomparable end collapses to a zero-length interval.
func Reconcile(from, to domain.TimeDescriptor) (domain.TimeDescriptor, domain.TimeDescriptor) {
	switch {
	case from.IsEmpty() && to.IsEmpty():
		return from, to
	case from.IsEmpty():
		return to, to
	case to.IsEmpty():
		return from, from
	case from.IsDateTime() != to.IsDateTime():
		return from, from
	}

	if from.Value() > to.Value() {
		return to, from
	}
	return from, to
}
