// Package cache provides a generic claim-based cache: the first caller for a
// key claims it and computes the value while concurrent callers for the same
// key wait. This is what keeps location resolution down to a single bridge
// request per handle regardless of how many timeline elements carry it.
package cache

type hitResult[T any] struct {
	data T

	// valid is false for claim placeholders that have not been filled yet.
	valid bool

	// claimed is true when this call inserted the placeholder, making the
	// caller responsible for computing and setting the value.
	claimed bool
}

type Cache[T any] interface {
	getOrClaim(key string) hitResult[T]
	set(key string, data T)
	delete(key string)
	wait()

	// Len reports the number of stored entries, claim placeholders included.
	Len() int
}
