package rankfeed

// Comparer is the ordering contract of every ranked container in this module.
// a.Before(b) reports whether a sorts strictly before b.
type Comparer[T any] interface {
	Before(T) bool
}
