package cache

type hitResult[T any] struct {
	data    T
	valid   bool
	claimed bool
}

// Cache is a keyed cache where one caller at a time claims a missing key and computes its value
//
// Callers interact with it through GetOrCreate and Invalidate
type Cache[T any] interface {
	getOrClaim(key string) hitResult[T]
	set(key string, data T)
	delete(key string)
	wait()
}

// Drop the entry for key so the next GetOrCreate recomputes it
func Invalidate[T any](cache Cache[T], key string) {
	cache.delete(key)
}
