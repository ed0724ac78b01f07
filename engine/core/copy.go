package core

// CloneMap returns a shallow copy of the given map, or nil for empty input.
func CloneMap[K comparable, V any](src map[K]V) map[K]V {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
