// Package sliceutil provides generic slice helpers.
package sliceutil

// DeduplicateLast collapses items sharing a key into one entry holding the
// value of the last occurrence. Entries keep the position of the key's first
// occurrence. The second result is the number of items dropped.
func DeduplicateLast[T any, K comparable](items []T, keyFunc func(T) K) ([]T, int) {
	if len(items) == 0 {
		return items, 0
	}

	index := make(map[K]int, len(items))
	result := make([]T, 0, len(items))
	for _, item := range items {
		key := keyFunc(item)
		if i, ok := index[key]; ok {
			result[i] = item
			continue
		}
		index[key] = len(result)
		result = append(result, item)
	}
	return result, len(items) - len(result)
}
