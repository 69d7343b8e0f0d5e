package bridge

import (
	"github.com/luma/regbridge/registry"
)

// growFloor is the starting size, in elements, when the registry cannot say
// up front how much room a result needs.
const growFloor = 256

// grow calls fill with a fresh buffer of size elements, doubling the size for
// as long as fill reports ErrorMoreData. The size reported by any earlier
// probe is only a starting point: the value may have grown since, and this
// loop is what makes the result correct.
//
// limit caps the buffer size in elements and stands in for allocation
// failure; exceeding it ends the loop with ErrorOutOfMemory. The last buffer
// is returned only on success.
func grow[T any](size, limit int, fill func(buf []T) registry.Status) ([]T, registry.Status) {
	if size < 1 {
		size = 1
	}

	for {
		if limit > 0 && size > limit {
			return nil, registry.ErrorOutOfMemory
		}

		buf := make([]T, size)

		st := fill(buf)
		switch st {
		case registry.ErrorMoreData:
			size *= 2
		case registry.ErrorSuccess:
			return buf, st
		default:
			return nil, st
		}
	}
}

// startSize turns the result of a sizing probe into the first buffer size.
// A probe that itself asks for more data gives no usable size, so the floor
// is used.
func startSize(probed int, st registry.Status) (int, registry.Status) {
	if st == registry.ErrorMoreData {
		return growFloor, registry.ErrorSuccess
	}

	return probed, st
}
