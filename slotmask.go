package tiles

import (
	"math/bits"
)

// slotMask tracks the changed slots of a container inventory. Containers have
// ContainerSize slots, so one word holds them all.
type slotMask uint64

func (m *slotMask) set(slot int) {
	*m |= 1 << slot
}

// slots returns the slots set in the mask in ascending order.
func (m slotMask) slots() []int {
	out := make([]int, 0, bits.OnesCount64(uint64(m)))
	for m != 0 {
		b := bits.TrailingZeros64(uint64(m))
		out = append(out, b)
		m &^= 1 << b
	}
	return out
}
