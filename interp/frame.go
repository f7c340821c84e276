package interp

// Frame is one call-stack record. CALL pushes a Frame instead of reusing
// the value stack for the return address, per the design note that the
// source's frame hint should become an explicit, separate structure.
type Frame struct {
	ReturnPC  uint32
	Base      int
	SlotCount int
}
