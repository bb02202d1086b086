package ir

import "fmt"

// Verify performs cheap structural sanity checks on a unit: every block
// (other than a unit's last) ends in a branch-family terminator, and no
// instruction reads a value produced later in the same block. It is meant
// to run in tests and behind a debug build tag, not on the hot
// translation path.
func Verify(u *Unit) error {
	for bi, b := range u.blocks {
		seen := make(map[*Value]bool)
		for in := b.head; in != nil; in = in.next {
			for idx := 0; idx < in.nargs; idx++ {
				v := in.args[idx].value
				if v == nil || v.constant {
					continue
				}
				if v.def != nil && v.def.block == b && !seen[v] {
					return fmt.Errorf("ir: block %d (%s): use before def of %s", bi, b.label, v)
				}
			}
			if in.result != nil {
				seen[in.result] = true
			}
		}
		if bi < len(u.blocks)-1 {
			if term := b.Terminator(); term == nil {
				return fmt.Errorf("ir: block %d (%s): missing terminator", bi, b.label)
			}
		}
	}
	return nil
}
