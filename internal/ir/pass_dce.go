package ir

// RunDeadCodeElimination removes instructions whose result is never used
// and which have no side effect, iterating to a fixed point (removing a
// def can make its own operands' producers dead in turn), then splices out
// any non-entry block reduced to a single unconditional branch by
// retargeting its predecessors' branches to that branch's target. Mirrors the original optimizer's two-pass
// "mark used transitively, sweep unmarked" DCE plus an empty-block cleanup.
func RunDeadCodeElimination(u *Unit) {
	changed := true
	for changed {
		changed = false
		for _, b := range u.blocks {
			var next *Instr
			for in := b.head; in != nil; in = next {
				next = in.next
				if in.op.HasSideEffect() {
					continue
				}
				if in.result != nil && in.result.NumUses() > 0 {
					continue
				}
				u.RemoveInstr(in)
				changed = true
			}
		}
	}
	removeEmptyBlocks(u)
}

// removeEmptyBlocks drops trivial forwarding blocks — those DCE has reduced
// to a single unconditional branch — rewriting any predecessor that
// targeted them to jump straight to their successor instead.
func removeEmptyBlocks(u *Unit) {
	u.BuildCFG()
	kept := make([]*Block, 0, len(u.blocks))
	removed := make(map[*Block]*Block) // forwarding block -> its replacement target

	for _, b := range u.blocks {
		if b.index == 0 {
			continue // never splice away the unit's entry block
		}
		if b.head == b.tail && b.head != nil && b.head.op == OpBranch {
			removed[b] = b.succs[0]
		}
	}
	if len(removed) == 0 {
		return
	}

	resolve := func(t *Block) *Block {
		for {
			r, ok := removed[t]
			if !ok {
				return t
			}
			t = r
		}
	}

	for _, b := range u.blocks {
		if _, dead := removed[b]; dead {
			continue
		}
		if term := b.Terminator(); term != nil {
			switch term.op {
			case OpBranch:
				retargetBlockArg(term, 0, resolve)
			case OpBranchCond:
				retargetBlockArg(term, 1, resolve)
				retargetBlockArg(term, 2, resolve)
			}
		}
		kept = append(kept, b)
	}
	for idx, b := range kept {
		b.index = idx
	}
	u.blocks = kept
	u.BuildCFG()
}

func retargetBlockArg(in *Instr, idx int, resolve func(*Block) *Block) {
	cur := in.Arg(idx)
	if cur == nil || !cur.constant || cur.typ != BlockType {
		return
	}
	resolved := resolve(cur.blk)
	if resolved != cur.blk {
		in.setArg(idx, ConstBlock(resolved))
	}
}
