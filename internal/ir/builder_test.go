package ir

import "testing"

func TestAppendBlockLazyOpen(t *testing.T) {
	u := NewUnit(0x8c010000)
	// No AppendBlock call yet: the first emitted instruction should open
	// an implicit block rather than panic.
	v := u.LoadContext(0, I32)
	if v == nil {
		t.Fatalf("LoadContext returned nil before any AppendBlock")
	}
	if len(u.Blocks()) != 1 {
		t.Fatalf("want 1 lazily-opened block, got %d", len(u.Blocks()))
	}
}

func TestArithmeticChain(t *testing.T) {
	u := NewUnit(0)
	u.AppendBlock("entry")
	a := u.LoadContext(0, I32)
	b := ConstI32(4)
	sum := u.Add(a, b)
	u.StoreContext(0, sum)
	u.Return()

	if err := Verify(u); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	blk := u.EntryBlock()
	count := 0
	blk.Instrs(func(*Instr) { count++ })
	if count != 4 {
		t.Fatalf("want 4 instructions (load, add, store, return), got %d", count)
	}
}

func TestReplaceAllUsesWith(t *testing.T) {
	u := NewUnit(0)
	u.AppendBlock("entry")
	a := u.LoadContext(0, I32)
	b := u.Add(a, ConstI32(1))
	c := u.Add(a, ConstI32(2))
	if a.NumUses() != 2 {
		t.Fatalf("want 2 uses of a, got %d", a.NumUses())
	}
	repl := ConstI32(99)
	a.ReplaceAllUsesWith(repl)
	if a.NumUses() != 0 {
		t.Fatalf("want 0 uses of a after replace, got %d", a.NumUses())
	}
	if b.Def().Arg(0) != repl || c.Def().Arg(0) != repl {
		t.Fatalf("uses not rewritten to replacement")
	}
}

func TestLoadEliminationRemovesRedundantLoad(t *testing.T) {
	u := NewUnit(0)
	u.AppendBlock("entry")
	first := u.LoadContext(0x10, I32)
	second := u.LoadContext(0x10, I32)
	sum := u.Add(first, second)
	u.StoreContext(0x10, sum)
	u.Return()

	RunLoadElimination(u)

	loads := 0
	u.EntryBlock().Instrs(func(in *Instr) {
		if in.Op() == OpLoadContext {
			loads++
		}
	})
	if loads != 1 {
		t.Fatalf("want 1 surviving LoadContext after elimination, got %d", loads)
	}
}

func TestLoadEliminationFlushesOnInvalidate(t *testing.T) {
	u := NewUnit(0)
	u.AppendBlock("entry")
	u.LoadContext(0x10, I32)
	u.InvalidateContext()
	u.LoadContext(0x10, I32)
	u.Return()

	RunLoadElimination(u)

	loads := 0
	u.EntryBlock().Instrs(func(in *Instr) {
		if in.Op() == OpLoadContext {
			loads++
		}
	})
	if loads != 2 {
		t.Fatalf("want both loads to survive across INVALIDATE_CONTEXT, got %d", loads)
	}
}

func TestDeadCodeEliminationDropsUnusedPureOps(t *testing.T) {
	u := NewUnit(0)
	u.AppendBlock("entry")
	u.Add(ConstI32(1), ConstI32(2)) // dead: result never used, no side effect
	live := u.LoadContext(0, I32)
	u.StoreContext(4, live)
	u.Return()

	RunDeadCodeElimination(u)

	adds := 0
	u.EntryBlock().Instrs(func(in *Instr) {
		if in.Op() == OpAdd {
			adds++
		}
	})
	if adds != 0 {
		t.Fatalf("want dead ADD removed, got %d remaining", adds)
	}
}

func TestDeadCodeEliminationKeepsSideEffects(t *testing.T) {
	u := NewUnit(0)
	u.AppendBlock("entry")
	u.Store(ConstI32(0x1000), ConstI32(0xff)) // has side effect, result unused
	u.Return()

	RunDeadCodeElimination(u)

	stores := 0
	u.EntryBlock().Instrs(func(in *Instr) {
		if in.Op() == OpStore {
			stores++
		}
	})
	if stores != 1 {
		t.Fatalf("want STORE kept despite unused result, got %d", stores)
	}
}

func TestEmptyBlockSplice(t *testing.T) {
	u := NewUnit(0)
	entry := u.AppendBlock("entry")
	empty := u.AppendBlock("empty")
	tail := u.AppendBlock("tail")

	u.SetInsertPoint(entry)
	u.Branch(empty)
	u.SetInsertPoint(empty)
	u.Branch(tail)
	u.SetInsertPoint(tail)
	u.Return()

	RunDeadCodeElimination(u)

	if len(u.Blocks()) != 2 {
		t.Fatalf("want empty block spliced out leaving 2 blocks, got %d", len(u.Blocks()))
	}
	term := u.Blocks()[0].Terminator()
	if term == nil || term.Op() != OpBranch || term.Arg(0).AsBlock() != u.Blocks()[1] {
		t.Fatalf("entry's branch was not retargeted past the empty block")
	}
}
