package ir

// Block is a basic block: a straight-line run of instructions terminated by
// a branch (or, for the unit's final block, an implicit fallthrough return).
// Blocks live on the Unit's intrusive linked list in program order.
type Block struct {
	index int
	label string

	head *Instr
	tail *Instr

	preds []*Block
	succs []*Block

	unit *Unit
}

// Label returns the block's human-readable label (e.g. "entry", "L4").
func (b *Block) Label() string { return b.label }

// Index returns the block's position in its unit, assigned at creation.
func (b *Block) Index() int { return b.index }

// FirstInstr returns the block's first instruction, or nil if empty.
func (b *Block) FirstInstr() *Instr { return b.head }

// LastInstr returns the block's last instruction, or nil if empty.
func (b *Block) LastInstr() *Instr { return b.tail }

// Empty reports whether the block has no instructions.
func (b *Block) Empty() bool { return b.head == nil }

// Preds returns the block's predecessor list, valid after BuildCFG.
func (b *Block) Preds() []*Block { return b.preds }

// Succs returns the block's successor list, valid after BuildCFG.
func (b *Block) Succs() []*Block { return b.succs }

// Instrs calls fn for every instruction in program order. fn may remove the
// current instruction (via Unit.RemoveInstr) without invalidating the walk.
func (b *Block) Instrs(fn func(*Instr)) {
	for i := b.head; i != nil; {
		n := i.next
		fn(i)
		i = n
	}
}

func (b *Block) append(in *Instr) {
	in.block = b
	in.prev = b.tail
	in.next = nil
	if b.tail != nil {
		b.tail.next = in
	} else {
		b.head = in
	}
	b.tail = in
}

func (b *Block) unlink(in *Instr) {
	if in.prev != nil {
		in.prev.next = in.next
	} else {
		b.head = in.next
	}
	if in.next != nil {
		in.next.prev = in.prev
	} else {
		b.tail = in.prev
	}
	in.prev, in.next, in.block = nil, nil, nil
}

// Terminator returns the block's last instruction if it is a branch-family
// op, else nil.
func (b *Block) Terminator() *Instr {
	if b.tail == nil {
		return nil
	}
	switch b.tail.op {
	case OpBranch, OpBranchCond, OpBranchFalse, OpReturn:
		return b.tail
	}
	return nil
}
