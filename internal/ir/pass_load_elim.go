package ir

// RunLoadElimination removes redundant LoadContext/LoadLocal instructions
// within a block by caching the last value stored or loaded at each
// offset, rewriting later loads at the same offset to reuse that value.
// The context cache is flushed at INVALIDATE_CONTEXT, FALLBACK and external
// calls (each may change the context out of band). A StoreContext drops
// every cached context entry whose byte range overlaps the stored one (a
// V128 access spans four F32 slots) and then caches the stored value at its
// offset, matching the original pass's ctx_accessor cache.
func RunLoadElimination(u *Unit) {
	for _, b := range u.blocks {
		ctxCache := make(map[int32]*Value)
		localCache := make(map[int32]*Value)

		var next *Instr
		for in := b.head; in != nil; in = next {
			next = in.next
			switch in.op {
			case OpLoadContext:
				if cached, ok := ctxCache[in.offset]; ok && cached.Type() == in.typ {
					in.result.ReplaceAllUsesWith(cached)
					u.RemoveInstr(in)
					continue
				}
				ctxCache[in.offset] = in.result

			case OpStoreContext:
				v := in.Arg(0)
				lo, hi := in.offset, in.offset+int32(SizeOf(v.Type()))
				for off, cv := range ctxCache {
					if off < hi && lo < off+int32(SizeOf(cv.Type())) {
						delete(ctxCache, off)
					}
				}
				ctxCache[in.offset] = v

			case OpLoadLocal:
				if cached, ok := localCache[in.offset]; ok && cached.Type() == in.typ {
					in.result.ReplaceAllUsesWith(cached)
					u.RemoveInstr(in)
					continue
				}
				localCache[in.offset] = in.result

			case OpStoreLocal:
				localCache[in.offset] = in.Arg(0)

			case OpInvalidateContext, OpFallback, OpCallExternal:
				ctxCache = make(map[int32]*Value)
				// local slots are translator scratch space, never visible
				// to the interpreter, so they survive an invalidation.

			case OpLoad, OpStore:
				// Guest memory loads/stores are not cached and do not
				// touch the context cache.
			}
		}
	}
}
