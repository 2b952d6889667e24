package crdt

import "sync"

// HistoryManager tracks inverse-op batches for undo/redo. Every call into
// StorageDocument.Mutate captures one inverse Op per mutation; EndBatch (or
// the end of the outermost Mutate call) flushes the accumulated batch onto
// undoStack as a single undo step.
type HistoryManager struct {
	mu          sync.Mutex
	doc         *StorageDocument
	paused      bool
	batchDepth  int
	batch       []Op
	recordTo    *[][]Op
	undoStack   [][]Op
	redoStack   [][]Op
	maxEntries  int
	changeID    int
	subscribers map[int]func()
}

// NewHistoryManager returns a manager bounding each stack to maxEntries
// batches, discarding the oldest once the bound is exceeded.
func NewHistoryManager(doc *StorageDocument, maxEntries int) *HistoryManager {
	h := &HistoryManager{doc: doc, maxEntries: maxEntries, subscribers: make(map[int]func())}
	h.recordTo = &h.undoStack
	return h
}

// OnChange registers fn to be called whenever canUndo/canRedo may have
// changed (a batch pushed or popped from either stack). The returned func
// unsubscribes.
func (h *HistoryManager) OnChange(fn func()) func() {
	h.mu.Lock()
	h.changeID++
	id := h.changeID
	h.subscribers[id] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.subscribers, id)
		h.mu.Unlock()
	}
}

// notifyChange must be called without h.mu held, after the caller has
// released it, so a subscriber calling back into HistoryManager cannot
// deadlock.
func (h *HistoryManager) notifyChange() {
	h.mu.Lock()
	fns := make([]func(), 0, len(h.subscribers))
	for _, fn := range h.subscribers {
		fns = append(fns, fn)
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// capture appends op to the in-flight batch, unless history is paused
// (server-originated mutations) or op is the zero value (a no-op Move).
func (h *HistoryManager) capture(op Op) {
	h.mu.Lock()
	if h.paused || op.Kind == "" {
		h.mu.Unlock()
		return
	}
	h.batch = append(h.batch, op)
	pushed := false
	if h.batchDepth == 0 {
		pushed = true
		h.flushLocked()
	}
	h.mu.Unlock()
	if pushed {
		h.notifyChange()
	}
}

// StartBatch groups every mutation until the matching EndBatch into one
// undo step. Calls nest: only the outermost EndBatch flushes.
func (h *HistoryManager) StartBatch() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.batchDepth++
}

// EndBatch closes one StartBatch. At depth zero the accumulated batch is
// pushed onto the undo stack and the redo stack is cleared, matching the
// rule that any fresh local edit invalidates pending redos.
func (h *HistoryManager) EndBatch() {
	h.mu.Lock()
	if h.batchDepth > 0 {
		h.batchDepth--
	}
	pushed := false
	if h.batchDepth == 0 {
		pushed = len(h.batch) > 0
		h.flushLocked()
	}
	h.mu.Unlock()
	if pushed {
		h.notifyChange()
	}
}

// flushLocked pushes the pending batch onto recordTo and clears it. Callers
// must hold h.mu.
func (h *HistoryManager) flushLocked() {
	if len(h.batch) == 0 {
		return
	}
	batch := h.batch
	h.batch = nil
	*h.recordTo = append(*h.recordTo, batch)
	if len(*h.recordTo) > h.maxEntries {
		*h.recordTo = (*h.recordTo)[len(*h.recordTo)-h.maxEntries:]
	}
	if h.recordTo == &h.undoStack {
		h.redoStack = nil
	}
}

// Pause suspends capture, used while applying server-originated mutations
// so they never populate the undo stack.
func (h *HistoryManager) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paused = true
}

// Resume re-enables capture after Pause.
func (h *HistoryManager) Resume() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paused = false
}

// CanUndo reports whether Undo would do anything.
func (h *HistoryManager) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack) > 0
}

// CanRedo reports whether Redo would do anything.
func (h *HistoryManager) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack) > 0
}

// Undo pops the most recent undo batch and re-applies its inverse ops in
// reverse capture order, so a batch that overwrote the same field twice
// restores the earliest value last undone first. The ops this produces are
// themselves captured, but redirected onto the redo stack rather than
// undoStack so a subsequent Redo can restore them.
func (h *HistoryManager) Undo() bool {
	h.mu.Lock()
	if len(h.undoStack) == 0 {
		h.mu.Unlock()
		return false
	}
	batch := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	h.recordTo = &h.redoStack
	h.batchDepth++
	h.mu.Unlock()

	for i := len(batch) - 1; i >= 0; i-- {
		h.doc.applyInverseOp(batch[i])
	}

	h.mu.Lock()
	h.batchDepth--
	h.flushLocked()
	h.recordTo = &h.undoStack
	h.mu.Unlock()
	h.notifyChange()
	return true
}

// Redo pops the most recent redo batch and re-applies it the same way Undo
// does, redirecting freshly captured inverse ops back onto the undo stack.
func (h *HistoryManager) Redo() bool {
	h.mu.Lock()
	if len(h.redoStack) == 0 {
		h.mu.Unlock()
		return false
	}
	batch := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	savedRedo := h.redoStack
	h.recordTo = &h.undoStack
	h.batchDepth++
	h.mu.Unlock()

	for i := len(batch) - 1; i >= 0; i-- {
		h.doc.applyInverseOp(batch[i])
	}

	h.mu.Lock()
	h.batchDepth--
	h.flushLocked()
	// flushLocked clears the redo stack whenever it pushes onto undoStack,
	// since that is the rule for fresh local edits; a redo is not a fresh
	// edit, so the remaining redo history survives.
	h.redoStack = savedRedo
	h.mu.Unlock()
	h.notifyChange()
	return true
}
