package registry

import (
	"sort"
	"sync"

	"murmur/internal/operation"
)

// Registry owns every operation record. All reads and writes pass through a
// single mutex; callers receive clones, never references into the map.
//
// Registry methods must not be called from inside Do: the mutex is not
// reentrant. Use the Txn handed to the callback instead.
type Registry struct {
	mu             sync.Mutex
	ops            map[string]operation.Operation
	activeByTarget map[string]map[string]struct{}
	activeCount    int
	queued         []string
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{
		ops:            make(map[string]operation.Operation),
		activeByTarget: make(map[string]map[string]struct{}),
	}
}

// Do runs fn with exclusive access to the registry. Everything fn does
// through tx commits as one step with respect to other callers.
func (r *Registry) Do(fn func(tx *Txn)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx := &Txn{r: r}
	fn(tx)
	tx.r = nil
}

// Register inserts op and returns its id.
func (r *Registry) Register(op operation.Operation) string {
	var id string
	r.Do(func(tx *Txn) { id = tx.Register(op) })
	return id
}

// Get returns a snapshot of the operation with id.
func (r *Registry) Get(id string) (operation.Operation, bool) {
	var (
		op operation.Operation
		ok bool
	)
	r.Do(func(tx *Txn) { op, ok = tx.Get(id) })
	return op, ok
}

// Mutate applies fn to a copy of the stored record and replaces it.
func (r *Registry) Mutate(id string, fn func(*operation.Operation)) (operation.Operation, bool) {
	var (
		op operation.Operation
		ok bool
	)
	r.Do(func(tx *Txn) { op, ok = tx.Mutate(id, fn) })
	return op, ok
}

// Remove deletes id from the map, the active index and the queue together.
func (r *Registry) Remove(id string) bool {
	var ok bool
	r.Do(func(tx *Txn) { ok = tx.Remove(id) })
	return ok
}

// IndexActive records id as active on target.
func (r *Registry) IndexActive(id, target string) {
	r.Do(func(tx *Txn) { tx.IndexActive(id, target) })
}

// DeindexActive removes id from target's active set.
func (r *Registry) DeindexActive(id, target string) {
	r.Do(func(tx *Txn) { tx.DeindexActive(id, target) })
}

// Len returns the number of stored operations.
func (r *Registry) Len() int {
	var n int
	r.Do(func(tx *Txn) { n = tx.Len() })
	return n
}

// Snapshot returns clones of every operation matching keep (all when nil),
// ordered by creation time then id.
func (r *Registry) Snapshot(keep func(operation.Operation) bool) []operation.Operation {
	var out []operation.Operation
	r.Do(func(tx *Txn) { out = tx.Snapshot(keep) })
	return out
}

// Evict removes the listed operations that are terminal and returns how many
// were removed. Pending and active records are never evicted.
func (r *Registry) Evict(ids []string) int {
	var n int
	r.Do(func(tx *Txn) {
		for _, id := range ids {
			op, ok := tx.r.ops[id]
			if !ok || !op.IsTerminal() {
				continue
			}
			if tx.Remove(id) {
				n++
			}
		}
	})
	return n
}

// Txn exposes registry primitives to a Do callback. It is only valid for
// the duration of that callback.
type Txn struct {
	r *Registry
}

// Register inserts op. An existing record with the same id is replaced.
func (tx *Txn) Register(op operation.Operation) string {
	tx.r.ops[op.ID] = op.Clone()
	return op.ID
}

// Get returns a snapshot of id.
func (tx *Txn) Get(id string) (operation.Operation, bool) {
	op, ok := tx.r.ops[id]
	if !ok {
		return operation.Operation{}, false
	}
	return op.Clone(), true
}

// Mutate applies fn to a copy of id and stores the result.
func (tx *Txn) Mutate(id string, fn func(*operation.Operation)) (operation.Operation, bool) {
	current, ok := tx.r.ops[id]
	if !ok {
		return operation.Operation{}, false
	}
	next := current.Clone()
	fn(&next)
	// identity fields are fixed at creation
	next.ID = current.ID
	next.Type = current.Type
	next.Priority = current.Priority
	next.CreatedAt = current.CreatedAt
	tx.r.ops[id] = next
	return next.Clone(), true
}

// Remove deletes id everywhere it is referenced.
func (tx *Txn) Remove(id string) bool {
	op, ok := tx.r.ops[id]
	if !ok {
		return false
	}
	tx.DeindexActive(id, op.Target())
	tx.Dequeue(id)
	delete(tx.r.ops, id)
	return true
}

// IndexActive records id as active on target.
func (tx *Txn) IndexActive(id, target string) {
	set, ok := tx.r.activeByTarget[target]
	if !ok {
		set = make(map[string]struct{})
		tx.r.activeByTarget[target] = set
	}
	if _, dup := set[id]; dup {
		return
	}
	set[id] = struct{}{}
	tx.r.activeCount++
}

// DeindexActive removes id from target's active set, dropping the target
// entry when it becomes empty.
func (tx *Txn) DeindexActive(id, target string) {
	set, ok := tx.r.activeByTarget[target]
	if !ok {
		return
	}
	if _, present := set[id]; !present {
		return
	}
	delete(set, id)
	tx.r.activeCount--
	if len(set) == 0 {
		delete(tx.r.activeByTarget, target)
	}
}

// ActiveCount returns the number of indexed active operations.
func (tx *Txn) ActiveCount() int { return tx.r.activeCount }

// ActiveOn returns snapshots of the active operations on target.
func (tx *Txn) ActiveOn(target string) []operation.Operation {
	set := tx.r.activeByTarget[target]
	if len(set) == 0 {
		return nil
	}
	out := make([]operation.Operation, 0, len(set))
	for id := range set {
		if op, ok := tx.r.ops[id]; ok {
			out = append(out, op.Clone())
		}
	}
	sortByCreation(out)
	return out
}

// Enqueue appends id to the queue list unless it is already queued.
func (tx *Txn) Enqueue(id string) {
	if tx.IsQueued(id) {
		return
	}
	tx.r.queued = append(tx.r.queued, id)
}

// Dequeue removes id from the queue list.
func (tx *Txn) Dequeue(id string) {
	for i, queued := range tx.r.queued {
		if queued == id {
			tx.r.queued = append(tx.r.queued[:i], tx.r.queued[i+1:]...)
			return
		}
	}
}

// IsQueued reports whether id is on the queue list.
func (tx *Txn) IsQueued(id string) bool {
	for _, queued := range tx.r.queued {
		if queued == id {
			return true
		}
	}
	return false
}

// Queued returns snapshots of queued operations in insertion order.
func (tx *Txn) Queued() []operation.Operation {
	out := make([]operation.Operation, 0, len(tx.r.queued))
	for _, id := range tx.r.queued {
		if op, ok := tx.r.ops[id]; ok {
			out = append(out, op.Clone())
		}
	}
	return out
}

// Len returns the number of stored operations.
func (tx *Txn) Len() int { return len(tx.r.ops) }

// Snapshot returns clones of operations matching keep, ordered by creation.
func (tx *Txn) Snapshot(keep func(operation.Operation) bool) []operation.Operation {
	out := make([]operation.Operation, 0, len(tx.r.ops))
	for _, op := range tx.r.ops {
		if keep != nil && !keep(op) {
			continue
		}
		out = append(out, op.Clone())
	}
	sortByCreation(out)
	return out
}

func sortByCreation(ops []operation.Operation) {
	sort.SliceStable(ops, func(i, j int) bool {
		if !ops[i].CreatedAt.Equal(ops[j].CreatedAt) {
			return ops[i].CreatedAt.Before(ops[j].CreatedAt)
		}
		return ops[i].ID < ops[j].ID
	})
}
