package memory

import (
	"sort"
	"time"

	"murmur/internal/operation"
)

// Plan lists the operations one cleanup pass will evict and which layer
// selected each of them.
type Plan struct {
	Evict     []string
	Expired   int
	Windowed  int
	Emergency int
}

// Empty reports whether the plan evicts nothing.
func (p Plan) Empty() bool { return len(p.Evict) == 0 }

// BuildPlan applies the layered retention policy to ops. Only terminal
// operations are ever selected.
//
//  1. Terminal operations older than the retention threshold are evicted.
//  2. When more than HardCap remain, everything outside the keep-set is
//     evicted: non-terminal ops, the RecentWindow newest ops, the
//     KeepCompleted newest completions and the KeepFailed newest
//     failures/cancellations.
//  3. Under pressure, a much smaller keep-set applies: non-terminal ops, the
//     EmergencyRecent newest ops and up to EmergencyFailures failures younger
//     than EmergencyFailureAge.
func BuildPlan(ops []operation.Operation, now time.Time, pressure bool, policy Policy) Plan {
	var plan Plan
	retention := policy.RetentionFor(pressure)

	remaining := make([]operation.Operation, 0, len(ops))
	for _, op := range ops {
		if op.IsTerminal() && now.Sub(op.RetentionAnchor()) > retention {
			plan.Evict = append(plan.Evict, op.ID)
			plan.Expired++
			continue
		}
		remaining = append(remaining, op)
	}

	if len(remaining) > policy.HardCap {
		keep := windowKeepSet(remaining, policy)
		remaining = partition(remaining, keep, &plan.Evict, &plan.Windowed)
	}

	if pressure {
		keep := emergencyKeepSet(remaining, now, policy)
		partition(remaining, keep, &plan.Evict, &plan.Emergency)
	}
	return plan
}

func partition(ops []operation.Operation, keep map[string]struct{}, evict *[]string, counter *int) []operation.Operation {
	kept := ops[:0:0]
	for _, op := range ops {
		if _, ok := keep[op.ID]; ok || !op.IsTerminal() {
			kept = append(kept, op)
			continue
		}
		*evict = append(*evict, op.ID)
		*counter++
	}
	return kept
}

func windowKeepSet(ops []operation.Operation, policy Policy) map[string]struct{} {
	keep := make(map[string]struct{}, policy.RecentWindow+policy.KeepCompleted+policy.KeepFailed)
	addNewest(keep, byCreatedDesc(ops), policy.RecentWindow)
	addNewest(keep, byAnchorDesc(filter(ops, func(op operation.Operation) bool {
		return op.Status == operation.StatusCompleted
	})), policy.KeepCompleted)
	addNewest(keep, byAnchorDesc(filter(ops, func(op operation.Operation) bool {
		return op.Status == operation.StatusFailed || op.Status == operation.StatusCancelled
	})), policy.KeepFailed)
	return keep
}

func emergencyKeepSet(ops []operation.Operation, now time.Time, policy Policy) map[string]struct{} {
	keep := make(map[string]struct{}, policy.EmergencyRecent+policy.EmergencyFailures)
	addNewest(keep, byCreatedDesc(ops), policy.EmergencyRecent)
	addNewest(keep, byAnchorDesc(filter(ops, func(op operation.Operation) bool {
		return op.Status == operation.StatusFailed && now.Sub(op.RetentionAnchor()) < policy.EmergencyFailureAge
	})), policy.EmergencyFailures)
	return keep
}

func addNewest(keep map[string]struct{}, ordered []operation.Operation, limit int) {
	for i := 0; i < len(ordered) && i < limit; i++ {
		keep[ordered[i].ID] = struct{}{}
	}
}

func filter(ops []operation.Operation, fn func(operation.Operation) bool) []operation.Operation {
	var out []operation.Operation
	for _, op := range ops {
		if fn(op) {
			out = append(out, op)
		}
	}
	return out
}

func byCreatedDesc(ops []operation.Operation) []operation.Operation {
	out := append([]operation.Operation(nil), ops...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func byAnchorDesc(ops []operation.Operation) []operation.Operation {
	out := append([]operation.Operation(nil), ops...)
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := out[i].RetentionAnchor(), out[j].RetentionAnchor()
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
