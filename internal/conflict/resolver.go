// Package conflict decides whether a proposed operation collides with an
// existing one on the same target and which resolution applies.
//
// Detect is a pure function of its inputs. The conflict table is compiled in:
// recording and transcription exclude each other on a target, analysis runs
// alongside either because it only reads already-produced output.
package conflict

import (
	"fmt"

	"murmur/internal/operation"
)

// Strategy is the resolution chosen for a conflict.
type Strategy string

const (
	// StrategyQueue defers the proposed operation until the target frees up.
	StrategyQueue Strategy = "queue"
	// StrategyCancel rejects the proposed operation outright. Reserved.
	StrategyCancel Strategy = "cancel"
	// StrategyReplace cancels the existing operation in favour of the proposed one.
	StrategyReplace Strategy = "replace"
	// StrategyAllow lets both run. Reserved.
	StrategyAllow Strategy = "allow"
)

// Conflict describes a collision between an existing operation and a
// proposed type. It is computed on demand and never stored.
type Conflict struct {
	Existing operation.Operation
	Proposed operation.Type
	Strategy Strategy
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s conflicts with %s (%s)", c.Proposed, c.Existing.Type, c.Strategy)
}

var conflictTable = map[operation.Category]map[operation.Category]struct{}{
	operation.CategoryRecording: {
		operation.CategoryTranscription: {},
	},
	operation.CategoryTranscription: {
		operation.CategoryRecording: {},
	},
}

// Conflicts reports whether two categories exclude each other on a shared target.
func Conflicts(a, b operation.Category) bool {
	_, ok := conflictTable[a][b]
	return ok
}

// Detect returns the conflict between existing and proposed, if any.
func Detect(existing operation.Operation, proposed operation.Type) (Conflict, bool) {
	if existing.Target() != proposed.Target {
		return Conflict{}, false
	}
	if existing.IsTerminal() {
		return Conflict{}, false
	}
	if !Conflicts(existing.Category(), proposed.Category) {
		return Conflict{}, false
	}
	return Conflict{
		Existing: existing,
		Proposed: proposed,
		Strategy: Resolve(existing.Priority, proposed.Priority()),
	}, true
}

// Resolve picks replace only when the proposed priority is strictly higher.
// Equal priority queues so same-priority operations cannot oscillate.
func Resolve(existing, proposed operation.Priority) Strategy {
	if proposed > existing {
		return StrategyReplace
	}
	return StrategyQueue
}

// DetectAll runs Detect against every candidate and returns the conflicts in
// candidate order.
func DetectAll(candidates []operation.Operation, proposed operation.Type) []Conflict {
	var out []Conflict
	for _, existing := range candidates {
		if c, ok := Detect(existing, proposed); ok {
			out = append(out, c)
		}
	}
	return out
}

// Combined folds several conflicts into one decision. Queue dominates
// replace: an operation is only allowed to displace others when it outranks
// every one of them.
func Combined(conflicts []Conflict) (Strategy, bool) {
	if len(conflicts) == 0 {
		return "", false
	}
	strategy := StrategyReplace
	for _, c := range conflicts {
		if c.Strategy != StrategyReplace {
			strategy = StrategyQueue
		}
	}
	return strategy, true
}
