// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package dispatch implements the submission-side policies: how a batch of
// input jobs is mapped onto worker nodes or flattened into the central
// pending queue, and how a profile mix is generated deterministically.
package dispatch

import (
	"math/rand/v2"
	"sort"

	"github.com/jontk/distsched/internal/task"
)

// ProfileWeight names one candidate profile and its relative selection
// weight in a generated mix.
type ProfileWeight struct {
	Profile task.Profile
	Weight  float64
}

// GenerateProfileMix produces a deterministic, seeded multiset of n
// profiles drawn proportionally to weights, then shuffled. The same seed
// and weights always produce the same sequence, so a dispatcher run can be
// reproduced exactly.
func GenerateProfileMix(weights []ProfileWeight, n int, seed uint64) []task.Profile {
	if n <= 0 || len(weights) == 0 {
		return nil
	}

	sorted := make([]ProfileWeight, len(weights))
	copy(sorted, weights)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Profile.Name < sorted[j].Profile.Name })

	var total float64
	for _, w := range sorted {
		total += w.Weight
	}
	if total <= 0 {
		total = float64(len(sorted))
	}

	out := make([]task.Profile, 0, n)
	var assigned float64
	for i, w := range sorted {
		var count int
		if i == len(sorted)-1 {
			count = n - len(out)
		} else {
			count = int(float64(n) * w.Weight / total)
		}
		for j := 0; j < count; j++ {
			out = append(out, w.Profile)
		}
		assigned += w.Weight
	}
	for len(out) < n {
		out = append(out, sorted[len(sorted)-1].Profile)
	}
	out = out[:n]

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
