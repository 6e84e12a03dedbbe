package captiongan

import (
	"sort"

	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
)

// SampleGreedy decodes a batch of n token sequences by
// repeatedly taking the argmax of the softmax distribution
// and feeding the chosen token's embedding back in.
//
// The features argument is the packed batch of fused image
// features, which serves as the first decoder input; no
// start token is recorded in the output. The result holds
// maxLen tokens per sequence and is deterministic for a
// fixed feature batch and fixed weights.
func (d *Decoder) SampleGreedy(features anyvec.Vector, n, maxLen int) [][]int {
	seqs := make([][]int, n)
	state := d.Start(n)
	in := features
	for t := 0; t < maxLen; t++ {
		logits, next := d.Step(state, in)
		rows := vecData(logits)
		tokens := make([]int, n)
		for i := range tokens {
			tokens[i] = argmax(rows[i*d.VocabSize : (i+1)*d.VocabSize])
			seqs[i] = append(seqs[i], tokens[i])
		}
		in = d.EmbedTokens(tokens)
		state = next
	}
	return seqs
}

// beamCandidate is one partial sequence on the beam search
// frontier.
type beamCandidate struct {
	tokens  []int
	logProb float64
	state   anyrnn.State
	input   anyvec.Vector
}

// SampleBeam decodes the top beamWidth token sequences for
// a single image using beam search.
//
// The features argument is one fused feature row (the first
// decoder input). Every candidate is expanded into its
// beamWidth most probable successors, and the global top
// beamWidth candidates by cumulative log-probability
// survive; ties are broken in favor of the first-expanded
// candidate. The search runs for exactly maxLen steps with
// no early termination on an end token, and returns all
// beamWidth sequences ordered by descending cumulative
// log-probability.
func (d *Decoder) SampleBeam(features anyvec.Vector, maxLen, beamWidth int) [][]int {
	if beamWidth < 1 {
		panic("captiongan: beam width must be positive")
	}
	frontier := []*beamCandidate{{
		state: d.Start(1),
		input: features,
	}}
	for t := 0; t < maxLen; t++ {
		var candidates []*beamCandidate
		for _, cand := range frontier {
			logits, next := d.Step(cand.state, cand.input)
			logProbs := logSoftmax64(vecData(logits))
			for _, tok := range topK(logProbs, beamWidth) {
				seq := append(append([]int{}, cand.tokens...), tok)
				candidates = append(candidates, &beamCandidate{
					tokens:  seq,
					logProb: cand.logProb + logProbs[tok],
					state:   next,
					input:   d.EmbedTokens([]int{tok}),
				})
			}
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].logProb > candidates[j].logProb
		})
		if len(candidates) > beamWidth {
			candidates = candidates[:beamWidth]
		}
		frontier = candidates
	}
	res := make([][]int, len(frontier))
	for i, cand := range frontier {
		res[i] = cand.tokens
	}
	return res
}

// topK returns the indices of the k largest values in
// descending order, preferring lower indices on ties.
func topK(values []float64, k int) []int {
	if k > len(values) {
		k = len(values)
	}
	indices := make([]int, len(values))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(i, j int) bool {
		return values[indices[i]] > values[indices[j]]
	})
	return indices[:k]
}
