package captiongan

import (
	"math/rand"

	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
)

// A Rollout estimates per-step rewards for partially
// generated captions by completing them with Monte Carlo
// simulation and averaging evaluator scores over the
// completions.
//
// Completions are generated by a frozen snapshot of the
// generator's decoder rather than the live, still-updating
// decoder; freezing the rollout policy for the duration of
// an optimization step reduces the variance introduced by a
// shifting policy.
type Rollout struct {
	// MaxLen is the maximum number of generated tokens per
	// caption, not counting the start token.
	MaxLen int

	// Rand is the source used for multinomial sampling
	// during completion. A nil Rand uses the global
	// math/rand source.
	Rand *rand.Rand

	frozen *Decoder
}

// NewRollout creates a Rollout with no snapshot.
//
// Update must be called before the first Reward call.
func NewRollout(maxLen int) *Rollout {
	return &Rollout{MaxLen: maxLen}
}

// Update replaces the frozen snapshot with a structural
// copy of the generator's current decoder parameters.
//
// It must be called once per outer optimization step,
// before that step's first Reward call. The snapshot is
// read-only until the next Update.
func (r *Rollout) Update(g *ConditionalGenerator) {
	r.frozen = g.Decoder.Clone()
}

// Reward estimates, for each partial sequence, the expected
// evaluator score of the eventually completed sequence.
//
// The seqs argument holds one partial token sequence per
// image, all of the same length and starting with
// StartToken. The state argument is the decoder state
// obtained just before the last token of each sequence was
// sampled; it is shared read-only across trials.
//
// If the sequences are already complete, the evaluator's
// direct score is returned with no simulation. Otherwise
// mcCount independent completions per image are sampled
// from the frozen snapshot, scored by a single evaluator
// call on the trial-major completion batch, and averaged
// per image.
func (r *Rollout) Reward(images anyvec.Vector, numImages int, seqs [][]int,
	state anyrnn.State, mcCount int, ev Evaluator) anyvec.Vector {
	if r.frozen == nil {
		panic("captiongan: Reward called before Update")
	}
	if len(seqs) != numImages {
		panic("captiongan: sequence count does not match image count")
	}
	if mcCount < 1 {
		panic("captiongan: Monte Carlo count must be positive")
	}
	generated := len(seqs[0]) - 1
	for _, seq := range seqs {
		if len(seq)-1 != generated {
			panic("captiongan: partial sequences have mixed lengths")
		}
	}
	remaining := r.MaxLen - generated
	if remaining < 0 {
		panic("captiongan: partial sequences exceed the maximum length")
	} else if remaining == 0 {
		return ev.Score(images, numImages, seqs)
	}

	completions := make([][]int, 0, mcCount*numImages)
	for trial := 0; trial < mcCount; trial++ {
		completions = append(completions, r.complete(seqs, state)...)
	}
	scores := ev.Score(images, numImages, completions)

	c := scores.Creator()
	avg := c.MakeVector(numImages)
	for trial := 0; trial < mcCount; trial++ {
		avg.Add(scores.Slice(trial*numImages, (trial+1)*numImages))
	}
	avg.Scale(c.MakeNumeric(1 / float64(mcCount)))
	return avg
}

// complete runs one Monte Carlo trial, extending copies of
// the partial sequences to MaxLen generated tokens.
func (r *Rollout) complete(seqs [][]int, state anyrnn.State) [][]int {
	cur := make([][]int, len(seqs))
	last := make([]int, len(seqs))
	for i, seq := range seqs {
		cur[i] = append([]int{}, seq...)
		last[i] = seq[len(seq)-1]
	}
	for len(cur[0])-1 < r.MaxLen {
		logits, next := r.frozen.Step(state, r.frozen.EmbedTokens(last))
		rows := vecData(logits)
		for i := range cur {
			probs := softmax64(rows[i*r.frozen.VocabSize : (i+1)*r.frozen.VocabSize])
			last[i] = sampleSoftmax(r.Rand, probs)
			cur[i] = append(cur[i], last[i])
		}
		state = next
	}
	return cur
}
