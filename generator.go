package captiongan

import (
	"math"
	"math/rand"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/lazyseq"
	"github.com/unixpickle/lazyseq/lazyrnn"
)

// A ConditionalGenerator produces token sequences
// conditioned on images.
//
// It wires the image encoder, the noise-conditioned fuser,
// and the sequence decoder, and owns the Rollout engine
// used by the reinforcement learning path.
type ConditionalGenerator struct {
	Encoder ImageEncoder
	Fuser   *Fuser
	Decoder *Decoder
	Rollout *Rollout

	// MaxLen is the maximum number of generated tokens per
	// caption, not counting the start token.
	MaxLen int

	// Rand is the source for noise vectors and multinomial
	// token sampling. A nil Rand uses the global math/rand
	// source.
	Rand *rand.Rand
}

// NewConditionalGenerator creates a generator with freshly
// initialized fuser and decoder parameters.
func NewConditionalGenerator(c anyvec.Creator, enc ImageEncoder,
	conf GeneratorConfig) *ConditionalGenerator {
	return &ConditionalGenerator{
		Encoder: enc,
		Fuser:   NewFuser(c, conf.ImageEmbedSize, conf.NoiseDim, conf.WordEmbedSize),
		Decoder: NewDecoder(c, conf.VocabSize, conf.WordEmbedSize,
			conf.HiddenSize, conf.numLayers()),
		Rollout: NewRollout(conf.MaxLen),
		MaxLen:  conf.MaxLen,
	}
}

// FeatureForward encodes a batch of images and fuses the
// embeddings with fresh noise, producing the packed batch
// of initial decoder inputs.
func (g *ConditionalGenerator) FeatureForward(images anyvec.Vector, n int) anydiff.Res {
	return g.Fuser.Fuse(g.Encoder.Encode(images, n), n, g.Rand)
}

// Forward runs the supervised, teacher-forcing path.
//
// The decoder consumes the fused image features followed by
// the ground-truth caption tokens, and the result is the
// sequence of unnormalized vocabulary logits: the output at
// step t predicts captions[i][t]. Captions must be
// non-empty and include their leading start token.
func (g *ConditionalGenerator) Forward(images anyvec.Vector, n int,
	captions [][]int) anyseq.Seq {
	if len(captions) != n {
		panic("captiongan: image batch and caption batch sizes differ")
	}
	features := g.FeatureForward(images, n)
	in := g.forwardInputs(features, captions)

	numSteps := len(in.Output())
	interval := int(math.Sqrt(float64(numSteps)))
	if interval < 1 {
		interval = 1
	}
	out := lazyrnn.FixedHSM(interval, false, lazyseq.Lazify(in), g.Decoder.Block)
	return lazyseq.Unlazify(out)
}

// forwardInputs builds the decoder input sequence for
// teacher forcing: fused features at step 0, then the
// embeddings of all caption tokens but the last.
func (g *ConditionalGenerator) forwardInputs(features anydiff.Res,
	captions [][]int) anyseq.Seq {
	c := g.Decoder.creator()
	numSteps := 0
	for _, seq := range captions {
		if len(seq) == 0 {
			panic("captiongan: empty caption")
		}
		if len(seq) > numSteps {
			numSteps = len(seq)
		}
	}

	batches := []*anyseq.ResBatch{{
		Packed:  features,
		Present: presentAt(captions, 0),
	}}
	for t := 1; t < numSteps; t++ {
		present := presentAt(captions, t)
		var tokens []int
		for i, seq := range captions {
			if present[i] {
				tokens = append(tokens, seq[t-1])
			}
		}
		batches = append(batches, &anyseq.ResBatch{
			Packed:  g.Decoder.embedRes(tokens),
			Present: present,
		})
	}
	return anyseq.ResSeq(c, batches)
}

func presentAt(captions [][]int, t int) []bool {
	present := make([]bool, len(captions))
	for i, seq := range captions {
		present[i] = t < len(seq)
	}
	return present
}

// RewardForward runs the reinforcement learning path.
//
// For each of MaxLen steps it samples one token per image
// from the live decoder's softmax distribution, records the
// sampled token's probability, and asks the Rollout engine
// for the expected evaluator score at that step. The
// Rollout snapshot is refreshed once at the start of the
// call.
//
// Both results are packed step-major vectors of length
// n*MaxLen: column t occupies [t*n, (t+1)*n). The rewards
// are plain values; the probabilities are differentiable,
// back-propagating into the decoder, the fuser, and the
// encoder for an external policy-gradient loss.
func (g *ConditionalGenerator) RewardForward(images anyvec.Vector, n int,
	ev Evaluator, mcCount int) (anyvec.Vector, anydiff.Res) {
	c := g.Decoder.creator()
	vocab := g.Decoder.VocabSize

	features := g.FeatureForward(images, n)
	g.Rollout.Update(g)

	block := g.Decoder.Block
	featStep := block.Step(block.Start(n), features.Output())
	state := featStep.State()

	res := &rewardProbs{
		Block:    block,
		Features: features,
		FeatStep: featStep,
		N:        n,
	}

	seqs := make([][]int, n)
	startTokens := make([]int, n)
	for i := range seqs {
		seqs[i] = []int{StartToken}
	}
	embed := g.Decoder.embedRes(startTokens)

	rewardCols := make([]anyvec.Vector, 0, g.MaxLen)
	for t := 0; t < g.MaxLen; t++ {
		step := block.Step(state, embed.Output())
		pool := anydiff.NewVar(step.Output())
		logProbs := anydiff.LogSoftmax(pool, vocab)

		rows := vecData(logProbs.Output())
		tokens := make([]int, n)
		for i := range tokens {
			probs := make([]float64, vocab)
			for j, lp := range rows[i*vocab : (i+1)*vocab] {
				probs[j] = math.Exp(lp)
			}
			tokens[i] = sampleSoftmax(g.Rand, probs)
			seqs[i] = append(seqs[i], tokens[i])
		}

		mask := anydiff.NewConst(oneHotBatch(c, vocab, tokens))
		prob := anydiff.Exp(anydiff.SumCols(&anydiff.Matrix{
			Data: anydiff.Mul(logProbs, mask),
			Rows: n,
			Cols: vocab,
		}))

		res.Steps = append(res.Steps, step)
		res.Pools = append(res.Pools, pool)
		res.Probs = append(res.Probs, prob)
		res.Embeds = append(res.Embeds, embed)

		rewardCols = append(rewardCols,
			g.Rollout.Reward(images, n, seqs, step.State(), mcCount, ev))

		embed = g.Decoder.embedRes(tokens)
		state = step.State()
	}

	res.finish(c)
	return c.Concat(rewardCols...), res
}

// SampleGreedy generates one caption per image with greedy
// decoding.
func (g *ConditionalGenerator) SampleGreedy(images anyvec.Vector, n,
	maxLen int) [][]int {
	features := g.FeatureForward(images, n).Output()
	return g.Decoder.SampleGreedy(features, n, maxLen)
}

// SampleBeam generates the top beamWidth captions per image
// with beam search.
func (g *ConditionalGenerator) SampleBeam(images anyvec.Vector, n, maxLen,
	beamWidth int) [][][]int {
	features := g.FeatureForward(images, n).Output()
	rowLen := features.Len() / n
	res := make([][][]int, n)
	for i := range res {
		row := features.Slice(i*rowLen, (i+1)*rowLen)
		res[i] = g.Decoder.SampleBeam(row, maxLen, beamWidth)
	}
	return res
}

// Parameters returns the generator's trainable variables,
// including the encoder's.
func (g *ConditionalGenerator) Parameters() []*anydiff.Var {
	params := append(g.Fuser.Parameters(), g.Decoder.Parameters()...)
	return append(params, g.Encoder.Parameters()...)
}

// rewardProbs is the differentiable probability matrix from
// RewardForward.
//
// Back-propagation walks the recorded step results in
// reverse, splicing the upstream probability gradients into
// the logits through pooled variables and threading the
// recurrent state gradient through the chain, the way
// back-propagation through time does.
type rewardProbs struct {
	Block    anyrnn.Block
	Features anydiff.Res
	FeatStep anyrnn.Res
	Steps    []anyrnn.Res
	Embeds   []anydiff.Res
	Pools    []*anydiff.Var
	Probs    []anydiff.Res
	N        int

	OutVec anyvec.Vector
	V      anydiff.VarSet
}

func (r *rewardProbs) finish(c anyvec.Creator) {
	outs := make([]anyvec.Vector, len(r.Probs))
	vars := anydiff.VarSet{}
	vars = anydiff.MergeVarSets(vars, r.Features.Vars())
	vars = anydiff.MergeVarSets(vars, r.FeatStep.Vars())
	for i, prob := range r.Probs {
		outs[i] = prob.Output()
		vars = anydiff.MergeVarSets(vars, prob.Vars())
		vars = anydiff.MergeVarSets(vars, r.Steps[i].Vars())
		vars = anydiff.MergeVarSets(vars, r.Embeds[i].Vars())
	}
	for _, pool := range r.Pools {
		vars.Del(pool)
	}
	r.OutVec = c.Concat(outs...)
	r.V = vars
}

func (r *rewardProbs) Output() anyvec.Vector {
	return r.OutVec
}

func (r *rewardProbs) Vars() anydiff.VarSet {
	return r.V
}

func (r *rewardProbs) Propagate(u anyvec.Vector, g anydiff.Grad) {
	n := r.N
	var stateUp anyrnn.StateGrad
	for t := len(r.Steps) - 1; t >= 0; t-- {
		pool := r.Pools[t]
		g[pool] = pool.Vector.Creator().MakeVector(pool.Vector.Len())
		r.Probs[t].Propagate(u.Slice(t*n, (t+1)*n), g)
		logitUp := g[pool]
		delete(g, pool)

		inDown, nextUp := r.Steps[t].Propagate(logitUp, stateUp, g)
		r.Embeds[t].Propagate(inDown, g)
		stateUp = nextUp
	}

	zeroUp := r.FeatStep.Output().Creator().MakeVector(r.FeatStep.Output().Len())
	featDown, startUp := r.FeatStep.Propagate(zeroUp, stateUp, g)
	r.Features.Propagate(featDown, g)
	if startUp != nil {
		r.Block.PropagateStart(startUp, g)
	}
}
