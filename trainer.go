package captiongan

import (
	"errors"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/lazyseq"
)

// A Sample is one image paired with one caption. The
// caption includes its leading start token.
type Sample struct {
	Image   anyvec.Vector
	Caption []int
}

// A SampleList wraps a slice of Samples for training.
type SampleList []*Sample

// Len returns the number of samples.
func (s SampleList) Len() int {
	return len(s)
}

// Swap swaps two samples.
func (s SampleList) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

// Slice returns a subset of the sample list.
func (s SampleList) Slice(i, j int) anysgd.SampleList {
	return append(SampleList{}, s[i:j]...)
}

// A Batch is a fetched batch of images and captions.
type Batch struct {
	Images   anyvec.Vector
	N        int
	Captions [][]int
}

func fetchBatch(s anysgd.SampleList) (*Batch, error) {
	list, ok := s.(SampleList)
	if !ok {
		return nil, errors.New("fetch batch: unexpected sample list type")
	}
	if list.Len() == 0 {
		return nil, errors.New("fetch batch: empty sample list")
	}
	images := make([]anyvec.Vector, list.Len())
	captions := make([][]int, list.Len())
	for i, sample := range list {
		images[i] = sample.Image
		captions[i] = sample.Caption
	}
	c := images[0].Creator()
	return &Batch{
		Images:   c.Concat(images...),
		N:        list.Len(),
		Captions: captions,
	}, nil
}

// A Trainer computes maximum-likelihood costs and
// gradients for a generator under teacher forcing.
type Trainer struct {
	Generator *ConditionalGenerator
	Params    []*anydiff.Var

	// LastCost is set by every call to Gradient.
	LastCost anyvec.Numeric
}

// Fetch creates a *Batch from a SampleList.
func (t *Trainer) Fetch(s anysgd.SampleList) (anysgd.Batch, error) {
	return fetchBatch(s)
}

// TotalCost computes the mean cross-entropy cost over
// every caption token in the batch.
func (t *Trainer) TotalCost(b anysgd.Batch) anydiff.Res {
	batch := b.(*Batch)
	c := t.Generator.Decoder.creator()
	vocab := t.Generator.Decoder.VocabSize

	out := t.Generator.Forward(batch.Images, batch.N, batch.Captions)
	desired := anyseq.ConstSeqList(c, targetSeqs(c, vocab, batch.Captions))

	costs := lazyseq.MapN(func(n int, v ...anydiff.Res) anydiff.Res {
		actual := anydiff.LogSoftmax(v[0], vocab)
		return anynet.DotCost{}.Cost(v[1], actual, n)
	}, lazyseq.Lazify(out), lazyseq.Lazify(desired))

	return lazyseq.Mean(costs)
}

// Gradient computes the cost gradient for a batch.
// It sets t.LastCost to the cost.
func (t *Trainer) Gradient(b anysgd.Batch) anydiff.Grad {
	grad, cost := anysgd.CosterGrad(t, b, t.Params)
	t.LastCost = cost
	return grad
}

// targetSeqs builds one-hot target sequences. The output
// at step t of the teacher-forced decoder predicts token t
// of the caption.
func targetSeqs(c anyvec.Creator, vocab int, captions [][]int) [][]anyvec.Vector {
	res := make([][]anyvec.Vector, len(captions))
	for i, seq := range captions {
		res[i] = make([]anyvec.Vector, len(seq))
		for t, tok := range seq {
			res[i][t] = oneHot(c, vocab, tok)
		}
	}
	return res
}

// A PolicyTrainer computes policy-gradient costs for a
// generator against an adversarial evaluator.
//
// The cost is the negated mean of reward-weighted log
// probabilities of the sampled tokens, so minimizing it
// raises the probability of highly rewarded captions.
type PolicyTrainer struct {
	Generator *ConditionalGenerator
	Evaluator Evaluator

	// NumRollouts is the Monte Carlo trial count per step.
	NumRollouts int

	Params []*anydiff.Var

	// LastCost is set by every call to Gradient.
	LastCost anyvec.Numeric

	// LastMeanReward is set by every call to TotalCost.
	LastMeanReward float64
}

// Fetch creates a *Batch from a SampleList. Only the
// images are used; captions are sampled.
func (p *PolicyTrainer) Fetch(s anysgd.SampleList) (anysgd.Batch, error) {
	return fetchBatch(s)
}

// TotalCost samples captions, estimates per-step rewards,
// and computes the policy-gradient surrogate cost.
func (p *PolicyTrainer) TotalCost(b anysgd.Batch) anydiff.Res {
	batch := b.(*Batch)
	c := p.Generator.Decoder.creator()

	rewards, probs := p.Generator.RewardForward(batch.Images, batch.N,
		p.Evaluator, p.NumRollouts)

	var total float64
	rewardData := vecData(rewards)
	for _, r := range rewardData {
		total += r
	}
	p.LastMeanReward = total / float64(len(rewardData))

	weighted := anydiff.Mul(anydiff.Log(probs), anydiff.NewConst(rewards))
	scale := c.MakeNumeric(-1 / float64(rewards.Len()))
	return anydiff.Scale(anydiff.Sum(weighted), scale)
}

// Gradient computes the cost gradient for a batch.
// It sets p.LastCost to the cost.
func (p *PolicyTrainer) Gradient(b anysgd.Batch) anydiff.Grad {
	grad, cost := anysgd.CosterGrad(p, b, p.Params)
	p.LastCost = cost
	return grad
}

// An EvaluatorSample is one image-caption pair with a
// target score: 1 for real matching pairs, 0 for generated
// or mismatched ones.
type EvaluatorSample struct {
	Image   anyvec.Vector
	Caption []int
	Target  float64
}

// An EvaluatorSampleList wraps a slice of EvaluatorSamples
// for training.
type EvaluatorSampleList []*EvaluatorSample

// Len returns the number of samples.
func (e EvaluatorSampleList) Len() int {
	return len(e)
}

// Swap swaps two samples.
func (e EvaluatorSampleList) Swap(i, j int) {
	e[i], e[j] = e[j], e[i]
}

// Slice returns a subset of the sample list.
func (e EvaluatorSampleList) Slice(i, j int) anysgd.SampleList {
	return append(EvaluatorSampleList{}, e[i:j]...)
}

// An EvaluatorBatch is a fetched batch of image-caption
// pairs with target scores.
type EvaluatorBatch struct {
	Images   anyvec.Vector
	N        int
	Captions [][]int
	Targets  anyvec.Vector
}

// An EvaluatorTrainer computes discrimination costs for a
// similarity evaluator.
type EvaluatorTrainer struct {
	Evaluator *SimilarityEvaluator
	Params    []*anydiff.Var

	// LastCost is set by every call to Gradient.
	LastCost anyvec.Numeric
}

// Fetch creates an *EvaluatorBatch from an
// EvaluatorSampleList.
func (e *EvaluatorTrainer) Fetch(s anysgd.SampleList) (anysgd.Batch, error) {
	list, ok := s.(EvaluatorSampleList)
	if !ok {
		return nil, errors.New("fetch batch: unexpected sample list type")
	}
	if list.Len() == 0 {
		return nil, errors.New("fetch batch: empty sample list")
	}
	images := make([]anyvec.Vector, list.Len())
	captions := make([][]int, list.Len())
	targets := make([]float64, list.Len())
	for i, sample := range list {
		images[i] = sample.Image
		captions[i] = sample.Caption
		targets[i] = sample.Target
	}
	c := images[0].Creator()
	return &EvaluatorBatch{
		Images:   c.Concat(images...),
		N:        list.Len(),
		Captions: captions,
		Targets:  c.MakeVectorData(c.MakeNumericList(targets)),
	}, nil
}

// TotalCost computes the mean sigmoid cross-entropy
// between the evaluator's scores and the target scores.
func (e *EvaluatorTrainer) TotalCost(b anysgd.Batch) anydiff.Res {
	batch := b.(*EvaluatorBatch)
	c := batch.Images.Creator()

	logits := e.Evaluator.LogitRes(batch.Images, batch.N, batch.Captions)
	costs := anynet.SigmoidCE{}.Cost(anydiff.NewConst(batch.Targets), logits, batch.N)

	scale := c.MakeNumeric(1 / float64(batch.N))
	return anydiff.Scale(anydiff.Sum(costs), scale)
}

// Gradient computes the cost gradient for a batch.
// It sets e.LastCost to the cost.
func (e *EvaluatorTrainer) Gradient(b anysgd.Batch) anydiff.Grad {
	grad, cost := anysgd.CosterGrad(e, b, e.Params)
	e.LastCost = cost
	return grad
}
