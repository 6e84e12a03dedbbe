package captiongan

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// A Decoder is an autoregressive recurrent decoder over a
// token vocabulary.
//
// The recurrent block maps an input vector (a token
// embedding, or the fused image features for the first
// step) directly to unnormalized vocabulary logits; all
// recurrent state is carried explicitly through
// anyrnn.State values.
type Decoder struct {
	VocabSize int
	EmbedSize int

	// Embed maps one-hot token rows to embedding rows.
	Embed *anynet.FC

	// Block is the LSTM stack capped by the output
	// projection, so Step outputs are vocabulary logits.
	Block anyrnn.Block
}

// NewDecoder creates a Decoder with the given vocabulary
// size, token embedding size, LSTM hidden size, and number
// of stacked LSTM layers.
func NewDecoder(c anyvec.Creator, vocabSize, embedSize, hiddenSize, numLayers int) *Decoder {
	if numLayers < 1 {
		numLayers = 1
	}
	stack := anyrnn.Stack{}
	inSize := embedSize
	for i := 0; i < numLayers; i++ {
		stack = append(stack, anyrnn.NewLSTM(c, inSize, hiddenSize))
		inSize = hiddenSize
	}
	stack = append(stack, &anyrnn.LayerBlock{
		Layer: anynet.NewFC(c, hiddenSize, vocabSize),
	})
	return &Decoder{
		VocabSize: vocabSize,
		EmbedSize: embedSize,
		Embed:     anynet.NewFC(c, vocabSize, embedSize),
		Block:     stack,
	}
}

// Start produces the start state for a batch of n
// trajectories.
func (d *Decoder) Start(n int) anyrnn.State {
	return d.Block.Start(n)
}

// Step applies the decoder for a single timestep.
//
// It returns the vocabulary logits and the updated state.
// The input state is not modified, so it may be reused to
// branch multiple trajectories from the same point.
func (d *Decoder) Step(state anyrnn.State, in anyvec.Vector) (anyvec.Vector, anyrnn.State) {
	res := d.Block.Step(state, in)
	return res.Output(), res.State()
}

// EmbedTokens produces the packed embedding rows for a
// batch of tokens.
func (d *Decoder) EmbedTokens(tokens []int) anyvec.Vector {
	return d.embedRes(tokens).Output()
}

func (d *Decoder) embedRes(tokens []int) anydiff.Res {
	c := d.creator()
	in := anydiff.NewConst(oneHotBatch(c, d.VocabSize, tokens))
	return d.Embed.Apply(in, len(tokens))
}

// Parameters returns the decoder's trainable variables.
func (d *Decoder) Parameters() []*anydiff.Var {
	return anynet.AllParameters(d.Embed, d.Block)
}

// Clone produces a structural deep copy of the decoder, so
// that mutations of the original's parameters do not affect
// the copy.
func (d *Decoder) Clone() *Decoder {
	data, err := d.Serialize()
	if err != nil {
		panic(essentials.AddCtx("clone decoder", err))
	}
	res, err := DeserializeDecoder(data)
	if err != nil {
		panic(essentials.AddCtx("clone decoder", err))
	}
	return res
}

func (d *Decoder) creator() anyvec.Creator {
	return d.Embed.Weights.Vector.Creator()
}
