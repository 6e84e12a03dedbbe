package captiongan

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
)

// An Evaluator scores how plausibly each token sequence
// describes its image, producing one score in [0, 1] per
// sequence.
//
// When len(seqs) exceeds numImages (Monte Carlo
// replication), len(seqs) must be an exact multiple of
// numImages and the sequences must be ordered trial-major;
// the evaluator repeats its image features along the batch
// dimension to match. A non-integer multiple is a fatal
// configuration error.
type Evaluator interface {
	Score(images anyvec.Vector, numImages int, seqs [][]int) anyvec.Vector
}

// A SimilarityEvaluator scores (image, sequence) pairs as
// the logistic similarity between an image embedding and a
// sentence embedding produced by a recurrent encoder over
// the token sequence.
type SimilarityEvaluator struct {
	// Encoder maps images to sentence-embedding space.
	Encoder ImageEncoder

	// Block embeds tokens and runs them through the LSTM.
	Block anyrnn.Block

	// Out maps the final hidden state to a sentence
	// embedding.
	Out *anynet.FC

	VocabSize int
}

// NewSimilarityEvaluator creates a SimilarityEvaluator.
//
// The enc argument must produce sentEmbedSize-component
// embeddings.
func NewSimilarityEvaluator(c anyvec.Creator, enc ImageEncoder, vocabSize,
	wordEmbedSize, hiddenSize, sentEmbedSize int) *SimilarityEvaluator {
	return &SimilarityEvaluator{
		Encoder: enc,
		Block: anyrnn.Stack{
			&anyrnn.LayerBlock{Layer: anynet.NewFC(c, vocabSize, wordEmbedSize)},
			anyrnn.NewLSTM(c, wordEmbedSize, hiddenSize),
		},
		Out:       anynet.NewFC(c, hiddenSize, sentEmbedSize),
		VocabSize: vocabSize,
	}
}

// Score implements the Evaluator interface.
func (s *SimilarityEvaluator) Score(images anyvec.Vector, numImages int,
	seqs [][]int) anyvec.Vector {
	return s.ScoreRes(images, numImages, seqs).Output()
}

// ScoreRes is the differentiable form of Score.
func (s *SimilarityEvaluator) ScoreRes(images anyvec.Vector, numImages int,
	seqs [][]int) anydiff.Res {
	logits := s.LogitRes(images, numImages, seqs)
	return anynet.Sigmoid.Apply(logits, len(seqs))
}

// LogitRes produces the pre-sigmoid similarity for each
// (image, sequence) pair, for use with a sigmoid
// cross-entropy cost during adversarial training.
func (s *SimilarityEvaluator) LogitRes(images anyvec.Vector, numImages int,
	seqs [][]int) anydiff.Res {
	n := len(seqs)
	if n == 0 {
		panic("captiongan: no sequences to score")
	}
	features := s.Encoder.Encode(images, numImages)
	if n != numImages {
		if n%numImages != 0 {
			panic("captiongan: sequence count is not a multiple of image count")
		}
		features = tileRowsRes(features, numImages, n/numImages)
	}

	c := features.Output().Creator()
	tokenSeqs := make([][]anyvec.Vector, n)
	for i, seq := range seqs {
		if len(seq) == 0 {
			panic("captiongan: empty sequence")
		}
		for _, tok := range seq {
			tokenSeqs[i] = append(tokenSeqs[i], oneHot(c, s.VocabSize, tok))
		}
	}
	hidden := anyrnn.Map(anyseq.ConstSeqList(c, tokenSeqs), s.Block)
	sentences := s.Out.Apply(anyseq.Tail(hidden), n)

	embedSize := sentences.Output().Len() / n
	dots := anydiff.SumCols(&anydiff.Matrix{
		Data: anydiff.Mul(features, sentences),
		Rows: n,
		Cols: embedSize,
	})
	return dots
}

// Parameters returns the evaluator's trainable variables,
// including its encoder's.
func (s *SimilarityEvaluator) Parameters() []*anydiff.Var {
	params := anynet.AllParameters(s.Block, s.Out)
	return append(params, s.Encoder.Parameters()...)
}

// tileRowsRes repeats a packed batch of rows count times
// along the batch dimension, differentiably, by multiplying
// with a 0/1 selection matrix.
func tileRowsRes(rows anydiff.Res, numRows, count int) anydiff.Res {
	if count == 1 {
		return rows
	}
	c := rows.Output().Creator()
	cols := rows.Output().Len() / numRows
	selData := make([]float64, count*numRows*numRows)
	for trial := 0; trial < count; trial++ {
		for i := 0; i < numRows; i++ {
			selData[(trial*numRows+i)*numRows+i] = 1
		}
	}
	sel := anydiff.NewConst(c.MakeVectorData(c.MakeNumericList(selData)))
	product := anydiff.MatMul(false, false,
		&anydiff.Matrix{Data: sel, Rows: count * numRows, Cols: numRows},
		&anydiff.Matrix{Data: rows, Rows: numRows, Cols: cols})
	return product.Data
}
