package captiongan

import (
	"math/rand"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

const (
	testImageSize  = 6
	testImageEmbed = 5
	testWordEmbed  = 4
	testHidden     = 6
	testNoise      = 3
	testVocab      = 7
)

func testCreator() anyvec.Creator {
	return anyvec64.DefaultCreator{}
}

func testGenerator(maxLen int) *ConditionalGenerator {
	c := testCreator()
	g := NewConditionalGenerator(c, NewLinearEncoder(c, testImageSize, testImageEmbed),
		GeneratorConfig{
			ImageEmbedSize: testImageEmbed,
			WordEmbedSize:  testWordEmbed,
			HiddenSize:     testHidden,
			NoiseDim:       testNoise,
			VocabSize:      testVocab,
			LSTMLayers:     1,
			MaxLen:         maxLen,
		})
	g.Rand = rand.New(rand.NewSource(1))
	return g
}

func testImages(c anyvec.Creator, n int, seed int64) anyvec.Vector {
	return randomRows(c, n, testImageSize, seed)
}

func randomRows(c anyvec.Creator, n, size int, seed int64) anyvec.Vector {
	r := rand.New(rand.NewSource(seed))
	data := make([]float64, n*size)
	for i := range data {
		data[i] = r.NormFloat64()
	}
	return c.MakeVectorData(c.MakeNumericList(data))
}

// evaluatorCall records the arguments of one Score call.
type evaluatorCall struct {
	NumImages int
	Seqs      [][]int
}

// recordEvaluator is a deterministic Evaluator that logs
// every call. Each sequence scores the sum of its tokens
// scaled into a small range.
type recordEvaluator struct {
	Calls []evaluatorCall
}

func (r *recordEvaluator) Score(images anyvec.Vector, numImages int,
	seqs [][]int) anyvec.Vector {
	copied := make([][]int, len(seqs))
	for i, seq := range seqs {
		copied[i] = append([]int{}, seq...)
	}
	r.Calls = append(r.Calls, evaluatorCall{NumImages: numImages, Seqs: copied})

	scores := make([]float64, len(seqs))
	for i, seq := range seqs {
		scores[i] = seqScore(seq)
	}
	c := images.Creator()
	return c.MakeVectorData(c.MakeNumericList(scores))
}

func seqScore(seq []int) float64 {
	sum := 0
	for _, tok := range seq {
		sum += tok
	}
	return float64(sum%17) / 17
}

func absMax(v anyvec.Vector) float64 {
	return anyvec.AbsMax(v).(float64)
}

func vecsClose(a, b anyvec.Vector, tol float64) bool {
	if a.Len() != b.Len() {
		return false
	}
	diff := a.Copy()
	diff.Sub(b)
	return absMax(diff) <= tol
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i, x := range a {
		if x != b[i] {
			return false
		}
	}
	return true
}

func mustPanic(f func()) (panicked bool) {
	defer func() {
		if recover() != nil {
			panicked = true
		}
	}()
	f()
	return
}
