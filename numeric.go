package captiongan

import (
	"math"
	"math/rand"

	"github.com/unixpickle/anyvec"
)

// oneHot creates a one-hot vector for a token.
func oneHot(c anyvec.Creator, vocabSize, token int) anyvec.Vector {
	if token < 0 || token >= vocabSize {
		panic("captiongan: token out of range")
	}
	data := make([]float64, vocabSize)
	data[token] = 1
	return c.MakeVectorData(c.MakeNumericList(data))
}

// oneHotBatch packs one one-hot row per token.
func oneHotBatch(c anyvec.Creator, vocabSize int, tokens []int) anyvec.Vector {
	data := make([]float64, vocabSize*len(tokens))
	for i, tok := range tokens {
		if tok < 0 || tok >= vocabSize {
			panic("captiongan: token out of range")
		}
		data[i*vocabSize+tok] = 1
	}
	return c.MakeVectorData(c.MakeNumericList(data))
}

// vecData extracts the components of a vector as float64s,
// regardless of the creator's numeric type.
func vecData(v anyvec.Vector) []float64 {
	switch data := v.Data().(type) {
	case []float64:
		return data
	case []float32:
		res := make([]float64, len(data))
		for i, x := range data {
			res[i] = float64(x)
		}
		return res
	default:
		panic("captiongan: unsupported numeric type")
	}
}

// softmax64 computes a numerically stable softmax.
func softmax64(logits []float64) []float64 {
	max := math.Inf(-1)
	for _, x := range logits {
		if x > max {
			max = x
		}
	}
	res := make([]float64, len(logits))
	var sum float64
	for i, x := range logits {
		res[i] = math.Exp(x - max)
		sum += res[i]
	}
	for i := range res {
		res[i] /= sum
	}
	return res
}

// logSoftmax64 computes a numerically stable log-softmax.
func logSoftmax64(logits []float64) []float64 {
	max := math.Inf(-1)
	for _, x := range logits {
		if x > max {
			max = x
		}
	}
	var sum float64
	for _, x := range logits {
		sum += math.Exp(x - max)
	}
	logSum := max + math.Log(sum)
	res := make([]float64, len(logits))
	for i, x := range logits {
		res[i] = x - logSum
	}
	return res
}

// argmax returns the index of the maximum component,
// preferring the lowest index on ties.
func argmax(values []float64) int {
	best := 0
	for i, x := range values {
		if x > values[best] {
			best = i
		}
	}
	return best
}

// sampleSoftmax draws an index from the distribution given
// by probs, which must sum to 1.
//
// If r is nil, the global math/rand source is used.
func sampleSoftmax(r *rand.Rand, probs []float64) int {
	var x float64
	if r != nil {
		x = r.Float64()
	} else {
		x = rand.Float64()
	}
	for i, p := range probs {
		x -= p
		if x < 0 {
			return i
		}
	}
	return len(probs) - 1
}
