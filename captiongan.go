// Package captiongan implements a conditional image caption
// generator trained adversarially with policy gradients.
//
// The generator is an image-conditioned LSTM decoder. Since
// token sampling is not differentiable, the reinforcement
// learning path estimates a per-step reward by completing
// each partial caption with Monte Carlo rollouts under a
// frozen snapshot of the decoder and averaging the scores of
// an adversarial evaluator over the completions.
package captiongan

// StartToken is the reserved vocabulary index that begins
// every generated token sequence.
const StartToken = 0

// GeneratorConfig holds the dimension hyper-parameters of a
// ConditionalGenerator.
type GeneratorConfig struct {
	// ImageEmbedSize is the size of image embeddings
	// produced by the image encoder.
	ImageEmbedSize int

	// WordEmbedSize is the size of token embeddings and of
	// the decoder's input vectors.
	WordEmbedSize int

	// HiddenSize is the LSTM hidden state size.
	HiddenSize int

	// NoiseDim is the size of the latent noise vector fused
	// into the initial decoder input.
	NoiseDim int

	// VocabSize is the number of vocabulary tokens.
	VocabSize int

	// LSTMLayers is the number of stacked LSTM layers.
	// A value of 0 is treated as 1.
	LSTMLayers int

	// MaxLen is the maximum number of generated tokens per
	// caption, not counting the start token.
	MaxLen int
}

func (g *GeneratorConfig) numLayers() int {
	if g.LSTMLayers < 1 {
		return 1
	}
	return g.LSTMLayers
}
