package captiongan

import (
	"math/rand"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
)

// A Fuser combines an image embedding with a freshly drawn
// latent noise vector to produce the decoder's initial
// input vector.
//
// Concatenating the embedding with the noise and applying a
// linear layer is expressed as the sum of two linear maps,
// which is the same affine transformation.
type Fuser struct {
	NoiseDim int
	Image    *anynet.FC
	Noise    *anynet.FC
	Act      anynet.Layer
}

// NewFuser creates a Fuser mapping imageEmbedSize-component
// embeddings plus noiseDim-component noise to outSize
// components.
func NewFuser(c anyvec.Creator, imageEmbedSize, noiseDim, outSize int) *Fuser {
	return &Fuser{
		NoiseDim: noiseDim,
		Image:    anynet.NewFC(c, imageEmbedSize, outSize),
		Noise:    anynet.NewFC(c, noiseDim, outSize),
		Act:      &LeakyReLU{Slope: 0.2},
	}
}

// Fuse samples one noise vector per row from a standard
// normal distribution and produces the fused batch.
//
// If r is nil, the global math/rand source is used.
func (f *Fuser) Fuse(features anydiff.Res, n int, r *rand.Rand) anydiff.Res {
	c := features.Output().Creator()
	noise := c.MakeVector(n * f.NoiseDim)
	anyvec.Rand(noise, anyvec.Normal, r)
	sum := anydiff.Add(f.Image.Apply(features, n),
		f.Noise.Apply(anydiff.NewConst(noise), n))
	return f.Act.Apply(sum, n)
}

// Parameters returns the fuser's trainable variables.
func (f *Fuser) Parameters() []*anydiff.Var {
	return anynet.AllParameters(f.Image, f.Noise, f.Act)
}

// A LeakyReLU is an activation layer which scales negative
// inputs by Slope and leaves positive inputs unchanged.
type LeakyReLU struct {
	Slope float64
}

// Apply applies the activation component-wise.
func (l *LeakyReLU) Apply(in anydiff.Res, n int) anydiff.Res {
	c := in.Output().Creator()
	pos := anydiff.ClipPos(in)
	return anydiff.Add(anydiff.Scale(pos, c.MakeNumeric(1-l.Slope)),
		anydiff.Scale(in, c.MakeNumeric(l.Slope)))
}
