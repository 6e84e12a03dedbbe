package captiongan

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
)

// An ImageEncoder maps a packed batch of images to a packed
// batch of fixed-size embedding rows.
//
// Backbone feature extraction is an external capability; the
// rest of the system only depends on this contract.
type ImageEncoder interface {
	// Encode produces n embedding rows for a packed batch
	// of n images.
	Encode(images anyvec.Vector, n int) anydiff.Res

	// Parameters returns the encoder's trainable variables.
	Parameters() []*anydiff.Var
}

// A FeatureStage is one named stage of a pretrained
// backbone, applied to a packed batch.
type FeatureStage struct {
	Name string
	F    func(in anydiff.Res, n int) anydiff.Res
}

// A CNNEncoder composes an explicit ordered list of frozen
// backbone stages with a trainable linear projection to the
// embedding size.
//
// Only the projection contributes parameters; the backbone
// stages are treated as fixed feature extractors.
type CNNEncoder struct {
	Stages []FeatureStage
	Proj   *anynet.FC
}

// NewLinearEncoder creates a stage-less CNNEncoder for
// inputs that are already backbone features (inSize
// components per image).
func NewLinearEncoder(c anyvec.Creator, inSize, embedSize int) *CNNEncoder {
	return &CNNEncoder{Proj: anynet.NewFC(c, inSize, embedSize)}
}

// Encode runs the stages in order and projects the result.
func (c *CNNEncoder) Encode(images anyvec.Vector, n int) anydiff.Res {
	res := anydiff.Res(anydiff.NewConst(images))
	for _, stage := range c.Stages {
		res = stage.F(res, n)
	}
	return c.Proj.Apply(res, n)
}

// Parameters returns the projection's parameters.
func (c *CNNEncoder) Parameters() []*anydiff.Var {
	return c.Proj.Parameters()
}
