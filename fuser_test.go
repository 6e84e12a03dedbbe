package captiongan

import (
	"math"
	"math/rand"
	"testing"

	"github.com/unixpickle/anydiff"
)

func TestLeakyReLU(t *testing.T) {
	c := testCreator()
	layer := &LeakyReLU{Slope: 0.2}
	in := anydiff.NewConst(c.MakeVectorData(c.MakeNumericList(
		[]float64{-2, -0.5, 0, 0.5, 3})))
	out := vecData(layer.Apply(in, 1).Output())
	want := []float64{-0.4, -0.1, 0, 0.5, 3}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-12 {
			t.Errorf("component %d: expected %f but got %f", i, want[i], out[i])
		}
	}
}

func TestFuser(t *testing.T) {
	c := testCreator()
	f := NewFuser(c, testImageEmbed, testNoise, testWordEmbed)
	features := anydiff.NewConst(randomRows(c, 2, testImageEmbed, 60))

	out1 := f.Fuse(features, 2, rand.New(rand.NewSource(8)))
	if out1.Output().Len() != 2*testWordEmbed {
		t.Fatalf("expected %d components but got %d",
			2*testWordEmbed, out1.Output().Len())
	}
	out2 := f.Fuse(features, 2, rand.New(rand.NewSource(8)))
	if !vecsClose(out1.Output(), out2.Output(), 0) {
		t.Error("identical noise seeds produced different fusions")
	}
	out3 := f.Fuse(features, 2, rand.New(rand.NewSource(9)))
	if vecsClose(out1.Output(), out3.Output(), 1e-12) {
		t.Error("different noise seeds produced identical fusions")
	}
}

func TestCNNEncoderStages(t *testing.T) {
	c := testCreator()
	enc := NewLinearEncoder(c, testImageSize, testImageEmbed)
	enc.Stages = []FeatureStage{{
		Name: "scale",
		F: func(in anydiff.Res, n int) anydiff.Res {
			return anydiff.Scale(in, c.MakeNumeric(2.0))
		},
	}}

	images := testImages(c, 2, 61)
	out := enc.Encode(images, 2)
	if out.Output().Len() != 2*testImageEmbed {
		t.Fatalf("expected %d components but got %d",
			2*testImageEmbed, out.Output().Len())
	}

	// Doubling the input must match the stage's scaling.
	doubled := images.Copy()
	doubled.Scale(c.MakeNumeric(2.0))
	enc.Stages = nil
	direct := enc.Encode(doubled, 2)
	if !vecsClose(out.Output(), direct.Output(), 1e-9) {
		t.Error("stage application disagrees with direct scaling")
	}

	if len(enc.Parameters()) == 0 {
		t.Error("encoder has no trainable parameters")
	}
}
