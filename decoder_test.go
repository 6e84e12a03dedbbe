package captiongan

import (
	"testing"
)

func TestDecoderStepDeterminism(t *testing.T) {
	c := testCreator()
	d := NewDecoder(c, testVocab, testWordEmbed, testHidden, 2)

	in := d.EmbedTokens([]int{1, 3, 5})
	state := d.Start(3)

	out1, next1 := d.Step(state, in)
	out2, next2 := d.Step(state, in)
	if !vecsClose(out1, out2, 0) {
		t.Error("outputs differ across identical steps")
	}
	if out1.Len() != 3*testVocab {
		t.Errorf("output length should be %d but got %d", 3*testVocab, out1.Len())
	}

	in2 := d.EmbedTokens([]int{2, 2, 2})
	cont1, _ := d.Step(next1, in2)
	cont2, _ := d.Step(next2, in2)
	if !vecsClose(cont1, cont2, 0) {
		t.Error("branched states diverged")
	}
}

func TestDecoderClone(t *testing.T) {
	c := testCreator()
	d := NewDecoder(c, testVocab, testWordEmbed, testHidden, 1)
	clone := d.Clone()

	in := d.EmbedTokens([]int{4, 0})
	out, _ := d.Step(d.Start(2), in)
	cloneOut, _ := clone.Step(clone.Start(2), clone.EmbedTokens([]int{4, 0}))
	if !vecsClose(out, cloneOut, 1e-12) {
		t.Error("clone disagrees with original before mutation")
	}

	for _, p := range d.Parameters() {
		p.Vector.AddScalar(c.MakeNumeric(0.5))
	}
	mutated, _ := d.Step(d.Start(2), d.EmbedTokens([]int{4, 0}))
	if vecsClose(out, mutated, 1e-12) {
		t.Error("mutating parameters did not change the original")
	}
	afterMutation, _ := clone.Step(clone.Start(2), clone.EmbedTokens([]int{4, 0}))
	if !vecsClose(cloneOut, afterMutation, 0) {
		t.Error("mutating the original changed the clone")
	}
}

func TestDecoderEmbedTokens(t *testing.T) {
	c := testCreator()
	d := NewDecoder(c, testVocab, testWordEmbed, testHidden, 1)

	batch := d.EmbedTokens([]int{2, 6})
	if batch.Len() != 2*testWordEmbed {
		t.Fatalf("embedding length should be %d but got %d",
			2*testWordEmbed, batch.Len())
	}
	single := d.EmbedTokens([]int{6})
	if !vecsClose(batch.Slice(testWordEmbed, 2*testWordEmbed), single, 1e-12) {
		t.Error("batched embedding row disagrees with single embedding")
	}

	if !mustPanic(func() { d.EmbedTokens([]int{testVocab}) }) {
		t.Error("out-of-range token should panic")
	}
}
