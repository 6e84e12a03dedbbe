package captiongan

import (
	"math/rand"
	"testing"

	"github.com/unixpickle/serializer"
)

func TestDecoderSerialize(t *testing.T) {
	c := testCreator()
	d := NewDecoder(c, testVocab, testWordEmbed, testHidden, 2)

	data, err := serializer.SerializeAny(d)
	if err != nil {
		t.Fatal(err)
	}
	var restored *Decoder
	if err := serializer.DeserializeAny(data, &restored); err != nil {
		t.Fatal(err)
	}

	if restored.VocabSize != d.VocabSize || restored.EmbedSize != d.EmbedSize {
		t.Error("dimensions were not preserved")
	}
	in := d.EmbedTokens([]int{1, 2})
	out, _ := d.Step(d.Start(2), in)
	restoredOut, _ := restored.Step(restored.Start(2), restored.EmbedTokens([]int{1, 2}))
	if !vecsClose(out, restoredOut, 1e-12) {
		t.Error("restored decoder disagrees with original")
	}
}

func TestGeneratorSerialize(t *testing.T) {
	g := testGenerator(4)
	c := testCreator()
	images := testImages(c, 2, 50)

	data, err := serializer.SerializeAny(g)
	if err != nil {
		t.Fatal(err)
	}
	var restored *ConditionalGenerator
	if err := serializer.DeserializeAny(data, &restored); err != nil {
		t.Fatal(err)
	}
	if restored.MaxLen != g.MaxLen {
		t.Error("MaxLen was not preserved")
	}
	if restored.Rollout == nil {
		t.Fatal("restored generator has no rollout engine")
	}
	restored.Encoder = g.Encoder

	g.Rand = rand.New(rand.NewSource(6))
	want := g.SampleGreedy(images, 2, 4)
	restored.Rand = rand.New(rand.NewSource(6))
	got := restored.SampleGreedy(images, 2, 4)
	for i := range want {
		if !intsEqual(want[i], got[i]) {
			t.Errorf("sequence %d: restored generator sampled %v instead of %v",
				i, got[i], want[i])
		}
	}
}

func TestEvaluatorSerialize(t *testing.T) {
	ev := newTestEvaluator()
	c := testCreator()
	images := testImages(c, 2, 51)
	seqs := [][]int{{StartToken, 1, 2}, {StartToken, 3}}

	data, err := serializer.SerializeAny(ev)
	if err != nil {
		t.Fatal(err)
	}
	var restored *SimilarityEvaluator
	if err := serializer.DeserializeAny(data, &restored); err != nil {
		t.Fatal(err)
	}
	restored.Encoder = ev.Encoder

	if !vecsClose(ev.Score(images, 2, seqs), restored.Score(images, 2, seqs), 1e-12) {
		t.Error("restored evaluator disagrees with original")
	}
}
