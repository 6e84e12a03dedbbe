package captiongan

import (
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var d Decoder
	serializer.RegisterTypedDeserializer(d.SerializerType(), DeserializeDecoder)
	var f Fuser
	serializer.RegisterTypedDeserializer(f.SerializerType(), DeserializeFuser)
	var l LeakyReLU
	serializer.RegisterTypedDeserializer(l.SerializerType(), DeserializeLeakyReLU)
	var g ConditionalGenerator
	serializer.RegisterTypedDeserializer(g.SerializerType(), DeserializeConditionalGenerator)
	var e SimilarityEvaluator
	serializer.RegisterTypedDeserializer(e.SerializerType(), DeserializeSimilarityEvaluator)
}

// DeserializeDecoder deserializes a Decoder.
func DeserializeDecoder(d []byte) (*Decoder, error) {
	var vocab, embedSize serializer.Int
	var embed *anynet.FC
	var block anyrnn.Stack
	err := serializer.DeserializeAny(d, &vocab, &embedSize, &embed, &block)
	if err != nil {
		return nil, essentials.AddCtx("deserialize decoder", err)
	}
	return &Decoder{
		VocabSize: int(vocab),
		EmbedSize: int(embedSize),
		Embed:     embed,
		Block:     block,
	}, nil
}

// SerializerType returns the unique ID used to serialize
// a Decoder.
func (d *Decoder) SerializerType() string {
	return "github.com/Hhhhhhhhhhao/I2T2I.Decoder"
}

// Serialize serializes the Decoder.
func (d *Decoder) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		serializer.Int(d.VocabSize),
		serializer.Int(d.EmbedSize),
		d.Embed,
		d.Block,
	)
}

// DeserializeFuser deserializes a Fuser.
func DeserializeFuser(d []byte) (*Fuser, error) {
	var noiseDim serializer.Int
	var image, noise *anynet.FC
	var act *LeakyReLU
	err := serializer.DeserializeAny(d, &noiseDim, &image, &noise, &act)
	if err != nil {
		return nil, essentials.AddCtx("deserialize fuser", err)
	}
	return &Fuser{
		NoiseDim: int(noiseDim),
		Image:    image,
		Noise:    noise,
		Act:      act,
	}, nil
}

// SerializerType returns the unique ID used to serialize
// a Fuser.
func (f *Fuser) SerializerType() string {
	return "github.com/Hhhhhhhhhhao/I2T2I.Fuser"
}

// Serialize serializes the Fuser.
func (f *Fuser) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		serializer.Int(f.NoiseDim),
		f.Image,
		f.Noise,
		f.Act,
	)
}

// DeserializeLeakyReLU deserializes a LeakyReLU.
func DeserializeLeakyReLU(d []byte) (*LeakyReLU, error) {
	var slope serializer.Float64
	if err := serializer.DeserializeAny(d, &slope); err != nil {
		return nil, essentials.AddCtx("deserialize leaky ReLU", err)
	}
	return &LeakyReLU{Slope: float64(slope)}, nil
}

// SerializerType returns the unique ID used to serialize
// a LeakyReLU.
func (l *LeakyReLU) SerializerType() string {
	return "github.com/Hhhhhhhhhhao/I2T2I.LeakyReLU"
}

// Serialize serializes the LeakyReLU.
func (l *LeakyReLU) Serialize() ([]byte, error) {
	return serializer.SerializeAny(serializer.Float64(l.Slope))
}

// DeserializeConditionalGenerator deserializes a
// ConditionalGenerator.
//
// The image encoder is not part of the serialized form; the
// caller must re-attach one before using the generator.
func DeserializeConditionalGenerator(d []byte) (*ConditionalGenerator, error) {
	var fuser *Fuser
	var dec *Decoder
	var maxLen serializer.Int
	if err := serializer.DeserializeAny(d, &fuser, &dec, &maxLen); err != nil {
		return nil, essentials.AddCtx("deserialize generator", err)
	}
	return &ConditionalGenerator{
		Fuser:   fuser,
		Decoder: dec,
		Rollout: NewRollout(int(maxLen)),
		MaxLen:  int(maxLen),
	}, nil
}

// SerializerType returns the unique ID used to serialize
// a ConditionalGenerator.
func (g *ConditionalGenerator) SerializerType() string {
	return "github.com/Hhhhhhhhhhao/I2T2I.ConditionalGenerator"
}

// Serialize serializes the generator, excluding the image
// encoder.
func (g *ConditionalGenerator) Serialize() ([]byte, error) {
	return serializer.SerializeAny(g.Fuser, g.Decoder, serializer.Int(g.MaxLen))
}

// DeserializeSimilarityEvaluator deserializes a
// SimilarityEvaluator.
//
// The image encoder is not part of the serialized form; the
// caller must re-attach one before scoring.
func DeserializeSimilarityEvaluator(d []byte) (*SimilarityEvaluator, error) {
	var block anyrnn.Stack
	var out *anynet.FC
	var vocab serializer.Int
	if err := serializer.DeserializeAny(d, &block, &out, &vocab); err != nil {
		return nil, essentials.AddCtx("deserialize evaluator", err)
	}
	return &SimilarityEvaluator{
		Block:     block,
		Out:       out,
		VocabSize: int(vocab),
	}, nil
}

// SerializerType returns the unique ID used to serialize
// a SimilarityEvaluator.
func (e *SimilarityEvaluator) SerializerType() string {
	return "github.com/Hhhhhhhhhhao/I2T2I.SimilarityEvaluator"
}

// Serialize serializes the evaluator, excluding the image
// encoder.
func (e *SimilarityEvaluator) Serialize() ([]byte, error) {
	return serializer.SerializeAny(e.Block, e.Out, serializer.Int(e.VocabSize))
}
