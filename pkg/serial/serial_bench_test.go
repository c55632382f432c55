package serial

import "testing"

func BenchmarkDecode(b *testing.B) {
	codec := NewCodec(CodecConfig{})
	b.ReportAllocs()
	for b.Loop() {
		codec.Decode(weaponSerial)
	}
}

func BenchmarkEncode_Identity(b *testing.B) {
	codec := NewCodec(CodecConfig{})
	item := codec.Decode(weaponSerial)
	b.ReportAllocs()
	for b.Loop() {
		if _, err := codec.Encode(item); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEncode_PrimaryStat(b *testing.B) {
	codec := NewCodec(CodecConfig{})
	item := codec.Decode(weaponSerial)
	item.Stats.PrimaryStat = Int(1200)
	b.ReportAllocs()
	for b.Loop() {
		if _, err := codec.Encode(item); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecodeDigits(b *testing.B) {
	b.SetBytes(int64(len(weaponPayload)))
	for b.Loop() {
		DecodeDigits(weaponPayload)
	}
}
