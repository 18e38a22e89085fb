package codec

import (
	"testing"
)

type benchStep struct {
	K          int         `json:"k"`
	Trial      int         `json:"trial"`
	Step       int         `json:"step"`
	Likelihood Float       `json:"likelihood"`
	Mixture    [][]float64 `json:"mixture"`
	Membership []int       `json:"membership"`
	Makeone    []int       `json:"makeone"`
	FP         int         `json:"fp"`
}

func newBenchStep() benchStep {
	membership := make([]int, 500)
	for i := range membership {
		membership[i] = i % 4
	}
	return benchStep{
		K:          4,
		Trial:      2,
		Step:       7,
		Likelihood: -1234.567,
		Mixture:    [][]float64{{0.41, 0.22, 0.31, 0.06}, {0.38, 0.27, 0.29, 0.06}},
		Membership: membership,
		Makeone:    []int{0, 1, 2},
		FP:         3,
	}
}

func benchmarkCodecMarshal(b *testing.B, c Codec, v any) {
	b.Helper()
	b.ReportAllocs()

	warm, err := c.AppendLine(nil, v)
	if err != nil {
		b.Fatal(err)
	}
	b.SetBytes(int64(len(warm)))

	buf := make([]byte, 0, len(warm))
	b.ResetTimer()
	for b.Loop() {
		out, err := c.AppendLine(buf[:0], v)
		if err != nil {
			b.Fatal(err)
		}
		buf = out
	}
}

func benchmarkCodecUnmarshal[T any](b *testing.B, c Codec, data []byte, dst *T) {
	b.Helper()
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))

	var v T
	b.ResetTimer()
	for b.Loop() {
		if err := c.Unmarshal(data, &v); err != nil {
			b.Fatal(err)
		}
	}
	if dst != nil {
		*dst = v
	}
}

func BenchmarkCodec_Marshal_Step(b *testing.B) {
	step := newBenchStep()

	b.Run("stdlib", func(b *testing.B) { benchmarkCodecMarshal(b, JSON{}, step) })
	b.Run("go-json", func(b *testing.B) { benchmarkCodecMarshal(b, GoJSON{}, step) })
}

func BenchmarkCodec_Unmarshal_Step(b *testing.B) {
	data, err := JSON{}.AppendLine(nil, newBenchStep())
	if err != nil {
		b.Fatal(err)
	}

	b.Run("stdlib", func(b *testing.B) {
		var sink benchStep
		benchmarkCodecUnmarshal(b, JSON{}, data, &sink)
	})
	b.Run("go-json", func(b *testing.B) {
		var sink benchStep
		benchmarkCodecUnmarshal(b, GoJSON{}, data, &sink)
	})
}
