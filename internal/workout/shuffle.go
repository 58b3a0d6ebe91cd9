package workout

// splitMix64 is a tiny deterministic PRNG. The whole state is one word, so a
// day-of-year seed maps to exactly one sequence on every platform.
// See https://prng.di.unimi.it/splitmix64.c
type splitMix64 struct {
	state uint64
}

func newSplitMix64(seed uint64) *splitMix64 {
	return &splitMix64{state: seed}
}

func (s *splitMix64) next() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// intn returns a value in [0, n). The modulo bias is irrelevant for catalog sizes.
func (s *splitMix64) intn(n int) int {
	return int(s.next() % uint64(n))
}

// shuffle permutes items in place with Fisher-Yates.
func shuffle[T any](items []T, rng *splitMix64) {
	for i := len(items) - 1; i > 0; i-- {
		j := rng.intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}
