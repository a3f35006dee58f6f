package vocab

import (
	"reflect"
	"strings"
	"testing"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name       string
		corpus     string
		minCount   int
		wantTokens []string
		wantCounts []int
		wantEnc    []int
	}{
		{
			name:       "Empty corpus",
			corpus:     "",
			minCount:   1,
			wantTokens: []string{},
			wantCounts: []int{},
			wantEnc:    []int{},
		},
		{
			name:       "All below threshold",
			corpus:     "a b c a",
			minCount:   2,
			wantTokens: []string{Unknown},
			wantCounts: []int{4},
			wantEnc:    []int{0, 0, 0, 0},
		},
		{
			name:       "Ranked with unknown bucket",
			corpus:     "cat dog cat fish cat dog bird",
			minCount:   1,
			wantTokens: []string{"cat", "dog", Unknown},
			wantCounts: []int{3, 2, 2},
			wantEnc:    []int{0, 1, 0, 2, 0, 1, 2},
		},
		{
			name:       "Ties keep first occurrence",
			corpus:     "z y x z y x",
			minCount:   0,
			wantTokens: []string{"z", "y", "x"},
			wantCounts: []int{2, 2, 2},
			wantEnc:    []int{0, 1, 2, 0, 1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, enc := Build(strings.Fields(tt.corpus), tt.minCount)
			if got := v.Tokens(); !reflect.DeepEqual(append([]string{}, got...), tt.wantTokens) {
				t.Errorf("Build() tokens = %v, want %v", got, tt.wantTokens)
			}
			if got := v.Counts(); !reflect.DeepEqual(append([]int{}, got...), tt.wantCounts) {
				t.Errorf("Build() counts = %v, want %v", got, tt.wantCounts)
			}
			if !reflect.DeepEqual(append([]int{}, enc...), tt.wantEnc) {
				t.Errorf("Build() encoding = %v, want %v", enc, tt.wantEnc)
			}
		})
	}
}

func TestBuildCountsSumToInput(t *testing.T) {
	tokens := strings.Fields("the quick brown fox jumps over the lazy dog the fox")
	for _, minCount := range []int{0, 1, 2, 3, 10} {
		v, enc := Build(tokens, minCount)
		sum := 0
		for _, c := range v.Counts() {
			sum += c
		}
		if sum != len(tokens) {
			t.Errorf("minCount=%d: counts sum to %d, want %d", minCount, sum, len(tokens))
		}
		if len(enc) != len(tokens) {
			t.Fatalf("minCount=%d: encoded length %d, want %d", minCount, len(enc), len(tokens))
		}
		raw := map[string]int{}
		for _, tok := range tokens {
			raw[tok]++
		}
		for i, tok := range tokens {
			want := tok
			if raw[tok] <= minCount {
				want = Unknown
			}
			if got := v.Token(enc[i]); got != want {
				t.Errorf("minCount=%d: position %d decodes to %q, want %q", minCount, i, got, want)
			}
		}
	}
}

func TestBuildDeterministic(t *testing.T) {
	tokens := strings.Fields("b a c a b d e f a b c c d")
	v1, e1 := Build(tokens, 1)
	for i := 0; i < 20; i++ {
		v2, e2 := Build(tokens, 1)
		if !reflect.DeepEqual(v1.Tokens(), v2.Tokens()) || !reflect.DeepEqual(e1, e2) {
			t.Fatalf("run %d produced a different vocabulary", i)
		}
	}
}

func TestFromCounts(t *testing.T) {
	v, _ := Build(strings.Fields("a a b"), 0)
	r := FromCounts(v.Tokens(), v.Counts())
	if r.Len() != v.Len() || r.Total() != 3 {
		t.Fatalf("FromCounts() len=%d total=%d", r.Len(), r.Total())
	}
	if i, ok := r.Index("b"); !ok || i != 1 {
		t.Errorf("Index(b) = %d, %v", i, ok)
	}
	if _, ok := r.UnknownIndex(); ok {
		t.Errorf("UnknownIndex() found a bucket that was never created")
	}
}
