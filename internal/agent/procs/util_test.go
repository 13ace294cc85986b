package procs

import (
	"math"
	"testing"
)

func TestTokenized(t *testing.T) {
	t.Parallel()

	t.Run("drops stopwords and punctuation", func(t *testing.T) {
		tokens := tokenized("The Origin of the Species: a Review")
		for _, want := range []string{"origin", "species", "review"} {
			if _, ok := tokens[want]; !ok {
				t.Fatalf("missing token %q in %v", want, tokens)
			}
		}
		for _, banned := range []string{"the", "of", "a"} {
			if _, ok := tokens[banned]; ok {
				t.Fatalf("stopword %q should be dropped", banned)
			}
		}
	})

	t.Run("stopword-only phrase is empty", func(t *testing.T) {
		if tokens := tokenized("the and of"); len(tokens) != 0 {
			t.Fatalf("got %v", tokens)
		}
	})
}

func TestJaccard(t *testing.T) {
	t.Parallel()

	t.Run("identical titles", func(t *testing.T) {
		if got := jaccard("Deep Learning Methods", "Deep Learning Methods"); got != 1 {
			t.Fatalf("got %v, want 1", got)
		}
	})

	t.Run("case and punctuation insensitive", func(t *testing.T) {
		if got := jaccard("Deep-Learning methods!", "deep learning METHODS"); got != 1 {
			t.Fatalf("got %v, want 1", got)
		}
	})

	t.Run("disjoint titles", func(t *testing.T) {
		if got := jaccard("quantum gravity", "protein folding"); got != 0 {
			t.Fatalf("got %v, want 0", got)
		}
	})

	t.Run("partial overlap", func(t *testing.T) {
		got := jaccard("learning models", "learning graphs")
		if math.Abs(got-1.0/3.0) > 1e-9 {
			t.Fatalf("got %v, want 1/3", got)
		}
	})

	t.Run("no usable tokens on either side", func(t *testing.T) {
		if got := jaccard("the of", "and a"); got != 0 {
			t.Fatalf("got %v, want 0", got)
		}
	})
}

func TestProportionASCII(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		phrase string
		want   float64
	}{
		{"plain ascii", "hello world", 1},
		{"empty counts as ascii", "", 1},
		{"half and half", "abéè", 0.5},
		{"all non-ascii", "你好", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := proportionASCII(tc.phrase); math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDecodePrevious(t *testing.T) {
	t.Parallel()

	t.Run("typed pass-through", func(t *testing.T) {
		got, err := decodePrevious[string]("hello")
		if err != nil || got != "hello" {
			t.Fatalf("got %q, %v", got, err)
		}
	})

	t.Run("decoded json structures are restored", func(t *testing.T) {
		// What a []TitleCandidate looks like after a queue round-trip.
		previous := []any{
			map[string]any{
				"submission_id": float64(9),
				"title":         "A Title",
				"owner":         map[string]any{"kind": "user", "name": "jdoe"},
			},
		}
		got, err := decodePrevious[[]TitleCandidate](previous)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(got) != 1 || got[0].SubmissionID != 9 || got[0].Title != "A Title" {
			t.Fatalf("got %+v", got)
		}
		if got[0].Owner.Name != "jdoe" {
			t.Fatalf("owner lost: %+v", got[0].Owner)
		}
	})
}

func TestPreviousFloat(t *testing.T) {
	t.Parallel()

	if v, ok := previousFloat(float64(2.5)); !ok || v != 2.5 {
		t.Fatalf("float64: %v %v", v, ok)
	}
	if v, ok := previousFloat(int64(7)); !ok || v != 7 {
		t.Fatalf("int64: %v %v", v, ok)
	}
	if v, ok := previousFloat(3); !ok || v != 3 {
		t.Fatalf("int: %v %v", v, ok)
	}
	if _, ok := previousFloat("7"); ok {
		t.Fatal("strings must not convert")
	}
}
