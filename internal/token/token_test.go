package token

import (
	"strings"
	"testing"
)

func TestGenerate_Lengths(t *testing.T) {
	cases := map[Kind]int{
		PublicID:    22,
		EditToken:   48,
		CancelToken: 64,
	}
	for kind, want := range cases {
		s, err := Generate(kind)
		if err != nil {
			t.Fatalf("Generate(%s): %v", kind, err)
		}
		if len(s) != want {
			t.Fatalf("Generate(%s) len = %d, want %d", kind, len(s), want)
		}
		for _, r := range s {
			if !strings.ContainsRune(Alphabet, r) {
				t.Fatalf("Generate(%s) produced %q outside alphabet", kind, r)
			}
		}
		if !Valid(kind, s) {
			t.Fatalf("Valid(%s, %q) = false", kind, s)
		}
	}
}

func TestGenerate_UnknownKind(t *testing.T) {
	if _, err := Generate(Kind(42)); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestGenerate_Distinct(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		s, err := Generate(CancelToken)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if _, ok := seen[s]; ok {
			t.Fatalf("duplicate token after %d draws", i)
		}
		seen[s] = struct{}{}
	}
}

func TestValid_RejectsMalformed(t *testing.T) {
	if Valid(EditToken, "") {
		t.Fatalf("empty token accepted")
	}
	if Valid(PublicID, strings.Repeat("a", 21)) {
		t.Fatalf("short token accepted")
	}
	if Valid(PublicID, strings.Repeat("a", 21)+"-") {
		t.Fatalf("token with '-' accepted")
	}
	if Valid(Kind(9), "abc") {
		t.Fatalf("unknown kind accepted")
	}
}
