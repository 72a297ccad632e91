package passgen

import "testing"

func TestGenerateLength(t *testing.T) {
	for _, n := range []int{1, 10, 32} {
		s, err := Generate(n, "")
		if err != nil {
			t.Fatalf("Generate(%d, \"\"): %v", n, err)
		}
		if len(s) != n {
			t.Fatalf("Generate(%d, \"\") returned length %d", n, len(s))
		}
	}
}

func TestGenerateDefaultsOnZeroLength(t *testing.T) {
	s, err := Generate(0, "")
	if err != nil {
		t.Fatalf("Generate(0, \"\"): %v", err)
	}
	if len(s) != DefaultLength {
		t.Fatalf("Generate(0, \"\") returned length %d, want %d", len(s), DefaultLength)
	}
}

func TestGenerateUsesCharset(t *testing.T) {
	const charset = "ab"
	s, err := Generate(200, charset)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, c := range s {
		if c != 'a' && c != 'b' {
			t.Fatalf("Generate produced character %q outside the charset %q", c, charset)
		}
	}
}

func TestGenerateIsRandom(t *testing.T) {
	s1, err := GeneratePassword()
	if err != nil {
		t.Fatalf("GeneratePassword: %v", err)
	}
	s2, err := GeneratePassword()
	if err != nil {
		t.Fatalf("GeneratePassword: %v", err)
	}
	if s1 == s2 {
		t.Fatal("two GeneratePassword() calls returned identical output")
	}
	if len(s1) != DefaultLength {
		t.Fatalf("GeneratePassword length = %d, want %d", len(s1), DefaultLength)
	}
}
