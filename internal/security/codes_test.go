package security

import "testing"

func TestGenerateCode_Format(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		if len(code) != CodeDigits {
			t.Fatalf("code %q length = %d, want %d", code, len(code), CodeDigits)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("code %q contains non-digit %q", code, r)
			}
		}
		seen[code] = true
	}
	// 50 draws from a 10^6 space colliding down to a handful would indicate a
	// broken random source.
	if len(seen) < 45 {
		t.Errorf("only %d distinct codes in 50 draws", len(seen))
	}
}

func TestHashCode_Deterministic(t *testing.T) {
	code, err := GenerateCode()
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	if HashCode(code) != HashCode(code) {
		t.Error("hashing the same code twice should match")
	}
	if HashCode("000000") == HashCode("999999") {
		t.Error("different codes should hash differently")
	}
}
