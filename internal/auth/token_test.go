package auth

import (
	"strings"
	"testing"
)

func TestGeneratePlayerToken(t *testing.T) {
	token, err := GeneratePlayerToken()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !strings.HasPrefix(token, "cl") {
		t.Errorf("Expected token to start with cl, got %q", token)
	}

	if len(token) < 34 {
		t.Errorf("Token too short: %d chars", len(token))
	}
}

func TestGeneratePlayerToken_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GeneratePlayerToken()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if seen[token] {
			t.Fatalf("Duplicate token generated: %q", token)
		}
		seen[token] = true
	}
}
