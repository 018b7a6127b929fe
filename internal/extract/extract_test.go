package extract

import (
	"errors"
	"reflect"
	"testing"
)

func TestTokens_LengthBounds(t *testing.T) {
	// 3-5 uppercase letters only: "XY" too short, "ABCDEF" too long.
	tokens, err := Tokens("buy XYZAB now, not XY or ABCDEF")
	if err != nil {
		t.Fatalf("Tokens failed: %v", err)
	}

	want := []string{"XYZAB"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("Tokens = %v, want %v", tokens, want)
	}
}

func TestTokens_DistinctAndSorted(t *testing.T) {
	tokens, err := Tokens("GME to the moon! GME GME, also AMC and BB... no wait, AMC")
	if err != nil {
		t.Fatalf("Tokens failed: %v", err)
	}

	// BB is too short; repeats collapse; output sorted ascending.
	want := []string{"AMC", "GME"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("Tokens = %v, want %v", tokens, want)
	}
}

func TestTokens_WordBoundary(t *testing.T) {
	cases := []struct {
		text string
		want []string
	}{
		{"xTSLAx", nil},          // embedded in lowercase letters
		{"TSLA123", nil},         // digit breaks the trailing boundary
		{"(TSLA)", []string{"TSLA"}}, // punctuation is a boundary
		{"$GME!", []string{"GME"}},
	}

	for _, tc := range cases {
		tokens, err := Tokens(tc.text)
		if err != nil {
			t.Fatalf("Tokens(%q) failed: %v", tc.text, err)
		}
		if !reflect.DeepEqual(tokens, tc.want) {
			t.Errorf("Tokens(%q) = %v, want %v", tc.text, tokens, tc.want)
		}
	}
}

func TestTokens_NoMatches(t *testing.T) {
	tokens, err := Tokens("nothing shouted here")
	if err != nil {
		t.Fatalf("Tokens failed: %v", err)
	}
	if len(tokens) != 0 {
		t.Errorf("Expected no tokens, got %v", tokens)
	}
}

func TestTokens_MalformedText(t *testing.T) {
	_, err := Tokens("broken \xff\xfe text")
	if !errors.Is(err, ErrMalformedText) {
		t.Errorf("Expected ErrMalformedText, got %v", err)
	}
}
