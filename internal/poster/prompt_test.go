package poster

import (
	"errors"
	"strings"
	"testing"

	"festpost/internal/catalog"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog.Default() error: %v", err)
	}
	return c
}

func TestAssembleAllFestivals(t *testing.T) {
	c := testCatalog(t)
	a := NewAssembler(c, 0)
	phrase := c.StylePhrase("elegant")

	for _, f := range c.Festivals() {
		t.Run(f.ID, func(t *testing.T) {
			req := Request{BusinessName: "Acme Bakery", Tagline: "Fresh every day", Festival: f.ID, Style: "elegant"}.Normalize(c)
			prompt, err := a.Assemble(req)
			if err != nil {
				t.Fatalf("Assemble() error: %v", err)
			}
			if !strings.Contains(prompt, "'Acme Bakery'") {
				t.Errorf("prompt lacks business name: %q", prompt)
			}
			if !strings.Contains(prompt, "Fresh every day") {
				t.Errorf("prompt lacks tagline: %q", prompt)
			}
			if !strings.HasSuffix(prompt, ", "+phrase+", high quality, detailed, 8k") {
				t.Errorf("prompt lacks style and quality suffix: %q", prompt)
			}
			if strings.Contains(prompt, "{") || strings.Contains(prompt, "}") {
				t.Errorf("prompt has unresolved placeholder: %q", prompt)
			}
		})
	}
}

func TestAssembleExactPrompt(t *testing.T) {
	c := testCatalog(t)
	req := Request{BusinessName: "Acme", Tagline: "Since 1990", Festival: "holi", Style: "minimal"}.Normalize(c)

	got, err := NewAssembler(c, 0).Assemble(req)
	if err != nil {
		t.Fatal(err)
	}

	want := "Vibrant Holi festival greeting card with 'Happy Holi' written in large colorful text at center, " +
		"'Acme' prominently displayed at bottom, Since 1990, colorful powder, joyful celebration, bright colors, " +
		"professional business poster with clear typography, minimal, simple, clean, modern aesthetic, high quality, detailed, 8k"
	if got != want {
		t.Errorf("Assemble() =\n%q\nwant\n%q", got, want)
	}
}

func TestAssembleUnknownStyleFallsBack(t *testing.T) {
	c := testCatalog(t)
	req := Request{BusinessName: "Acme", Festival: "eid", Style: "psychedelic"}.Normalize(c)

	prompt, err := NewAssembler(c, 0).Assemble(req)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, c.StylePhrase("professional")) {
		t.Errorf("prompt lacks default style phrase: %q", prompt)
	}
	if req.Style != "psychedelic" {
		t.Errorf("Normalize() rewrote style to %q", req.Style)
	}
}

func TestAssembleEmptyTagline(t *testing.T) {
	c := testCatalog(t)
	req := Request{BusinessName: "Acme", Festival: "diwali"}.Normalize(c)

	prompt, err := NewAssembler(c, 0).Assemble(req)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "displayed at bottom, , warm golden lighting") {
		t.Errorf("expected empty tagline slot kept verbatim: %q", prompt)
	}
}

func TestAssembleValidation(t *testing.T) {
	c := testCatalog(t)

	tests := []struct {
		name    string
		req     Request
		field   string
		message string
	}{
		{"unknown festival", Request{BusinessName: "Acme", Festival: "not_a_real_festival"}, "festival", "Festival 'not_a_real_festival' not supported"},
		{"missing business", Request{BusinessName: "   ", Festival: "diwali"}, "business_name", "business_name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAssembler(c, 0).Assemble(tt.req.Normalize(c))
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, want %q", verr.Field, tt.field)
			}
			if verr.Error() != tt.message {
				t.Errorf("Error() = %q, want %q", verr.Error(), tt.message)
			}
		})
	}
}

func TestAssembleLengthLimit(t *testing.T) {
	c := testCatalog(t)
	req := Request{BusinessName: "Acme", Tagline: strings.Repeat("x", 500), Festival: "christmas"}.Normalize(c)

	if _, err := NewAssembler(c, 0).Assemble(req); err != nil {
		t.Fatalf("unlimited assembler error: %v", err)
	}

	_, err := NewAssembler(c, 300).Assemble(req)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "prompt" {
		t.Fatalf("error = %v, want prompt validation error", err)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	c := testCatalog(t)
	got := Request{BusinessName: "  Acme  ", Festival: " diwali "}.Normalize(c)

	want := Request{BusinessName: "Acme", Festival: "diwali", Style: "professional", AspectRatio: "1:1"}
	if got != want {
		t.Errorf("Normalize() = %+v, want %+v", got, want)
	}
}
