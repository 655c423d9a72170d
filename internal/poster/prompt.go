package poster

import (
	"strings"
	"unicode/utf8"

	"festpost/internal/catalog"
)

const qualitySuffix = "high quality, detailed, 8k"

type Request struct {
	BusinessName string `json:"business_name"`
	Tagline      string `json:"tagline"`
	Festival     string `json:"festival"`
	Style        string `json:"style"`
	AspectRatio  string `json:"aspect_ratio"`
}

// Normalize trims every field and fills in the default style and ratio.
// Unknown style or ratio values are kept as given; the catalog resolves
// them to defaults at lookup time.
func (r Request) Normalize(c *catalog.Catalog) Request {
	r.BusinessName = strings.TrimSpace(r.BusinessName)
	r.Tagline = strings.TrimSpace(r.Tagline)
	r.Festival = strings.TrimSpace(r.Festival)
	r.Style = strings.TrimSpace(r.Style)
	r.AspectRatio = strings.TrimSpace(r.AspectRatio)

	if r.Style == "" {
		r.Style = c.DefaultStyle()
	}
	if r.AspectRatio == "" {
		r.AspectRatio = c.DefaultAspectRatio()
	}
	return r
}

type Assembler struct {
	catalog  *catalog.Catalog
	maxRunes int
}

// NewAssembler returns an Assembler over c. A maxRunes of zero or less
// disables the prompt length check.
func NewAssembler(c *catalog.Catalog, maxRunes int) *Assembler {
	return &Assembler{catalog: c, maxRunes: maxRunes}
}

// Assemble builds the final prompt. The request is expected to be
// normalized already.
func (a *Assembler) Assemble(req Request) (string, error) {
	if req.BusinessName == "" {
		return "", validationf("business_name", "business_name is required")
	}

	fest, ok := a.catalog.Festival(req.Festival)
	if !ok {
		return "", validationf("festival", "Festival '%s' not supported", req.Festival)
	}

	replacer := strings.NewReplacer(
		catalog.PlaceholderBusinessName, req.BusinessName,
		catalog.PlaceholderTagline, req.Tagline,
	)

	var b strings.Builder
	b.WriteString(replacer.Replace(fest.Template))
	b.WriteString(", ")
	b.WriteString(a.catalog.StylePhrase(req.Style))
	b.WriteString(", ")
	b.WriteString(qualitySuffix)

	prompt := b.String()
	if a.maxRunes > 0 {
		if n := utf8.RuneCountInString(prompt); n > a.maxRunes {
			return "", validationf("prompt", "prompt is %d characters long, limit is %d; shorten business_name or tagline", n, a.maxRunes)
		}
	}
	return prompt, nil
}
