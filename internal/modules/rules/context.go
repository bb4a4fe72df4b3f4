package rules

import (
	"strings"
	"time"

	"github.com/dealsentry/dealsentry/internal/domain"
)

// Context is the evaluation input handed to every rule: the contract with
// its child collections, the optional state code, and the raw contract text.
//
// Raw text supplied by the caller wins over clause concatenation; the two
// are never combined.
type Context struct {
	Contract *domain.Contract
	State    string
	Text     string

	// Now is the reference instant for age-based rules (disclosure age).
	// Tests pin it; NewContext sets it to time.Now().
	Now time.Time

	lowerText string
}

// NewContext builds a rule context from a contract. The contract text is the
// caller-supplied raw text when present, otherwise the clause texts joined
// with newlines.
func NewContext(contract *domain.Contract) *Context {
	text := contract.ContractText
	if text == "" {
		parts := make([]string, 0, len(contract.Clauses))
		for _, cl := range contract.Clauses {
			parts = append(parts, cl.Text)
		}
		text = strings.Join(parts, "\n")
	}

	return &Context{
		Contract: contract,
		State:    strings.ToUpper(contract.State),
		Text:     text,
		Now:      time.Now(),
	}
}

// LowerText returns the contract text lowercased, computed once.
func (c *Context) LowerText() string {
	if c.lowerText == "" && c.Text != "" {
		c.lowerText = strings.ToLower(c.Text)
	}
	return c.lowerText
}

// Contains reports whether the contract text contains the keyword
// (case-insensitive).
func (c *Context) Contains(keyword string) bool {
	return strings.Contains(c.LowerText(), strings.ToLower(keyword))
}

// ContainsAny reports whether the contract text contains any of the keywords.
func (c *Context) ContainsAny(keywords ...string) bool {
	for _, kw := range keywords {
		if c.Contains(kw) {
			return true
		}
	}
	return false
}

// ContainsAll reports whether the contract text contains all of the keywords.
func (c *Context) ContainsAll(keywords ...string) bool {
	for _, kw := range keywords {
		if !c.Contains(kw) {
			return false
		}
	}
	return true
}

// IsCash reports whether the contract is a cash purchase (no financing).
func (c *Context) IsCash() bool {
	return c.ContainsAny("all cash", "all-cash", "no financing", "cash offer", "cash purchase")
}

// ProvidedDisclosureNames returns the names of disclosures marked provided.
func (c *Context) ProvidedDisclosureNames() []string {
	var names []string
	for _, d := range c.Contract.Disclosures {
		if d.Provided {
			names = append(names, d.Name)
		}
	}
	return names
}

// HasProvidedDisclosure reports whether any provided disclosure name matches
// the given name by case-insensitive substring in either direction.
func (c *Context) HasProvidedDisclosure(name string) bool {
	want := strings.ToLower(name)
	for _, d := range c.Contract.Disclosures {
		if !d.Provided {
			continue
		}
		have := strings.ToLower(d.Name)
		if strings.Contains(have, want) || strings.Contains(want, have) {
			return true
		}
	}
	return false
}

// IncludedAddenda returns the addenda marked included.
func (c *Context) IncludedAddenda() []domain.Addendum {
	var out []domain.Addendum
	for _, a := range c.Contract.Addenda {
		if a.Included {
			out = append(out, a)
		}
	}
	return out
}
