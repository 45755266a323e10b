// Package numbering implements the document numbering format engine.
// A format is an ordered sequence of tokens, either literal separators
// or named variables written {LIKE_THIS} in the stored string. The
// engine is pure: no I/O, no storage, never returns an error — malformed
// input degrades to literal text so a live-editing UI never crashes.
package numbering

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenKind discriminates literal text from a named variable.
type TokenKind string

const (
	KindLiteral  TokenKind = "literal"
	KindVariable TokenKind = "variable"
)

// Recognized variable names. This vocabulary is persisted in saved
// format strings and must stay stable.
const (
	VarCode  = "CODE"  // series short code, as-is
	VarNum3  = "NUM3"  // counter zero-padded to 3 digits
	VarNum4  = "NUM4"  // counter zero-padded to 4 digits
	VarNum5  = "NUM5"  // counter zero-padded to 5 digits
	VarYear  = "YEAR"  // 4-digit year
	VarYear2 = "YEAR2" // last 2 digits of year
	VarMonth = "MONTH" // 2-digit month
	VarType  = "TYPE"  // document type short code
)

// DefaultFormat is the fallback callers apply when an edit empties a
// format (a série must always render something).
const DefaultFormat = "{CODE}{NUM5}"

// Variables lists the closed set of recognized variable names, in the
// order settings UIs present them.
var Variables = []string{VarCode, VarNum3, VarNum4, VarNum5, VarYear, VarYear2, VarMonth, VarType}

// Token is one element of a format: either literal text or a variable name.
type Token struct {
	Kind  TokenKind `json:"kind"`
	Value string    `json:"value"`
}

// Format is an ordered token sequence. Order is significant:
// Build(Parse(s)) == s for any well-formed s.
type Format []Token

// Context carries the substitution values for Preview.
type Context struct {
	Code    string // series short code
	Counter int    // next running number
	Year    int
	Month   int
	Type    string // document type short code (e.g. "FAC", "DEV", "AV")
}

// Parse scans a format string left to right. "{" opens a variable
// capture up to the next "}"; everything outside braces accumulates as
// literal tokens. An unclosed "{" is kept as literal text.
func Parse(format string) Format {
	var tokens Format
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			tokens = append(tokens, Token{Kind: KindLiteral, Value: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(format); {
		if format[i] == '{' {
			end := strings.IndexByte(format[i+1:], '}')
			if end < 0 {
				// unclosed brace: degrade to literal
				lit.WriteString(format[i:])
				break
			}
			flush()
			tokens = append(tokens, Token{Kind: KindVariable, Value: format[i+1 : i+1+end]})
			i += end + 2
			continue
		}
		lit.WriteByte(format[i])
		i++
	}
	flush()
	return tokens
}

// Build renders a token sequence back to its stored string form,
// wrapping variables in braces. Exact inverse of Parse for any format
// Build produces.
func Build(f Format) string {
	var b strings.Builder
	for _, t := range f {
		if t.Kind == KindVariable {
			b.WriteByte('{')
			b.WriteString(t.Value)
			b.WriteByte('}')
			continue
		}
		b.WriteString(t.Value)
	}
	return b.String()
}

// AddVariable appends a variable token, returning a new sequence.
func AddVariable(f Format, name string) Format {
	out := make(Format, len(f), len(f)+1)
	copy(out, f)
	return append(out, Token{Kind: KindVariable, Value: name})
}

// AddLiteral appends a literal token, returning a new sequence.
func AddLiteral(f Format, text string) Format {
	out := make(Format, len(f), len(f)+1)
	copy(out, f)
	return append(out, Token{Kind: KindLiteral, Value: text})
}

// RemoveToken removes the token at index i, returning a new sequence.
// Out-of-range indexes leave the format unchanged. The engine may
// return an empty format; the fallback to DefaultFormat is the
// caller's policy, not the engine's.
func RemoveToken(f Format, i int) Format {
	if i < 0 || i >= len(f) {
		return f
	}
	out := make(Format, 0, len(f)-1)
	out = append(out, f[:i]...)
	return append(out, f[i+1:]...)
}

// Preview substitutes each variable from ctx. Unknown variable names
// pass through unchanged (rendered back with braces) so partially
// typed formats still produce a preview.
func Preview(f Format, ctx Context) string {
	var b strings.Builder
	for _, t := range f {
		if t.Kind == KindLiteral {
			b.WriteString(t.Value)
			continue
		}
		b.WriteString(expand(t.Value, ctx))
	}
	return b.String()
}

// Render is the convenience path used when numbering a document:
// parse the stored format string and substitute in one call.
func Render(format string, ctx Context) string {
	return Preview(Parse(format), ctx)
}

func expand(name string, ctx Context) string {
	switch name {
	case VarCode:
		return ctx.Code
	case VarNum3:
		return pad(ctx.Counter, 3)
	case VarNum4:
		return pad(ctx.Counter, 4)
	case VarNum5:
		return pad(ctx.Counter, 5)
	case VarYear:
		return fmt.Sprintf("%04d", ctx.Year)
	case VarYear2:
		return fmt.Sprintf("%02d", ctx.Year%100)
	case VarMonth:
		return fmt.Sprintf("%02d", ctx.Month)
	case VarType:
		return ctx.Type
	}
	// unknown variable: pass through for the editor to show
	return "{" + name + "}"
}

// pad zero-pads n to width digits; a counter that outgrows the width
// keeps its natural length rather than being truncated.
func pad(n, width int) string {
	s := strconv.Itoa(n)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
