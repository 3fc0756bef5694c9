package marker

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Sentinel is the glyph sequence that makes a voice-note line
// discoverable inside source text. It is matched as an opaque literal
// and never decomposed into individual runes.
const Sentinel = "🎙️ Voice Note"

// TokenKind discriminates the three shapes a bracketed token can take.
type TokenKind int

const (
	// KindID is the current form: a generated short identifier,
	// embedded as "id:<token>" and resolved through the metadata store.
	KindID TokenKind = iota
	// KindFile is the legacy form: a bare audio filename stored under
	// the workspace blob directory.
	KindFile
	// KindURL is the legacy form embedding a raw remote URL.
	KindURL
)

func (k TokenKind) String() string {
	switch k {
	case KindID:
		return "id"
	case KindFile:
		return "file"
	case KindURL:
		return "url"
	}
	return "unknown"
}

// Token is the parsed form of the bracketed marker content. Parsing
// happens once at decode time so call sites never inspect raw strings.
type Token struct {
	Kind  TokenKind
	Value string
}

// ParseToken classifies raw bracket content into its tagged form.
func ParseToken(raw string) Token {
	if rest, ok := strings.CutPrefix(raw, "id:"); ok {
		return Token{Kind: KindID, Value: rest}
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return Token{Kind: KindURL, Value: raw}
	}
	return Token{Kind: KindFile, Value: raw}
}

// Embed renders the token back into its bracketed wire form.
func (t Token) Embed() string {
	if t.Kind == KindID {
		return "id:" + t.Value
	}
	return t.Value
}

// Note carries the fields the codec embeds into source text.
type Note struct {
	Token    Token
	Duration string // display form, mm:ss
	Author   string
	Comment  string
}

// Match is one decoded marker occurrence. Line is zero-based.
type Match struct {
	Line     int
	Duration string
	Token    Token
	Author   string
	Comment  string
}

// markerRe matches the payload of a single marker line. Trailing
// content after the bracket (author attribution, closing delimiter) is
// handled separately so block styles decode the same as line styles.
var markerRe = regexp.MustCompile(`🎙️ Voice Note \(([^)]+)\) \[([^\]]+)\]`)

// Encode produces the marker text for a note: one line carrying the
// sentinel, duration, token and optional author, plus a second comment
// line when the note has a text comment. Both lines use the style's
// delimiters and end with a newline.
func Encode(n Note, s Style) string {
	var b strings.Builder

	b.WriteString(s.Prefix)
	fmt.Fprintf(&b, " %s (%s) [%s]", Sentinel, n.Duration, n.Token.Embed())
	if n.Author != "" {
		b.WriteString(" by " + n.Author)
	}
	if s.Suffix != "" {
		b.WriteString(" " + s.Suffix)
	}
	b.WriteString("\n")

	if n.Comment != "" {
		b.WriteString(s.Prefix + " " + n.Comment)
		if s.Suffix != "" {
			b.WriteString(" " + s.Suffix)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// Decode scans text for marker lines and returns every occurrence in
// order. Legacy bracket content (bare filename, raw URL) and the
// current id: form are accepted in the same pass. At most one match is
// taken per line. Decode holds no state; rescanning the same text
// yields the same result.
func Decode(text string) []Match {
	lines := strings.Split(text, "\n")
	var out []Match

	for i, line := range lines {
		m := markerRe.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}

		duration := line[m[2]:m[3]]
		token := ParseToken(line[m[4]:m[5]])
		prefix := commentPrefix(line[:m[0]])

		match := Match{
			Line:     i,
			Duration: duration,
			Token:    token,
			Author:   parseAuthor(line[m[1]:]),
		}

		// A directly following line sharing the marker's comment
		// delimiter carries the note's text comment.
		if i+1 < len(lines) {
			if c, ok := commentPayload(lines[i+1], prefix); ok {
				match.Comment = c
			}
		}

		out = append(out, match)
	}

	return out
}

// LineHasToken reports whether the line contains a marker whose token
// equals tok. Used to locate the marker line targeted by a deletion.
func LineHasToken(line string, tok Token) bool {
	m := markerRe.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	return ParseToken(m[2]) == tok
}

// FormatDuration renders an elapsed time as the display string mm:ss.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// parseAuthor extracts the "by <author>" attribution from the text
// following the closing bracket, tolerating a block-style suffix.
func parseAuthor(rest string) string {
	rest = strings.TrimSpace(rest)
	for _, suf := range []string{"-->", "*/"} {
		rest = strings.TrimSpace(strings.TrimSuffix(rest, suf))
	}
	if a, ok := strings.CutPrefix(rest, "by "); ok {
		return strings.TrimSpace(a)
	}
	return ""
}

// commentPrefix recovers the comment delimiter preceding the sentinel
// on a marker line, so the follow-up comment line can be recognized.
func commentPrefix(before string) string {
	return strings.TrimSpace(before)
}

// commentPayload returns the text of a comment line sharing the given
// delimiter, or false if the line is not such a comment or is itself a
// marker line.
func commentPayload(line, prefix string) (string, bool) {
	if prefix == "" {
		return "", false
	}
	trimmed := strings.TrimSpace(line)
	rest, ok := strings.CutPrefix(trimmed, prefix)
	if !ok || strings.Contains(rest, Sentinel) {
		return "", false
	}
	for _, suf := range []string{"-->", "*/"} {
		rest = strings.TrimSuffix(strings.TrimSpace(rest), suf)
	}
	payload := strings.TrimSpace(rest)
	if payload == "" {
		return "", false
	}
	return payload, true
}
