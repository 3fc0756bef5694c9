package marker

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	n := Note{
		Token:    Token{Kind: KindID, Value: "ab12cd34"},
		Duration: "01:23",
		Author:   "@alice",
		Comment:  "fix this",
	}

	text := Encode(n, StyleFor("go"))

	matches := Decode(text)
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, 0, m.Line)
	assert.Equal(t, "01:23", m.Duration)
	assert.Equal(t, Token{Kind: KindID, Value: "ab12cd34"}, m.Token)
	assert.Equal(t, "@alice", m.Author)
	assert.Equal(t, "fix this", m.Comment)
}

func TestEncodeBlockStyleDelimiters(t *testing.T) {
	n := Note{Token: Token{Kind: KindID, Value: "ab12cd34"}, Duration: "00:05"}

	out := Encode(n, StyleFor("html"))
	line := strings.TrimSuffix(out, "\n")
	assert.True(t, strings.HasPrefix(line, "<!--"), "missing opening delimiter: %q", line)
	assert.True(t, strings.HasSuffix(line, "-->"), "missing closing delimiter: %q", line)

	out = Encode(n, StyleFor("python"))
	line = strings.TrimSuffix(out, "\n")
	assert.True(t, strings.HasPrefix(line, "#"), "missing prefix: %q", line)
	assert.False(t, strings.Contains(line, "-->"))
	assert.False(t, strings.Contains(line, "*/"))
}

func TestEncodeBlockStyleRoundTrip(t *testing.T) {
	n := Note{
		Token:    Token{Kind: KindID, Value: "ffee0011"},
		Duration: "00:42",
		Author:   "bob",
		Comment:  "check the margin here",
	}

	matches := Decode(Encode(n, StyleFor("css")))
	require.Len(t, matches, 1)
	assert.Equal(t, "bob", matches[0].Author)
	assert.Equal(t, "check the margin here", matches[0].Comment)
}

func TestDecodeLegacyForms(t *testing.T) {
	text := strings.Join([]string{
		"func main() {",
		"\t// 🎙️ Voice Note (00:05) [a1b2c3d4e5f6a7b8.wav]",
		"\tprintln()",
		"# 🎙️ Voice Note (02:10) [https://host/v/abc.wav]",
		"}",
	}, "\n")

	matches := Decode(text)
	require.Len(t, matches, 2)

	assert.Equal(t, 1, matches[0].Line)
	assert.Equal(t, Token{Kind: KindFile, Value: "a1b2c3d4e5f6a7b8.wav"}, matches[0].Token)
	assert.Empty(t, matches[0].Author)
	assert.Empty(t, matches[0].Comment)

	assert.Equal(t, 3, matches[1].Line)
	assert.Equal(t, Token{Kind: KindURL, Value: "https://host/v/abc.wav"}, matches[1].Token)
	assert.Equal(t, "02:10", matches[1].Duration)
}

func TestDecodeMixedFormsSamePass(t *testing.T) {
	text := "// 🎙️ Voice Note (00:01) [id:aa] \n// 🎙️ Voice Note (00:02) [bb.wav]\n"

	matches := Decode(text)
	require.Len(t, matches, 2)
	assert.Equal(t, KindID, matches[0].Token.Kind)
	assert.Equal(t, KindFile, matches[1].Token.Kind)
}

func TestDecodeIsRestartable(t *testing.T) {
	text := "// 🎙️ Voice Note (00:05) [id:ab12cd34]\n"
	first := Decode(text)
	second := Decode(text)
	assert.Equal(t, first, second)
}

func TestDecodeFirstMatchPerLine(t *testing.T) {
	text := "// 🎙️ Voice Note (00:01) [id:aa] 🎙️ Voice Note (00:02) [id:bb]\n"
	matches := Decode(text)
	require.Len(t, matches, 1)
	assert.Equal(t, "aa", matches[0].Token.Value)
}

func TestDecodeFollowingMarkerIsNotComment(t *testing.T) {
	text := "// 🎙️ Voice Note (00:01) [id:aa]\n// 🎙️ Voice Note (00:02) [id:bb]\n"
	matches := Decode(text)
	require.Len(t, matches, 2)
	assert.Empty(t, matches[0].Comment)
}

func TestLineHasToken(t *testing.T) {
	line := "\t// 🎙️ Voice Note (00:05) [id:ab12cd34] by bob"
	assert.True(t, LineHasToken(line, Token{Kind: KindID, Value: "ab12cd34"}))
	assert.False(t, LineHasToken(line, Token{Kind: KindID, Value: "other"}))
	assert.False(t, LineHasToken("plain code", Token{Kind: KindID, Value: "ab12cd34"}))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00", FormatDuration(0))
	assert.Equal(t, "00:05", FormatDuration(5*time.Second))
	assert.Equal(t, "01:23", FormatDuration(83*time.Second))
	assert.Equal(t, "10:00", FormatDuration(10*time.Minute))
	assert.Equal(t, "00:00", FormatDuration(-3*time.Second))
}

func TestStyleForPath(t *testing.T) {
	assert.Equal(t, StyleFor("python"), StyleForPath("/src/app.py"))
	assert.Equal(t, StyleFor("html"), StyleForPath("index.html"))
	assert.Equal(t, StyleFor("makefile"), StyleForPath("/repo/Makefile"))
	assert.Equal(t, Style{Prefix: "//"}, StyleForPath("main.go"))
	assert.Equal(t, Style{Prefix: "//"}, StyleForPath("noext"))
}
