package marker

import (
	"path/filepath"
	"strings"
)

// Style is the comment-delimiter pair a marker is wrapped in. Line
// styles carry only a Prefix; block styles carry both.
type Style struct {
	Prefix string
	Suffix string
}

// IsBlock reports whether the style needs a closing delimiter.
func (s Style) IsBlock() bool { return s.Suffix != "" }

var (
	styleSlash     = Style{Prefix: "//"}
	styleHash      = Style{Prefix: "#"}
	styleXML       = Style{Prefix: "<!--", Suffix: "-->"}
	styleCSS       = Style{Prefix: "/*", Suffix: "*/"}
	stylePercent   = Style{Prefix: "%"}
	styleDash      = Style{Prefix: "--"}
	styleSemicolon = Style{Prefix: ";"}
	styleRem       = Style{Prefix: "REM"}
	styleQuote     = Style{Prefix: "'"}
	styleDQuote    = Style{Prefix: `"`}
)

// styles maps a language classification to its delimiter pair.
// Languages without native comment syntax fall back to //.
var styles = map[string]Style{
	"python":       styleHash,
	"yaml":         styleHash,
	"shellscript":  styleHash,
	"makefile":     styleHash,
	"dockerfile":   styleHash,
	"perl":         styleHash,
	"ruby":         styleHash,
	"powershell":   styleHash,
	"r":            styleHash,
	"elixir":       styleHash,
	"julia":        styleHash,
	"tcl":          styleHash,
	"coffeescript": styleHash,
	"graphql":      styleHash,

	"html":     styleXML,
	"xml":      styleXML,
	"markdown": styleXML,
	"vue":      styleXML,
	"svg":      styleXML,

	"css":  styleCSS,
	"less": styleCSS,
	"sass": styleCSS,
	"scss": styleCSS,

	"latex":  stylePercent,
	"erlang": stylePercent,
	"matlab": stylePercent,

	"sql":         styleDash,
	"lua":         styleDash,
	"haskell":     styleDash,
	"ada":         styleDash,
	"vhdl":        styleDash,
	"applescript": styleDash,

	"clojure": styleSemicolon,
	"lisp":    styleSemicolon,
	"scheme":  styleSemicolon,
	"ini":     styleSemicolon,

	"bat": styleRem,

	"vb": styleQuote,

	"vim":       styleDQuote,
	"vimscript": styleDQuote,
}

// extLanguages maps file extensions to the language classification
// used by the style table, for callers that only know a path.
var extLanguages = map[string]string{
	".py":       "python",
	".yaml":     "yaml",
	".yml":      "yaml",
	".sh":       "shellscript",
	".bash":     "shellscript",
	".mk":       "makefile",
	".pl":       "perl",
	".rb":       "ruby",
	".ps1":      "powershell",
	".r":        "r",
	".ex":       "elixir",
	".exs":      "elixir",
	".jl":       "julia",
	".tcl":      "tcl",
	".coffee":   "coffeescript",
	".graphql":  "graphql",
	".html":     "html",
	".htm":      "html",
	".xml":      "xml",
	".md":       "markdown",
	".vue":      "vue",
	".svg":      "svg",
	".css":      "css",
	".less":     "less",
	".sass":     "sass",
	".scss":     "scss",
	".tex":      "latex",
	".erl":      "erlang",
	".m":        "matlab",
	".sql":      "sql",
	".lua":      "lua",
	".hs":       "haskell",
	".adb":      "ada",
	".ads":      "ada",
	".vhd":      "vhdl",
	".applescript": "applescript",
	".clj":      "clojure",
	".lisp":     "lisp",
	".scm":      "scheme",
	".ini":      "ini",
	".bat":      "bat",
	".cmd":      "bat",
	".vb":       "vb",
	".vim":      "vimscript",
}

// StyleFor returns the delimiter pair for a language classification.
func StyleFor(languageID string) Style {
	if s, ok := styles[strings.ToLower(languageID)]; ok {
		return s
	}
	return styleSlash
}

// StyleForPath classifies a source file by extension. Dockerfiles and
// Makefiles have no extension and are matched by name.
func StyleForPath(path string) Style {
	base := strings.ToLower(filepath.Base(path))
	switch base {
	case "dockerfile":
		return StyleFor("dockerfile")
	case "makefile":
		return StyleFor("makefile")
	}
	if lang, ok := extLanguages[strings.ToLower(filepath.Ext(path))]; ok {
		return StyleFor(lang)
	}
	return styleSlash
}
