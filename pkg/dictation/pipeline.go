package dictation

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// CapitalizationMode controls the capitalization pass.
type CapitalizationMode int

const (
	ModeAuto CapitalizationMode = iota
	ModeAllCaps
	ModeNone
)

// String returns the string representation of a CapitalizationMode
func (m CapitalizationMode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeAllCaps:
		return "all_caps"
	case ModeNone:
		return "none"
	default:
		return "unknown"
	}
}

var (
	spaceBeforePunct = regexp.MustCompile(`\s+([.,;:!?)])`)
	punctThenText    = regexp.MustCompile(`([.,;:!?])([^\s)])`)
	afterOpening     = regexp.MustCompile(`([(\[{"])\s+`)
	beforeClosing    = regexp.MustCompile(`\s+([)\]}"])`)
	beforeBrace      = regexp.MustCompile(`\s+\{`)
	afterBrace       = regexp.MustCompile(`\}\s+`)
	multiSpace       = regexp.MustCompile(`\s{2,}`)

	sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)
	doubleQuoted     = regexp.MustCompile(`"([^"]*)"`)
)

// Actions that neither start nor end a sentence.
var neutralActions = map[string]bool{
	" ":              true,
	"{ENTER}":        true,
	"{ENTER}{ENTER}": true,
	"{TAB}":          true,
}

// Pipeline transforms raw recognized text into formatted output text:
// phrase substitution, then capitalization, then spacing, then optional
// context-specific formatting.
//
// The command table may be mutated concurrently through the CommandSet;
// the pipeline itself (capitalization mode, sentence tracking) is owned
// by a single session worker.
type Pipeline struct {
	commands *CommandSet
	mode     CapitalizationMode

	// inSentence tracks whether the most recent substitution left the
	// text mid-sentence. A mid-sentence fragment does not get its first
	// letter auto-capitalized.
	inSentence bool

	// smartPunct gates the spacing normalization pass. On by default;
	// callers that want raw recognizer spacing switch it off.
	smartPunct bool

	logger *slog.Logger
}

func NewPipeline(commands *CommandSet, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		commands:   commands,
		mode:       ModeAuto,
		smartPunct: true,
		logger:     logger.With("component", "pipeline"),
	}
}

// Process runs the substitution, capitalization and spacing passes over
// one recognized utterance.
func (p *Pipeline) Process(text string) string {
	snap := p.commands.current()
	if text == "" || snap.pattern == nil {
		return text
	}

	out, protected := p.substitute(text, snap)

	switch p.mode {
	case ModeAuto:
		out = capitalizeSentences(out, p.inSentence)
	case ModeAllCaps:
		out = strings.ToUpper(out)
	}

	if p.smartPunct {
		out = applySpacing(out)
	}
	out = strings.TrimSpace(out)

	for ph, core := range protected {
		out = strings.ReplaceAll(out, ph, core)
	}
	return out
}

// ProcessWithContext runs Process and then applies application-specific
// formatting selected by the foreground-application hint.
func (p *Pipeline) ProcessWithContext(text, appHint string) string {
	name := strings.ToLower(appHint)
	switch {
	case strings.Contains(name, "code") || strings.Contains(name, "visual studio") || strings.Contains(name, "vscode"):
		// Code editors get real line breaks; indentation after a break
		// is left as dictated.
		return strings.ReplaceAll(p.Process(text), "{ENTER}", "\n")
	case strings.Contains(name, "word") || strings.Contains(name, "document") || strings.Contains(name, "writer"):
		out := strings.ReplaceAll(p.Process(text), "--", "—")
		return doubleQuoted.ReplaceAllString(out, "“$1”")
	default:
		return p.Process(text)
	}
}

// SetCapitalizationMode switches the capitalization pass. It returns false
// for values outside the three defined modes.
func (p *Pipeline) SetCapitalizationMode(mode CapitalizationMode) bool {
	switch mode {
	case ModeAuto, ModeAllCaps, ModeNone:
		p.mode = mode
		return true
	default:
		return false
	}
}

// CapitalizationMode returns the current mode.
func (p *Pipeline) CapitalizationMode() CapitalizationMode { return p.mode }

// SetSmartPunctuation toggles the spacing normalization pass.
func (p *Pipeline) SetSmartPunctuation(enabled bool) { p.smartPunct = enabled }

// Reset clears per-utterance pipeline state. The smart punctuation
// setting is a user preference and survives a reset.
func (p *Pipeline) Reset() {
	p.mode = ModeAuto
	p.inSentence = false
}

// substitute splices command actions into the text. Matches are walked
// rightmost-to-leftmost so each splice leaves the offsets of the remaining
// (leftward) matches intact. Actions authored with explicit surrounding
// whitespace have their core swapped for a placeholder so the spacing pass
// cannot reformat it; the caller restores placeholders last.
func (p *Pipeline) substitute(text string, snap *snapshot) (string, map[string]string) {
	matches := snap.pattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	// Sentence tracking follows textual order: the rightmost substitution
	// decides whether the utterance ends mid-sentence.
	for _, m := range matches {
		action := snap.actions[strings.ToLower(text[m[0]:m[1]])]
		switch {
		case action == ActionAllCapsOn || action == ActionAllCapsOff:
		case action == "." || action == "!" || action == "?":
			p.inSentence = false
		case !neutralActions[action]:
			p.inSentence = true
		}
	}

	out := text
	protected := make(map[string]string)
	for i := len(matches) - 1; i >= 0; i-- {
		start, end := matches[i][0], matches[i][1]
		phrase := strings.ToLower(text[start:end])
		action := snap.actions[phrase]

		switch action {
		case ActionAllCapsOn:
			p.mode = ModeAllCaps
			out = out[:start] + out[end:]
			continue
		case ActionAllCapsOff:
			p.mode = ModeAuto
			out = out[:start] + out[end:]
			continue
		}

		insert := action
		if core := strings.TrimSpace(action); core != "" && core != action {
			ph := "\x00" + strconv.Itoa(i) + "\x00"
			protected[ph] = core
			insert = strings.Replace(action, core, ph, 1)
		}
		out = out[:start] + insert + out[end:]
		p.logger.Debug("replaced command", "phrase", phrase, "action", action)
	}
	return out, protected
}

// capitalizeSentences upper-cases the first letter of each sentence. The
// leading fragment is skipped when the utterance is a mid-sentence
// continuation. Brace-delimited action tokens do not count as letters.
func capitalizeSentences(text string, midSentence bool) string {
	bounds := sentenceBoundary.FindAllStringIndex(text, -1)

	var b strings.Builder
	b.Grow(len(text))
	prev := 0
	for i := 0; i <= len(bounds); i++ {
		end := len(text)
		if i < len(bounds) {
			end = bounds[i][0]
		}
		seg := text[prev:end]
		if i > 0 || !midSentence {
			seg = capitalizeFirstLetter(seg)
		}
		b.WriteString(seg)
		if i < len(bounds) {
			b.WriteString(text[bounds[i][0]:bounds[i][1]])
			prev = bounds[i][1]
		}
	}
	return b.String()
}

func capitalizeFirstLetter(seg string) string {
	depth := 0
	for i, r := range seg {
		switch {
		case r == '{':
			depth++
		case r == '}':
			if depth > 0 {
				depth--
			}
		case depth == 0 && unicode.IsLetter(r):
			if upper := unicode.ToUpper(r); upper != r {
				return seg[:i] + string(upper) + seg[i+len(string(r)):]
			}
			return seg
		}
	}
	return seg
}

// applySpacing normalizes whitespace around punctuation, brackets and
// action tokens.
func applySpacing(text string) string {
	text = spaceBeforePunct.ReplaceAllString(text, "$1")
	text = punctThenText.ReplaceAllString(text, "$1 $2")
	text = afterOpening.ReplaceAllString(text, "$1")
	text = beforeClosing.ReplaceAllString(text, "$1")
	text = beforeBrace.ReplaceAllString(text, "{")
	text = afterBrace.ReplaceAllString(text, "}")
	return multiSpace.ReplaceAllString(text, " ")
}
