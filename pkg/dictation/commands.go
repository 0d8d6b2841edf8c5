package dictation

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Sentinel actions that mutate pipeline state instead of emitting text.
const (
	ActionAllCapsOn  = "{ALLCAPS_ON}"
	ActionAllCapsOff = "{ALLCAPS_OFF}"
)

// CommandEntry is one spoken-phrase to action mapping, optionally with
// aliases that resolve to the same action.
type CommandEntry struct {
	Phrase  string   `mapstructure:"phrase" json:"phrase"`
	Action  string   `mapstructure:"action" json:"action"`
	Aliases []string `mapstructure:"aliases,omitempty" json:"aliases,omitempty"`
}

// snapshot is an immutable view of the compiled matcher plus the phrase
// table. Mutations build a fresh snapshot and publish it atomically, so a
// substitution pass running on the session worker never observes a matcher
// mid-rebuild.
type snapshot struct {
	pattern *regexp.Regexp
	actions map[string]string
	order   []string
}

// CommandSet holds the dictation command table. Reads are lock-free;
// mutations are serialized and republish the whole snapshot.
type CommandSet struct {
	mu     sync.Mutex
	snap   atomic.Pointer[snapshot]
	logger *slog.Logger
}

func NewCommandSet(entries []CommandEntry, logger *slog.Logger) *CommandSet {
	if logger == nil {
		logger = slog.Default()
	}
	cs := &CommandSet{logger: logger.With("component", "commands")}

	actions := make(map[string]string)
	var order []string
	for _, e := range entries {
		if e.Phrase == "" || e.Action == "" {
			continue
		}
		actions, order = insertPhrase(actions, order, e.Phrase, e.Action, cs.logger)
		for _, alias := range e.Aliases {
			actions, order = insertPhrase(actions, order, alias, e.Action, cs.logger)
		}
	}
	cs.snap.Store(compile(actions, order))
	return cs
}

// DefaultCommands returns the built-in command table.
func DefaultCommands() []CommandEntry {
	return []CommandEntry{
		{Phrase: "period", Action: ".", Aliases: []string{"full stop", "dot"}},
		{Phrase: "comma", Action: ","},
		{Phrase: "question mark", Action: "?"},
		{Phrase: "exclamation point", Action: "!", Aliases: []string{"exclamation mark"}},
		{Phrase: "colon", Action: ":"},
		{Phrase: "semicolon", Action: ";"},
		{Phrase: "new line", Action: "{ENTER}"},
		{Phrase: "new paragraph", Action: "{ENTER}{ENTER}"},
		{Phrase: "tab key", Action: "{TAB}", Aliases: []string{"tab"}},
		{Phrase: "space", Action: " "},
		{Phrase: "control enter", Action: "{CTRL+ENTER}"},
		{Phrase: "all caps", Action: ActionAllCapsOn},
		{Phrase: "no caps", Action: ActionAllCapsOff},
		{Phrase: "caps on", Action: "{CAPSLOCK}"},
		{Phrase: "caps off", Action: "{CAPSLOCK}"},
		{Phrase: "open parenthesis", Action: "(", Aliases: []string{"left parenthesis"}},
		{Phrase: "close parenthesis", Action: ")", Aliases: []string{"right parenthesis"}},
		{Phrase: "open bracket", Action: "[", Aliases: []string{"left bracket"}},
		{Phrase: "close bracket", Action: "]", Aliases: []string{"right bracket"}},
		{Phrase: "open brace", Action: "{", Aliases: []string{"left brace"}},
		{Phrase: "close brace", Action: "}", Aliases: []string{"right brace"}},
		{Phrase: "quote", Action: `"`, Aliases: []string{"double quote"}},
		{Phrase: "single quote", Action: "'"},
		{Phrase: "backslash", Action: `\`},
		{Phrase: "forward slash", Action: "/", Aliases: []string{"slash"}},
		{Phrase: "delete", Action: "{DELETE}"},
		{Phrase: "backspace", Action: "{BACKSPACE}"},
		{Phrase: "underscore", Action: "_"},
		{Phrase: "hyphen", Action: "-", Aliases: []string{"dash"}},
		{Phrase: "plus", Action: "+", Aliases: []string{"plus sign"}},
		{Phrase: "equals", Action: "=", Aliases: []string{"equal sign"}},
		{Phrase: "at sign", Action: "@", Aliases: []string{"at"}},
		{Phrase: "hash", Action: "#", Aliases: []string{"pound", "number sign"}},
	}
}

// Add registers a phrase (and its aliases) for an action and atomically
// republishes the compiled matcher. An existing phrase is overwritten.
func (cs *CommandSet) Add(phrase, action string, aliases ...string) bool {
	if phrase == "" || action == "" {
		return false
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cur := cs.snap.Load()
	actions, order := cloneTable(cur)
	actions, order = insertPhrase(actions, order, phrase, action, cs.logger)
	for _, alias := range aliases {
		if alias != "" {
			actions, order = insertPhrase(actions, order, alias, action, cs.logger)
		}
	}
	cs.snap.Store(compile(actions, order))
	return true
}

// Remove deletes a phrase and republishes the matcher. It returns false
// when the phrase was not registered.
func (cs *CommandSet) Remove(phrase string) bool {
	if phrase == "" {
		return false
	}
	key := strings.ToLower(phrase)

	cs.mu.Lock()
	defer cs.mu.Unlock()

	cur := cs.snap.Load()
	if _, ok := cur.actions[key]; !ok {
		return false
	}
	actions, order := cloneTable(cur)
	delete(actions, key)
	for i, p := range order {
		if p == key {
			order = append(order[:i], order[i+1:]...)
			break
		}
	}
	cs.snap.Store(compile(actions, order))
	return true
}

// Commands reports the registered commands grouped by action. The primary
// phrase of each group is the earliest-registered phrase for that action;
// later phrases become aliases. Ordering is deterministic across calls.
func (cs *CommandSet) Commands() []CommandEntry {
	snap := cs.snap.Load()

	byAction := make(map[string]int)
	var entries []CommandEntry
	for _, phrase := range snap.order {
		action := snap.actions[phrase]
		if idx, ok := byAction[action]; ok {
			entries[idx].Aliases = append(entries[idx].Aliases, phrase)
			continue
		}
		byAction[action] = len(entries)
		entries = append(entries, CommandEntry{Phrase: phrase, Action: action})
	}
	return entries
}

// Len returns the number of registered phrases, aliases included.
func (cs *CommandSet) Len() int {
	return len(cs.snap.Load().order)
}

func (cs *CommandSet) current() *snapshot {
	return cs.snap.Load()
}

func insertPhrase(actions map[string]string, order []string, phrase, action string, logger *slog.Logger) (map[string]string, []string) {
	key := strings.ToLower(strings.TrimSpace(phrase))
	if key == "" {
		return actions, order
	}
	if prev, ok := actions[key]; ok {
		if prev != action {
			logger.Warn("command phrase redefined",
				"phrase", key, "old_action", prev, "new_action", action)
		}
		actions[key] = action
		return actions, order
	}
	actions[key] = action
	return actions, append(order, key)
}

func cloneTable(snap *snapshot) (map[string]string, []string) {
	actions := make(map[string]string, len(snap.actions))
	for k, v := range snap.actions {
		actions[k] = v
	}
	order := make([]string, len(snap.order))
	copy(order, snap.order)
	return actions, order
}

// compile builds the word-boundary alternation over all phrases. Longer
// phrases sort first so a short alias never shadows a longer phrase that
// starts at the same position; ties keep registration order.
func compile(actions map[string]string, order []string) *snapshot {
	snap := &snapshot{actions: actions, order: order}
	if len(order) == 0 {
		return snap
	}

	phrases := make([]string, len(order))
	copy(phrases, order)
	sort.SliceStable(phrases, func(i, j int) bool {
		return len(phrases[i]) > len(phrases[j])
	})
	for i, p := range phrases {
		phrases[i] = regexp.QuoteMeta(p)
	}
	snap.pattern = regexp.MustCompile(`(?i)\b(` + strings.Join(phrases, "|") + `)\b`)
	return snap
}
