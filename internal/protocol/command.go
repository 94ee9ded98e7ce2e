package protocol

import "strings"

// Command words understood by the server.
const (
	CmdLogin = "LOGIN"
	CmdPing  = "PING"
	CmdMsg   = "MSG"
	CmdWho   = "WHO"
	CmdDM    = "DM"
)

// Command is one framed line split into its command word and the raw
// argument payload that followed it.
type Command struct {
	Name string // upper-cased command word
	Args string // everything after the first separator, untrimmed
}

// ParseCommand splits line at the first whitespace character.  The
// command word is upper-cased so that matching is case-insensitive.
func ParseCommand(line string) Command {
	line = strings.TrimSpace(line)
	idx := strings.IndexFunc(line, isSpace)
	if idx < 0 {
		return Command{Name: strings.ToUpper(line)}
	}
	return Command{
		Name: strings.ToUpper(line[:idx]),
		Args: line[idx+1:],
	}
}

// Arg returns the first whitespace-delimited argument and the raw
// remainder after it.
func (c Command) Arg() (first, rest string) {
	args := strings.TrimLeftFunc(c.Args, isSpace)
	idx := strings.IndexFunc(args, isSpace)
	if idx < 0 {
		return args, ""
	}
	return args[:idx], args[idx+1:]
}

// CleanText collapses every run of whitespace (spaces, tabs, CR, LF)
// into a single space and trims the result.  It is idempotent.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
