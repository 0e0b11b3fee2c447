package bot

import (
	"strconv"
	"strings"
)

// Command names recognized in chat.
const (
	CmdRequest = "mr"
	CmdPause   = "mrpause"
	CmdPlay    = "mrplay"
	CmdSkip    = "mrskip"
	CmdVolume  = "mrvolume"
)

type Command struct {
	Name string
	Arg  string
}

// ParseCommand extracts a bot command from a chat message. Returns false
// for ordinary chat and for unknown "!" prefixes.
func ParseCommand(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "!") {
		return Command{}, false
	}

	name, arg, _ := strings.Cut(text[1:], " ")
	name = strings.ToLower(name)
	switch name {
	case CmdRequest, CmdPause, CmdPlay, CmdSkip, CmdVolume:
		return Command{Name: name, Arg: strings.TrimSpace(arg)}, true
	}
	return Command{}, false
}

// IsPrivileged reports whether the sender may use operator commands, based
// on the IRC message tags: channel moderators and the broadcaster.
func IsPrivileged(tags map[string]string) bool {
	if tags == nil {
		return false
	}
	if tags["mod"] == "1" {
		return true
	}
	for _, badge := range strings.Split(tags["badges"], ",") {
		if strings.HasPrefix(badge, "broadcaster/") {
			return true
		}
	}
	return false
}

// ParseVolume parses a 0-100 chat argument into the stored 0-1 scale.
func ParseVolume(arg string) (float64, bool) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 0 || n > 100 {
		return 0, false
	}
	return float64(n) / 100, true
}

// DisplayName picks the sender name to record on a request.
func DisplayName(m *Message) string {
	if name := m.Tags["display-name"]; name != "" {
		return name
	}
	return m.Nick
}
