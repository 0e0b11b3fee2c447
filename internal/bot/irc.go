package bot

import "strings"

// Message is a parsed IRC line as Twitch sends it: optional @tags, optional
// :prefix, command, params, and a trailing text segment.
type Message struct {
	Tags    map[string]string
	Nick    string
	Command string
	Params  []string
	Text    string
}

// Channel returns the channel a PRIVMSG was sent to, without the '#'.
func (m *Message) Channel() string {
	if len(m.Params) == 0 {
		return ""
	}
	return strings.TrimPrefix(m.Params[0], "#")
}

// parseLine parses a single IRC line. Returns nil for lines too malformed
// to act on; the read loop just skips those.
func parseLine(line string) *Message {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil
	}

	m := &Message{}

	if strings.HasPrefix(line, "@") {
		cut := strings.IndexByte(line, ' ')
		if cut < 0 {
			return nil
		}
		m.Tags = parseTags(line[1:cut])
		line = line[cut+1:]
	}

	if strings.HasPrefix(line, ":") {
		cut := strings.IndexByte(line, ' ')
		if cut < 0 {
			return nil
		}
		prefix := line[1:cut]
		if bang := strings.IndexByte(prefix, '!'); bang >= 0 {
			m.Nick = prefix[:bang]
		} else {
			m.Nick = prefix
		}
		line = line[cut+1:]
	}

	if trail := strings.Index(line, " :"); trail >= 0 {
		m.Text = line[trail+2:]
		line = line[:trail]
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	m.Command = fields[0]
	m.Params = fields[1:]
	return m
}

// parseTags splits the IRCv3 tag segment and unescapes values.
func parseTags(s string) map[string]string {
	tags := make(map[string]string)
	for _, pair := range strings.Split(s, ";") {
		key, value, _ := strings.Cut(pair, "=")
		tags[key] = unescapeTag(value)
	}
	return tags
}

func unescapeTag(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case ':':
			b.WriteByte(';')
		case 's':
			b.WriteByte(' ')
		case 'r':
			b.WriteByte('\r')
		case 'n':
			b.WriteByte('\n')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
