package events

import (
	"strconv"

	"github.com/HORNET-Storage/hornet-groups/lib/kinds"
	"github.com/HORNET-Storage/hornet-groups/lib/tags"
)

const hexDigits = "0123456789abcdef"

// Serialize returns the canonical form
//
//	[0,"<pubkey>",<created_at>,<kind>,<tags>,"<content>"]
//
// with no whitespace. Strings escape quote, backslash, \b \t \n \f \r and
// other control bytes as \u00xx; everything else, including non-ASCII
// UTF-8 and '<', '>', '&', is written verbatim.
func Serialize(pubkey string, createdAt Timestamp, kind kinds.Kind, ts tags.Tags, content string) []byte {
	dst := make([]byte, 0, 100+len(content)+len(ts)*80)
	dst = append(dst, `[0,`...)
	dst = appendString(dst, pubkey)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(createdAt), 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(kind), 10)
	dst = append(dst, ',')
	dst = appendTags(dst, ts)
	dst = append(dst, ',')
	dst = appendString(dst, content)
	return append(dst, ']')
}

// Serialize returns the canonical form of ev's signable fields.
func (ev *Event) Serialize() []byte {
	return Serialize(ev.PubKey, ev.CreatedAt, ev.Kind, ev.Tags, ev.Content)
}

func appendTags(dst []byte, ts tags.Tags) []byte {
	dst = append(dst, '[')
	for i, t := range ts {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = append(dst, '[')
		for j, f := range t {
			if j > 0 {
				dst = append(dst, ',')
			}
			dst = appendString(dst, f)
		}
		dst = append(dst, ']')
	}
	return append(dst, ']')
}

func appendString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			dst = append(dst, '\\', '"')
		case c == '\\':
			dst = append(dst, '\\', '\\')
		case c >= 0x20:
			dst = append(dst, c)
		case c == '\b':
			dst = append(dst, '\\', 'b')
		case c == '\t':
			dst = append(dst, '\\', 't')
		case c == '\n':
			dst = append(dst, '\\', 'n')
		case c == '\f':
			dst = append(dst, '\\', 'f')
		case c == '\r':
			dst = append(dst, '\\', 'r')
		default:
			dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
		}
	}
	return append(dst, '"')
}
