package graph

import "encoding/binary"

// Key family tags. A single leading byte distinguishes the four key
// families, so each family occupies its own contiguous key range and
// scans of one family never touch another. pkg/storage configures no
// separate prefix extractor (see badger.go).
const (
	tagNode       byte = 'N' // N<id> -> label
	tagLabelIndex byte = 'L' // L<label><id> -> empty
	tagOutgoing   byte = 'O' // O<from><type><to> -> empty
	tagIncoming   byte = 'I' // I<to><type><from> -> empty
)

// Fields inside composite keys are length-prefixed with a 4-byte
// big-endian length rather than separated with a literal ':', so node
// ids, labels and edge types may contain any byte value including ':'
// itself. This is the one deviation from the historical key format the
// reference implementation used (see SPEC_FULL.md, open question 5).
func putField(buf []byte, s string) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, s...)
	return buf
}

// readField decodes one length-prefixed field starting at buf[0] and
// returns the field and the remainder of buf. ok is false if buf is
// too short to contain a well-formed field.
func readField(buf []byte) (field string, rest []byte, ok bool) {
	if len(buf) < 4 {
		return "", nil, false
	}
	n := binary.BigEndian.Uint32(buf[:4])
	buf = buf[4:]
	if uint32(len(buf)) < n {
		return "", nil, false
	}
	return string(buf[:n]), buf[n:], true
}

func nodeKey(id string) []byte {
	buf := make([]byte, 0, 1+len(id))
	buf = append(buf, tagNode)
	buf = append(buf, id...)
	return buf
}

func labelIndexKey(label, id string) []byte {
	buf := make([]byte, 0, 1+8+len(label)+len(id))
	buf = append(buf, tagLabelIndex)
	buf = putField(buf, label)
	buf = putField(buf, id)
	return buf
}

// labelIndexPrefix scans every id currently carrying label.
func labelIndexPrefix(label string) []byte {
	buf := make([]byte, 0, 1+4+len(label))
	buf = append(buf, tagLabelIndex)
	buf = putField(buf, label)
	return buf
}

func outgoingKey(from, edgeType, to string) []byte {
	buf := make([]byte, 0, 1+12+len(from)+len(edgeType)+len(to))
	buf = append(buf, tagOutgoing)
	buf = putField(buf, from)
	buf = putField(buf, edgeType)
	buf = putField(buf, to)
	return buf
}

func incomingKey(to, edgeType, from string) []byte {
	buf := make([]byte, 0, 1+12+len(to)+len(edgeType)+len(from))
	buf = append(buf, tagIncoming)
	buf = putField(buf, to)
	buf = putField(buf, edgeType)
	buf = putField(buf, from)
	return buf
}

// outgoingPrefix scans the outgoing-edge family rooted at node.
// When edgeType is empty the prefix covers every type, matching the
// "type as any type" calling convention documented in spec.md §9.
func outgoingPrefix(node, edgeType string) []byte {
	buf := make([]byte, 0, 1+8+len(node)+len(edgeType))
	buf = append(buf, tagOutgoing)
	buf = putField(buf, node)
	if edgeType != "" {
		buf = putField(buf, edgeType)
	}
	return buf
}

func incomingPrefix(node, edgeType string) []byte {
	buf := make([]byte, 0, 1+8+len(node)+len(edgeType))
	buf = append(buf, tagIncoming)
	buf = putField(buf, node)
	if edgeType != "" {
		buf = putField(buf, edgeType)
	}
	return buf
}

func outgoingNodePrefix(node string) []byte {
	buf := make([]byte, 0, 1+4+len(node))
	buf = append(buf, tagOutgoing)
	buf = putField(buf, node)
	return buf
}

func incomingNodePrefix(node string) []byte {
	buf := make([]byte, 0, 1+4+len(node))
	buf = append(buf, tagIncoming)
	buf = putField(buf, node)
	return buf
}

// neighbor holds one decoded endpoint of an edge index entry.
type neighbor struct {
	ID   string
	Type string
}

// decodeOutgoingKey splits an O-family key back into (from, type, to).
// Callers that already know `from` (the common case, since they built
// the scan prefix from it) only need the trailing (type, to) pair.
func decodeOutgoingKey(key []byte) (from, edgeType, to string, ok bool) {
	if len(key) == 0 || key[0] != tagOutgoing {
		return "", "", "", false
	}
	rest := key[1:]
	from, rest, ok = readField(rest)
	if !ok {
		return "", "", "", false
	}
	edgeType, rest, ok = readField(rest)
	if !ok {
		return "", "", "", false
	}
	to, rest, ok = readField(rest)
	if !ok || len(rest) != 0 {
		return "", "", "", false
	}
	return from, edgeType, to, true
}

func decodeIncomingKey(key []byte) (to, edgeType, from string, ok bool) {
	if len(key) == 0 || key[0] != tagIncoming {
		return "", "", "", false
	}
	rest := key[1:]
	to, rest, ok = readField(rest)
	if !ok {
		return "", "", "", false
	}
	edgeType, rest, ok = readField(rest)
	if !ok {
		return "", "", "", false
	}
	from, rest, ok = readField(rest)
	if !ok || len(rest) != 0 {
		return "", "", "", false
	}
	return to, edgeType, from, true
}

func decodeNodeKey(key []byte) (id string, ok bool) {
	if len(key) == 0 || key[0] != tagNode {
		return "", false
	}
	return string(key[1:]), true
}

func decodeLabelIndexKey(key []byte) (label, id string, ok bool) {
	if len(key) == 0 || key[0] != tagLabelIndex {
		return "", "", false
	}
	rest := key[1:]
	label, rest, ok = readField(rest)
	if !ok {
		return "", "", false
	}
	id, rest, ok = readField(rest)
	if !ok || len(rest) != 0 {
		return "", "", false
	}
	return label, id, true
}
