package cypher

import (
	"strconv"
	"strings"
)

// defaultVarLengthCeiling bounds an unbounded upper hop count (`*N..`),
// matching the reference implementation's safety ceiling (spec.md §4.5).
// Overridden at runtime by SetVarLengthCeiling (wired to
// config.Config.VarLengthCeiling by the CLI).
const defaultVarLengthCeiling = 20

var varLengthCeiling = defaultVarLengthCeiling

// SetVarLengthCeiling overrides the ceiling an unbounded upper hop count
// (`*N..`) is clamped to. Values less than 1 are ignored.
func SetVarLengthCeiling(n int) {
	if n < 1 {
		return
	}
	varLengthCeiling = n
}

// Parse is a hand-written, token-free parser for the restricted Cypher
// grammar (spec.md §4.5). Keywords are located by substring search, not
// tokenised — a query embedding a keyword inside a string literal (e.g.
// `WHERE a.id = 'CREATE'`) can misfire, a known weakness carried over
// from the reference implementation rather than fixed here.
//
// Any construct outside the recognised grammar returns ErrUnparsable;
// callers are expected to translate that into an empty result rather
// than surface it to the end user.
func Parse(query string) (ParsedQuery, error) {
	p := &parser{src: query}
	return p.parse()
}

type parser struct {
	src string
}

func (p *parser) parse() (ParsedQuery, error) {
	idxCreate := strings.Index(p.src, "CREATE")
	idxMatch := strings.Index(p.src, "MATCH")

	if idxCreate >= 0 && (idxMatch < 0 || idxCreate < idxMatch) {
		patternStr := p.src[idxCreate+len("CREATE"):]
		pattern, err := parsePattern(patternStr)
		if err != nil {
			return ParsedQuery{}, err
		}
		return ParsedQuery{Kind: QueryCreate, Pattern: pattern}, nil
	}

	if idxMatch < 0 {
		return ParsedQuery{}, ErrUnparsable
	}

	rest := p.src[idxMatch+len("MATCH"):]
	idxWhere := indexKeyword(rest, "WHERE")
	idxReturn := indexKeyword(rest, "RETURN")
	idxDelete := indexKeyword(rest, "DELETE")

	patternEnd := firstNonNegative(len(rest), idxWhere, idxReturn, idxDelete)
	pattern, err := parsePattern(rest[:patternEnd])
	if err != nil {
		return ParsedQuery{}, err
	}

	var filters []Filter
	if idxWhere >= 0 {
		condsEnd := firstNonNegative(len(rest), idxReturn, idxDelete)
		condsStr := rest[idxWhere+len("WHERE") : condsEnd]
		filters, err = parseConds(condsStr)
		if err != nil {
			return ParsedQuery{}, err
		}
	}

	switch {
	case idxReturn >= 0:
		retsStr := rest[idxReturn+len("RETURN"):]
		rets, err := parseReturns(retsStr)
		if err != nil {
			return ParsedQuery{}, err
		}
		return ParsedQuery{Kind: QueryMatchReturn, Pattern: pattern, Filters: filters, Returns: rets}, nil
	case idxDelete >= 0:
		delsStr := rest[idxDelete+len("DELETE"):]
		dels, err := parseDeletes(delsStr)
		if err != nil {
			return ParsedQuery{}, err
		}
		return ParsedQuery{Kind: QueryMatchDelete, Pattern: pattern, Filters: filters, Deletes: dels}, nil
	default:
		return ParsedQuery{}, ErrUnparsable
	}
}

// indexKeyword is strings.Index with the same substring-search weakness
// spec.md §9 documents for the reference implementation.
func indexKeyword(s, kw string) int {
	return strings.Index(s, kw)
}

func firstNonNegative(def int, candidates ...int) int {
	best := def
	for _, c := range candidates {
		if c >= 0 && c < best {
			best = c
		}
	}
	return best
}

// parsePattern parses `(pathvar '=')? node (rel node)*`.
func parsePattern(s string) (PathPattern, error) {
	s = strings.TrimSpace(s)

	var pathVar string
	if !strings.HasPrefix(s, "(") {
		eq := strings.IndexByte(s, '=')
		if eq < 0 {
			return PathPattern{}, ErrUnparsable
		}
		pathVar = strings.TrimSpace(s[:eq])
		s = strings.TrimSpace(s[eq+1:])
	}

	var pattern PathPattern
	pattern.PathVar = pathVar

	node, rest, err := parseNode(s)
	if err != nil {
		return PathPattern{}, err
	}
	pattern.Nodes = append(pattern.Nodes, node)
	s = rest

	for {
		s = strings.TrimSpace(s)
		if s == "" {
			break
		}
		rel, rest, ok, err := parseRel(s)
		if err != nil {
			return PathPattern{}, err
		}
		if !ok {
			break
		}
		node, rest, err := parseNode(rest)
		if err != nil {
			return PathPattern{}, err
		}
		pattern.Rels = append(pattern.Rels, rel)
		pattern.Nodes = append(pattern.Nodes, node)
		s = rest
	}

	return pattern, nil
}

// parseNode parses one `(var? (:label)? ({id:'val'})?)` and returns the
// unconsumed remainder of s.
func parseNode(s string) (NodePattern, string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") {
		return NodePattern{}, "", ErrUnparsable
	}
	s = s[1:]

	var n NodePattern

	name, rest, err := scanUntilAny(s, ":{)")
	if err != nil {
		return NodePattern{}, "", err
	}
	n.Var = strings.TrimSpace(name)
	s = rest

	if strings.HasPrefix(s, ":") {
		label, rest, err := scanUntilAny(s[1:], "{)")
		if err != nil {
			return NodePattern{}, "", err
		}
		n.Label = strings.TrimSpace(label)
		s = rest
	}

	if strings.HasPrefix(s, "{") {
		close := strings.IndexByte(s, '}')
		if close < 0 {
			return NodePattern{}, "", ErrUnparsable
		}
		body := s[1:close]
		colon := strings.IndexByte(body, ':')
		if colon < 0 || strings.TrimSpace(body[:colon]) != "id" {
			return NodePattern{}, "", ErrUnparsable
		}
		val, err := scanQuoted(body[colon+1:])
		if err != nil {
			return NodePattern{}, "", err
		}
		n.ID = val
		n.HasID = true
		s = s[close+1:]
	}

	if !strings.HasPrefix(s, ")") {
		return NodePattern{}, "", ErrUnparsable
	}
	return n, s[1:], nil
}

// parseRel parses an optional `('<')? '-' '[' var? (':' type)? ('*' min
// ('..' max)?)? ']' '-' ('>')?` segment. ok is false if s does not begin
// with a relationship segment (i.e., the pattern has ended).
func parseRel(s string) (RelPattern, string, bool, error) {
	dirLeft := false
	rest := s
	if strings.HasPrefix(rest, "<-") {
		dirLeft = true
		rest = rest[2:]
	} else if strings.HasPrefix(rest, "-") {
		rest = rest[1:]
	} else {
		return RelPattern{}, s, false, nil
	}

	if !strings.HasPrefix(rest, "[") {
		return RelPattern{}, "", false, ErrUnparsable
	}
	rest = rest[1:]

	var r RelPattern
	r.MinHops, r.MaxHops = 1, 1

	name, rest2, err := scanUntilAny(rest, ":*]")
	if err != nil {
		return RelPattern{}, "", false, err
	}
	r.Var = strings.TrimSpace(name)
	rest = rest2

	if strings.HasPrefix(rest, ":") {
		typ, rest2, err := scanUntilAny(rest[1:], "*]")
		if err != nil {
			return RelPattern{}, "", false, err
		}
		r.Type = strings.TrimSpace(typ)
		rest = rest2
	}

	if strings.HasPrefix(rest, "*") {
		rest = rest[1:]
		minStr, rest2 := scanDigits(rest)
		rest = rest2
		min := 1
		if minStr != "" {
			min, err = strconv.Atoi(minStr)
			if err != nil {
				return RelPattern{}, "", false, ErrUnparsable
			}
		}
		max := min
		if strings.HasPrefix(rest, "..") {
			rest = rest[2:]
			maxStr, rest2 := scanDigits(rest)
			rest = rest2
			if maxStr == "" {
				max = varLengthCeiling
			} else {
				max, err = strconv.Atoi(maxStr)
				if err != nil {
					return RelPattern{}, "", false, ErrUnparsable
				}
			}
		}
		r.MinHops, r.MaxHops = min, max
	}

	if !strings.HasPrefix(rest, "]") {
		return RelPattern{}, "", false, ErrUnparsable
	}
	rest = rest[1:]

	if !strings.HasPrefix(rest, "-") {
		return RelPattern{}, "", false, ErrUnparsable
	}
	rest = rest[1:]

	dirRight := false
	if strings.HasPrefix(rest, ">") {
		dirRight = true
		rest = rest[1:]
	}

	switch {
	case dirLeft && !dirRight:
		r.Dir = DirIn
	case !dirLeft && dirRight:
		r.Dir = DirOut
	default:
		r.Dir = DirBoth
	}

	return r, rest, true, nil
}

// scanUntilAny reads s up to (not including) the first byte in stopSet,
// returning the scanned prefix and the remainder starting at that byte.
func scanUntilAny(s, stopSet string) (scanned, rest string, err error) {
	i := strings.IndexAny(s, stopSet)
	if i < 0 {
		return "", "", ErrUnparsable
	}
	return s[:i], s[i:], nil
}

func scanDigits(s string) (digits, rest string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}

// scanQuoted reads a single-quoted literal anywhere in s and returns its
// contents.
func scanQuoted(s string) (string, error) {
	start := strings.IndexByte(s, '\'')
	if start < 0 {
		return "", ErrUnparsable
	}
	end := strings.IndexByte(s[start+1:], '\'')
	if end < 0 {
		return "", ErrUnparsable
	}
	return s[start+1 : start+1+end], nil
}

// parseConds parses `cond (' AND ' cond)*`.
func parseConds(s string) ([]Filter, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, " AND ")
	filters := make([]Filter, 0, len(parts))
	for _, part := range parts {
		f, err := parseCond(part)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

// parseCond parses `var '.' prop '=' ''' val '''`.
func parseCond(s string) (Filter, error) {
	s = strings.TrimSpace(s)
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return Filter{}, ErrUnparsable
	}
	varName := strings.TrimSpace(s[:dot])
	rest := s[dot+1:]

	eq := strings.IndexByte(rest, '=')
	if eq < 0 {
		return Filter{}, ErrUnparsable
	}
	prop := strings.TrimSpace(rest[:eq])
	val, err := scanQuoted(rest[eq+1:])
	if err != nil {
		return Filter{}, err
	}
	return Filter{Var: varName, Prop: prop, Val: val}, nil
}

// parseReturns parses `item (',' item)*` where item is `var` or
// `var.prop`.
func parseReturns(s string) ([]ReturnItem, error) {
	items, err := splitItems(s)
	if err != nil {
		return nil, err
	}
	rets := make([]ReturnItem, 0, len(items))
	for _, it := range items {
		rets = append(rets, parseItem(it))
	}
	return rets, nil
}

// parseDeletes parses `item (',' item)*` where item is a bare variable.
func parseDeletes(s string) ([]string, error) {
	items, err := splitItems(s)
	if err != nil {
		return nil, err
	}
	dels := make([]string, 0, len(items))
	for _, it := range items {
		dels = append(dels, strings.TrimSpace(it))
	}
	return dels, nil
}

func splitItems(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrUnparsable
	}
	raw := strings.Split(s, ",")
	items := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			return nil, ErrUnparsable
		}
		items = append(items, r)
	}
	return items, nil
}

func parseItem(item string) ReturnItem {
	dot := strings.IndexByte(item, '.')
	if dot < 0 {
		return ReturnItem{Var: strings.TrimSpace(item)}
	}
	return ReturnItem{
		Var:  strings.TrimSpace(item[:dot]),
		Prop: strings.TrimSpace(item[dot+1:]),
	}
}
