package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID identifies a person or a work in the source database. Most sources use
// integer ids, but string ids are accepted too. An integer id and a string id
// are never equal, even when the string spells the same number.
type ID struct {
	num   int64
	str   string
	isStr bool
}

// IntID returns an integer id.
func IntID(n int64) ID {
	return ID{num: n}
}

// StringID returns a string id.
func StringID(s string) ID {
	return ID{str: s, isStr: true}
}

// ParseID interprets s as an integer id when it is a base 10 number and as a
// string id otherwise. It is meant for ids arriving as text, e.g. URL params.
func ParseID(s string) ID {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return IntID(n)
	}
	return StringID(s)
}

// Int returns the integer value of the id and whether the id is an integer.
func (id ID) Int() (int64, bool) {
	return id.num, !id.isStr
}

// IsString reports whether the id is a string id.
func (id ID) IsString() bool {
	return id.isStr
}

func (id ID) String() string {
	if id.isStr {
		return id.str
	}
	return strconv.FormatInt(id.num, 10)
}

// GoString renders string ids quoted so that 42 and '42' stay distinguishable.
// Strings use single quotes unless they contain a single quote and no double
// quote.
func (id ID) GoString() string {
	if id.isStr {
		return quote(id.str)
	}
	return strconv.FormatInt(id.num, 10)
}

func quote(s string) string {
	q := strconv.Quote(s)
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		return q
	}
	body := strings.ReplaceAll(q[1:len(q)-1], `\"`, `"`)
	return "'" + strings.ReplaceAll(body, "'", `\'`) + "'"
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.isStr {
		return json.Marshal(id.str)
	}
	return []byte(strconv.FormatInt(id.num, 10)), nil
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = IntID(n)
	return nil
}

// Node is a vertex of a professional graph. The same raw id may name both a
// person and a work, so identity is the pair (ID, IsPerson). Node is a value
// type and can be used as a map key.
type Node struct {
	ID       ID   `json:"id"`
	IsPerson bool `json:"is_person"`
}

// NewNode returns a node for id of the given kind.
func NewNode(id ID, isPerson bool) Node {
	return Node{ID: id, IsPerson: isPerson}
}

// PersonNode returns the person node for id.
func PersonNode(id ID) Node {
	return Node{ID: id, IsPerson: true}
}

// WorkNode returns the work node for id.
func WorkNode(id ID) Node {
	return Node{ID: id, IsPerson: false}
}

// Kind returns "person" or "work".
func (n Node) Kind() string {
	if n.IsPerson {
		return "person"
	}
	return "work"
}

// String renders the node as "<person 42>" or "<work 42>".
func (n Node) String() string {
	return fmt.Sprintf("<%s %s>", n.Kind(), n.ID)
}

// GoString renders the node as "PersonNode(42)" or "WorkNode('tt1')". This
// is the canonical sort key used wherever a node set becomes a sequence.
func (n Node) GoString() string {
	if n.IsPerson {
		return fmt.Sprintf("PersonNode(%#v)", n.ID)
	}
	return fmt.Sprintf("WorkNode(%#v)", n.ID)
}
