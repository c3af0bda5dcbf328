package astio

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is one decoded `*.ast.yaml` file produced by the external parser.
type Document struct {
	Path       string  `yaml:"path"`
	Module     bool    `yaml:"module"`
	Text       string  `yaml:"text"`
	Statements []*Node `yaml:"statements"`
}

// Node is the generic document node. A bare scalar decodes as an Identifier
// whose text is the scalar value.
type Node struct {
	Kind  string   `yaml:"kind"`
	Span  []uint32 `yaml:"span"`
	Flags flagList `yaml:"flags"`
	Text  string   `yaml:"text"`
	Value *float64 `yaml:"value"`
	Op    string   `yaml:"op"`
	From  string   `yaml:"from"`

	Name       *Node `yaml:"name"`
	Type       *Node `yaml:"type"`
	Init       *Node `yaml:"init"`
	Body       *Node `yaml:"body"`
	Expr       *Node `yaml:"expr"`
	Left       *Node `yaml:"left"`
	Right      *Node `yaml:"right"`
	Then       *Node `yaml:"then"`
	Else       *Node `yaml:"else"`
	Cond       *Node `yaml:"cond"`
	Incr       *Node `yaml:"incr"`
	Label      *Node `yaml:"label"`
	Constraint *Node `yaml:"constraint"`
	Default    *Node `yaml:"default"`
	Block      *Node `yaml:"block"`
	Catch      *Node `yaml:"catch"`
	Finally    *Node `yaml:"finally"`
	Check      *Node `yaml:"check"`
	KeyType    *Node `yaml:"keyType"`
	Param      *Node `yaml:"param"`

	Params     []*Node  `yaml:"params"`
	TypeParams []*Node  `yaml:"typeParams"`
	TypeArgs   []*Node  `yaml:"typeArgs"`
	Args       []*Node  `yaml:"args"`
	Members    []*Node  `yaml:"members"`
	Items      []*Node  `yaml:"items"`
	Extends    nodeList `yaml:"extends"`
	Implements []*Node  `yaml:"implements"`

	line int
}

type nodeFields Node

// UnmarshalYAML accepts the identifier shorthand and records source lines
// for error messages.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			return nil
		}
		*n = Node{Kind: "Identifier", Text: value.Value, line: value.Line}
		return nil
	case yaml.MappingNode:
		var f nodeFields
		if err := value.Decode(&f); err != nil {
			return err
		}
		*n = Node(f)
		n.line = value.Line
		if n.Kind == "" {
			return &Error{Line: value.Line, Msg: "node without kind"}
		}
		return nil
	case yaml.AliasNode:
		return n.UnmarshalYAML(value.Alias)
	default:
		return &Error{Line: value.Line, Msg: fmt.Sprintf("expected node mapping but found %s", value.ShortTag())}
	}
}

type nodeList []*Node

func (l *nodeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		items := make([]*Node, 0, len(value.Content))
		for _, c := range value.Content {
			var n Node
			if err := c.Decode(&n); err != nil {
				return err
			}
			items = append(items, &n)
		}
		*l = items
		return nil
	case 0:
		*l = nil
		return nil
	default:
		var n Node
		if err := value.Decode(&n); err != nil {
			return err
		}
		*l = nodeList{&n}
		return nil
	}
}

type flagList []string

func (l *flagList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" || strings.TrimSpace(value.Value) == "" {
			*l = nil
			return nil
		}
		*l = strings.Fields(strings.ReplaceAll(value.Value, ",", " "))
		return nil
	case yaml.SequenceNode:
		items := make([]string, 0, len(value.Content))
		for _, c := range value.Content {
			var s string
			if err := c.Decode(&s); err != nil {
				return err
			}
			items = append(items, strings.TrimSpace(s))
		}
		*l = items
		return nil
	default:
		return &Error{Line: value.Line, Msg: "flags must be a string or a sequence"}
	}
}

// Error is a malformed-document error with the YAML line it was found on.
type Error struct {
	Path string
	Line int
	Msg  string
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Decode reads one AST document. Unknown top-level fields are rejected.
func Decode(r io.Reader, path string) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("astio: %s is empty", path)
		}
		var de *Error
		if errors.As(err, &de) && de.Path == "" {
			de.Path = path
		}
		return nil, fmt.Errorf("astio: parse %s: %w", path, err)
	}
	if doc.Path == "" {
		doc.Path = path
	}
	return &doc, nil
}
