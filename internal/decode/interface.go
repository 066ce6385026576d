package decode

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// MemberKind is the kind of an interface member.
type MemberKind string

const (
	KindFunction MemberKind = "function"
	KindEvent    MemberKind = "event"
)

// TypeTag classifies a parameter for flattening.
type TypeTag uint8

const (
	Primitive TypeTag = iota
	Composite
	ArrayOfComposite
)

// ParamSpec describes one parameter of a function or event.
type ParamSpec struct {
	Name         string      `json:"name"`
	Type         string      `json:"type"`
	InternalType string      `json:"internalType,omitempty"`
	Indexed      bool        `json:"indexed,omitempty"`
	Components   []ParamSpec `json:"components,omitempty"`
}

// Tag returns the flattening class of the parameter.
func (p ParamSpec) Tag() TypeTag {
	switch {
	case p.Type == "tuple":
		return Composite
	case strings.HasPrefix(p.Type, "tuple["):
		return ArrayOfComposite
	default:
		return Primitive
	}
}

// Key returns the field name the parameter is decoded under. Unnamed
// top-level parameters are keyed by position.
func (p ParamSpec) Key(index int) string {
	return fieldName(p.Name, index)
}

// MemberSpec describes one function or event of an interface.
type MemberSpec struct {
	Name      string      `json:"name"`
	Kind      MemberKind  `json:"type"`
	Anonymous bool        `json:"anonymous,omitempty"`
	Inputs    []ParamSpec `json:"inputs"`

	// Selector is the topic0 hash for events; zero for functions.
	Selector common.Hash `json:"-"`
}

// Interface is a parsed contract ABI: the ordered member list plus the
// go-ethereum ABI used as the low-level decode primitive.
type Interface struct {
	Members []MemberSpec
	abi     *abi.ABI
}

var ignorableABIErrors = []*regexp.Regexp{
	regexp.MustCompile(`only single receive is allowed`),
	regexp.MustCompile(`only single fallback is allowed`),
}

// ParseInterface parses an ABI JSON document.
func ParseInterface(raw string) (*Interface, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty abi")
	}

	parsed := &abi.ABI{}
	if err := parsed.UnmarshalJSON([]byte(raw)); err != nil && !isIgnorableABIError(err) {
		return nil, fmt.Errorf("parse abi: %w", err)
	}

	var members []MemberSpec
	if err := json.Unmarshal([]byte(raw), &members); err != nil {
		return nil, fmt.Errorf("parse abi members: %w", err)
	}

	kept := make([]MemberSpec, 0, len(members))
	for _, member := range members {
		if member.Kind == "" {
			member.Kind = KindFunction
		}
		switch member.Kind {
		case KindFunction:
		case KindEvent:
			if !member.Anonymous {
				member.Selector = EventSelector(member)
			}
		default:
			continue
		}
		kept = append(kept, member)
	}

	return &Interface{Members: kept, abi: parsed}, nil
}

func isIgnorableABIError(err error) bool {
	for _, pattern := range ignorableABIErrors {
		if pattern.MatchString(err.Error()) {
			return true
		}
	}
	return false
}

// ABI returns the underlying go-ethereum ABI.
func (i *Interface) ABI() *abi.ABI {
	return i.abi
}

// Function returns the first function named name in declaration order.
// Overloads are not disambiguated.
func (i *Interface) Function(name string) (MemberSpec, bool) {
	for _, member := range i.Members {
		if member.Kind == KindFunction && member.Name == name {
			return member, true
		}
	}
	return MemberSpec{}, false
}

// EventsBySelector returns every non-anonymous event whose selector equals topic0.
func (i *Interface) EventsBySelector(topic0 common.Hash) []MemberSpec {
	var out []MemberSpec
	for _, member := range i.Members {
		if member.Kind == KindEvent && !member.Anonymous && member.Selector == topic0 {
			out = append(out, member)
		}
	}
	return out
}

func fieldName(name string, index int) string {
	if name != "" {
		return name
	}
	return "arg" + strconv.Itoa(index)
}
