package flowpipe

import (
	"fmt"
	"strings"
)

// Predicate is a parsed step condition, evaluated against context state
// before each step. Conditions are parsed once at load time into this small
// tagged form rather than interpreted as free-form expressions at run time,
// so a malformed condition is a load error, not a silent runtime surprise.
type Predicate interface {
	// Evaluate reports whether the step should execute.
	Evaluate(fc *Context) bool

	// String returns the canonical form of the predicate.
	String() string
}

// FlagTrue returns a predicate that is true when the context value for key
// is truthy. Missing keys are false.
func FlagTrue(key string) Predicate {
	return flagTrue{key: key}
}

// FlagEquals returns a predicate that is true when the context value for
// key renders equal to literal. Comparison is textual, so the flag values
// "true" and true compare equal.
func FlagEquals(key, literal string) Predicate {
	return flagEquals{key: key, literal: literal}
}

// Not returns the negation of a predicate.
func Not(p Predicate) Predicate {
	return notPred{inner: p}
}

type flagTrue struct {
	key string
}

func (p flagTrue) Evaluate(fc *Context) bool {
	v, ok := fc.Lookup(p.key)
	if !ok {
		return false
	}
	return isTruthy(v)
}

func (p flagTrue) String() string { return p.key }

type flagEquals struct {
	key     string
	literal string
}

func (p flagEquals) Evaluate(fc *Context) bool {
	v, ok := fc.Lookup(p.key)
	if !ok {
		return false
	}
	return fmt.Sprintf("%v", v) == p.literal
}

func (p flagEquals) String() string { return fmt.Sprintf("%s == '%s'", p.key, p.literal) }

type notPred struct {
	inner Predicate
}

func (p notPred) Evaluate(fc *Context) bool { return !p.inner.Evaluate(fc) }

func (p notPred) String() string { return "not " + p.inner.String() }

// ParseCondition parses a condition string into a Predicate.
//
// Grammar:
//
//	<cond>  := 'not ' <cond> | '!' <cond> | <key> '==' <value>
//	         | <key> '!=' <value> | <key>
//	<value> := 'literal' | "literal" | bare-word
//
// The key typically names a config flag in the reserved namespace
// (e.g. _config_enable_cache). An empty string is an error; steps with no
// condition should leave Condition unset instead.
func ParseCondition(s string) (Predicate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty condition", ErrInvalidCondition)
	}

	if rest, ok := strings.CutPrefix(s, "not "); ok {
		inner, err := ParseCondition(rest)
		if err != nil {
			return nil, err
		}
		return Not(inner), nil
	}
	if rest, ok := strings.CutPrefix(s, "!"); ok {
		inner, err := ParseCondition(rest)
		if err != nil {
			return nil, err
		}
		return Not(inner), nil
	}

	if key, value, ok := strings.Cut(s, "!="); ok {
		p, err := equalsPredicate(key, value)
		if err != nil {
			return nil, err
		}
		return Not(p), nil
	}
	if key, value, ok := strings.Cut(s, "=="); ok {
		return equalsPredicate(key, value)
	}

	if !isBareWord(s) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCondition, s)
	}
	return FlagTrue(s), nil
}

func equalsPredicate(key, value string) (Predicate, error) {
	key = strings.TrimSpace(key)
	if !isBareWord(key) {
		return nil, fmt.Errorf("%w: bad key %q", ErrInvalidCondition, key)
	}
	literal, err := unquote(strings.TrimSpace(value))
	if err != nil {
		return nil, err
	}
	return FlagEquals(key, literal), nil
}

// unquote strips matching single or double quotes. Bare words pass through.
func unquote(s string) (string, error) {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1], nil
		}
	}
	if !isBareWord(s) {
		return "", fmt.Errorf("%w: bad literal %q", ErrInvalidCondition, s)
	}
	return s, nil
}

// isBareWord accepts identifiers made of letters, digits, '_', '-', and '.'.
func isBareWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '-', r == '.':
		default:
			return false
		}
	}
	return true
}

// isTruthy reports whether a context value counts as true for FlagTrue.
// Config flags are commonly carried as the strings "true"/"false", so
// those render as their boolean value rather than as non-empty strings.
func isTruthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		switch strings.ToLower(val) {
		case "", "false", "0":
			return false
		}
		return true
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	default:
		return true
	}
}
