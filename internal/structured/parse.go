// Package structured recovers a JSON value from model output text.
//
// Model responses wrap JSON in code fences, prose, or both. Parse tries a fixed
// sequence of extraction methods from strict to lenient and stops at the first
// one that yields a value of the requested shape. Failure is reported as a
// value; callers apply their own fallback policy.
package structured

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Shape is the kind of JSON value a caller expects.
type Shape int

const (
	// ShapeAny accepts any JSON value, scalars included
	ShapeAny Shape = iota
	// ShapeObject accepts only an object
	ShapeObject
	// ShapeArray accepts only an array
	ShapeArray
)

// String returns the shape name for logs.
func (s Shape) String() string {
	switch s {
	case ShapeObject:
		return "object"
	case ShapeArray:
		return "array"
	default:
		return "any"
	}
}

// Method names the extraction step that produced a value.
type Method string

const (
	MethodDirect      Method = "direct"
	MethodLastFence   Method = "last_fence"
	MethodAnyFence    Method = "any_fence"
	MethodBrackets    Method = "brackets"
	MethodBraces      Method = "braces"
	MethodCollapsed   Method = "braces_collapsed"
	MethodUnrecovered Method = ""
)

var (
	// fencePattern matches ```json ... ``` or ``` ... ``` blocks, non-greedy so
	// every block in a response is enumerated separately.
	fencePattern = regexp.MustCompile("(?s)```[ \t]*(?:json|JSON)?[ \t]*\r?\n?(.*?)```")

	// preamblePattern matches a leading "here is the json" sentence inside a fence.
	preamblePattern = regexp.MustCompile(`(?i)^\s*here(?:'s| is) the json[^\n{\[]*`)

	whitespaceRun = regexp.MustCompile(`\s+`)
)

// Parse recovers one JSON value of the given shape from text.
// It returns (nil, false) when no method succeeds; it never returns a partial value.
func Parse(text string, shape Shape) (any, bool) {
	v, m := ParseWithMethod(text, shape)
	return v, m != MethodUnrecovered
}

// ParseWithMethod is Parse that also reports which extraction method succeeded.
//
// Once the trimmed text or a fenced block parses as JSON, that value is final:
// a shape mismatch is a failure and the lenient substring methods are not tried.
func ParseWithMethod(text string, shape Shape) (any, Method) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, MethodUnrecovered
	}

	if v, ok := decode(trimmed); ok {
		return settle(v, shape, MethodDirect)
	}

	blocks := fencedBlocks(text)
	if len(blocks) > 0 {
		last := preamblePattern.ReplaceAllString(blocks[len(blocks)-1], "")
		if v, ok := decode(last); ok {
			return settle(v, shape, MethodLastFence)
		}

		for i := len(blocks) - 1; i >= 0; i-- {
			if v, ok := decode(blocks[i]); ok {
				return settle(v, shape, MethodAnyFence)
			}
		}
	}

	if shape == ShapeArray {
		if sub, ok := between(text, "[", "]"); ok {
			if v, ok := decode(sub); ok && fits(v, shape) {
				return v, MethodBrackets
			}
		}
	}

	if sub, ok := between(text, "{", "}"); ok {
		if v, ok := decode(sub); ok && fits(v, shape) {
			return v, MethodBraces
		}
		if v, ok := decode(whitespaceRun.ReplaceAllString(sub, " ")); ok && fits(v, shape) {
			return v, MethodCollapsed
		}
	}

	return nil, MethodUnrecovered
}

// ParseObject recovers a JSON object. A recovered array is a failure.
func ParseObject(text string) (map[string]any, bool) {
	v, ok := Parse(text, ShapeObject)
	if !ok {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}

// ParseArray recovers a JSON array. A recovered object is a failure.
func ParseArray(text string) ([]any, bool) {
	v, ok := Parse(text, ShapeArray)
	if !ok {
		return nil, false
	}
	arr, ok := v.([]any)
	return arr, ok
}

// Decode recovers a value of the given shape and re-marshals it into dst.
// It reports false if recovery fails or the value does not fit dst.
func Decode(text string, shape Shape, dst any) bool {
	v, ok := Parse(text, shape)
	if !ok {
		return false
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// decode parses s in full.
func decode(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}

	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

// fits reports whether v has the requested shape. ShapeAny accepts scalars too.
func fits(v any, shape Shape) bool {
	switch v.(type) {
	case map[string]any:
		return shape == ShapeObject || shape == ShapeAny
	case []any:
		return shape == ShapeArray || shape == ShapeAny
	default:
		return shape == ShapeAny
	}
}

// settle returns v when it fits shape and a failure otherwise.
func settle(v any, shape Shape, m Method) (any, Method) {
	if !fits(v, shape) {
		return nil, MethodUnrecovered
	}
	return v, m
}

// fencedBlocks returns the contents of every fenced block in document order.
func fencedBlocks(text string) []string {
	matches := fencePattern.FindAllStringSubmatch(text, -1)
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, m[1])
	}
	return blocks
}

// between returns the substring from the first open to the last close, inclusive.
func between(text, open, close string) (string, bool) {
	start := strings.Index(text, open)
	end := strings.LastIndex(text, close)
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
