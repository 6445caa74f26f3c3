/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package patch

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-openapi/jsonpointer"
	"github.com/mohae/deepcopy"
)

// Op names an operation.
type Op string

const (
	OpNone    Op = ""
	OpAdd     Op = "add"
	OpRemove  Op = "remove"
	OpReplace Op = "replace"
	OpMove    Op = "move"
	OpCopy    Op = "copy"
	OpTest    Op = "test"
)

// Operation is one step of a patch.
type Operation struct {
	Op    Op          `json:"op" yaml:"op" mapstructure:"op"`
	Path  string      `json:"path" yaml:"path" mapstructure:"path"`
	From  string      `json:"from,omitempty" yaml:"from,omitempty" mapstructure:"from"`
	Value interface{} `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`
}

func (o Operation) String() string {
	switch o.Op {
	case OpMove, OpCopy:
		return string(o.Op) + " " + o.From + " -> " + o.Path
	case OpNone:
		return "noop"
	default:
		return string(o.Op) + " " + o.Path
	}
}

// Add makes an "add" operation.
func Add(path string, value interface{}) Operation {
	return Operation{Op: OpAdd, Path: path, Value: value}
}

// Remove makes a "remove" operation.
func Remove(path string) Operation {
	return Operation{Op: OpRemove, Path: path}
}

// Replace makes a "replace" operation.
func Replace(path string, value interface{}) Operation {
	return Operation{Op: OpReplace, Path: path, Value: value}
}

// Move makes a "move" operation.
func Move(from, path string) Operation {
	return Operation{Op: OpMove, From: from, Path: path}
}

// Copy makes a "copy" operation.
func Copy(from, path string) Operation {
	return Operation{Op: OpCopy, From: from, Path: path}
}

// Test makes a "test" operation.
func Test(path string, value interface{}) Operation {
	return Operation{Op: OpTest, Path: path, Value: value}
}

var (
	// ErrPathNotFound occurs when an operation needs a value that
	// isn't there.
	ErrPathNotFound = errors.New("path not found")

	// ErrTestFailed occurs when a "test" operation finds a
	// different value.
	ErrTestFailed = errors.New("test failed")

	// ErrInvalidPath occurs for malformed pointers, bad array
	// indexes, and paths that go through scalars.
	ErrInvalidPath = errors.New("invalid path")

	// ErrUnknownOp occurs for an unknown operation name.
	ErrUnknownOp = errors.New("unknown operation")

	// ErrInvalidValue occurs for an operation value that has no JSON
	// representation.
	ErrInvalidValue = errors.New("invalid value")
)

// Error reports the operation that couldn't be applied.
type Error struct {
	Index int
	Op    Operation
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("patch operation %d (%s): %v", e.Index, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Apply applies the operations in order to the model, mutating it in
// place.
//
// The returned value is the model itself unless an operation replaced
// the root (or grew a root array), in which case it is the new root.
// Operations before a failing one remain applied.
func Apply(model interface{}, ops []Operation) (interface{}, error) {
	var err error
	for i, op := range ops {
		if model, err = apply(model, op); err != nil {
			return model, &Error{
				Index: i,
				Op:    op,
				Err:   err,
			}
		}
	}
	return model, nil
}

func apply(doc interface{}, op Operation) (interface{}, error) {
	switch op.Op {
	case OpNone:
		return doc, nil
	case OpAdd:
		path, err := parse(op.Path)
		if err != nil {
			return doc, err
		}
		x, err := value(op.Value)
		if err != nil {
			return doc, err
		}
		return add(doc, path, x)
	case OpRemove:
		path, err := parse(op.Path)
		if err != nil {
			return doc, err
		}
		doc, _, err = remove(doc, path)
		return doc, err
	case OpReplace:
		path, err := parse(op.Path)
		if err != nil {
			return doc, err
		}
		x, err := value(op.Value)
		if err != nil {
			return doc, err
		}
		return replace(doc, path, x)
	case OpMove:
		from, err := parse(op.From)
		if err != nil {
			return doc, err
		}
		path, err := parse(op.Path)
		if err != nil {
			return doc, err
		}
		if op.From == op.Path {
			_, err = get(doc, from)
			return doc, err
		}
		if strings.HasPrefix(op.Path, op.From+"/") {
			return doc, fmt.Errorf("%w: can't move %s into its own child", ErrInvalidPath, op.From)
		}
		var x interface{}
		if doc, x, err = remove(doc, from); err != nil {
			return doc, err
		}
		return add(doc, path, x)
	case OpCopy:
		from, err := parse(op.From)
		if err != nil {
			return doc, err
		}
		path, err := parse(op.Path)
		if err != nil {
			return doc, err
		}
		x, err := get(doc, from)
		if err != nil {
			return doc, err
		}
		return add(doc, path, Clone(x))
	case OpTest:
		path, err := parse(op.Path)
		if err != nil {
			return doc, err
		}
		want, err := value(op.Value)
		if err != nil {
			return doc, err
		}
		x, err := get(doc, path)
		if err != nil {
			return doc, err
		}
		if !Equal(x, want) {
			return doc, fmt.Errorf("%w: %s is %s, not %s", ErrTestFailed, op.Path, js(x), js(op.Value))
		}
		return doc, nil
	default:
		return doc, fmt.Errorf("%w: %q", ErrUnknownOp, op.Op)
	}
}

// value turns an operation's value into a fresh JSON tree, so the
// model only ever holds maps, slices, strings, float64s, bools and nils.
func value(x interface{}) (interface{}, error) {
	y, err := Canonicalize(x)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return y, nil
}

// Get returns the value at the given path.
func Get(model interface{}, path string) (interface{}, error) {
	p, err := parse(path)
	if err != nil {
		return nil, err
	}
	return get(model, p)
}

func parse(path string) ([]string, error) {
	p, err := jsonpointer.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, err)
	}
	return p.DecodedTokens(), nil
}

// index parses an array index.  An index equal to the length is
// allowed only when end is true (for insertion), as is "-".
func index(token string, n int, end bool) (int, error) {
	if token == "-" {
		if end {
			return n, nil
		}
		return 0, fmt.Errorf("%w: '-' refers to nothing", ErrPathNotFound)
	}
	if token == "" || (1 < len(token) && token[0] == '0') {
		return 0, fmt.Errorf("%w: bad array index %q", ErrInvalidPath, token)
	}
	i, err := strconv.Atoi(token)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w: bad array index %q", ErrInvalidPath, token)
	}
	if n < i || (i == n && !end) {
		return 0, fmt.Errorf("%w: index %d out of range (%d)", ErrPathNotFound, i, n)
	}
	return i, nil
}

func get(doc interface{}, path []string) (interface{}, error) {
	for _, token := range path {
		switch vv := doc.(type) {
		case map[string]interface{}:
			x, have := vv[token]
			if !have {
				return nil, fmt.Errorf("%w: no %q", ErrPathNotFound, token)
			}
			doc = x
		case []interface{}:
			i, err := index(token, len(vv), false)
			if err != nil {
				return nil, err
			}
			doc = vv[i]
		default:
			return nil, fmt.Errorf("%w: %q goes through a %T", ErrPathNotFound, token, doc)
		}
	}
	return doc, nil
}

// add returns doc (or its replacement) after adding x at the path.
// Missing object members along the way become empty objects.
func add(doc interface{}, path []string, x interface{}) (interface{}, error) {
	if len(path) == 0 {
		return x, nil
	}
	token, last := path[0], len(path) == 1
	switch vv := doc.(type) {
	case map[string]interface{}:
		if last {
			vv[token] = x
			return vv, nil
		}
		child, have := vv[token]
		if !have || child == nil {
			child = make(map[string]interface{})
		}
		child, err := add(child, path[1:], x)
		if err != nil {
			return vv, err
		}
		vv[token] = child
		return vv, nil
	case []interface{}:
		i, err := index(token, len(vv), last)
		if err != nil {
			return vv, err
		}
		if last {
			vv = append(vv, nil)
			copy(vv[i+1:], vv[i:])
			vv[i] = x
			return vv, nil
		}
		child, err := add(vv[i], path[1:], x)
		if err != nil {
			return vv, err
		}
		vv[i] = child
		return vv, nil
	default:
		return doc, fmt.Errorf("%w: %q goes through a %T", ErrInvalidPath, token, doc)
	}
}

// remove returns doc (or its replacement) and the removed value.
func remove(doc interface{}, path []string) (interface{}, interface{}, error) {
	if len(path) == 0 {
		return doc, nil, fmt.Errorf("%w: can't remove the root", ErrInvalidPath)
	}
	token, last := path[0], len(path) == 1
	switch vv := doc.(type) {
	case map[string]interface{}:
		child, have := vv[token]
		if !have {
			return vv, nil, fmt.Errorf("%w: no %q", ErrPathNotFound, token)
		}
		if last {
			delete(vv, token)
			return vv, child, nil
		}
		child, x, err := remove(child, path[1:])
		if err != nil {
			return vv, nil, err
		}
		vv[token] = child
		return vv, x, nil
	case []interface{}:
		i, err := index(token, len(vv), false)
		if err != nil {
			return vv, nil, err
		}
		if last {
			x := vv[i]
			copy(vv[i:], vv[i+1:])
			vv[len(vv)-1] = nil
			return vv[:len(vv)-1], x, nil
		}
		child, x, err := remove(vv[i], path[1:])
		if err != nil {
			return vv, nil, err
		}
		vv[i] = child
		return vv, x, nil
	default:
		return doc, nil, fmt.Errorf("%w: %q goes through a %T", ErrPathNotFound, token, doc)
	}
}

func replace(doc interface{}, path []string, x interface{}) (interface{}, error) {
	if len(path) == 0 {
		return x, nil
	}
	token, last := path[0], len(path) == 1
	switch vv := doc.(type) {
	case map[string]interface{}:
		child, have := vv[token]
		if !have {
			return vv, fmt.Errorf("%w: no %q", ErrPathNotFound, token)
		}
		if last {
			vv[token] = x
			return vv, nil
		}
		child, err := replace(child, path[1:], x)
		if err != nil {
			return vv, err
		}
		vv[token] = child
		return vv, nil
	case []interface{}:
		i, err := index(token, len(vv), false)
		if err != nil {
			return vv, err
		}
		if last {
			vv[i] = x
			return vv, nil
		}
		child, err := replace(vv[i], path[1:], x)
		if err != nil {
			return vv, err
		}
		vv[i] = child
		return vv, nil
	default:
		return doc, fmt.Errorf("%w: %q goes through a %T", ErrPathNotFound, token, doc)
	}
}

// Clone makes a deep copy of a model (or of any value).
func Clone(x interface{}) interface{} {
	if x == nil {
		return nil
	}
	return deepcopy.Copy(x)
}

// Canonicalize turns x into a JSON tree via a JSON round trip.
func Canonicalize(x interface{}) (interface{}, error) {
	bs, err := json.Marshal(&x)
	if err != nil {
		return nil, err
	}
	var y interface{}
	if err = json.Unmarshal(bs, &y); err != nil {
		return nil, err
	}
	return y, nil
}

// Equal reports whether two values are structurally equal as JSON.
//
// Numbers of different Go types are equal when they have the same JSON
// value.
func Equal(x, y interface{}) bool {
	if reflect.DeepEqual(x, y) {
		return true
	}
	cx, err := Canonicalize(x)
	if err != nil {
		return false
	}
	cy, err := Canonicalize(y)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(cx, cy)
}

func js(x interface{}) string {
	bs, err := json.Marshal(&x)
	if err != nil {
		return fmt.Sprintf("%#v", x)
	}
	return string(bs)
}
