/* Copyright 2018 Comcast Cable Communications Management, LLC
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

// Package match implements the pattern matcher used by declarative
// guards and event filters.
//
// A pattern is a JSON value that can contain variables: strings that
// start with a '?'.  A map pattern matches a map fact that has (at
// least) the pattern's properties with matching values.  An array
// pattern matches an array fact when each pattern element matches a
// different fact element.  Arrays are sets, so matching can
// backtrack and return several sets of bindings.  "?" matches
// anything without binding, and a property whose value is an optional
// variable ("??x") can be missing from the fact.
package match

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Bindings is a map from variables (strings starting with a '?') to
// their values.
type Bindings map[string]interface{}

// NewBindings makes empty Bindings.
func NewBindings() Bindings {
	return make(Bindings, 8)
}

// Copy makes a shallow copy of the Bindings.
func (bs Bindings) Copy() Bindings {
	acc := make(Bindings, len(bs))
	for k, v := range bs {
		acc[k] = v
	}
	return acc
}

// Unquestion returns the Bindings with the leading '?'s removed from
// the variable names.
func (bs Bindings) Unquestion() map[string]interface{} {
	acc := make(map[string]interface{}, len(bs))
	for k, v := range bs {
		acc[strings.TrimLeft(k, "?")] = v
	}
	return acc
}

// IsVariable reports if the string represents a pattern variable.
func IsVariable(s string) bool {
	return strings.HasPrefix(s, "?")
}

// IsOptionalVariable detects a variable of the form "??x".
func IsOptionalVariable(x interface{}) bool {
	s, is := x.(string)
	return is && strings.HasPrefix(s, "??")
}

// IsAnonymousVariable detects the variable "?", which never gets a
// binding.
func IsAnonymousVariable(s string) bool {
	return s == "?"
}

// UnknownPatternType is an error that includes the thing that's
// causing the trouble.
type UnknownPatternType struct {
	Pattern interface{} `json:"pattern"`
}

func (e *UnknownPatternType) Error() string {
	return fmt.Sprintf("unknown pattern type %T (%#v)", e.Pattern, e.Pattern)
}

// PropertyVariable is returned for a pattern that uses a variable as a
// property name, which isn't supported.
type PropertyVariable struct {
	Property string
}

func (e *PropertyVariable) Error() string {
	return `can't use a variable ("` + e.Property + `") as a property`
}

// Match attempts to match the given fact with the given pattern.
// Returns every set of bindings (extending the given bindings) that
// makes the match work.  No bindings means no match.
//
// The given bindings are not modified.
func Match(pattern, fact interface{}, bs Bindings) ([]Bindings, error) {
	if bs == nil {
		bs = NewBindings()
	}
	return match(pattern, fact, bs)
}

// Matches reports whether the pattern matches the fact at all.
func Matches(pattern, fact interface{}) (bool, error) {
	bss, err := Match(pattern, fact, nil)
	return 0 < len(bss), err
}

func match(pattern, fact interface{}, bs Bindings) ([]Bindings, error) {
	switch vv := pattern.(type) {
	case string:
		if !IsVariable(vv) {
			if s, is := fact.(string); is && s == vv {
				return []Bindings{bs}, nil
			}
			return nil, nil
		}
		if IsAnonymousVariable(vv) {
			return []Bindings{bs}, nil
		}
		if bound, have := bs[vv]; have {
			if equal(bound, fact) {
				return []Bindings{bs}, nil
			}
			return nil, nil
		}
		extended := bs.Copy()
		extended[vv] = fact
		return []Bindings{extended}, nil

	case map[string]interface{}:
		m, is := fact.(map[string]interface{})
		if !is {
			return nil, nil
		}
		ps := make([]string, 0, len(vv))
		for p := range vv {
			if IsVariable(p) {
				return nil, &PropertyVariable{p}
			}
			ps = append(ps, p)
		}
		sort.Strings(ps)

		bss := []Bindings{bs}
		for _, p := range ps {
			v, have := m[p]
			if !have {
				if IsOptionalVariable(vv[p]) {
					continue
				}
				return nil, nil
			}
			var acc []Bindings
			for _, bs := range bss {
				more, err := match(vv[p], v, bs)
				if err != nil {
					return nil, err
				}
				acc = append(acc, more...)
			}
			if len(acc) == 0 {
				return nil, nil
			}
			bss = acc
		}
		return bss, nil

	case []interface{}:
		xs, is := fact.([]interface{})
		if !is {
			return nil, nil
		}
		return matchSet(vv, xs, make([]bool, len(xs)), bs)

	case nil:
		if fact == nil {
			return []Bindings{bs}, nil
		}
		return nil, nil

	case bool:
		if b, is := fact.(bool); is && b == vv {
			return []Bindings{bs}, nil
		}
		return nil, nil

	default:
		if n, is := number(pattern); is {
			if m, is := number(fact); is && n == m {
				return []Bindings{bs}, nil
			}
			return nil, nil
		}
		return nil, &UnknownPatternType{pattern}
	}
}

// matchSet matches each pattern element against a different unused
// fact element.
func matchSet(ps, xs []interface{}, used []bool, bs Bindings) ([]Bindings, error) {
	if len(ps) == 0 {
		return []Bindings{bs}, nil
	}
	var acc []Bindings
	for i, x := range xs {
		if used[i] {
			continue
		}
		bss, err := match(ps[0], x, bs)
		if err != nil {
			return nil, err
		}
		for _, bs := range bss {
			used[i] = true
			more, err := matchSet(ps[1:], xs, used, bs)
			used[i] = false
			if err != nil {
				return nil, err
			}
			acc = append(acc, more...)
		}
	}
	return acc, nil
}

// number is a hack to cast numbers to float64s.
func number(x interface{}) (float64, bool) {
	switch vv := x.(type) {
	case float64:
		return vv, true
	case float32:
		return float64(vv), true
	case int:
		return float64(vv), true
	case int32:
		return float64(vv), true
	case int64:
		return float64(vv), true
	case uint:
		return float64(vv), true
	case uint32:
		return float64(vv), true
	case uint64:
		return float64(vv), true
	default:
		return 0, false
	}
}

func equal(x, y interface{}) bool {
	if n, is := number(x); is {
		m, is := number(y)
		return is && n == m
	}
	return reflect.DeepEqual(x, y)
}
