/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package selection derives semantic tokens from the active selection. The
// tokens drive which tool panels are shown and which commands are enabled.
package selection

import (
	"slices"
	"strings"

	"posterkit/internal/scene"
)

// BaseTokens are present in every token set.
var BaseTokens = []string{"always", "all", "any", "*"}

// TokenSet is an unordered set of lower-case selection tokens.
type TokenSet map[string]struct{}

func (t TokenSet) add(tokens ...string) {
	for _, tok := range tokens {
		t[tok] = struct{}{}
	}
}

// Has reports whether tok is in the set.
func (t TokenSet) Has(tok string) bool {
	_, ok := t[strings.ToLower(tok)]
	return ok
}

// Sorted returns the tokens in lexical order.
func (t TokenSet) Sorted() []string {
	out := make([]string, 0, len(t))
	for tok := range t {
		out = append(out, tok)
	}
	slices.Sort(out)
	return out
}

// Source is the part of the scene graph the classifier reads.
type Source interface {
	ActiveObject() scene.Object
	ActiveObjects() []scene.Object
}

// Current classifies src's selection.
func Current(src Source) TokenSet {
	return Classify(src.ActiveObject(), src.ActiveObjects())
}

// Classify computes the token set for an active object and its expanded
// members. members may be empty for a single selection.
func Classify(active scene.Object, members []scene.Object) TokenSet {
	t := make(TokenSet)
	t.add(BaseTokens...)
	if active == nil {
		t.add("none", "empty", "no-selection")
		return t
	}
	t.add("selected", "has-selection", "selection", "object")

	items := slices.DeleteFunc(slices.Clone(members), func(o scene.Object) bool { return o == nil })
	sel, composite := active.(*scene.ActiveSelection)
	if composite && len(items) == 0 {
		items = slices.Clone(sel.Members)
	}
	if len(items) == 0 {
		items = []scene.Object{active}
	}

	if len(items) > 1 {
		t.add("multi", "multiple")
	} else {
		t.add("single", "solo")
	}

	addKind(t, active)
	for _, it := range items {
		addKind(t, it)
	}
	return t
}

func addKind(t TokenSet, o scene.Object) {
	typ := strings.ToLower(string(o.Type()))
	t.add(typ, "type:"+typ)
	switch o.(type) {
	case *scene.Text:
		t.add("text", "textbox")
	case *scene.Image:
		t.add("image")
	case *scene.Rect:
		t.add("rect")
	case *scene.Group:
		t.add("group")
	case *scene.ActiveSelection:
		t.add("activeselection")
	case *scene.Path:
	}
}

// Visible evaluates a whitespace separated visibility rule: an empty rule is
// always visible, otherwise any listed token must be present.
func Visible(rule string, t TokenSet) bool {
	needed := strings.Fields(strings.ToLower(rule))
	if len(needed) == 0 {
		return true
	}
	return slices.ContainsFunc(needed, t.Has)
}

// CanGroup reports whether the selection can be turned into a group.
func CanGroup(src Source) bool {
	if _, ok := src.ActiveObject().(*scene.ActiveSelection); ok {
		return true
	}
	return len(src.ActiveObjects()) >= 2
}

// CanUngroup reports whether the active object is a group.
func CanUngroup(src Source) bool {
	_, ok := src.ActiveObject().(*scene.Group)
	return ok
}
