// Copyright 2024 The pmml2lua Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package xmldom builds the minimal DOM-like element tree the compiler
// consumes: element names, attributes, child order and source line
// numbers. spec.md §6 assumes an external XML reader producing exactly
// this shape; encoding/xml's streaming decoder is the plumbing that
// builds it, not a compiler concern in its own right.
package xmldom

import (
	"encoding/xml"
	"io"

	"github.com/lnrisk/pmml2lua/internal/token"
)

// Element is one node of the parsed document.
type Element struct {
	Name     string
	Attrs    map[string]string
	Children []*Element
	Text     string
	Pos      token.Pos
	Parent   *Element
}

// Attr returns an attribute value, or "" with ok=false if absent.
func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// AttrOr returns an attribute value or a default.
func (e *Element) AttrOr(name, def string) string {
	if v, ok := e.Attrs[name]; ok {
		return v
	}
	return def
}

// ChildrenNamed returns direct children matching name, skipping
// Extension nodes transparently wherever they appear (they are never
// supported, per spec.md §6).
func (e *Element) ChildrenNamed(name string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Name == "Extension" {
			continue
		}
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// FirstChildNamed returns the first direct child matching name.
func (e *Element) FirstChildNamed(name string) *Element {
	for _, c := range e.Children {
		if c.Name == "Extension" {
			continue
		}
		if c.Name == name {
			return c
		}
	}
	return nil
}

// NonExtensionChildren returns every child that is not an Extension
// node, in document order.
func (e *Element) NonExtensionChildren() []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Name != "Extension" {
			out = append(out, c)
		}
	}
	return out
}

// Parse reads an XML document and returns its root element.
func Parse(r io.Reader, filename string) (*Element, error) {
	dec := xml.NewDecoder(r)
	var root *Element
	var stack []*Element
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			line, _ := dec.InputPos()
			el := &Element{
				Name:  t.Name.Local,
				Attrs: map[string]string{},
				Pos:   token.Pos{Filename: filename, Line: line},
			}
			for _, a := range t.Attr {
				el.Attrs[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				el.Parent = parent
				parent.Children = append(parent.Children, el)
			} else {
				root = el
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	return root, nil
}
