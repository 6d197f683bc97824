/*
 *
 * webquery - element queries for in-process and remote browser documents
 * Copyright (C) 2021 Load Impact
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package common

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/grafana/webquery/api"
)

// Tag names referred to by the engine itself.
const (
	TagTableCell = "td"
	TagTableRow  = "tr"
	TagInput     = "input"
)

// ElementTag describes one HTML tag an element kind can be rendered as,
// optionally narrowed to a set of input types. An empty TagName matches
// any tag.
type ElementTag struct {
	TagName    string
	InputTypes []string
}

// IsMatch reports whether el is rendered with this tag (and, for inputs,
// one of the accepted types).
func (t ElementTag) IsMatch(ctx context.Context, el api.NativeElement) (bool, error) {
	if t.TagName == "" {
		return true, nil
	}
	tagName, err := el.TagName(ctx)
	if err != nil {
		return false, fmt.Errorf("reading tag name: %w", err)
	}
	if !strings.EqualFold(tagName, t.TagName) {
		return false, nil
	}
	if len(t.InputTypes) == 0 {
		return true, nil
	}
	inputType, err := el.GetAttributeValue(ctx, AttrType)
	if err != nil {
		return false, fmt.Errorf("reading input type: %w", err)
	}
	if inputType == "" {
		inputType = "text"
	}
	return slices.Contains(t.InputTypes, strings.ToLower(inputType)), nil
}

func (t ElementTag) String() string {
	name := strings.ToUpper(t.TagName)
	if name == "" {
		name = "*"
	}
	if len(t.InputTypes) == 0 {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, strings.Join(t.InputTypes, " "))
}

// ElementKind names a family of elements sharing behaviour, such as a
// button rendered either as <button> or as <input type=submit>.
type ElementKind string

// Known element kinds. ElementsContainer is the fallback for tags no other
// kind claims.
const (
	KindButton            ElementKind = "Button"
	KindCheckBox          ElementKind = "CheckBox"
	KindRadioButton       ElementKind = "RadioButton"
	KindTextField         ElementKind = "TextField"
	KindSelectList        ElementKind = "SelectList"
	KindLink              ElementKind = "Link"
	KindImage             ElementKind = "Image"
	KindTable             ElementKind = "Table"
	KindTableRow          ElementKind = "TableRow"
	KindTableCell         ElementKind = "TableCell"
	KindForm              ElementKind = "Form"
	KindLabel             ElementKind = "Label"
	KindDiv               ElementKind = "Div"
	KindSpan              ElementKind = "Span"
	KindPara              ElementKind = "Para"
	KindFrame             ElementKind = "Frame"
	KindElementsContainer ElementKind = "ElementsContainer"
)

type kindTags struct {
	kind ElementKind
	tags []ElementTag
}

var elementKinds []kindTags

func registerKind(kind ElementKind, tags ...ElementTag) {
	elementKinds = append(elementKinds, kindTags{kind: kind, tags: tags})
}

func init() {
	registerKind(KindButton,
		ElementTag{TagName: TagInput, InputTypes: []string{"button", "submit", "image", "reset"}},
		ElementTag{TagName: "button"})
	registerKind(KindCheckBox, ElementTag{TagName: TagInput, InputTypes: []string{"checkbox"}})
	registerKind(KindRadioButton, ElementTag{TagName: TagInput, InputTypes: []string{"radio"}})
	registerKind(KindTextField,
		ElementTag{TagName: TagInput, InputTypes: []string{"text", "password", "textarea", "hidden"}},
		ElementTag{TagName: "textarea"})
	registerKind(KindSelectList, ElementTag{TagName: "select"})
	registerKind(KindLink, ElementTag{TagName: "a"})
	registerKind(KindImage,
		ElementTag{TagName: "img"},
		ElementTag{TagName: TagInput, InputTypes: []string{"image"}})
	registerKind(KindTable, ElementTag{TagName: "table"})
	registerKind(KindTableRow, ElementTag{TagName: TagTableRow})
	registerKind(KindTableCell, ElementTag{TagName: TagTableCell})
	registerKind(KindForm, ElementTag{TagName: "form"})
	registerKind(KindLabel, ElementTag{TagName: "label"})
	registerKind(KindDiv, ElementTag{TagName: "div"})
	registerKind(KindSpan, ElementTag{TagName: "span"})
	registerKind(KindPara, ElementTag{TagName: "p"})
	registerKind(KindFrame, ElementTag{TagName: "frame"}, ElementTag{TagName: "iframe"})
}

// TagsFor returns the tags an element of kind may be rendered as. The
// fallback kind, and unknown kinds, match any tag.
func TagsFor(kind ElementKind) []ElementTag {
	for _, kt := range elementKinds {
		if kt.kind == kind {
			return kt.tags
		}
	}
	return []ElementTag{{}}
}

// ParseElementKind resolves a registered kind by its case insensitive name.
func ParseElementKind(name string) (ElementKind, error) {
	for _, kt := range elementKinds {
		if strings.EqualFold(string(kt.kind), name) {
			return kt.kind, nil
		}
	}
	if strings.EqualFold(string(KindElementsContainer), name) {
		return KindElementsContainer, nil
	}
	return "", fmt.Errorf("unknown element kind %q", name)
}

// KindOf resolves the first registered kind whose tags match el.
func KindOf(ctx context.Context, el api.NativeElement) (ElementKind, error) {
	for _, kt := range elementKinds {
		ok, err := matchesAnyTag(ctx, el, kt.tags)
		if err != nil {
			return "", err
		}
		if ok {
			return kt.kind, nil
		}
	}
	return KindElementsContainer, nil
}

// ParseElementTags builds tags from "tr", "input:text,password" style
// descriptions.
func ParseElementTags(descriptions ...string) []ElementTag {
	tags := make([]ElementTag, 0, len(descriptions))
	for _, d := range descriptions {
		name, types, _ := strings.Cut(d, ":")
		tag := ElementTag{TagName: strings.ToLower(strings.TrimSpace(name))}
		if tag.TagName == "*" {
			tag.TagName = ""
		}
		for _, t := range strings.Split(types, ",") {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				tag.InputTypes = append(tag.InputTypes, t)
			}
		}
		tags = append(tags, tag)
	}
	return tags
}

func matchesAnyTag(ctx context.Context, el api.NativeElement, tags []ElementTag) (bool, error) {
	for _, t := range tags {
		ok, err := t.IsMatch(ctx, el)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func describeTags(tags []ElementTag) string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.String())
	}
	return strings.Join(names, " or ")
}

// tagNames returns the distinct tag names to enumerate, or a single empty
// name when any tag is accepted.
func tagNames(tags []ElementTag) []string {
	var names []string
	for _, t := range tags {
		if t.TagName == "" {
			return []string{""}
		}
		if !slices.Contains(names, t.TagName) {
			names = append(names, t.TagName)
		}
	}
	if len(names) == 0 {
		return []string{""}
	}
	return names
}
