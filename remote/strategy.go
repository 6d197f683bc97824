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

package remote

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/grafana/webquery/api"
)

// Strategy searches by shipping script to the browser behind a ClientPort.
type Strategy struct {
	port *ClientPort
}

// NewStrategy returns a Strategy searching through port.
func NewStrategy(port *ClientPort) Strategy {
	return Strategy{port: port}
}

func (s Strategy) reference(root api.NativeElement) (string, error) {
	el, ok := root.(*Element)
	if !ok {
		return "", fmt.Errorf("remote strategy cannot search from %T", root)
	}
	return el.reference, nil
}

// FindByTag materializes the matching descendants of root into a browser
// side array and yields a transient handle per entry. The array is cleared
// once iteration ends.
func (s Strategy) FindByTag(ctx context.Context, root api.NativeElement, tagName string) iter.Seq2[api.NativeElement, error] {
	return func(yield func(api.NativeElement, error) bool) {
		if err := s.port.InitializeDocument(ctx); err != nil {
			yield(nil, err)
			return
		}
		ref, err := s.reference(root)
		if err != nil {
			yield(nil, err)
			return
		}
		if tagName == "" {
			tagName = "*"
		}

		arr := s.port.CreateVariableName()
		n, err := s.port.WriteAndReadAsInt(ctx,
			fmt.Sprintf("%s = %s.getElementsByTagName(%s); %s.length;", arr, ref, quote(tagName), arr))
		if err != nil {
			yield(nil, err)
			return
		}
		defer func() {
			if err := s.port.Write(context.WithoutCancel(ctx), arr+" = null; "); err != nil {
				s.port.logger.Debugf("remote:finder", "clearing %s: %v", arr, err)
			}
		}()

		for i := 0; i < n; i++ {
			el := &Element{port: s.port, reference: fmt.Sprintf("%s[%d]", arr, i), transient: true}
			if !yield(el, nil) {
				return
			}
		}
	}
}

// FindByID looks id up in the document owning root.
func (s Strategy) FindByID(ctx context.Context, root api.NativeElement, id string) (api.NativeElement, error) {
	if err := s.port.InitializeDocument(ctx); err != nil {
		return nil, err
	}
	ref, err := s.reference(root)
	if err != nil {
		return nil, err
	}

	name := s.port.CreateVariableName()
	found, err := s.port.WriteAndReadAsBool(ctx, fmt.Sprintf("%s = %s.getElementById(%s); %s != null;",
		name, documentReference(ref), quote(id), name))
	if err != nil || !found {
		return nil, err
	}
	return NewElement(s.port, name), nil
}

// documentReference derives the document owning the object ref evaluates
// to. References to a document (the document variable, or a content or
// owner document accessor) are returned as they are.
func documentReference(ref string) string {
	switch {
	case ref == DocumentVariableName,
		strings.HasSuffix(ref, ".document"),
		strings.HasSuffix(ref, "contentDocument"),
		strings.HasSuffix(ref, "ownerDocument"):
		return ref
	}
	return ref + ".ownerDocument"
}
