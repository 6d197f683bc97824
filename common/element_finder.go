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
	"iter"

	"github.com/grafana/webquery/api"
	"github.com/grafana/webquery/log"
)

// FinderStrategy implements the two primitive searches of one backend.
type FinderStrategy interface {
	// FindByTag enumerates the descendants of root with the given tag name
	// (any tag when tagName is empty) in document order.
	FindByTag(ctx context.Context, root api.NativeElement, tagName string) iter.Seq2[api.NativeElement, error]
	// FindByID resolves the element with the given id in the document owning
	// root, or nil when there is none.
	FindByID(ctx context.Context, root api.NativeElement, id string) (api.NativeElement, error)
}

// ElementFinder is an immutable query: the tags an element may have, the
// constraint it must satisfy, and the collection the search starts from.
type ElementFinder struct {
	tags       []ElementTag
	constraint Constraint
	collection api.ElementCollection
	strategy   FinderStrategy
	settings   Settings
	logger     *log.Logger
}

// NewElementFinder creates a finder. A nil constraint matches anything and
// no tags accept any tag.
func NewElementFinder(
	tags []ElementTag, constraint Constraint, collection api.ElementCollection,
	strategy FinderStrategy, settings Settings, logger *log.Logger,
) *ElementFinder {
	if constraint == nil {
		constraint = Any()
	}
	if len(tags) == 0 {
		tags = []ElementTag{{}}
	}
	return &ElementFinder{
		tags:       tags,
		constraint: constraint,
		collection: collection,
		strategy:   strategy,
		settings:   settings,
		logger:     logger,
	}
}

// FilterBy returns a new finder whose constraint is this finder's AND c.
func (f *ElementFinder) FilterBy(c Constraint) *ElementFinder {
	nf := *f
	nf.constraint = And(f.constraint, c)
	return &nf
}

// Constraint returns the finder's constraint.
func (f *ElementFinder) Constraint() Constraint { return f.constraint }

// Tags returns the tags the finder accepts.
func (f *ElementFinder) Tags() []ElementTag { return f.tags }

func (f *ElementFinder) String() string {
	return fmt.Sprintf("%s matching %s", describeTags(f.tags), f.constraint)
}

// Find lazily yields the matching elements in document order. Iteration
// stops at the first error, which is yielded with a nil element.
func (f *ElementFinder) Find(ctx context.Context) iter.Seq2[api.NativeElement, error] {
	return func(yield func(api.NativeElement, error) bool) {
		root, err := f.collection.Elements(ctx)
		if err != nil {
			yield(nil, fmt.Errorf("getting search root: %w", err))
			return
		}
		if root == nil {
			return
		}

		if id, ok := idOf(f.constraint); ok {
			f.logger.Debugf(logCategoryFinder, "finding by id %q: %s", id, f)
			el, err := f.strategy.FindByID(ctx, root, id)
			if err != nil {
				yield(nil, fmt.Errorf("finding element by id %q: %w", id, err))
				return
			}
			if el == nil {
				return
			}
			f.yieldIfMatch(ctx, el, yield)
			return
		}

		for _, tagName := range tagNames(f.tags) {
			f.logger.Debugf(logCategoryFinder, "finding by tag %q: %s", tagName, f)
			for el, err := range f.strategy.FindByTag(ctx, root, tagName) {
				if err != nil {
					yield(nil, fmt.Errorf("finding elements by tag %q: %w", tagName, err))
					return
				}
				if !f.yieldIfMatch(ctx, el, yield) {
					return
				}
			}
		}
	}
}

// yieldIfMatch tests el and, when it matches, persists it and hands it to
// yield. It returns false when iteration must stop.
func (f *ElementFinder) yieldIfMatch(
	ctx context.Context, el api.NativeElement, yield func(api.NativeElement, error) bool,
) bool {
	ok, err := f.isMatch(ctx, el)
	if err != nil {
		f.release(ctx, el)
		yield(nil, err)
		return false
	}
	if !ok {
		f.release(ctx, el)
		return true
	}
	if p, isPersister := el.(api.Persister); isPersister {
		if el, err = p.Persist(ctx); err != nil {
			yield(nil, fmt.Errorf("persisting element reference: %w", err))
			return false
		}
	}
	return yield(el, nil)
}

// release frees the browser side reference of an element the finder
// rejected. Failures are only logged.
func (f *ElementFinder) release(ctx context.Context, el api.NativeElement) {
	r, ok := el.(api.Releaser)
	if !ok {
		return
	}
	if err := r.Release(context.WithoutCancel(ctx)); err != nil {
		f.logger.Debugf(logCategoryFinder, "releasing rejected %v: %v", el, err)
	}
}

func (f *ElementFinder) isMatch(ctx context.Context, el api.NativeElement) (bool, error) {
	ok, err := matchesAnyTag(ctx, el, f.tags)
	if err != nil || !ok {
		return false, err
	}
	ok, err = f.constraint.Compare(ctx, el.AttributeBag(ctx))
	if err != nil {
		return false, fmt.Errorf("comparing %s: %w", f.constraint, err)
	}
	return ok, nil
}

// FindFirst returns the first match, or an ElementNotFoundError.
func (f *ElementFinder) FindFirst(ctx context.Context) (api.NativeElement, error) {
	for el, err := range f.Find(ctx) {
		if err != nil {
			return nil, err
		}
		return el, nil
	}
	return nil, f.NotFoundError()
}

// FindAll collects every match.
func (f *ElementFinder) FindAll(ctx context.Context) ([]api.NativeElement, error) {
	var all []api.NativeElement
	for el, err := range f.Find(ctx) {
		if err != nil {
			return nil, err
		}
		all = append(all, el)
	}
	return all, nil
}

// NotFoundError describes this finder failing to match anything.
func (f *ElementFinder) NotFoundError() *ElementNotFoundError {
	return &ElementNotFoundError{
		Entity:     describeTags(f.tags),
		Constraint: f.constraint.String(),
		Timeout:    f.settings.WaitUntilExistsTimeout,
	}
}
