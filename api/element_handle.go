package api

import "context"

// AttributeBag is a read-only view over the named attributes of one element.
type AttributeBag interface {
	// GetValue returns the value of the named attribute or an empty string
	// when the element does not carry it.
	GetValue(ctx context.Context, attributeName string) (string, error)
}

// ElementAttributeBag is an AttributeBag that can hand out the element it
// reads from, for constraints that need to walk into descendants.
type ElementAttributeBag interface {
	AttributeBag
	Element() NativeElement
}

// NativeElement is the interface of a backend specific handle to one element
// of a page. Every method may need a round trip to the process hosting the
// page, hence the context.
type NativeElement interface {
	AttributeBag(ctx context.Context) AttributeBag
	GetAttributeValue(ctx context.Context, attributeName string) (string, error)
	SetAttributeValue(ctx context.Context, attributeName, value string) error
	GetStyleAttributeValue(ctx context.Context, attributeName string) (string, error)
	SetStyleAttributeValue(ctx context.Context, attributeName, value string) error
	TagName(ctx context.Context) (string, error)

	ClickOnElement(ctx context.Context) error
	SetFocus(ctx context.Context) error
	// FireEvent dispatches the named event and reports whether it was not
	// cancelled. A nil params map uses the backend defaults.
	FireEvent(ctx context.Context, eventName string, params map[string]string) (bool, error)

	// IsElementReferenceStillValid reports whether the element is still part
	// of the render tree and has an offset parent.
	IsElementReferenceStillValid(ctx context.Context) (bool, error)

	// Descendant returns the index-th descendant with the given tag name in
	// document order, or nil when there are not that many.
	Descendant(ctx context.Context, tagName string, index int) (NativeElement, error)
	Parent(ctx context.Context) (NativeElement, error)
	NextSibling(ctx context.Context) (NativeElement, error)
	PreviousSibling(ctx context.Context) (NativeElement, error)
}

// Persister is implemented by handles that are only valid for the lifetime
// of the enumeration that produced them and can be promoted to a handle the
// caller owns.
type Persister interface {
	Persist(ctx context.Context) (NativeElement, error)
}

// Releaser is implemented by handles holding resources in a foreign process.
type Releaser interface {
	Release(ctx context.Context) error
}

// ElementCollection provides the root a search starts from.
type ElementCollection interface {
	// Elements returns the current enumeration root, or nil when the owning
	// scope is gone.
	Elements(ctx context.Context) (NativeElement, error)
}

// DomContainer is the page (or frame) owning a set of elements.
type DomContainer interface {
	WaitForComplete(ctx context.Context) error
}

// Transport ships a script command to a browser process and returns the
// textual rendering of the value the command evaluated to. Null and
// undefined render as an empty string.
type Transport interface {
	Send(ctx context.Context, command string) (string, error)
	Close() error
}
