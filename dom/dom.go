package dom

// ShadowRootMode is the encapsulation mode of a shadow root.
type ShadowRootMode string

const (
	ModeOpen   ShadowRootMode = "open"
	ModeClosed ShadowRootMode = "closed"
)

// ShadowRootInit mirrors the attachShadow options dictionary.
type ShadowRootInit struct {
	Mode ShadowRootMode
}

// Element is the subset of the DOM Element API the hello element uses.
type Element interface {
	TagName() string
	GetAttribute(name string) (string, bool)
	SetAttribute(name, value string)
	AppendChild(child Element) error
	SetTextContent(text string)
	TextContent() string
	Children() []Element
}

// ShadowHost is an element that can carry a shadow root.
type ShadowHost interface {
	Element
	AttachShadow(init ShadowRootInit) (ShadowRoot, error)
	// ShadowRoot returns nil when no root is attached or the root is closed.
	ShadowRoot() ShadowRoot
}

// ShadowRoot is the encapsulated subtree attached to a host.
type ShadowRoot interface {
	Mode() ShadowRootMode
	SetInnerHTML(markup string) error
	GetElementByID(id string) (Element, bool)
}

// Document creates elements.
type Document interface {
	CreateElement(tag string) (Element, error)
}
