package layout

// ElementKind classifies a slide element after layout analysis.
type ElementKind string

const (
	KindTitle   ElementKind = "title"
	KindText    ElementKind = "text"
	KindImage   ElementKind = "image"
	KindFormula ElementKind = "formula"
	KindTable   ElementKind = "table"
)

// Element is one typed element on a layout page. Immutable once built.
type Element struct {
	Ref      string      `json:"ref"`
	Kind     ElementKind `json:"kind"`
	Content  string      `json:"content,omitempty"`
	Caption  string      `json:"caption,omitempty"`
	Latex    string      `json:"latex,omitempty"`
	ImageURI string      `json:"image_uri,omitempty"`
}

// Page holds the ordered elements of one source page. Page numbers are
// 1-based and contiguous per document.
type Page struct {
	PageNo   int       `json:"page_no"`
	Elements []Element `json:"elements"`
}

// Doc is the layout view of a whole deck.
type Doc struct {
	Pages []Page `json:"pages"`
}

// AnchorRef is a weak reference into a page element, used for
// traceability only.
type AnchorRef struct {
	Page int    `json:"page"`
	Ref  string `json:"ref"`
}

// SlideBlock is a raw parsed block before layout analysis.
type SlideBlock struct {
	ID       string      `json:"id"`
	Type     ElementKind `json:"type"`
	Order    int         `json:"order"`
	RawText  string      `json:"raw_text,omitempty"`
	AssetURI string      `json:"asset_uri,omitempty"`
	Latex    string      `json:"latex,omitempty"`
}

// SlidePage is one parsed page of raw blocks.
type SlidePage struct {
	PageNo int          `json:"page_no"`
	Blocks []SlideBlock `json:"blocks"`
}

// Deck is the parser output for a whole source document.
type Deck struct {
	Title  string      `json:"title"`
	Slides []SlidePage `json:"slides"`
}
