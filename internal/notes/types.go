// Package notes turns an outline plus slide layout into a styled note
// document, rendering top-level sections concurrently through the
// generation collaborator with per-section fallback.
package notes

// NoteFigure is an image asset resolved onto a section via its anchors.
type NoteFigure struct {
	ImageURI string `json:"image_uri"`
	Caption  string `json:"caption"`
}

// NoteEquation is a formula asset resolved onto a section via its anchors.
type NoteEquation struct {
	Latex   string `json:"latex"`
	Caption string `json:"caption"`
}

// NoteSection is the rendered output for one top-level outline node.
type NoteSection struct {
	SectionID string         `json:"section_id"`
	Title     string         `json:"title"`
	BodyMD    string         `json:"body_md"`
	Figures   []NoteFigure   `json:"figures"`
	Equations []NoteEquation `json:"equations"`
	Refs      []string       `json:"refs"`
}

// TOCEntry is one table-of-contents row.
type TOCEntry struct {
	SectionID string `json:"section_id"`
	Title     string `json:"title"`
}

// StyleRecord echoes the style selections a note document was built
// with.
type StyleRecord struct {
	DetailLevel string `json:"detail_level"`
	Tone        string `json:"tone"`
	Language    string `json:"language"`
}

// NoteDoc is the terminal artifact: sections in outline order plus
// metadata.
type NoteDoc struct {
	Style    StyleRecord   `json:"style"`
	TOC      []TOCEntry    `json:"toc"`
	Sections []NoteSection `json:"sections"`
}

// RenderResult distinguishes model output from the degraded template
// path so callers never need to infer it from error identity.
type RenderResult struct {
	Section  NoteSection
	Fallback bool
	Warnings []string
}

// Progress phases and statuses. The field set is a wire contract for
// streaming consumers and must stay stable.
const (
	PhasePrepare       = "prepare"
	PhaseSectionsTotal = "sections_total"
	PhaseSection       = "section"
	PhaseSave          = "save"

	StatusStart    = "start"
	StatusComplete = "complete"
)

// Progress is one generation progress event.
type Progress struct {
	Phase   string `json:"phase"`
	Status  string `json:"status,omitempty"`
	Index   int    `json:"index,omitempty"`
	Total   int    `json:"total,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
}
