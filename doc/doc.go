// Package doc defines the contracts of the external document collaborators:
// the decode/render service, the document construction engine used at export
// time, and the form-field and detected-text records both report. The editor
// core depends only on these interfaces, never on a concrete document
// library's live objects.
package doc

import (
	"context"
	"errors"
	"image"

	"github.com/shockz09/pdfmark/annot"
	"github.com/shockz09/pdfmark/coords"
)

var (
	// ErrPageOutOfRange reports a page index outside the document.
	ErrPageOutOfRange = errors.New("page index out of range")
	// ErrUnknownField reports a fill attempt against a field the document
	// does not contain.
	ErrUnknownField = errors.New("unknown form field")
)

// Engine loads original document bytes into an editable Handle.
type Engine interface {
	Load(ctx context.Context, data []byte) (Handle, error)
}

// Handle is an open document being prepared for export. Page arguments are
// 0-based indices into the document's current page order.
type Handle interface {
	PageCount() int
	// PageSize reports the page's native-space dimensions.
	PageSize(page int) (coords.PageSpace, error)
	// Rotate adds degrees (a multiple of 90) to the page's rotation.
	Rotate(page int, degrees int) error
	// Overlay composites img over the full page content.
	Overlay(page int, img image.Image) error
	MovePage(from, to int) error
	RemovePage(page int) error
	// FillField applies the field's value to the document.
	FillField(f FormField) error
	// Flatten bakes all filled form fields into page content, removing their
	// interactive behavior.
	Flatten() error
	Save(ctx context.Context) ([]byte, error)
}

// Renderer turns a page of an open document into pixels plus the per-page
// metadata the editor consumes.
type Renderer interface {
	RenderPage(ctx context.Context, h Handle, page int, scale float64) (*RenderedPage, error)
}

// RenderedPage is the result of rendering one page at a given scale.
type RenderedPage struct {
	Image   image.Image
	Width   int
	Height  int
	Fields  []FormField
	Regions []TextRegion
}

// FieldKind enumerates the interactive form-field types the editor overlays.
type FieldKind string

const (
	FieldText     FieldKind = "text"
	FieldCheckbox FieldKind = "checkbox"
	FieldRadio    FieldKind = "radio"
	FieldSelect   FieldKind = "select"
	FieldButton   FieldKind = "button"
)

// FormField describes one interactive field detected in the source document.
// Rect is in native space; Page is the 0-based source page index.
type FormField struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Kind     FieldKind   `json:"kind"`
	Page     int         `json:"page"`
	Rect     coords.Rect `json:"rect"`
	Value    string      `json:"value"`
	Options  []string    `json:"options,omitempty"`
	MaxLen   int         `json:"maxLen,omitempty"`
	ReadOnly bool        `json:"readOnly,omitempty"`
	Required bool        `json:"required,omitempty"`
}

// TextRegion is a piece of detected source text used by the click-to-edit
// affordance. Rect is in render space at zoom 1.
type TextRegion struct {
	Rect     coords.Rect `json:"rect"`
	Text     string      `json:"text"`
	FontSize float64     `json:"fontSize"`
	Color    annot.Color `json:"color"`
}
