package domain

import (
	"net/url"
	"strings"
	"time"
)

// Element reflects one control of a submitted form.
type Element struct {
	TagName   string `json:"tagName"`
	Type      string `json:"type"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	ClassName string `json:"className"`
	Hidden    bool   `json:"hidden"`
	Disabled  bool   `json:"disabled"`
}

// Form reflects the submitted form element.
type Form struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Method       string    `json:"method"`
	Target       string    `json:"target"`
	ClassName    string    `json:"className"`
	Title        string    `json:"title"`
	BaseURI      string    `json:"baseURI"`
	Autocomplete string    `json:"autocomplete"`
	Encoding     string    `json:"encoding"`
	Elements     []Element `json:"elements"`
	Length       int       `json:"length"`
	Hidden       bool      `json:"hidden"`
}

// WindowRef identifies the window a form lives in and its top-level window.
type WindowRef struct {
	ID          string `json:"id"`
	TopID       string `json:"topId"`
	DocumentURI string `json:"document"`
	TopURI      string `json:"top"`
}

// SubmissionEvent is the host's "form about to submit" notification payload.
type SubmissionEvent struct {
	Form      Form      `json:"form"`
	Window    WindowRef `json:"window"`
	ActionURI string    `json:"action"`
}

// SubmissionContext is the read-only view handed to providers. Providers must
// not modify it; addresses that failed to parse are nil.
type SubmissionContext struct {
	At       time.Time
	Document *url.URL
	Top      *url.URL
	Action   *url.URL
	Form     Form
	Window   WindowRef
}

// NewSubmissionContext snapshots an event at time at.
func NewSubmissionContext(evt SubmissionEvent, at time.Time) *SubmissionContext {
	form := evt.Form
	form.Elements = append([]Element(nil), evt.Form.Elements...)
	if form.Length == 0 {
		form.Length = len(form.Elements)
	}
	win := evt.Window
	if win.TopID == "" {
		win.TopID = win.ID
	}
	doc := parseURI(win.DocumentURI)
	top := parseURI(win.TopURI)
	if top == nil {
		top = doc
	}
	return &SubmissionContext{
		At:       at,
		Form:     form,
		Window:   win,
		Document: doc,
		Top:      top,
		Action:   parseURI(evt.ActionURI),
	}
}

func parseURI(raw string) *url.URL {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return nil
	}
	return u
}
