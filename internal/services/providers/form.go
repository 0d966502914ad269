package providers

import (
	"context"

	"github.com/vshulcz/formmetrics/internal/domain"
)

// Form reports the submitted form's attributes and one entry per control.
type Form struct{}

func (Form) Get(_ context.Context, sc *domain.SubmissionContext) (domain.Value, error) {
	f := sc.Form
	elements := make([]domain.Value, 0, len(f.Elements))
	for _, el := range f.Elements {
		elements = append(elements, elementValue(el))
	}
	return domain.Object(
		domain.F("id", domain.String(f.ID)),
		domain.F("name", domain.String(f.Name)),
		domain.F("method", domain.String(f.Method)),
		domain.F("target", domain.String(f.Target)),
		domain.F("length", domain.Int(int64(f.Length))),
		domain.F("className", domain.String(f.ClassName)),
		domain.F("title", domain.String(f.Title)),
		domain.F("baseURI", domain.String(f.BaseURI)),
		domain.F("hidden", domain.Bool(f.Hidden)),
		domain.F("autocomplete", domain.String(f.Autocomplete)),
		domain.F("encoding", domain.String(f.Encoding)),
		domain.F("elements", domain.List(elements...)),
	), nil
}

func elementValue(el domain.Element) domain.Value {
	return domain.Object(
		domain.F("tagName", domain.String(el.TagName)),
		domain.F("type", domain.String(el.Type)),
		domain.F("id", domain.String(el.ID)),
		domain.F("name", domain.String(el.Name)),
		domain.F("className", domain.String(el.ClassName)),
		domain.F("hidden", domain.Bool(el.Hidden)),
		domain.F("disabled", domain.Bool(el.Disabled)),
	)
}
