package factlookup

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Default form field names of the public validator page.
const (
	DefaultFirstPartField  = "ctl00$ContentPlaceHolder1$SsnFirstPartTextBox"
	DefaultSecondPartField = "ctl00$ContentPlaceHolder1$SsnSecondPartTextBox"
	DefaultThirdPartField  = "ctl00$ContentPlaceHolder1$SsnThirdPartTextBox"

	// DefaultURL is the public validator form.
	DefaultURL = "https://www.ssnvalidator.com/index.aspx"
)

// maxPageSize caps the result page read from the remote form.
const maxPageSize = 2 << 20

// FormConfig describes how to submit the remote form and read its answer.
type FormConfig struct {
	URL             string            // URL receives the POST
	FirstPartField  string            // FirstPartField carries the 3-digit group
	SecondPartField string            // SecondPartField carries the 2-digit group
	ThirdPartField  string            // ThirdPartField carries the 4-digit group
	ExtraFields     map[string]string // ExtraFields are sent verbatim (terms, submit button, view state)
	ResultElementID string            // ResultElementID is the id of the element holding the verdict
	AliveMarker     string            // AliveMarker is a substring meaning alive
	DeceasedMarker  string            // DeceasedMarker is a substring meaning deceased
}

// DefaultFormConfig returns the field layout of the public validator page.
func DefaultFormConfig() FormConfig {
	return FormConfig{
		URL:             DefaultURL,
		FirstPartField:  DefaultFirstPartField,
		SecondPartField: DefaultSecondPartField,
		ThirdPartField:  DefaultThirdPartField,
		ExtraFields: map[string]string{
			"ctl00$ContentPlaceHolder1$accept_terms": "YesRadioButton",
			"ctl00$ContentPlaceHolder1$SubmitButton": "Search",
		},
		ResultElementID: "ContentPlaceHolder1_ResultLabel",
		AliveMarker:     "LIVING",
		DeceasedMarker:  "DECEASED",
	}
}

// Form looks facts up by posting a web form and scraping the result page.
// A page whose verdict cannot be read is unavailable, never false.
type Form struct {
	cfg    FormConfig
	client *http.Client
}

// NewForm creates a form lookup. A nil client means http.DefaultClient.
func NewForm(cfg FormConfig, client *http.Client) *Form {
	if client == nil {
		client = http.DefaultClient
	}

	return &Form{cfg: cfg, client: client}
}

// Lookup implements Lookup.
func (f *Form) Lookup(ctx context.Context, subjectID string) (bool, error) {
	area, group, serial, err := Split(subjectID)
	if err != nil {
		return false, err
	}

	values := url.Values{}
	for k, v := range f.cfg.ExtraFields {
		values.Set(k, v)
	}
	values.Set(f.cfg.FirstPartField, area)
	values.Set(f.cfg.SecondPartField, group)
	values.Set(f.cfg.ThirdPartField, serial)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.URL, strings.NewReader(values.Encode()))
	if err != nil {
		return false, &UnavailableError{SubjectID: subjectID, Reason: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		return false, &UnavailableError{SubjectID: subjectID, Reason: "post form", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return false, &UnavailableError{SubjectID: subjectID, Reason: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return false, &UnavailableError{SubjectID: subjectID, Reason: "parse page", Err: err}
	}

	return f.verdict(subjectID, doc)
}

// verdict reads the result element of a parsed page.
func (f *Form) verdict(subjectID string, doc *html.Node) (bool, error) {
	el := findByID(doc, f.cfg.ResultElementID)
	if el == nil {
		return false, &UnavailableError{SubjectID: subjectID, Reason: fmt.Sprintf("result element %q not found", f.cfg.ResultElementID)}
	}

	text := strings.ToUpper(textContent(el))
	alive := strings.Contains(text, strings.ToUpper(f.cfg.AliveMarker))
	deceased := strings.Contains(text, strings.ToUpper(f.cfg.DeceasedMarker))

	switch {
	case alive && !deceased:
		return true, nil
	case deceased && !alive:
		return false, nil
	default:
		return false, &UnavailableError{SubjectID: subjectID, Reason: fmt.Sprintf("unrecognised verdict %q", strings.TrimSpace(text))}
	}
}

// findByID returns the first element with the given id attribute.
func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}

	return nil
}

// textContent concatenates the text nodes below n.
func textContent(n *html.Node) string {
	var b strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return b.String()
}
