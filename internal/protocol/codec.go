// File: internal/protocol/codec.go

// Package protocol implements the tagged-text wire format that carries
// structured actions between the model and the execution layer. Rendering
// produces the canonical XML-ish blocks embedded in prompts; parsing scans
// free-form model output for those blocks and is deliberately best-effort.
package protocol

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/xkilldash9x/raccoon-cli/api/schemas"
)

const (
	requestTag  = "request"
	responseTag = "response"
	headersTag  = "headers"
	headerTag   = "header"
	paramsTag   = "url-params"
	paramTag    = "param"
	bodyTag     = "body"
)

// requestBlockRe locates candidate request blocks inside arbitrary prose.
// Self-closing blocks are legal: they carry only the outer-tag attributes.
var requestBlockRe = regexp.MustCompile(`(?s)<request\b(?:[^>]*?/>|[^>]*>.*?</request>)`)

// ExampleRequest returns the canonical placeholder instance embedded in every
// prompt to teach the model the expected output shape.
func ExampleRequest() *schemas.Request {
	return &schemas.Request{
		Method:    "GET",
		Path:      "/$path",
		Headers:   []schemas.Header{{Name: "X-Header", Value: "my-value"}},
		URLParams: []schemas.Parameter{{Name: "name", Value: "test-param"}},
		Body:      "$body",
	}
}

// RenderExample produces the canonical example in the tagged wire format.
func RenderExample() string {
	return RenderRequest(ExampleRequest())
}

// RenderRequest serializes a request action into its tagged representation.
// The headers and url-params wrappers are always emitted so the model sees
// where the lists belong.
func RenderRequest(req *schemas.Request) string {
	doc := etree.NewDocument()
	root := doc.CreateElement(requestTag)
	root.CreateAttr("method", strings.ToUpper(req.Method))
	root.CreateAttr("path", req.Path)

	headers := root.CreateElement(headersTag)
	for _, h := range req.Headers {
		el := headers.CreateElement(headerTag)
		el.CreateAttr("name", h.Name)
		el.SetText(h.Value)
	}

	params := root.CreateElement(paramsTag)
	for _, p := range req.URLParams {
		el := params.CreateElement(paramTag)
		el.CreateAttr("name", p.Name)
		el.SetText(p.Value)
	}

	root.CreateElement(bodyTag).SetText(req.Body)

	doc.Indent(2)
	out, _ := doc.WriteToString()
	return strings.TrimSpace(out)
}

// RenderResponse serializes an executed response into the mirror format: a
// status-code attribute, repeated header entries, and the trimmed body.
func RenderResponse(resp *schemas.Response) string {
	doc := etree.NewDocument()
	root := doc.CreateElement(responseTag)
	root.CreateAttr("status-code", strconv.Itoa(resp.StatusCode))

	headers := root.CreateElement(headersTag)
	for _, h := range resp.Headers {
		el := headers.CreateElement(headerTag)
		el.CreateAttr("name", h.Name)
		el.SetText(h.Value)
	}

	root.CreateElement(bodyTag).SetText(resp.Body)

	doc.Indent(2)
	out, _ := doc.WriteToString()
	return strings.TrimSpace(out)
}

// ParseMany scans arbitrary free text for well-formed request blocks and
// returns them in document order. Malformed or incomplete blocks are silently
// skipped, so the result may be empty. The function is total: any input,
// including model commentary around and between blocks, yields a (possibly
// empty) slice and never an error.
func ParseMany(text string) []*schemas.Request {
	var out []*schemas.Request
	for _, candidate := range requestBlockRe.FindAllString(text, -1) {
		if req, ok := parseBlock(candidate); ok {
			out = append(out, req)
		}
	}
	return out
}

// parseBlock turns one extracted candidate into a request. ok is false when
// the candidate is not valid XML or violates the wire contract (missing
// method/path on the outer tag, missing name on a nested entry).
func parseBlock(block string) (*schemas.Request, bool) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	if err := doc.ReadFromString(block); err != nil {
		return nil, false
	}
	root := doc.Root()
	if root == nil || root.Tag != requestTag {
		return nil, false
	}

	methodAttr := root.SelectAttr("method")
	pathAttr := root.SelectAttr("path")
	if methodAttr == nil || pathAttr == nil {
		return nil, false
	}

	req := &schemas.Request{
		Method: strings.ToUpper(methodAttr.Value),
		Path:   pathAttr.Value,
	}

	if wrap := root.SelectElement(headersTag); wrap != nil {
		for _, el := range wrap.SelectElements(headerTag) {
			name := el.SelectAttr("name")
			if name == nil {
				return nil, false
			}
			req.Headers = append(req.Headers, schemas.Header{
				Name:  name.Value,
				Value: strings.TrimSpace(el.Text()),
			})
		}
	}

	if wrap := root.SelectElement(paramsTag); wrap != nil {
		for _, el := range wrap.SelectElements(paramTag) {
			name := el.SelectAttr("name")
			if name == nil {
				return nil, false
			}
			req.URLParams = append(req.URLParams, schemas.Parameter{
				Name:  name.Value,
				Value: strings.TrimSpace(el.Text()),
			})
		}
	}

	if body := root.SelectElement(bodyTag); body != nil {
		req.Body = strings.TrimSpace(body.Text())
	}

	return req, true
}
