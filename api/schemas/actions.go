package schemas

// -- Recon Action Schemas --

// Header is a single HTTP header, either proposed by the agent on a request
// or observed on a response.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Parameter is a single URL query parameter attached to a proposed request.
type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Request is the one action variant the agent can currently propose: an HTTP
// call against the configured target. Method is stored upper-cased. Path may
// be relative to the target base URL or a fully qualified URL.
type Request struct {
	Method    string      `json:"method"`
	Path      string      `json:"path"`
	Headers   []Header    `json:"headers,omitempty"`
	URLParams []Parameter `json:"url_params,omitempty"`
	Body      string      `json:"body,omitempty"`
}

// Response is the normalized record of what the target returned for one
// executed Request. Instances are produced by the executor and never mutated
// afterwards. A StatusCode of zero marks a transport failure that produced no
// HTTP response at all; Body then carries the error text.
type Response struct {
	StatusCode int      `json:"status_code"`
	Headers    []Header `json:"headers,omitempty"`
	Body       string   `json:"body,omitempty"`
}
