package ast

// Visibility is a UML-style member visibility. The zero value is
// VisibilityNone, used when no marker is present.
type Visibility string

const (
	VisibilityNone      Visibility = "none"
	VisibilityPublic    Visibility = "public"
	VisibilityPrivate   Visibility = "private"
	VisibilityProtected Visibility = "protected"
)

// VisibilityFromSymbol maps the source markers +, -, and # to their
// visibility. Any other symbol (including "") maps to VisibilityNone.
func VisibilityFromSymbol(sym string) Visibility {
	switch sym {
	case "+":
		return VisibilityPublic
	case "-":
		return VisibilityPrivate
	case "#":
		return VisibilityProtected
	}
	return VisibilityNone
}

// Symbol returns the source marker for v, or "" for VisibilityNone.
func (v Visibility) Symbol() string {
	switch v {
	case VisibilityPublic:
		return "+"
	case VisibilityPrivate:
		return "-"
	case VisibilityProtected:
		return "#"
	}
	return ""
}

// Field is one item of a `fields` list.
type Field struct {
	Visibility  Visibility
	Name        string
	Type        string
	Annotations []*Annotation
}

func (*Field) isValue() {}

// Method is one item of a `methods` list. Params and Returns hold the
// raw signature text with single-space token reconstruction; Attributes
// holds the optional body and may be empty.
//
// Inputs and Outputs are filled by signature.EnrichMethods and are not
// part of the parsed form.
type Method struct {
	Visibility  Visibility
	Name        string
	Params      string
	Returns     string
	Attributes  *Map
	Annotations []*Annotation

	Inputs  []Param
	Outputs []Param
}

func (*Method) isValue() {}

// EndpointStyle discriminates the two endpoint grammars.
type EndpointStyle string

const (
	EndpointHTTP EndpointStyle = "http"
	EndpointGRPC EndpointStyle = "grpc"
)

// Endpoint is one item of an `endpoints` list. Method holds the HTTP
// verb for http-style endpoints and the rpc name for grpc-style ones;
// Path is empty for grpc. Request and Response keep the raw signature
// text. Raw is the whole source line, compacted.
//
// RequestShape, ResponseShape, Inputs, and Outputs are derived by the
// signature enrichment pass; when enrichment fails for an endpoint they
// stay nil and only the raw strings remain.
type Endpoint struct {
	Style    EndpointStyle
	Method   string
	Path     string
	Request  string
	Response string
	Raw      string

	Attributes  *Map
	Annotations []*Annotation

	RequestShape  Shape
	ResponseShape Shape
	Inputs        []Param
	Outputs       []Param
}

func (*Endpoint) isValue() {}
