package simaljson

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/simal-lang/simal/ast"
)

const (
	typeSystem     = "System"
	typeService    = "Service"
	typeBlock      = "Block"
	typeAttribute  = "Attribute"
	typeAnnotation = "Annotation"
	typeField      = "Field"
	typeMethod     = "Method"
	typeEndpoint   = "Endpoint"
)

type fullAnnotation struct {
	Type string   `json:"__type__"`
	Name string   `json:"name"`
	Args []string `json:"args,omitempty"`
}

type fullEntry struct {
	Key         string           `json:"key"`
	Value       any              `json:"value"`
	Annotations []fullAnnotation `json:"annotations,omitempty"`
}

type fullSystem struct {
	Type       string        `json:"__type__"`
	Attributes []fullEntry   `json:"attributes"`
	Services   []fullService `json:"services"`
}

type fullService struct {
	Type        string           `json:"__type__"`
	Name        string           `json:"name"`
	Attributes  []fullEntry      `json:"attributes"`
	Annotations []fullAnnotation `json:"annotations,omitempty"`
}

type fullBlock struct {
	Type        string           `json:"__type__"`
	Kind        string           `json:"kind"`
	Name        string           `json:"name"`
	Attributes  []fullEntry      `json:"attributes"`
	Annotations []fullAnnotation `json:"annotations,omitempty"`
}

type fullAttribute struct {
	Type        string           `json:"__type__"`
	Key         string           `json:"key,omitempty"`
	Value       any              `json:"value"`
	Annotations []fullAnnotation `json:"annotations,omitempty"`
}

type fullField struct {
	Type        string           `json:"__type__"`
	Visibility  string           `json:"visibility"`
	Name        string           `json:"name"`
	FieldType   string           `json:"type"`
	Annotations []fullAnnotation `json:"annotations,omitempty"`
}

type fullMethod struct {
	Type        string           `json:"__type__"`
	Visibility  string           `json:"visibility"`
	Name        string           `json:"name"`
	Params      string           `json:"params"`
	Returns     string           `json:"returns"`
	Attributes  []fullEntry      `json:"attributes,omitempty"`
	Annotations []fullAnnotation `json:"annotations,omitempty"`
}

type fullEndpoint struct {
	Type        string           `json:"__type__"`
	Style       string           `json:"style"`
	Method      string           `json:"method"`
	Path        string           `json:"path,omitempty"`
	Request     string           `json:"request"`
	Response    string           `json:"response"`
	Raw         string           `json:"raw,omitempty"`
	Attributes  []fullEntry      `json:"attributes,omitempty"`
	Annotations []fullAnnotation `json:"annotations,omitempty"`
}

// Full renders the system as indented, round-trippable JSON.
func Full(sys *ast.System) ([]byte, error) {
	return json.MarshalIndent(FullValue(sys), "", "    ")
}

// FullValue builds the full-JSON value tree without serializing it.
func FullValue(sys *ast.System) any {
	services := make([]fullService, 0, len(sys.Services))
	for _, svc := range sys.Services {
		services = append(services, fullService{
			Type:        typeService,
			Name:        svc.Name,
			Attributes:  fullEntries(svc.Attributes),
			Annotations: fullAnnotations(svc.Annotations),
		})
	}
	return fullSystem{
		Type:       typeSystem,
		Attributes: fullEntries(sys.Attributes),
		Services:   services,
	}
}

func fullAnnotations(anns []*ast.Annotation) []fullAnnotation {
	if len(anns) == 0 {
		return nil
	}
	out := make([]fullAnnotation, 0, len(anns))
	for _, a := range anns {
		out = append(out, fullAnnotation{Type: typeAnnotation, Name: a.Name, Args: a.Args})
	}
	return out
}

func fullEntries(m *ast.Map) []fullEntry {
	entries := make([]fullEntry, 0, m.Len())
	if m == nil {
		return entries
	}
	for _, e := range m.Entries {
		entries = append(entries, fullEntry{
			Key:         e.Key,
			Value:       fullValue(e.Value),
			Annotations: fullAnnotations(e.Annotations),
		})
	}
	return entries
}

func fullValue(v ast.Value) any {
	switch v := v.(type) {
	case ast.Scalar:
		return string(v)
	case *ast.Map:
		return fullEntries(v)
	case *ast.List:
		items := make([]any, 0, len(v.Items))
		for _, item := range v.Items {
			items = append(items, fullValue(item))
		}
		return items
	case *ast.Attribute:
		return fullAttribute{
			Type:        typeAttribute,
			Key:         v.Key,
			Value:       fullValue(v.Value),
			Annotations: fullAnnotations(v.Annotations),
		}
	case *ast.Block:
		return fullBlock{
			Type:        typeBlock,
			Kind:        v.Kind,
			Name:        v.Name,
			Attributes:  fullEntries(v.Attributes),
			Annotations: fullAnnotations(v.Annotations),
		}
	case *ast.Field:
		return fullField{
			Type:        typeField,
			Visibility:  string(v.Visibility),
			Name:        v.Name,
			FieldType:   v.Type,
			Annotations: fullAnnotations(v.Annotations),
		}
	case *ast.Method:
		return fullMethod{
			Type:        typeMethod,
			Visibility:  string(v.Visibility),
			Name:        v.Name,
			Params:      v.Params,
			Returns:     v.Returns,
			Attributes:  fullEntriesOmitEmpty(v.Attributes),
			Annotations: fullAnnotations(v.Annotations),
		}
	case *ast.Endpoint:
		return fullEndpoint{
			Type:        typeEndpoint,
			Style:       string(v.Style),
			Method:      v.Method,
			Path:        v.Path,
			Request:     v.Request,
			Response:    v.Response,
			Raw:         v.Raw,
			Attributes:  fullEntriesOmitEmpty(v.Attributes),
			Annotations: fullAnnotations(v.Annotations),
		}
	case nil:
		return nil
	}
	return fmt.Sprintf("%v", v)
}

func fullEntriesOmitEmpty(m *ast.Map) []fullEntry {
	if m.Len() == 0 {
		return nil
	}
	return fullEntries(m)
}

// FromFull reconstructs an AST from full JSON previously produced by
// Full. Derived fields (shapes, inputs, outputs) are not stored in the
// full form; re-run signature enrichment if they are needed.
func FromFull(data []byte) (*ast.System, error) {
	var root struct {
		Type       string            `json:"__type__"`
		Attributes []json.RawMessage `json:"attributes"`
		Services   []json.RawMessage `json:"services"`
	}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Type != typeSystem {
		return nil, fmt.Errorf("expected root __type__ %q, got %q", typeSystem, root.Type)
	}

	attrs, err := decodeEntries(root.Attributes)
	if err != nil {
		return nil, err
	}
	sys := &ast.System{Attributes: attrs}
	for _, raw := range root.Services {
		svc, err := decodeService(raw)
		if err != nil {
			return nil, err
		}
		sys.Services = append(sys.Services, svc)
	}
	return sys, nil
}

type rawEntry struct {
	Key         *string           `json:"key"`
	Value       json.RawMessage   `json:"value"`
	Annotations []json.RawMessage `json:"annotations"`
	Type        *string           `json:"__type__"`
}

func decodeEntries(raws []json.RawMessage) (*ast.Map, error) {
	m := ast.NewMap()
	for _, raw := range raws {
		var e rawEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		if e.Key == nil {
			return nil, fmt.Errorf("map entry missing key: %s", string(raw))
		}
		val, err := decodeValue(e.Value)
		if err != nil {
			return nil, err
		}
		anns, err := decodeAnnotations(e.Annotations)
		if err != nil {
			return nil, err
		}
		m.Append(&ast.Attribute{Key: *e.Key, Value: val, Annotations: anns})
	}
	return m, nil
}

func decodeAnnotations(raws []json.RawMessage) ([]*ast.Annotation, error) {
	var anns []*ast.Annotation
	for _, raw := range raws {
		var a struct {
			Name string   `json:"name"`
			Args []string `json:"args"`
		}
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		anns = append(anns, &ast.Annotation{Name: a.Name, Args: a.Args})
	}
	return anns, nil
}

func decodeService(raw json.RawMessage) (*ast.Service, error) {
	var s struct {
		Name        string            `json:"name"`
		Attributes  []json.RawMessage `json:"attributes"`
		Annotations []json.RawMessage `json:"annotations"`
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	attrs, err := decodeEntries(s.Attributes)
	if err != nil {
		return nil, err
	}
	anns, err := decodeAnnotations(s.Annotations)
	if err != nil {
		return nil, err
	}
	return &ast.Service{Name: s.Name, Attributes: attrs, Annotations: anns}, nil
}

// decodeValue reconstructs one value. Strings are scalars; arrays are
// ordered maps when every element looks like a {key, value} entry, and
// lists otherwise; objects dispatch on their __type__ tag.
func decodeValue(raw json.RawMessage) (ast.Value, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ast.Scalar(""), nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, err
		}
		return ast.Scalar(s), nil
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return nil, err
		}
		if len(elems) > 0 && allEntries(elems) {
			return decodeEntries(elems)
		}
		list := &ast.List{}
		for _, el := range elems {
			v, err := decodeValue(el)
			if err != nil {
				return nil, err
			}
			list.Items = append(list.Items, v)
		}
		return list, nil
	case '{':
		return decodeNode(trimmed)
	}
	return nil, fmt.Errorf("unsupported JSON value: %s", string(trimmed))
}

func allEntries(elems []json.RawMessage) bool {
	for _, el := range elems {
		t := bytes.TrimSpace(el)
		if len(t) == 0 || t[0] != '{' {
			return false
		}
		var e rawEntry
		if err := json.Unmarshal(t, &e); err != nil {
			return false
		}
		if e.Type != nil || e.Key == nil || e.Value == nil {
			return false
		}
	}
	return true
}

func decodeNode(raw json.RawMessage) (ast.Value, error) {
	var probe struct {
		Type string `json:"__type__"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	switch probe.Type {
	case typeAttribute:
		var a struct {
			Key         string            `json:"key"`
			Value       json.RawMessage   `json:"value"`
			Annotations []json.RawMessage `json:"annotations"`
		}
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		val, err := decodeValue(a.Value)
		if err != nil {
			return nil, err
		}
		anns, err := decodeAnnotations(a.Annotations)
		if err != nil {
			return nil, err
		}
		return &ast.Attribute{Key: a.Key, Value: val, Annotations: anns}, nil

	case typeBlock:
		var b struct {
			Kind        string            `json:"kind"`
			Name        string            `json:"name"`
			Attributes  []json.RawMessage `json:"attributes"`
			Annotations []json.RawMessage `json:"annotations"`
		}
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		attrs, err := decodeEntries(b.Attributes)
		if err != nil {
			return nil, err
		}
		anns, err := decodeAnnotations(b.Annotations)
		if err != nil {
			return nil, err
		}
		return &ast.Block{Kind: b.Kind, Name: b.Name, Attributes: attrs, Annotations: anns}, nil

	case typeField:
		var f struct {
			Visibility  string            `json:"visibility"`
			Name        string            `json:"name"`
			FieldType   string            `json:"type"`
			Annotations []json.RawMessage `json:"annotations"`
		}
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, err
		}
		anns, err := decodeAnnotations(f.Annotations)
		if err != nil {
			return nil, err
		}
		return &ast.Field{
			Visibility:  ast.Visibility(f.Visibility),
			Name:        f.Name,
			Type:        f.FieldType,
			Annotations: anns,
		}, nil

	case typeMethod:
		var m struct {
			Visibility  string            `json:"visibility"`
			Name        string            `json:"name"`
			Params      string            `json:"params"`
			Returns     string            `json:"returns"`
			Attributes  []json.RawMessage `json:"attributes"`
			Annotations []json.RawMessage `json:"annotations"`
		}
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		attrs, err := decodeEntries(m.Attributes)
		if err != nil {
			return nil, err
		}
		anns, err := decodeAnnotations(m.Annotations)
		if err != nil {
			return nil, err
		}
		return &ast.Method{
			Visibility:  ast.Visibility(m.Visibility),
			Name:        m.Name,
			Params:      m.Params,
			Returns:     m.Returns,
			Attributes:  attrs,
			Annotations: anns,
		}, nil

	case typeEndpoint:
		var e struct {
			Style       string            `json:"style"`
			Method      string            `json:"method"`
			Path        string            `json:"path"`
			Request     string            `json:"request"`
			Response    string            `json:"response"`
			Raw         string            `json:"raw"`
			Attributes  []json.RawMessage `json:"attributes"`
			Annotations []json.RawMessage `json:"annotations"`
		}
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		attrs, err := decodeEntries(e.Attributes)
		if err != nil {
			return nil, err
		}
		anns, err := decodeAnnotations(e.Annotations)
		if err != nil {
			return nil, err
		}
		return &ast.Endpoint{
			Style:       ast.EndpointStyle(e.Style),
			Method:      e.Method,
			Path:        e.Path,
			Request:     e.Request,
			Response:    e.Response,
			Raw:         e.Raw,
			Attributes:  attrs,
			Annotations: anns,
		}, nil
	}
	return nil, fmt.Errorf("unknown __type__ %q in full JSON", probe.Type)
}
