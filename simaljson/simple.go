package simaljson

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/simal-lang/simal/ast"
)

// Simple renders the flattened, prompt-oriented JSON form.
func Simple(sys *ast.System) ([]byte, error) {
	return json.MarshalIndent(SimpleValue(sys, false), "", "    ")
}

// MaxSimple renders the simple form with methods and endpoints
// compressed into single definition strings where possible.
func MaxSimple(sys *ast.System) ([]byte, error) {
	return json.MarshalIndent(SimpleValue(sys, true), "", "    ")
}

// SimpleValue builds the simple-JSON value tree without serializing it.
func SimpleValue(sys *ast.System, maxSimplify bool) any {
	out := newObject()
	addSimpleAttrs(out, sys.Attributes, maxSimplify)

	services := make([]any, 0, len(sys.Services))
	for _, svc := range sys.Services {
		s := newObject().set("name", svc.Name)
		addAnnotations(s, svc.Annotations)
		addSimpleAttrs(s, svc.Attributes, maxSimplify)
		services = append(services, s)
	}
	out.set("services", services)
	return out
}

// object is an insertion-ordered JSON object; encoding/json sorts map
// keys, which would destroy source ordering.
type object struct {
	keys []string
	vals map[string]any
}

func newObject() *object {
	return &object{vals: make(map[string]any)}
}

func (o *object) set(key string, val any) *object {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = val
	return o
}

func (o *object) len() int { return len(o.keys) }

func (o *object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func addSimpleAttrs(o *object, m *ast.Map, maxSimplify bool) {
	if m == nil {
		return
	}
	for _, e := range m.Entries {
		o.set(e.Key, simpleAttr(e, maxSimplify))
	}
}

// simpleAttr flattens one attribute: without annotations the value
// stands alone under its key; with annotations it becomes a
// {value, annotations} wrapper so the markers survive.
func simpleAttr(e *ast.Attribute, maxSimplify bool) any {
	val := simpleValue(e.Value, maxSimplify)
	if len(e.Annotations) == 0 {
		return val
	}
	return newObject().
		set("value", val).
		set("annotations", annotationStrings(e.Annotations))
}

func simpleValue(v ast.Value, maxSimplify bool) any {
	switch v := v.(type) {
	case ast.Scalar:
		return string(v)
	case *ast.Map:
		o := newObject()
		addSimpleAttrs(o, v, maxSimplify)
		return o
	case *ast.List:
		items := make([]any, 0, len(v.Items))
		for _, item := range v.Items {
			items = append(items, simpleValue(item, maxSimplify))
		}
		return items
	case *ast.Attribute:
		// annotated list element
		return newObject().
			set("value", simpleValue(v.Value, maxSimplify)).
			set("annotations", annotationStrings(v.Annotations))
	case *ast.Block:
		o := newObject().set("kind", v.Kind).set("name", v.Name)
		addAnnotations(o, v.Annotations)
		addSimpleAttrs(o, v.Attributes, maxSimplify)
		return o
	case *ast.Field:
		return simpleField(v)
	case *ast.Method:
		return simpleMethod(v, maxSimplify)
	case *ast.Endpoint:
		return simpleEndpoint(v, maxSimplify)
	case nil:
		return nil
	}
	return nil
}

func annotationStrings(anns []*ast.Annotation) []string {
	out := make([]string, 0, len(anns))
	for _, a := range anns {
		if len(a.Args) == 0 {
			out = append(out, a.Name)
		} else {
			out = append(out, a.Name+"("+strings.Join(a.Args, ", ")+")")
		}
	}
	return out
}

func addAnnotations(o *object, anns []*ast.Annotation) {
	if len(anns) > 0 {
		o.set("annotations", annotationStrings(anns))
	}
}

func simpleField(f *ast.Field) any {
	o := newObject().
		set("visibility", string(f.Visibility)).
		set("name", f.Name).
		set("type", f.Type)
	addAnnotations(o, f.Annotations)
	return o
}

func methodSignature(m *ast.Method) string {
	return strings.TrimSpace(m.Visibility.Symbol() + m.Name + "(" + m.Params + ") -> " + m.Returns)
}

func simpleMethod(m *ast.Method, maxSimplify bool) any {
	if !maxSimplify {
		o := newObject().
			set("visibility", string(m.Visibility)).
			set("name", m.Name).
			set("params", m.Params).
			set("returns", m.Returns)
		addAnnotations(o, m.Annotations)
		if m.Attributes.Len() > 0 {
			attrs := newObject()
			addSimpleAttrs(attrs, m.Attributes, maxSimplify)
			o.set("attributes", attrs)
		}
		return o
	}

	def := methodSignature(m)
	o := newObject().set("def", def)
	addAnnotations(o, m.Annotations)
	addSimpleAttrs(o, m.Attributes, maxSimplify)
	if o.len() == 1 {
		return def
	}
	return o
}

func endpointSignature(e *ast.Endpoint) string {
	if e.Raw != "" {
		return strings.TrimRight(strings.TrimSpace(e.Raw), ",")
	}
	// fallback reconstruction, less faithful than the raw line
	var parts []string
	if e.Style == ast.EndpointHTTP {
		parts = append(parts, e.Method)
		if e.Path != "" {
			parts = append(parts, e.Path)
		}
		if e.Request != "" {
			parts = append(parts, e.Request)
		}
	} else {
		parts = append(parts, e.Method+"("+e.Request+")")
	}
	if e.Response != "" {
		parts = append(parts, "->", e.Response)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

var bracketAttrsRe = regexp.MustCompile(`\[([^\]]*)\]`)

// bracketAttrKeys lists the attribute keys already present in a
// `[...]` section of the definition string, so max-simple output does
// not duplicate them as siblings.
func bracketAttrKeys(def string) map[string]bool {
	keys := make(map[string]bool)
	for _, m := range bracketAttrsRe.FindAllStringSubmatch(def, -1) {
		for _, part := range strings.Split(m[1], ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			key := part
			if idx := strings.Index(part, ":"); idx >= 0 {
				key = strings.TrimSpace(part[:idx])
			}
			if key != "" {
				keys[key] = true
			}
		}
	}
	return keys
}

func simpleEndpoint(e *ast.Endpoint, maxSimplify bool) any {
	if maxSimplify {
		def := endpointSignature(e)
		o := newObject().set("def", def)
		if e.Attributes.Len() > 0 {
			inBrackets := bracketAttrKeys(def)
			for _, entry := range e.Attributes.Entries {
				if !inBrackets[entry.Key] {
					o.set(entry.Key, simpleValue(entry.Value, maxSimplify))
				}
			}
		}
		addAnnotations(o, e.Annotations)
		if o.len() == 1 {
			return def
		}
		return o
	}

	o := newObject().
		set("style", string(e.Style)).
		set("method", e.Method)
	if e.Path != "" {
		o.set("path", e.Path)
	}
	if e.Request != "" {
		o.set("request", e.Request)
	}
	if e.Response != "" {
		o.set("response", e.Response)
	}
	if len(e.Inputs) > 0 {
		o.set("inputs", paramList(e.Inputs))
	}
	if len(e.Outputs) > 0 {
		o.set("outputs", paramList(e.Outputs))
	}
	if e.Attributes.Len() > 0 {
		attrs := newObject()
		addSimpleAttrs(attrs, e.Attributes, maxSimplify)
		o.set("attributes", attrs)
	}
	addAnnotations(o, e.Annotations)
	return o
}

func paramList(params []ast.Param) []any {
	out := make([]any, 0, len(params))
	for _, p := range params {
		o := newObject().
			set("name", p.Name).
			set("type", p.Type)
		if p.Optional {
			o.set("optional", true)
		}
		if len(p.Fields) > 0 {
			o.set("fields", paramList(p.Fields))
		}
		out = append(out, o)
	}
	return out
}
