package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Endpoint is a mock candidate extracted from an OpenAPI document: one
// method/path pair with a generated success body.
type Endpoint struct {
	Method string
	Path   string
	Status int
	Body   any
}

// LoadSpec reads and resolves an OpenAPI 3 document from disk.
func LoadSpec(path string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI spec from %s: %w", path, err)
	}
	return doc, nil
}

// LoadSpecFromData parses an OpenAPI 3 document from raw JSON or YAML bytes.
func LoadSpecFromData(data []byte) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI spec: %w", err)
	}
	return doc, nil
}

// FromOpenAPI walks every operation in the document and produces an Endpoint
// per method/path with a synthesized body for its first 2xx response. Path
// parameters are rewritten from {id} form to :id form. Endpoints come back
// sorted by path then method so output is stable across runs.
func (g *Generator) FromOpenAPI(doc *openapi3.T) ([]Endpoint, error) {
	if doc == nil || doc.Paths == nil {
		return nil, fmt.Errorf("OpenAPI document has no paths")
	}

	// Walk paths and methods in sorted order so a seeded generator
	// produces identical bodies across runs.
	pathMap := doc.Paths.Map()
	paths := make([]string, 0, len(pathMap))
	for p := range pathMap {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var endpoints []Endpoint
	for _, specPath := range paths {
		item := pathMap[specPath]
		if item == nil {
			continue
		}
		ops := item.Operations()
		methods := make([]string, 0, len(ops))
		for m := range ops {
			methods = append(methods, m)
		}
		sort.Strings(methods)

		for _, method := range methods {
			op := ops[method]
			if op == nil {
				continue
			}
			status, node := successResponse(op)
			ep := Endpoint{
				Method: method,
				Path:   convertPath(specPath),
				Status: status,
			}
			if node != nil {
				ep.Body = g.Generate(node)
			}
			endpoints = append(endpoints, ep)
		}
	}
	return endpoints, nil
}

// successResponse picks the lowest 2xx response, falling back to 200 with no
// body when the operation declares none.
func successResponse(op *openapi3.Operation) (int, *Node) {
	if op.Responses == nil {
		return 200, nil
	}
	best := 0
	var bestRef *openapi3.ResponseRef
	for code, ref := range op.Responses.Map() {
		n, err := strconv.Atoi(code)
		if err != nil || n < 200 || n > 299 {
			continue
		}
		if best == 0 || n < best {
			best = n
			bestRef = ref
		}
	}
	if best == 0 {
		return 200, nil
	}
	if bestRef == nil || bestRef.Value == nil {
		return best, nil
	}
	for contentType, media := range bestRef.Value.Content {
		if !strings.HasPrefix(contentType, "application/json") {
			continue
		}
		if media.Schema != nil && media.Schema.Value != nil {
			return best, FromOpenAPISchema(media.Schema.Value)
		}
	}
	return best, nil
}

// FromOpenAPISchema converts a resolved openapi3 schema into a Node tree.
func FromOpenAPISchema(s *openapi3.Schema) *Node {
	return fromOpenAPISchema(s, 0)
}

func fromOpenAPISchema(s *openapi3.Schema, depth int) *Node {
	if s == nil || depth > DefaultMaxDepth {
		return nil
	}

	node := &Node{
		Format:     s.Format,
		Example:    s.Example,
		Enum:       s.Enum,
		Minimum:    s.Min,
		Maximum:    s.Max,
		MultipleOf: s.MultipleOf,
	}
	if types := s.Type.Slice(); len(types) > 0 {
		node.Type = types[0]
	}
	if s.MinLength > 0 {
		n := int(s.MinLength)
		node.MinLength = &n
	}
	if s.MaxLength != nil {
		n := int(*s.MaxLength)
		node.MaxLength = &n
	}
	if s.MinItems > 0 {
		n := int(s.MinItems)
		node.MinItems = &n
	}
	if s.MaxItems != nil {
		n := int(*s.MaxItems)
		node.MaxItems = &n
	}

	if len(s.Properties) > 0 {
		node.Properties = make(map[string]*Node, len(s.Properties))
		for name, ref := range s.Properties {
			if ref != nil && ref.Value != nil {
				node.Properties[name] = fromOpenAPISchema(ref.Value, depth+1)
			}
		}
		if node.Type == "" {
			node.Type = "object"
		}
	}
	if s.Items != nil && s.Items.Value != nil {
		node.Items = fromOpenAPISchema(s.Items.Value, depth+1)
		if node.Type == "" {
			node.Type = "array"
		}
	}
	return node
}

// convertPath rewrites OpenAPI {param} segments to :param form.
func convertPath(p string) string {
	segs := strings.Split(p, "/")
	for i, seg := range segs {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			segs[i] = ":" + seg[1:len(seg)-1]
		}
	}
	return strings.Join(segs, "/")
}
