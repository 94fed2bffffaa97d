package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidateResponse checks a model reply and returns the content callers
// should decode. Free-form replies (nil schema) only need to be non-blank.
// Structured replies may arrive inside a markdown code fence, which is
// removed before the JSON is checked against schema.
func ValidateResponse(schema *Schema, raw json.RawMessage) (json.RawMessage, error) {
	if schema == nil {
		if len(bytes.TrimSpace(raw)) == 0 {
			return nil, &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("blank reply")}
		}
		return raw, nil
	}

	body := stripFence(raw)
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("%s reply is not JSON: %w", schema.Name, err)}
	}

	compiled, err := schemas.get(schema)
	if err != nil {
		return nil, err
	}
	if err := compiled.Validate(doc); err != nil {
		return nil, &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("%s reply: %w", schema.Name, err)}
	}
	return body, nil
}

// stripFence removes a ```json ... ``` wrapper. Anything else is returned
// trimmed but otherwise unchanged.
func stripFence(raw json.RawMessage) json.RawMessage {
	b := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(b, []byte("```")) || !bytes.HasSuffix(b, []byte("```")) || len(b) < 6 {
		return b
	}
	b = b[3 : len(b)-3]
	// Drop the info string ("json") on the opening line.
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[i+1:]
	} else {
		b = bytes.TrimPrefix(b, []byte("json"))
	}
	return bytes.TrimSpace(b)
}

// schemaSet compiles each named schema once.
type schemaSet struct {
	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
}

var schemas = &schemaSet{compiled: make(map[string]*jsonschema.Schema)}

func (s *schemaSet) get(schema *Schema) (*jsonschema.Schema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.compiled[schema.Name]; ok {
		return c, nil
	}

	// The compiler wants decoded JSON, not Go maps holding typed slices.
	def, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchema, schema.Name, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(def))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchema, schema.Name, err)
	}

	url := "mem://deutschbot/" + schema.Name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchema, schema.Name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchema, schema.Name, err)
	}
	s.compiled[schema.Name] = compiled
	return compiled, nil
}
