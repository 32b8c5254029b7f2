// Package schema declares tool input shapes and validates untyped arguments against them.
//
// A Shape is an ordered list of fields. It is rendered as a JSON Schema, which is compiled
// once and checked with qri-io/jsonschema. A failure is reported against the first declared
// field that caused it, as a validation error from pkg/errors with one of three kinds:
// missing, type mismatch or not in enum. Fields the shape does not declare are ignored.
//
//	shape := schema.Object(
//		schema.EnumField("operation", "The arithmetic operation to perform", "add", "subtract"),
//		schema.NumberField("a", "First number"),
//		schema.NumberField("b", "Second number"),
//	)
//	args, err := shape.Validate(raw)
package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strings"
	"sync"

	"github.com/qri-io/jsonschema"

	mcperrors "github.com/ajitpratap0/mcp-memory-go/pkg/errors"
)

// Type is the JSON type a field must hold
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeObject  Type = "object"
	TypeArray   Type = "array"
)

// Field declares one named argument
type Field struct {
	Name        string
	Type        Type
	Required    bool
	Enum        []string
	Description string
}

// Optional returns a copy of the field that may be omitted
func (f Field) Optional() Field {
	f.Required = false
	return f
}

// StringField declares a required string argument
func StringField(name, description string) Field {
	return Field{Name: name, Type: TypeString, Required: true, Description: description}
}

// NumberField declares a required numeric argument
func NumberField(name, description string) Field {
	return Field{Name: name, Type: TypeNumber, Required: true, Description: description}
}

// IntegerField declares a required whole-number argument
func IntegerField(name, description string) Field {
	return Field{Name: name, Type: TypeInteger, Required: true, Description: description}
}

// BooleanField declares a required boolean argument
func BooleanField(name, description string) Field {
	return Field{Name: name, Type: TypeBoolean, Required: true, Description: description}
}

// EnumField declares a required string argument restricted to values
func EnumField(name, description string, values ...string) Field {
	return Field{Name: name, Type: TypeString, Required: true, Enum: values, Description: description}
}

// Shape is the declared input of a tool
type Shape struct {
	Fields []Field

	compiled *compiledShape
}

// Object builds a shape from fields, keeping their order
func Object(fields ...Field) Shape {
	return Shape{Fields: fields, compiled: &compiledShape{}}
}

// compiledShape holds the JSON Schemas built from a shape on first use
type compiledShape struct {
	once  sync.Once
	mu    sync.Mutex // qri schemas are not documented as goroutine-safe
	root  *jsonschema.Schema
	props map[string]*jsonschema.Schema
	types map[string]*jsonschema.Schema
	err   error
}

func (c *compiledShape) compile(s Shape) {
	c.root = &jsonschema.Schema{}
	if c.err = json.Unmarshal(s.JSONSchema(), c.root); c.err != nil {
		return
	}
	c.props = make(map[string]*jsonschema.Schema, len(s.Fields))
	c.types = make(map[string]*jsonschema.Schema, len(s.Fields))
	for _, field := range s.Fields {
		if c.props[field.Name], c.err = compileProperty(property{Type: field.Type, Enum: field.Enum}); c.err != nil {
			return
		}
		if c.types[field.Name], c.err = compileProperty(property{Type: field.Type}); c.err != nil {
			return
		}
	}
}

func compileProperty(p property) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(raw, rs); err != nil {
		return nil, err
	}
	return rs, nil
}

func (s Shape) schemas() (*compiledShape, error) {
	c := s.compiled
	if c == nil {
		c = &compiledShape{}
	}
	c.once.Do(func() { c.compile(s) })
	if c.err != nil {
		return nil, mcperrors.InternalError("invalid input schema", c.err)
	}
	return c, nil
}

// Validate checks args against shape. See Shape.Validate.
func Validate(shape Shape, args map[string]interface{}) (Args, error) {
	return shape.Validate(args)
}

// Validate checks args against the shape's JSON Schema and returns the
// declared fields that were supplied. args is not modified. An explicit null
// counts as absent for optional fields and as a type mismatch for required ones.
func (s Shape) Validate(args map[string]interface{}) (Args, error) {
	return s.ValidateContext(context.Background(), args)
}

// ValidateContext is Validate with a caller-supplied context for the schema validator.
// When several fields fail, the first one in declaration order is reported.
func (s Shape) ValidateContext(ctx context.Context, args map[string]interface{}) (Args, error) {
	c, err := s.schemas()
	if err != nil {
		return nil, err
	}

	instance := s.instance(args)

	c.mu.Lock()
	state := c.root.Validate(ctx, instance)
	if !state.IsValid() {
		err := s.classify(ctx, c, instance, *state.Errs)
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	validated := make(Args, len(s.Fields))
	for _, field := range s.Fields {
		if _, ok := instance[field.Name]; ok {
			validated[field.Name] = args[field.Name]
		}
	}
	return validated, nil
}

// instance copies args into the form the schema validator expects: optional
// nulls dropped and every number a float64.
func (s Shape) instance(args map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(args))
	for name, value := range args {
		if f, ok := toFloat(value); ok {
			value = f
		}
		out[name] = value
	}
	for _, field := range s.Fields {
		if v, ok := out[field.Name]; ok && v == nil && !field.Required {
			delete(out, field.Name)
		}
	}
	return out
}

// classify maps schema errors back onto the declared fields
func (s Shape) classify(ctx context.Context, c *compiledShape, instance map[string]interface{}, errs []jsonschema.KeyError) error {
	failed := make(map[string]bool, len(errs))
	for _, e := range errs {
		if name := topLevelProperty(e.PropertyPath); name != "" {
			failed[name] = true
		}
	}

	for _, field := range s.Fields {
		value, present := instance[field.Name]
		switch {
		case !present && field.Required:
			return mcperrors.MissingField(field.Name)
		case !present:
			continue
		case !failed[field.Name] && c.props[field.Name].Validate(ctx, value).IsValid():
			continue
		case !c.types[field.Name].Validate(ctx, value).IsValid():
			return mcperrors.TypeMismatch(field.Name, string(field.Type), value)
		default:
			return mcperrors.NotInEnum(field.Name, value, field.Enum)
		}
	}

	// Only reached if the schema rejects something no field accounts for.
	return mcperrors.ValidationError(mcperrors.KindTypeMismatch, strings.TrimPrefix(errs[0].PropertyPath, "/"), errs[0].Message)
}

// topLevelProperty returns the first token of a JSON Pointer, unescaped
func topLevelProperty(path string) string {
	path = strings.TrimPrefix(path, "#")
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return strings.NewReplacer("~1", "/", "~0", "~").Replace(path)
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, !math.IsNaN(v)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// JSONSchema renders the shape as the inputSchema advertised by tools/list.
// Properties keep their declaration order.
func (s Shape) JSONSchema() json.RawMessage {
	var buf bytes.Buffer
	buf.WriteString(`{"type":"object","properties":{`)

	required := make([]string, 0, len(s.Fields))
	for i, field := range s.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, _ := json.Marshal(field.Name)
		prop, _ := json.Marshal(property{
			Type:        field.Type,
			Enum:        field.Enum,
			Description: field.Description,
		})
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(prop)

		if field.Required {
			required = append(required, field.Name)
		}
	}
	buf.WriteByte('}')

	if len(required) > 0 {
		req, _ := json.Marshal(required)
		buf.WriteString(`,"required":`)
		buf.Write(req)
	}
	buf.WriteByte('}')

	return json.RawMessage(buf.Bytes())
}

type property struct {
	Type        Type     `json:"type"`
	Enum        []string `json:"enum,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Args holds validated arguments. Accessors assume the value was declared
// with the matching type and return the zero value otherwise.
type Args map[string]interface{}

// String returns a string argument
func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// Number returns a numeric argument
func (a Args) Number(name string) float64 {
	f, _ := toFloat(a[name])
	return f
}

// Bool returns a boolean argument
func (a Args) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

// Has reports whether the argument was supplied
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}
