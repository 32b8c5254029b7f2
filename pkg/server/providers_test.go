package server

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/ajitpratap0/mcp-memory-go/pkg/errors"
	"github.com/ajitpratap0/mcp-memory-go/pkg/protocol"
	"github.com/ajitpratap0/mcp-memory-go/pkg/schema"
	"github.com/ajitpratap0/mcp-memory-go/pkg/store"
)

func noopTool(name string) ToolDescriptor {
	return ToolDescriptor{
		Name:    name,
		Input:   schema.Object(),
		Handler: func(context.Context, schema.Args) (*protocol.CallToolResult, error) { return nil, nil },
	}
}

func TestToolRegistryRegisterAndList(t *testing.T) {
	reg := NewToolRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, reg.Register(noopTool(name)))
	}

	var names []string
	for _, tool := range reg.List() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)

	desc, ok := reg.Get("alpha")
	assert.True(t, ok)
	assert.Equal(t, "alpha", desc.Name)

	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestToolRegistryDuplicateName(t *testing.T) {
	reg := NewToolRegistry()
	require.NoError(t, reg.Register(noopTool("echo")))

	err := reg.Register(noopTool("echo"))
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeResourceConflict))
	assert.Len(t, reg.List(), 1)
}

func TestToolDescriptorAdvertisesSchema(t *testing.T) {
	desc := ToolDescriptor{
		Name:        "echo",
		Description: "Echo back the provided text",
		Input:       schema.Object(schema.StringField("text", "Text to echo back")),
	}

	tool := desc.Tool()
	assert.Equal(t, "echo", tool.Name)
	assert.JSONEq(t, `{
		"type": "object",
		"properties": {"text": {"type": "string", "description": "Text to echo back"}},
		"required": ["text"]
	}`, string(tool.InputSchema))
}

func TestResourceRegistryListAndDuplicate(t *testing.T) {
	reg := NewResourceRegistry(store.New())
	for _, desc := range BuiltinResources() {
		require.NoError(t, reg.Register(desc))
	}

	err := reg.Register(ResourceDescriptor{URI: "memory://config"})
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeResourceConflict))

	want := []protocol.Resource{
		{URI: "memory://config", MimeType: "application/json", Name: "Configuration Settings", Description: "Application configuration data"},
		{URI: "memory://data", MimeType: "application/json", Name: "Application Data", Description: "Sample application data including users and tasks"},
	}
	if diff := cmp.Diff(want, reg.List()); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestResourceRegistryRead(t *testing.T) {
	st := store.Seeded(store.DefaultSeed())
	reg := NewResourceRegistry(st)
	for _, desc := range BuiltinResources() {
		require.NoError(t, reg.Register(desc))
	}
	ctx := context.Background()

	t.Run("registered store entry", func(t *testing.T) {
		result, err := reg.Read(ctx, "memory://config")
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)

		content := result.Contents[0]
		assert.Equal(t, "memory://config", content.URI)
		assert.Equal(t, "application/json", content.MimeType)
		assert.Equal(t, "{\n  \"language\": \"en\",\n  \"theme\": \"dark\"\n}", content.Text)
	})

	t.Run("unregistered key in store", func(t *testing.T) {
		st.Set("notes", []interface{}{"a", "b"})
		result, err := reg.Read(ctx, "memory://notes")
		require.NoError(t, err)
		assert.Equal(t, "[\n  \"a\",\n  \"b\"\n]", result.Contents[0].Text)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := reg.Read(ctx, "memory://nope")
		require.Error(t, err)
		assert.True(t, mcperrors.IsCode(err, mcperrors.CodeInvalidRequest))
		assert.Equal(t, "Resource not found: memory://nope", err.Error())
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		_, err := reg.Read(ctx, "file:///etc/passwd")
		require.Error(t, err)
		assert.True(t, mcperrors.IsCode(err, mcperrors.CodeInvalidRequest))
		assert.Equal(t, "Unsupported URI scheme: file:///etc/passwd", err.Error())
	})
}

func TestResourceRegistryRegisteredOnly(t *testing.T) {
	st := store.Seeded(store.ExampleSeed())
	st.Set("hidden", "not exposed")
	reg := NewResourceRegistry(st, RegisteredOnly())
	for _, desc := range ExampleResources() {
		require.NoError(t, reg.Register(desc))
	}
	ctx := context.Background()

	result, err := reg.Read(ctx, "memory://example")
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"Hello from example server!"}`, result.Contents[0].Text)

	for _, uri := range []string{"memory://hidden", "file:///etc/passwd", "example"} {
		_, err := reg.Read(ctx, uri)
		require.Error(t, err, uri)
		assert.True(t, mcperrors.IsCode(err, mcperrors.CodeInvalidRequest), uri)
		assert.Equal(t, "Resource not found: "+uri, err.Error())
	}
}

func TestResourceRegistryProducer(t *testing.T) {
	reg := NewResourceRegistry(store.New())
	require.NoError(t, reg.Register(ResourceDescriptor{
		URI:  "memory://clock",
		Name: "Clock",
		Producer: func(context.Context) (interface{}, error) {
			return map[string]interface{}{"tick": 3}, nil
		},
	}))
	require.NoError(t, reg.Register(ResourceDescriptor{
		URI: "memory://broken",
		Producer: func(context.Context) (interface{}, error) {
			return nil, errors.New("producer failed")
		},
	}))

	result, err := reg.Read(context.Background(), "memory://clock")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"tick\": 3\n}", result.Contents[0].Text)

	_, err = reg.Read(context.Background(), "memory://broken")
	assert.EqualError(t, err, "producer failed")
}

func TestPrettyJSONKeepsHTML(t *testing.T) {
	text, err := prettyJSON(map[string]string{"html": "<b>&</b>"})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"html\": \"<b>&</b>\"\n}", text)

	_, err = prettyJSON(make(chan int))
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeInternalError))
}
