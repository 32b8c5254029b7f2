package server

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ajitpratap0/mcp-memory-go/pkg/protocol"
)

func newBenchServer(b *testing.B) *Server {
	b.Helper()
	s, err := New(nil)
	if err != nil {
		b.Fatal(err)
	}
	return s
}

func BenchmarkDispatcher(b *testing.B) {
	ctx := context.Background()

	b.Run("CallTool/echo", func(b *testing.B) {
		d := newBenchServer(b).Dispatcher()
		params := protocol.CallToolParams{Name: "echo", Arguments: map[string]interface{}{"text": "bench"}}
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := d.CallTool(ctx, params); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("CallTool/calculate", func(b *testing.B) {
		d := newBenchServer(b).Dispatcher()
		params := protocol.CallToolParams{Name: "calculate", Arguments: map[string]interface{}{
			"operation": "multiply", "a": 6, "b": 7,
		}}
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := d.CallTool(ctx, params); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("ReadResource", func(b *testing.B) {
		d := newBenchServer(b).Dispatcher()
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := d.ReadResource(ctx, protocol.ReadResourceParams{URI: "memory://config"}); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("Parallel", func(b *testing.B) {
		d := newBenchServer(b).Dispatcher()
		params := protocol.CallToolParams{Name: "echo", Arguments: map[string]interface{}{"text": "bench"}}
		b.ReportAllocs()
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if _, err := d.CallTool(ctx, params); err != nil {
					b.Error(err)
					return
				}
			}
		})
	})
}

// BenchmarkHandleRequest measures the full JSON-RPC path including decoding
func BenchmarkHandleRequest(b *testing.B) {
	ctx := context.Background()
	s := newBenchServer(b)
	req := &protocol.Request{
		JSONRPCMessage: protocol.JSONRPCMessage{JSONRPC: protocol.JSONRPCVersion},
		ID:             "1",
		Method:         "tools/call",
		Params:         json.RawMessage(`{"name":"echo","arguments":{"text":"bench"}}`),
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if resp := s.router.HandleRequest(ctx, req); resp.Error != nil {
			b.Fatal(resp.Error.Message)
		}
	}
}
