package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func captureStdout(fn func()) string {
	orig := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() {
		os.Stdout = orig
	}()

	fn()

	_ = w.Close()
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	_ = r.Close()
	return buf.String()
}

func TestAttrsFromCtx_NoSpan(t *testing.T) {
	if attrs := AttrsFromCtx(context.Background()); attrs != nil {
		t.Fatalf("attrs without a span = %v, want nil", attrs)
	}
}

func TestAttrsFromCtx_WithSpanContext(t *testing.T) {
	tid, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	if err != nil {
		t.Fatalf("trace id: %v", err)
	}
	sid, err := trace.SpanIDFromHex("0102030405060708")
	if err != nil {
		t.Fatalf("span id: %v", err)
	}
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	attrs := AttrsFromCtx(ctx)
	if len(attrs) != 2 {
		t.Fatalf("attrs = %v, want trace_id and span_id", attrs)
	}
	if attrs[0].Key != "trace_id" || attrs[0].Value.String() != tid.String() {
		t.Fatalf("trace_id attr = %v", attrs[0])
	}
	if attrs[1].Key != "span_id" || attrs[1].Value.String() != sid.String() {
		t.Fatalf("span_id attr = %v", attrs[1])
	}
}

func TestInit_StdBackend(t *testing.T) {
	out := captureStdout(func() {
		Init(Config{
			Service: "demo",
			Env:     EnvDev,
			Backend: BackendStd,
			Version: "v0.0.1",
		})
		slog.Info("hello", "k", "v")
	})

	if !strings.Contains(out, "msg=hello") {
		t.Fatalf("message missing in output: %s", out)
	}
	if !strings.Contains(out, "service=demo") {
		t.Fatalf("service attr missing in output: %s", out)
	}
}

func TestDetectEnv(t *testing.T) {
	tests := []struct {
		raw  string
		want Env
	}{
		{"production", EnvProd},
		{"prod", EnvProd},
		{"staging", EnvStage},
		{"", EnvDev},
		{"anything-else", EnvDev},
	}
	for _, tt := range tests {
		t.Setenv("APP_ENV", tt.raw)
		if got := DetectEnv(); got != tt.want {
			t.Errorf("DetectEnv(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
