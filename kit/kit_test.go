package kit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestChain_Order(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next Endpoint) Endpoint {
			return func(ctx context.Context, req any) (any, error) {
				order = append(order, name+"_before")
				resp, err := next(ctx, req)
				order = append(order, name+"_after")
				return resp, err
			}
		}
	}

	base := func(_ context.Context, _ any) (any, error) {
		order = append(order, "endpoint")
		return "ok", nil
	}

	chained := Chain(mw("a"), mw("b"), mw("c"))(base)
	resp, err := chained(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp != "ok" {
		t.Fatalf("response: got %v", resp)
	}

	expected := []string{"a_before", "b_before", "c_before", "endpoint", "c_after", "b_after", "a_after"}
	if len(order) != len(expected) {
		t.Fatalf("order length: got %d, want %d", len(order), len(expected))
	}
	for i, v := range expected {
		if order[i] != v {
			t.Fatalf("order[%d]: got %q, want %q", i, order[i], v)
		}
	}
}

func TestChain_ErrorPropagation(t *testing.T) {
	errFail := errors.New("fail")
	base := func(_ context.Context, _ any) (any, error) {
		return nil, errFail
	}

	noop := func(next Endpoint) Endpoint { return next }
	chained := Chain(noop)(base)

	_, err := chained(context.Background(), nil)
	if !errors.Is(err, errFail) {
		t.Fatalf("error: got %v, want %v", err, errFail)
	}
}

func TestRequestID(t *testing.T) {
	var got string
	ep := RequestID(func() string { return "req_gen" })(func(ctx context.Context, _ any) (any, error) {
		got = GetRequestID(ctx)
		return nil, nil
	})

	ep(context.Background(), nil)
	if got != "req_gen" {
		t.Fatalf("generated id: got %q", got)
	}
	ep(WithRequestID(context.Background(), "req_keep"), nil)
	if got != "req_keep" {
		t.Fatalf("existing id overwritten: got %q", got)
	}
}

func TestContext_Transport_Default(t *testing.T) {
	ctx := context.Background()
	if v := GetTransport(ctx); v != "http" {
		t.Fatalf("default transport: got %q, want 'http'", v)
	}
}

func TestContext_Transport_Set(t *testing.T) {
	ctx := WithTransport(context.Background(), "cli")
	if v := GetTransport(ctx); v != "cli" {
		t.Fatalf("transport: got %q", v)
	}
}

func TestContext_RequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req_abc")
	if v := GetRequestID(ctx); v != "req_abc" {
		t.Fatalf("request_id: got %q", v)
	}
}

func TestContext_Source(t *testing.T) {
	ctx := WithSource(context.Background(), "ld8.zip")
	if v := GetSource(ctx); v != "ld8.zip" {
		t.Fatalf("source: got %q", v)
	}
	if v := GetSource(context.Background()); v != "" {
		t.Fatalf("source default: got %q", v)
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ok := Logging(logger, "parse")(func(_ context.Context, _ any) (any, error) { return 1, nil })
	fail := Logging(logger, "import")(func(_ context.Context, _ any) (any, error) { return nil, errors.New("boom") })

	ctx := WithSource(WithRequestID(context.Background(), "req_1"), "ld8.zip")
	if _, err := ok(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := fail(ctx, nil); err == nil {
		t.Fatal("expected error to pass through")
	}

	out := buf.String()
	if !strings.Contains(out, "op=parse") || !strings.Contains(out, "request_id=req_1") || !strings.Contains(out, "source=ld8.zip") {
		t.Errorf("missing debug line: %s", out)
	}
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "error=boom") {
		t.Errorf("missing warn line: %s", out)
	}
}
