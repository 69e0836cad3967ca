package scriptnode

import (
	"context"
	"testing"
)

func TestExecutorLastExpressionBecomesResult(t *testing.T) {
	exec := Executor()
	out, err := exec(context.Background(), map[string]any{"code": "1 + 2"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out["result"] != int64(3) && out["result"] != float64(3) {
		t.Fatalf("expected result 3, got %v (%T)", out["result"], out["result"])
	}
}

func TestExecutorReadsFannedInInputs(t *testing.T) {
	exec := Executor()
	out, err := exec(context.Background(), map[string]any{"code": "a + b"}, map[string]any{"a": 2, "b": 3})
	if err != nil {
		t.Fatal(err)
	}
	if out["result"] != int64(5) && out["result"] != float64(5) {
		t.Fatalf("expected result 5, got %v (%T)", out["result"], out["result"])
	}
}

func TestExecutorOutputObjectBecomesMultipleOutputs(t *testing.T) {
	exec := Executor()
	out, err := exec(context.Background(), map[string]any{"code": "output = {sum: a + b, doubled: a * 2}"}, map[string]any{"a": 2, "b": 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("expected two outputs, got %v", out)
	}
}

func TestExecutorMissingCodeErrors(t *testing.T) {
	exec := Executor()
	_, err := exec(context.Background(), map[string]any{}, nil)
	if err == nil {
		t.Fatal("expected an error when code param is missing")
	}
}

func TestExecutorTimeout(t *testing.T) {
	exec := Executor()
	_, err := exec(context.Background(), map[string]any{
		"code":       "while (true) {}",
		"timeout_ms": 50,
	}, nil)
	if err == nil {
		t.Fatal("expected a timeout error for an infinite loop")
	}
}
