package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ringline/ringline/internal/convo"
	"github.com/ringline/ringline/internal/database"
)

type fakeRelay struct {
	spoken []string
	digits []string
	ended  bool
}

func (f *fakeRelay) Speak(text string, interruptible bool) error {
	f.spoken = append(f.spoken, text)
	return nil
}

func (f *fakeRelay) SendDTMF(digits string) error {
	f.digits = append(f.digits, digits)
	return nil
}

func (f *fakeRelay) EndCall(payload map[string]any) error {
	f.ended = true
	return nil
}

func testEnv(t *testing.T) (*Env, *fakeRelay) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := &fakeRelay{}
	return &Env{
		Store: convo.NewStore("call-1", nil),
		DB:    db,
		Relay: r,
	}, r
}

func TestParseArgsPermissive(t *testing.T) {
	a := ParseArgs(`{"phone":"+15550100"}`)
	if a.Parsed == nil || a.Parsed["phone"] != "+15550100" {
		t.Fatalf("valid JSON should parse: %+v", a)
	}

	a = ParseArgs(`{broken`)
	if a.Parsed != nil {
		t.Fatal("broken JSON should leave Parsed nil")
	}
	if a.Raw != `{broken` {
		t.Fatalf("raw buffer must be preserved: %q", a.Raw)
	}
}

func TestFillerCapabilityCheck(t *testing.T) {
	if phrase, ok := Filler(FindUserTool{}, Args{}); !ok || phrase == "" {
		t.Fatal("find_user should offer a filler phrase")
	}
	if _, ok := Filler(SendDTMFTool{}, Args{}); ok {
		t.Fatal("send_dtmf should not offer a filler phrase")
	}
}

func TestRegistryDefinitionsKeepOrder(t *testing.T) {
	r := DefaultRegistry()
	defs := r.Definitions()
	if len(defs) != len(r.List()) {
		t.Fatalf("definitions/list mismatch: %d vs %d", len(defs), len(r.List()))
	}
	if defs[0].Function.Name != "find_user" {
		t.Fatalf("registration order not kept: first is %s", defs[0].Function.Name)
	}
	for _, d := range defs {
		if d.Type != "function" || d.Function.Parameters == nil {
			t.Fatalf("malformed definition: %+v", d)
		}
	}
}

func TestFindUserSetsCallerContext(t *testing.T) {
	env, _ := testEnv(t)
	out, err := FindUserTool{}.Execute(context.Background(), ParseArgs(`{"phone":"+15550100"}`), env)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, `"found":true`) {
		t.Fatalf("unexpected result: %s", out)
	}
	c := env.Store.Context()
	if c.Caller == nil || c.Caller.Name != "Ada Reyes" {
		t.Fatalf("caller not set: %+v", c.Caller)
	}
}

func TestFindUserUnknownPhone(t *testing.T) {
	env, _ := testEnv(t)
	out, err := FindUserTool{}.Execute(context.Background(), ParseArgs(`{"phone":"+10000000"}`), env)
	if err != nil {
		t.Fatalf("unknown phone is not an error: %v", err)
	}
	if out != `{"found":false}` {
		t.Fatalf("unexpected result: %s", out)
	}
}

func TestGetUserOrdersRequiresIdentifiedCaller(t *testing.T) {
	env, _ := testEnv(t)
	if _, err := (GetUserOrdersTool{}).Execute(context.Background(), ParseArgs(`{}`), env); err == nil {
		t.Fatal("expected error before identification")
	}

	if _, err := (FindUserTool{}).Execute(context.Background(), ParseArgs(`{"phone":"+15550100"}`), env); err != nil {
		t.Fatal(err)
	}
	out, err := GetUserOrdersTool{}.Execute(context.Background(), ParseArgs(`{}`), env)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var parsed struct {
		Orders []database.Order `json:"orders"`
	}
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		t.Fatalf("result not JSON: %v", err)
	}
	if len(parsed.Orders) != 1 || parsed.Orders[0].ID != "order-1001" {
		t.Fatalf("unexpected orders: %+v", parsed.Orders)
	}
}

func TestGetOrderEventsJoinsEvent(t *testing.T) {
	env, _ := testEnv(t)
	out, err := GetOrderEventsTool{}.Execute(context.Background(), ParseArgs(`{"order_id":"order-1001"}`), env)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "Harbor Hall") {
		t.Fatalf("venue missing from result: %s", out)
	}
}

func TestTakePaymentDefaultsToOrderBalance(t *testing.T) {
	env, _ := testEnv(t)
	out, err := TakePaymentTool{}.Execute(context.Background(), ParseArgs(`{"order_id":"order-1001"}`), env)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, `"amount_cents":4500`) {
		t.Fatalf("unexpected amount: %s", out)
	}
}

type finishRecorder struct{ finished bool }

func (f *finishRecorder) Finish() { f.finished = true }

func TestEndCallFinishesEngineAndHangsUp(t *testing.T) {
	env, r := testEnv(t)
	eng := &finishRecorder{}
	env.Engine = eng
	if _, err := (EndCallTool{}).Execute(context.Background(), ParseArgs(`{"reason":"done"}`), env); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !eng.finished {
		t.Fatal("engine not finished")
	}
	if !r.ended {
		t.Fatal("relay not hung up")
	}
}
