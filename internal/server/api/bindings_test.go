package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ayusman/palmpay/internal/gesture"
	"github.com/ayusman/palmpay/internal/store"
)

func newBindingHandler(t *testing.T) (*BindingHandler, *store.Store) {
	t.Helper()
	s := newTestStore(t)
	engine, err := gesture.NewEngine(gesture.DefaultEngineConfig())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return NewBindingHandler(s, engine), s
}

func createBinding(t *testing.T, h http.Handler, body string) bindingResponse {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api/bindings", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp bindingResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestBindingHandler_Create(t *testing.T) {
	h, s := newBindingHandler(t)

	resp := createBinding(t, h, `{"trigger":"swipe_right","plugin_name":"ledger","action_name":"payment","config":{"file":"x.jsonl"}}`)

	if resp.ID == "" {
		t.Error("expected an ID")
	}
	if !resp.Enabled {
		t.Error("new bindings should be enabled by default")
	}
	if string(resp.Config) != `{"file":"x.jsonl"}` {
		t.Errorf("Config = %s", resp.Config)
	}

	b, err := s.Bindings().GetByTrigger("swipe_right")
	if err != nil || b == nil {
		t.Fatalf("binding not stored: %v", err)
	}
	if b.PluginName != "ledger" {
		t.Errorf("PluginName = %q", b.PluginName)
	}
}

func TestBindingHandler_Create_CompoundTrigger(t *testing.T) {
	h, _ := newBindingHandler(t)

	resp := createBinding(t, h, `{"trigger":"quick_pay","plugin_name":"ledger","action_name":"quick_pay","enabled":false}`)
	if resp.Enabled {
		t.Error("enabled=false should be honoured")
	}
	if string(resp.Config) != "{}" {
		t.Errorf("Config = %s, want {}", resp.Config)
	}
}

func TestBindingHandler_Create_Validation(t *testing.T) {
	h, _ := newBindingHandler(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantHint string
	}{
		{"invalid json", `{`, http.StatusBadRequest, ""},
		{"missing trigger", `{"plugin_name":"ledger","action_name":"payment"}`, http.StatusBadRequest, ""},
		{"missing plugin", `{"trigger":"tap","action_name":"select"}`, http.StatusBadRequest, ""},
		{"missing action", `{"trigger":"tap","plugin_name":"ledger"}`, http.StatusBadRequest, ""},
		{"unknown trigger", `{"trigger":"quik_pay","plugin_name":"ledger","action_name":"x"}`, http.StatusBadRequest, `did you mean "quick_pay"?`},
		{"unknown trigger far away", `{"trigger":"zzzzzzzzzzzz","plugin_name":"ledger","action_name":"x"}`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api/bindings", tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			var resp errorResponse
			json.Unmarshal(w.Body.Bytes(), &resp)
			if resp.Hint != tt.wantHint {
				t.Errorf("hint = %q, want %q", resp.Hint, tt.wantHint)
			}
		})
	}
}

func TestBindingHandler_Create_Duplicate(t *testing.T) {
	h, _ := newBindingHandler(t)

	createBinding(t, h, `{"trigger":"circle","plugin_name":"ledger","action_name":"trade"}`)

	w := do(t, h, http.MethodPost, "/api/bindings", `{"trigger":"circle","plugin_name":"other","action_name":"trade"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestBindingHandler_ListAndGet(t *testing.T) {
	h, _ := newBindingHandler(t)

	w := do(t, h, http.MethodGet, "/api/bindings", "")
	if !strings.Contains(w.Body.String(), `"bindings":[]`) {
		t.Errorf("empty list should encode as [], got %s", w.Body.String())
	}

	created := createBinding(t, h, `{"trigger":"tap","plugin_name":"ledger","action_name":"select"}`)
	createBinding(t, h, `{"trigger":"pinch","plugin_name":"ledger","action_name":"confirm"}`)

	w = do(t, h, http.MethodGet, "/api/bindings", "")
	var list listBindingsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(list.Bindings) != 2 {
		t.Errorf("expected 2 bindings, got %d", len(list.Bindings))
	}

	w = do(t, h, http.MethodGet, "/api/bindings/"+created.ID, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"trigger":"tap"`) {
		t.Errorf("get returned %d: %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/api/bindings/missing", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestBindingHandler_Update(t *testing.T) {
	h, s := newBindingHandler(t)

	created := createBinding(t, h, `{"trigger":"spread","plugin_name":"ledger","action_name":"expand"}`)

	w := do(t, h, http.MethodPut, "/api/bindings/"+created.ID, `{"action_name":"zoom","enabled":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	b, _ := s.Bindings().GetByID(created.ID)
	if b.ActionName != "zoom" || b.Enabled || b.Trigger != "spread" {
		t.Errorf("unexpected binding after update: %+v", b)
	}

	w = do(t, h, http.MethodPut, "/api/bindings/"+created.ID, `{"trigger":"sprea"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	createBinding(t, h, `{"trigger":"fist","plugin_name":"ledger","action_name":"hold"}`)
	w = do(t, h, http.MethodPut, "/api/bindings/"+created.ID, `{"trigger":"fist"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}

	w = do(t, h, http.MethodPut, "/api/bindings/missing", `{}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestBindingHandler_Delete(t *testing.T) {
	h, _ := newBindingHandler(t)

	created := createBinding(t, h, `{"trigger":"double_tap","plugin_name":"ledger","action_name":"quick_pay"}`)

	w := do(t, h, http.MethodDelete, "/api/bindings/"+created.ID, "")
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}

	w = do(t, h, http.MethodDelete, "/api/bindings/"+created.ID, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestBindingHandler_MethodNotAllowed(t *testing.T) {
	h, _ := newBindingHandler(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPatch, "/api/bindings"},
		{http.MethodPost, "/api/bindings/abc"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s = %d, want 405", tc.method, tc.path, w.Code)
		}
	}
}

func TestSuggest(t *testing.T) {
	candidates := []string{"swipe_left", "swipe_right", "tap", "quick_pay"}

	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"swipe_rigth", "swipe_right", true},
		{"TAPP", "tap", true},
		{"quickpay", "quick_pay", true},
		{"completely_different", "", false},
	}
	for _, tt := range tests {
		got, ok := suggest(tt.name, candidates)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("suggest(%q) = %q, %v; want %q, %v", tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}
