package generate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"budgetadvisor/internal/hfapi"
)

func TestStripSpecialTokens(t *testing.T) {
	cases := map[string]string{
		"<pad> Save 20% of your income.</s>": "Save 20% of your income.",
		"plain text":                         "plain text",
		"<pad><pad> a <unk> b </s><pad>":     "a b",
		"":                                   "",
	}
	for in, want := range cases {
		if got := StripSpecialTokens(in); got != want {
			t.Errorf("StripSpecialTokens(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHFGenerate(t *testing.T) {
	tests := []struct {
		name       string
		opts       Options
		wantBeams  float64
		wantStop   bool
		wantMaxLen float64
	}{
		{name: "greedy", opts: Options{MaxLength: 150}, wantMaxLen: 150},
		{name: "beam search", opts: Options{MaxLength: 150, NumBeams: 4, EarlyStopping: true}, wantBeams: 4, wantStop: true, wantMaxLen: 150},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]any
			var path string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
				_ = json.NewDecoder(r.Body).Decode(&body)
				_, _ = w.Write([]byte(`[{"generated_text":"Build an emergency fund."}]`))
			}))
			defer srv.Close()

			g := NewHF(hfapi.NewClient(srv.URL, "", srv.Client()), "")
			got, err := g.Generate(context.Background(), "Question: ?", tt.opts)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if got != "Build an emergency fund." {
				t.Fatalf("Generate = %q", got)
			}
			if path != "/"+DefaultHFModel {
				t.Errorf("path = %q", path)
			}
			params, _ := body["parameters"].(map[string]any)
			if params["max_length"] != tt.wantMaxLen {
				t.Errorf("max_length = %v", params["max_length"])
			}
			if tt.wantBeams != 0 && params["num_beams"] != tt.wantBeams {
				t.Errorf("num_beams = %v", params["num_beams"])
			}
			if tt.wantBeams == 0 {
				if _, ok := params["num_beams"]; ok {
					t.Errorf("greedy request should omit num_beams: %v", params)
				}
			}
			if stop, _ := params["early_stopping"].(bool); stop != tt.wantStop {
				t.Errorf("early_stopping = %v", params["early_stopping"])
			}
			if params["do_sample"] != false {
				t.Errorf("do_sample = %v", params["do_sample"])
			}
		})
	}
}

func TestHFGenerateEmptyOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	g := NewHF(hfapi.NewClient(srv.URL, "", srv.Client()), "m")
	if _, err := g.Generate(context.Background(), "x", Options{}); !errors.Is(err, ErrNoOutput) {
		t.Fatalf("expected ErrNoOutput, got %v", err)
	}
}

func TestGeminiContentConfig(t *testing.T) {
	cfg := contentConfig(Options{MaxLength: 150, NumBeams: 4})
	if cfg.Temperature == nil || *cfg.Temperature != 0 {
		t.Fatalf("temperature = %v", cfg.Temperature)
	}
	if cfg.MaxOutputTokens != 150 {
		t.Fatalf("MaxOutputTokens = %d", cfg.MaxOutputTokens)
	}
}
