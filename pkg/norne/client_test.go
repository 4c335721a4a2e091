package norne

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	c := NewClient(baseURL + "/")

	if c == nil {
		t.Fatal("expected non-nil client")
	}
	if c.baseURL != baseURL {
		t.Errorf("expected baseURL %q, got %q", baseURL, c.baseURL)
	}
	if c.httpClient == nil {
		t.Fatal("expected non-nil httpClient")
	}
}

func TestClient(t *testing.T) {
	var gotSearch SearchRequest
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("GET /api/strategies", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"strategies":["sma-cross","threshold"]}`))
	})
	mux.HandleFunc("POST /api/backtest", func(w http.ResponseWriter, r *http.Request) {
		var req BacktestRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Strategy.Type == "nope" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"nope: unknown strategy"}`))
			return
		}
		w.Write([]byte(`{"result":{"run_id":"7c3f2d8e-4a21-5b0e-9f11-2a6b8c0d1e3f","strategy":"sma-cross","equity":[{"date":"2024-01-02T00:00:00Z","total_value":101}]},"summary":{"final_equity":101}}`))
	})
	mux.HandleFunc("POST /api/search", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotSearch)
		w.Write([]byte(`[{"parameter":"entry","benchmark":"buy-and-hold","rows":[{"candidate":{"value":1},"return_ratio":1.2},{"candidate":{"value":2},"return_ratio":null}]}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx := context.Background()

	if err := c.Health(ctx); err != nil {
		t.Fatalf("Health: %v", err)
	}

	names, err := c.Strategies(ctx)
	if err != nil {
		t.Fatalf("Strategies: %v", err)
	}
	if len(names) != 2 || names[0] != "sma-cross" {
		t.Errorf("Strategies() = %v", names)
	}

	bt, err := c.Backtest(ctx, BacktestRequest{Strategy: Strategy{Type: "sma-cross"}})
	if err != nil {
		t.Fatalf("Backtest: %v", err)
	}
	if bt.Summary.FinalEquity != 101 || len(bt.Result.Equity) != 1 {
		t.Errorf("Backtest() = %+v", bt)
	}
	if got, want := bt.Result.RunID.String(), "7c3f2d8e-4a21-5b0e-9f11-2a6b8c0d1e3f"; got != want {
		t.Errorf("RunID = %s, want %s", got, want)
	}

	_, err = c.Backtest(ctx, BacktestRequest{Strategy: Strategy{Type: "nope"}})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Backtest(nope) error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "nope: unknown strategy" {
		t.Errorf("APIError = %+v", apiErr)
	}

	tables, err := c.Search(ctx, SearchRequest{Parameter: "entry", Candidates: []float64{1, 2}, Vector: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !gotSearch.Vector || len(gotSearch.Candidates) != 2 {
		t.Errorf("server received %+v", gotSearch)
	}
	if len(tables) != 1 || len(tables[0].Rows) != 2 {
		t.Fatalf("Search() = %+v", tables)
	}
	if r := tables[0].Rows[0].ReturnRatio; r == nil || *r != 1.2 {
		t.Errorf("row 0 ratio = %v, want 1.2", r)
	}
	if tables[0].Rows[1].ReturnRatio != nil {
		t.Errorf("row 1 ratio = %v, want nil", *tables[0].Rows[1].ReturnRatio)
	}
}
