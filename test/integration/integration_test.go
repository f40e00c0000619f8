package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kiban/internal/config"
	"github.com/hyperjump/kiban/internal/embedding"
	"github.com/hyperjump/kiban/internal/engine"
	"github.com/hyperjump/kiban/internal/history"
	"github.com/hyperjump/kiban/internal/models"
	"github.com/hyperjump/kiban/internal/server"
	"github.com/hyperjump/kiban/internal/store"
)

func newEngine(t *testing.T, embedder embedding.Embedder) (*engine.Engine, *config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "kb.json")
	eng := engine.New(cfg, store.Open(cfg.Store.Path), embedder, nil)
	t.Cleanup(func() { _ = eng.Close() })
	return eng, cfg
}

func ingestCorpus(t *testing.T, eng *engine.Engine) {
	t.Helper()
	for _, m := range corpus() {
		meta := map[string]interface{}{models.MetaKeyFilename: m.Filename}
		if !eng.Ingest(context.Background(), m.Text, meta) {
			t.Fatalf("ingest %s failed", m.Filename)
		}
	}
}

func resultFiles(results []*models.RetrievalResult) []string {
	files := make([]string, 0, len(results))
	for _, r := range results {
		if name, ok := r.Metadata[models.MetaKeyFilename].(string); ok {
			files = append(files, name)
		}
	}
	return files
}

func containsAny(got, expected []string) bool {
	for _, e := range expected {
		for _, g := range got {
			if g == e {
				return true
			}
		}
	}
	return false
}

func runQueryCases(t *testing.T, eng *engine.Engine, wantMode string) {
	t.Helper()
	for _, tc := range queryCases() {
		t.Run(tc.Description, func(t *testing.T) {
			resp := eng.Search(context.Background(), tc.Query, 10)
			if resp.Mode != wantMode {
				t.Errorf("mode = %q, want %q", resp.Mode, wantMode)
			}
			files := resultFiles(resp.Results)
			if !containsAny(files, tc.ExpectedFiles) {
				t.Errorf("query %q: expected one of %v, got %v", tc.Query, tc.ExpectedFiles, files)
			}
		})
	}
}

func TestLexicalRetrieval(t *testing.T) {
	eng, _ := newEngine(t, nil)
	ingestCorpus(t, eng)
	runQueryCases(t, eng, "lexical")
}

func TestSemanticRetrieval(t *testing.T) {
	eng, _ := newEngine(t, embedding.NewMockEmbedder(16))
	ingestCorpus(t, eng)
	// The mock embeds identical text to identical vectors, so the exact
	// chunk text is its own best match.
	doc := eng.Documents()[0]
	resp := eng.Search(context.Background(), doc.Chunks[0].Text, 3)
	if resp.Mode != "semantic" {
		t.Fatalf("mode = %q, want semantic", resp.Mode)
	}
	if len(resp.Results) == 0 {
		t.Fatal("expected results")
	}
	if resp.Results[0].Text != doc.Chunks[0].Text {
		t.Errorf("top result should be the queried chunk itself")
	}
	if resp.Results[0].Score < 0.99 {
		t.Errorf("self-similarity score = %f, want ~1", resp.Results[0].Score)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "kb.json")

	first := engine.New(cfg, store.Open(cfg.Store.Path), embedding.NewMockEmbedder(16), nil)
	ingestCorpus(t, first)
	_ = first.Close()

	// Reopen without an embedder; persisted vectors still serve searches
	// through the lexical path and document content survives intact.
	second := engine.New(cfg, store.Open(cfg.Store.Path), nil, nil)
	defer second.Close()
	if got := len(second.Documents()); got != len(corpus()) {
		t.Fatalf("documents after reload = %d, want %d", got, len(corpus()))
	}
	runQueryCases(t, second, "lexical")

	for _, doc := range second.Documents() {
		if doc.VectorCount() != len(doc.Chunks) {
			t.Errorf("%s: vectors lost across reload", doc.Filename())
		}
	}
}

func TestHTTPRoundTrip(t *testing.T) {
	eng, cfg := newEngine(t, nil)
	hist, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	defer hist.Close()

	srv := server.NewServer(eng, hist, &cfg.Server, zap.NewNop())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	for _, m := range corpus() {
		body, _ := json.Marshal(map[string]string{"text": m.Text, "filename": m.Filename})
		resp, err := http.Post(ts.URL+"/api/v1/documents", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("ingest %s: %v", m.Filename, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("ingest %s: status %d", m.Filename, resp.StatusCode)
		}
	}

	for _, tc := range queryCases() {
		body, _ := json.Marshal(map[string]interface{}{"query": tc.Query, "top_k": 10})
		resp, err := http.Post(ts.URL+"/api/v1/search", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("search %q: %v", tc.Query, err)
		}
		var sr models.SearchResponse
		if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
			t.Fatalf("decode: %v", err)
		}
		resp.Body.Close()
		if !containsAny(resultFiles(sr.Results), tc.ExpectedFiles) {
			t.Errorf("query %q: expected one of %v", tc.Query, tc.ExpectedFiles)
		}
	}

	// Chat round trip with session continuity.
	body, _ := json.Marshal(map[string]string{"message": "what is the spindle speed"})
	resp, err := http.Post(ts.URL+"/api/v1/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	var ans models.Answer
	if err := json.NewDecoder(resp.Body).Decode(&ans); err != nil {
		t.Fatalf("decode answer: %v", err)
	}
	resp.Body.Close()
	if ans.SessionID == "" {
		t.Fatal("expected session ID")
	}
	if !strings.Contains(ans.Response, "cnc-mill.txt") {
		t.Errorf("answer should cite the mill manual: %q", ans.Response)
	}

	histResp, err := http.Get(ts.URL + "/api/v1/chat/" + ans.SessionID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var transcript struct {
		Total int `json:"total"`
	}
	if err := json.NewDecoder(histResp.Body).Decode(&transcript); err != nil {
		t.Fatalf("decode transcript: %v", err)
	}
	histResp.Body.Close()
	if transcript.Total != 1 {
		t.Errorf("transcript total = %d, want 1", transcript.Total)
	}

	// Clear and verify empty.
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/documents", nil)
	clearResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	var stats models.ClearStats
	if err := json.NewDecoder(clearResp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	clearResp.Body.Close()
	if stats.DocumentsRemoved != len(corpus()) {
		t.Errorf("documents_removed = %d, want %d", stats.DocumentsRemoved, len(corpus()))
	}
	if got := len(eng.Documents()); got != 0 {
		t.Errorf("documents after clear = %d", got)
	}
}
