package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jzielinski/invoicescan/constants"
	"github.com/jzielinski/invoicescan/internal/common"
	"github.com/jzielinski/invoicescan/internal/extract"
	"github.com/jzielinski/invoicescan/internal/keyword"
	"github.com/jzielinski/invoicescan/internal/learning"
	"github.com/jzielinski/invoicescan/internal/matching"
	"github.com/jzielinski/invoicescan/internal/repository"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := repository.Open(context.Background(),
		common.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, slog.Default())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close(slog.Default()) })
	if err := repository.Migrate(context.Background(), db, slog.Default()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	tracker := learning.NewTracker(keyword.DefaultWeights(), nil)
	engine := keyword.NewEngine(keyword.Defaults(), tracker, time.Minute, nil)
	extractor := extract.New(engine, tracker, extract.DefaultConfidenceModel(), nil)

	srv := New(
		extractor,
		tracker,
		repository.NewRulesetRepository(db, slog.Default()),
		repository.NewTemplateRepository(db, slog.Default()),
		db,
		matching.DefaultOptions(),
		zap.NewNop(),
	)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) (*http.Response, []byte) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, buf.Bytes()
}

func TestExtractEndpoint(t *testing.T) {
	ts := newTestServer(t)

	req := extractRequest{
		DocumentID: "inv-001",
		StandardLines: []lineDTO{
			{Text: "Faktura VAT 12/2024", Page: 0, BBox: boxDTO{X: 0.1, Y: 0.05, Width: 0.5, Height: 0.03}, Confidence: 0.95},
			{Text: "Do zapłaty: 1 234,56 PLN", Page: 0, BBox: boxDTO{X: 0.1, Y: 0.7, Width: 0.5, Height: 0.03}, Confidence: 0.92},
		},
	}
	resp, body := postJSON(t, ts.URL+"/v1/extract", req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}

	var out extractResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Fields) != len(constants.FieldTypes()) {
		t.Fatalf("fields = %d, want %d", len(out.Fields), len(constants.FieldTypes()))
	}
	amount := out.Fields[0]
	if amount.Field != string(constants.FieldAmount) || amount.Best == nil {
		t.Fatalf("first field should be amount with a winner, got %+v", amount)
	}
	if amount.Best.Value != "1234.56" {
		t.Errorf("amount = %q, want 1234.56", amount.Best.Value)
	}
	if len(out.PageStats) != 1 || out.PageStats[0].LineCount != 2 {
		t.Errorf("page stats = %+v", out.PageStats)
	}
	// no raw line text anywhere in the response
	if bytes.Contains(body, []byte("Faktura VAT 12/2024")) {
		t.Error("response must not echo raw OCR lines")
	}
}

func TestExtractEndpoint_Validation(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := postJSON(t, ts.URL+"/v1/extract", extractRequest{DocumentID: "x"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty line set should be 400, got %d", resp.StatusCode)
	}

	resp, _ = postJSON(t, ts.URL+"/v1/extract", extractRequest{
		StandardLines: []lineDTO{{Text: "x", Page: 0, BBox: boxDTO{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.02}, Confidence: 1.5}},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("out-of-range confidence should be 400, got %d", resp.StatusCode)
	}
}

func TestFeedbackEndpoint_PromotesAndPersists(t *testing.T) {
	ts := newTestServer(t)

	var last feedbackResponse
	for i := 0; i < 3; i++ {
		resp, body := postJSON(t, ts.URL+"/v1/feedback", feedbackRequest{
			VendorKey:   "nip:7740001454",
			Field:       string(constants.FieldAmount),
			Method:      string(constants.MethodAnchorBased),
			BestPhrases: []string{"saldo do uregulowania"},
		})
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("status = %d, body %s", resp.StatusCode, body)
		}
		if err := json.Unmarshal(body, &last); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}

	// third accept promotes the phrase into the vendor's ruleset
	resp, body := postJSONGet(t, ts.URL+"/v1/vendors/nip:7740001454/keywords")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("keywords status = %d", resp.StatusCode)
	}
	var kw struct {
		AnchorPhrases []string `json:"anchor_phrases"`
		Stats         []struct {
			Phrase string `json:"phrase"`
			State  string `json:"state"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(body, &kw); err != nil {
		t.Fatalf("decode keywords: %v", err)
	}
	if len(kw.AnchorPhrases) != 1 || kw.AnchorPhrases[0] != "saldo do uregulowania" {
		t.Errorf("anchor phrases = %v", kw.AnchorPhrases)
	}
	if len(kw.Stats) != 1 || kw.Stats[0].State != string(constants.StatPromoted) {
		t.Errorf("stats = %+v", kw.Stats)
	}
}

func postJSONGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, buf.Bytes()
}

func TestMatchEndpoint_CreateThenExact(t *testing.T) {
	ts := newTestServer(t)

	// first document for this vendor: no templates yet, one gets created
	resp, body := postJSON(t, ts.URL+"/v1/match", matchRequest{
		TaxID: "774-000-14-54", Amount: 150, Currency: "PLN",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var first matchResponse
	if err := json.Unmarshal(body, &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.Outcome != matching.NoExistingTemplates || first.CreatedTemplateID == "" {
		t.Fatalf("first match = %+v", first)
	}
	if first.Fingerprint != "nip:7740001454" {
		t.Errorf("fingerprint = %q", first.Fingerprint)
	}

	// second document, same tax ID: exact fingerprint match regardless of amount
	resp, body = postJSON(t, ts.URL+"/v1/match", matchRequest{
		TaxID: "7740001454", Amount: 9000,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var second matchResponse
	if err := json.Unmarshal(body, &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if second.Outcome != matching.ExactMatch || second.TemplateID != first.CreatedTemplateID {
		t.Fatalf("second match = %+v", second)
	}
}

func TestMatchEndpoint_DoesNotLinkAcrossVendors(t *testing.T) {
	ts := newTestServer(t)

	resp, body := postJSON(t, ts.URL+"/v1/match", matchRequest{
		TaxID: "1111111111", Amount: 150, Currency: "PLN",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var first matchResponse
	if err := json.Unmarshal(body, &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.CreatedTemplateID == "" {
		t.Fatalf("first vendor should create a template, got %+v", first)
	}

	// a different vendor with an in-band amount must not link to it
	resp, body = postJSON(t, ts.URL+"/v1/match", matchRequest{
		TaxID: "2222222222", Amount: 150, Currency: "PLN",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var second matchResponse
	if err := json.Unmarshal(body, &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if second.Outcome != matching.NoExistingTemplates {
		t.Fatalf("outcome = %s, want %s", second.Outcome, matching.NoExistingTemplates)
	}
	if second.CreatedTemplateID == "" || second.CreatedTemplateID == first.CreatedTemplateID {
		t.Errorf("second vendor should get its own template, got %+v", second)
	}
}

func TestMatchEndpoint_RequiresIdentity(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := postJSON(t, ts.URL+"/v1/match", matchRequest{Amount: 100})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing identity should be 400, got %d", resp.StatusCode)
	}
}

func TestRouteEndpoint(t *testing.T) {
	ts := newTestServer(t)

	cases := []struct {
		req       routeRequest
		wantCloud bool
	}{
		{routeRequest{Online: true, BackendHealth: "HEALTHY", CloudEnabled: true}, true},
		{routeRequest{Online: true, BackendHealth: "HEALTHY", CloudEnabled: false}, false},
		{routeRequest{Online: false, BackendHealth: "HEALTHY", CloudEnabled: true}, false},
	}
	for i, c := range cases {
		resp, body := postJSON(t, ts.URL+"/v1/route", c.req)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("case %d status = %d", i, resp.StatusCode)
		}
		var out struct {
			Cloud  bool   `json:"cloud"`
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if out.Cloud != c.wantCloud {
			t.Errorf("case %d cloud = %v, want %v (%s)", i, out.Cloud, c.wantCloud, body)
		}
	}
}

func TestVendorKeywords_Unknown(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := postJSONGet(t, ts.URL+"/v1/vendors/ghost/keywords")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown vendor should be 404, got %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, body := postJSONGet(t, ts.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out map[string]string
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["status"] != "ok" {
		t.Errorf("status = %q", out["status"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	resp, body := postJSONGet(t, ts.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !bytes.Contains(body, []byte("invoicescan_http_requests_total")) &&
		!bytes.Contains(body, []byte("go_goroutines")) {
		t.Error("metrics exposition looks empty")
	}
}
