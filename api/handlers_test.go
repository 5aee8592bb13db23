package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AMCarbonaro/PULSE/types"
)

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) response {
	t.Helper()
	var resp response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body=%s)", err, rec.Body.String())
	}
	return resp
}

func TestHealthReturnsOK(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Fatalf("expected success envelope, got %+v", resp)
	}
}

func TestChainReturnsGenesisHeight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/chain", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("expected object data, got %T", resp.Data)
	}
	if data["height"].(float64) != 0 {
		t.Fatalf("expected genesis height 0, got %v", data["height"])
	}
}

func TestInfoReportsVersionAndPeerID(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/info", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	if data["version"] != "test-version" {
		t.Fatalf("expected version test-version, got %v", data["version"])
	}
	if data["peer_id"] != "test-peer" {
		t.Fatalf("expected peer_id test-peer, got %v", data["peer_id"])
	}
}

func TestBlockByIndexNotFound(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/block/99", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Success {
		t.Fatalf("expected failure envelope for missing block")
	}
}

func TestBlockByIndexGenesisFound(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/block/0", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestBlockByIndexRejectsNonNumeric(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/block/abc", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestBlocksOffsetPaginatesAscending(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/blocks?offset=0&limit=1", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	blocks := data["blocks"].([]interface{})
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block at offset 0 limit 1, got %d", len(blocks))
	}
}

func TestBlocksOffsetBeyondChainReturnsEmpty(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/blocks?offset=50", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	blocks := data["blocks"].([]interface{})
	if len(blocks) != 0 {
		t.Fatalf("expected no blocks past chain end, got %d", len(blocks))
	}
}

func TestBlocksRejectsInvalidLimit(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/blocks?limit=-1", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestBalanceValidatesPubkeyLength(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/balance/short", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short pubkey, got %d", rec.Code)
	}
}

func TestSubmitHeartbeatRejectsOutOfRangeHeartRate(t *testing.T) {
	s := newTestServer(t)
	d := newTestDevice(t)
	hb := d.heartbeat(t, 1_700_000_000_000, 301, types.Motion{X: 0, Y: 0, Z: 0}, 37)

	body, _ := json.Marshal(hb)
	req := httptest.NewRequest(http.MethodPost, "/pulse", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for heart rate 301, got %d", rec.Code)
	}
}

func TestSubmitHeartbeatRejectsOutOfRangeTemperature(t *testing.T) {
	s := newTestServer(t)
	d := newTestDevice(t)
	hb := d.heartbeat(t, 1_700_000_000_000, 70, types.Motion{X: 0, Y: 0, Z: 0}, 10)

	body, _ := json.Marshal(hb)
	req := httptest.NewRequest(http.MethodPost, "/pulse", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for temperature 10, got %d", rec.Code)
	}
}

func TestSubmitHeartbeatRejectsMissingSignature(t *testing.T) {
	s := newTestServer(t)
	d := newTestDevice(t)
	hb := d.heartbeat(t, 1_700_000_000_000, 70, types.Motion{X: 0, Y: 0, Z: 0}, 37)
	hb.Signature = ""

	body, _ := json.Marshal(hb)
	req := httptest.NewRequest(http.MethodPost, "/pulse", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing signature, got %d", rec.Code)
	}
}

func TestSubmitHeartbeatAcceptsValidPayload(t *testing.T) {
	s := newTestServer(t)
	d := newTestDevice(t)
	hb := d.heartbeat(t, uint64(time.Now().UnixMilli()), 80, types.Motion{X: 0.1, Y: 0, Z: 0}, 37)

	body, _ := json.Marshal(hb)
	req := httptest.NewRequest(http.MethodPost, "/pulse", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	if s.engine.HeartbeatPoolSize() != 1 {
		t.Fatalf("expected heartbeat admitted to pool, size=%d", s.engine.HeartbeatPoolSize())
	}
}

func TestSubmitTransactionRejectsNonPositiveAmount(t *testing.T) {
	s := newTestServer(t)
	d := newTestDevice(t)
	tx := d.transaction(t, "recipient-key-0000000000000000000000000000000000", 0, 1_700_000_000_000, "tx-1")

	body, _ := json.Marshal(tx)
	req := httptest.NewRequest(http.MethodPost, "/tx", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero amount, got %d", rec.Code)
	}
}

func TestSubmitTransactionRejectsSelfSend(t *testing.T) {
	s := newTestServer(t)
	d := newTestDevice(t)
	tx := d.transaction(t, d.pubhex, 1, 1_700_000_000_000, "tx-2")

	body, _ := json.Marshal(tx)
	req := httptest.NewRequest(http.MethodPost, "/tx", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for self-send, got %d", rec.Code)
	}
}

func TestWriteRateLimitTripsAfterBurst(t *testing.T) {
	s := newTestServer(t)
	d := newTestDevice(t)

	var last *httptest.ResponseRecorder
	for i := 0; i < writeRatePerMin+1; i++ {
		hb := d.heartbeat(t, uint64(1_700_000_000_000+i), 70, types.Motion{}, 37)
		body, _ := json.Marshal(hb)
		req := httptest.NewRequest(http.MethodPost, "/pulse", bytes.NewReader(body))
		req.RemoteAddr = "203.0.113.7:4242"
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		last = rec
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after exceeding burst, got %d", last.Code)
	}
}
