//go:build e2e
// +build e2e

package e2e

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
)

// The service under test must run with MAYAR_BASE_URL pointing here.
const mayarMockAddr = "0.0.0.0:38085"

type mayarMock struct {
	mu       sync.Mutex
	statuses map[string]string
	seq      atomic.Int64
}

// setStatus controls what the next status lookup for id reports.
func (m *mayarMock) setStatus(id, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[id] = status
}

var mayar = &mayarMock{statuses: map[string]string{}}

func startMayarMock(addr string) (*http.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /invoices", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Amount int64 `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Amount <= 0 {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "bad invoice"})
			return
		}
		id := fmt.Sprintf("inv_e2e_%d", mayar.seq.Add(1))
		mayar.setStatus(id, "unpaid")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"id": id, "payment_url": "https://pay.example/" + id},
		})
	})

	statusHandler := func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.PathValue("id"))
		mayar.mu.Lock()
		status, ok := mayar.statuses[id]
		mayar.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "not found"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"id": id, "status": status, "amount": 50000, "currency": "IDR"},
		})
	}
	mux.HandleFunc("GET /invoices/{id}", statusHandler)
	mux.HandleFunc("GET /transactions/{id}", statusHandler)

	srv := &http.Server{Handler: mux}
	go func() {
		_ = srv.Serve(lis)
	}()
	return srv, nil
}
