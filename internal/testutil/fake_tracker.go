// fake_tracker.go - In-process fake of the remote fish tracking service for tests
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/fish-tracker/backend/internal/models"
	"github.com/google/uuid"
)

// ListResponse overrides the next GET /fish answer.
type ListResponse struct {
	Status int
	Body   string
	Delay  time.Duration
	// Hijack drops the connection without answering.
	Hijack bool
}

// FakeTracker serves GET/POST /fish from memory.
type FakeTracker struct {
	Server *httptest.Server

	mu           sync.Mutex
	fishes       []models.Fish
	queue        []ListResponse
	listStatus   int
	createStatus int
	created      []models.NewFish
	listCalls    int
	createCalls  int
}

// NewFakeTracker starts a fake tracking service. Call Close when done.
func NewFakeTracker() *FakeTracker {
	f := &FakeTracker{
		fishes:       []models.Fish{},
		listStatus:   http.StatusOK,
		createStatus: http.StatusCreated,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/fish", f.handleFish)
	f.Server = httptest.NewServer(mux)
	return f
}

// URL is the base URL to configure the client with.
func (f *FakeTracker) URL() string {
	return f.Server.URL
}

// Close shuts the server down.
func (f *FakeTracker) Close() {
	f.Server.CloseClientConnections()
	f.Server.Close()
}

// SetFish replaces the stored fish list.
func (f *FakeTracker) SetFish(fishes ...models.Fish) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fishes = append([]models.Fish{}, fishes...)
}

// SetListStatus makes every list answer with code (and no body) until reset to 200.
func (f *FakeTracker) SetListStatus(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listStatus = code
}

// SetCreateStatus sets the status returned for POST /fish.
func (f *FakeTracker) SetCreateStatus(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createStatus = code
}

// EnqueueList queues one-shot list answers, consumed in order.
func (f *FakeTracker) EnqueueList(r ...ListResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, r...)
}

// Created returns every accepted create body.
func (f *FakeTracker) Created() []models.NewFish {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.NewFish{}, f.created...)
}

// ListCalls returns how many GET /fish requests arrived.
func (f *FakeTracker) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

// CreateCalls returns how many POST /fish requests arrived.
func (f *FakeTracker) CreateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls
}

func (f *FakeTracker) handleFish(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		f.handleList(w, r)
	case http.MethodPost:
		f.handleCreate(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *FakeTracker) handleList(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.listCalls++
	var next *ListResponse
	if len(f.queue) > 0 {
		q := f.queue[0]
		f.queue = f.queue[1:]
		next = &q
	}
	status := f.listStatus
	body, _ := json.Marshal(f.fishes)
	f.mu.Unlock()

	if next != nil {
		if next.Delay > 0 {
			select {
			case <-time.After(next.Delay):
			case <-r.Context().Done():
				return
			}
		}
		if next.Hijack {
			if hj, ok := w.(http.Hijacker); ok {
				conn, _, err := hj.Hijack()
				if err == nil {
					conn.Close()
				}
			}
			return
		}
		if next.Status == 0 {
			next.Status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(next.Status)
		io.WriteString(w, next.Body)
		return
	}

	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (f *FakeTracker) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in models.NewFish
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++

	if f.createStatus < 200 || f.createStatus > 299 {
		w.WriteHeader(f.createStatus)
		return
	}

	f.created = append(f.created, in)
	f.fishes = append(f.fishes, models.Fish{
		ID:           uuid.New().String(),
		Species:      in.Species,
		TrackingInfo: in.TrackingInfo,
		WeightKG:     in.WeightKG,
		Location:     models.Location{Latitude: 44.692661, Longitude: -63.639532},
	})
	w.WriteHeader(f.createStatus)
}

// Salmon is the single-fish fixture used across tests.
func Salmon() models.Fish {
	return models.Fish{
		ID:           "1",
		Species:      "Salmon",
		TrackingInfo: "TAG-01",
		WeightKG:     3.2,
		Location:     models.Location{Latitude: 44.69, Longitude: -63.64},
	}
}

// School returns n distinct fish with ids "f1".."fn".
func School(n int) []models.Fish {
	out := make([]models.Fish, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, models.Fish{
			ID:           "f" + strconv.Itoa(i),
			Species:      "Cod",
			TrackingInfo: "TAG-" + strconv.Itoa(i),
			WeightKG:     float64(i),
			Location:     models.Location{Latitude: 44.6 + float64(i)/100, Longitude: -63.6},
		})
	}
	return out
}
