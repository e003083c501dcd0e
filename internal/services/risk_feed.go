package services

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"wellness-backend-go/internal/models"
)

// RiskEvent is pushed to websocket subscribers after a scoring run.
type RiskEvent struct {
	ExternalID string           `json:"externalId"`
	Date       string           `json:"date"`
	ModelName  string           `json:"modelName"`
	RiskScore  float64          `json:"riskScore"`
	RiskLevel  models.RiskLevel `json:"riskLevel"`
	ScoredAt   time.Time        `json:"scoredAt"`
}

func NewRiskEvent(externalID string, a models.RiskAssessment, scoredAt time.Time) RiskEvent {
	return RiskEvent{
		ExternalID: externalID,
		Date:       a.Date.Format("2006-01-02"),
		ModelName:  a.ModelName,
		RiskScore:  a.RiskScore,
		RiskLevel:  a.RiskLevel,
		ScoredAt:   scoredAt,
	}
}

// RiskFeed fans scored assessments out to connected websocket clients.
// Publish never blocks; events are dropped when the buffer is full.
type RiskFeed struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	ch      chan RiskEvent
}

func NewRiskFeed() *RiskFeed {
	return &RiskFeed{
		clients: map[*websocket.Conn]bool{},
		ch:      make(chan RiskEvent, 64),
	}
}

func (f *RiskFeed) Run(ctx context.Context) {
	for {
		select {
		case event := <-f.ch:
			f.mu.Lock()
			for conn := range f.clients {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteJSON(event); err != nil {
					delete(f.clients, conn)
					_ = conn.Close()
				}
			}
			f.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

func (f *RiskFeed) Publish(event RiskEvent) {
	if f == nil {
		return
	}
	select {
	case f.ch <- event:
	default:
	}
}

func (f *RiskFeed) Add(conn *websocket.Conn) {
	f.mu.Lock()
	f.clients[conn] = true
	f.mu.Unlock()
}

func (f *RiskFeed) Remove(conn *websocket.Conn) {
	f.mu.Lock()
	delete(f.clients, conn)
	f.mu.Unlock()
}

func (f *RiskFeed) Clients() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}
