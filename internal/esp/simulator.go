package esp

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Simulator is an in-memory provider for development and tests. It fails a
// configurable share of calls with connection errors.
type Simulator struct {
	mu          sync.Mutex
	successRate float64 // 0.0 to 1.0 (e.g., 0.95 = 95% success)
	maxLatency  time.Duration
	rand        *rand.Rand
	nextID      int
	campaigns   map[string]*Campaign
	uploads     map[string]int
	creates     int
	updates     int
}

// NewSimulator creates a simulated provider
// successRate: probability of a call succeeding (0.0 to 1.0)
func NewSimulator(successRate float64, maxLatency time.Duration) *Simulator {
	s := &Simulator{
		maxLatency: maxLatency,
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
		campaigns:  make(map[string]*Campaign),
		uploads:    make(map[string]int),
	}
	s.SetSuccessRate(successRate)
	return s
}

// SetSuccessRate updates the success rate
func (s *Simulator) SetSuccessRate(rate float64) {
	if rate < 0.0 {
		rate = 0.0
	}
	if rate > 1.0 {
		rate = 1.0
	}
	s.mu.Lock()
	s.successRate = rate
	s.mu.Unlock()
}

// List returns a simulated list handle
func (s *Simulator) List(listID string) List {
	return &simulatedList{sim: s, listID: listID}
}

// Ping always succeeds
func (s *Simulator) Ping(ctx context.Context) error {
	return nil
}

// Campaign returns a copy of a stored campaign
func (s *Simulator) Campaign(id string) (Campaign, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return Campaign{}, false
	}
	return *c, true
}

// Seed stores a campaign as if it had been created earlier
func (s *Simulator) Seed(campaign Campaign) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if campaign.ID == "" {
		campaign.ID = s.newID()
	}
	s.campaigns[campaign.ID] = &campaign
	return campaign.ID
}

// Counts returns how many campaigns were created and updated
func (s *Simulator) Counts() (creates, updates int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates, s.updates
}

// Uploads returns how many times resources were uploaded for a campaign
func (s *Simulator) Uploads(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads[id]
}

func (s *Simulator) newID() string {
	s.nextID++
	return fmt.Sprintf("sim%06d", s.nextID)
}

// call simulates latency and decides whether the call fails
func (s *Simulator) call(ctx context.Context, op string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return &ConnectionError{Op: op, Err: err}
	}

	s.mu.Lock()
	var latency time.Duration
	if s.maxLatency > 0 {
		latency = time.Duration(s.rand.Int63n(int64(s.maxLatency)))
	}
	success := s.rand.Float64() < s.successRate
	s.mu.Unlock()

	if timeout > 0 && latency > timeout {
		return &ConnectionError{Op: op, Err: context.DeadlineExceeded}
	}

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return &ConnectionError{Op: op, Err: ctx.Err()}
		}
	}

	if !success {
		return &ConnectionError{Op: op, Err: errors.New("service temporarily unavailable")}
	}
	return nil
}

type simulatedList struct {
	sim     *Simulator
	listID  string
	timeout time.Duration
}

func (l *simulatedList) SetTimeout(d time.Duration) {
	l.timeout = d
}

func (l *simulatedList) SaveCampaign(ctx context.Context, campaign *Campaign, lookupByTitle bool) (string, error) {
	if campaign == nil {
		return "", errors.New("campaign is required")
	}
	if err := l.sim.call(ctx, "save campaign", l.timeout); err != nil {
		return "", err
	}
	if campaign.Title == "" {
		return "", &APIError{Status: 400, Title: "Invalid Resource", Detail: "settings.title is required"}
	}
	if campaign.ListID == "" {
		campaign.ListID = l.listID
	}

	l.sim.mu.Lock()
	defer l.sim.mu.Unlock()

	if campaign.ID == "" && lookupByTitle {
		for id, existing := range l.sim.campaigns {
			if existing.Title == campaign.Title && existing.ListID == campaign.ListID {
				campaign.ID = id
				break
			}
		}
	}

	if campaign.ID != "" {
		if _, ok := l.sim.campaigns[campaign.ID]; !ok {
			return "", &APIError{Status: 404, Title: "Resource Not Found", Detail: "campaign " + campaign.ID}
		}
		l.sim.updates++
	} else {
		campaign.ID = l.sim.newID()
		l.sim.creates++
	}

	stored := *campaign
	l.sim.campaigns[campaign.ID] = &stored
	return campaign.ID, nil
}

func (l *simulatedList) UploadResources(ctx context.Context, campaign *Campaign) error {
	if campaign == nil || campaign.ID == "" {
		return errors.New("campaign must be saved before uploading resources")
	}
	if err := l.sim.call(ctx, "upload resources", l.timeout); err != nil {
		return err
	}

	l.sim.mu.Lock()
	defer l.sim.mu.Unlock()
	l.sim.uploads[campaign.ID]++
	return nil
}
