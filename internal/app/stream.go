package app

import (
	"sync"

	"safetyhub-assessment-service/internal/domain"
)

// LeaderboardHub fans leaderboard snapshots out to live subscribers,
// partitioned by assessment. Slow consumers never block a publish: the stale
// snapshot in their buffer is replaced by the newest one.
type LeaderboardHub struct {
	mu   sync.Mutex
	subs map[string]map[chan domain.Leaderboard]struct{}
}

func NewLeaderboardHub() *LeaderboardHub {
	return &LeaderboardHub{
		subs: make(map[string]map[chan domain.Leaderboard]struct{}),
	}
}

// Subscribe registers a listener for one assessment's leaderboard updates.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *LeaderboardHub) Subscribe(assessmentID string) (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	h.mu.Lock()
	set, ok := h.subs[assessmentID]
	if !ok {
		set = make(map[chan domain.Leaderboard]struct{})
		h.subs[assessmentID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[assessmentID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subs, assessmentID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers a fresh snapshot to every subscriber of its assessment.
func (h *LeaderboardHub) Publish(lb domain.Leaderboard) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[lb.AssessmentID] {
		select {
		case ch <- lb:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}

// HasSubscribers reports whether anyone is watching the assessment live.
func (h *LeaderboardHub) HasSubscribers(assessmentID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[assessmentID]) > 0
}
