package app

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"safetyhub-assessment-service/internal/domain"
)

// userStats accumulates one user's rollup while folding the attempt history.
type userStats struct {
	userID string
	best   float64
	avg    float64
	count  int
}

// aggregateLeaderboard folds an assessment's full attempt history into ranked
// per-user rows. The fold is incremental (running mean) but order-independent:
// shuffling one user's attempts never changes their best or average. Attempts
// whose user cannot be resolved are skipped, not fatal.
func aggregateLeaderboard(ctx context.Context, attempts []domain.Attempt, users UserDirectory, topN int, log *zap.Logger) []domain.LeaderboardRow {
	byUser := make(map[string]*userStats)
	order := make([]string, 0) // first-seen order keeps the sort deterministic

	for _, attempt := range attempts {
		stats, ok := byUser[attempt.UserID]
		if !ok {
			stats = &userStats{userID: attempt.UserID}
			byUser[attempt.UserID] = stats
			order = append(order, attempt.UserID)
		}
		if attempt.Score > stats.best {
			stats.best = attempt.Score
		}
		stats.avg = (stats.avg*float64(stats.count) + attempt.Score) / float64(stats.count+1)
		stats.count++
	}

	sort.SliceStable(order, func(i, j int) bool {
		si, sj := byUser[order[i]], byUser[order[j]]
		if si.best != sj.best {
			return si.best > sj.best
		}
		return si.avg > sj.avg
	})

	rows := make([]domain.LeaderboardRow, 0, topN)
	for _, userID := range order {
		if len(rows) == topN {
			break
		}
		user, err := users.GetUser(ctx, userID)
		if err != nil {
			log.Warn("skipping unresolved user on leaderboard",
				zap.String("userId", userID), zap.Error(err))
			continue
		}
		stats := byUser[userID]
		rows = append(rows, domain.LeaderboardRow{
			User:      user,
			BestScore: stats.best,
			AvgScore:  stats.avg,
		})
	}
	return rows
}
