package cli

import (
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"safetyhub-assessment-service/internal/config"
	"safetyhub-assessment-service/internal/domain"
	pgstore "safetyhub-assessment-service/internal/infra/postgres"
	"safetyhub-assessment-service/internal/logging"
)

// NewSeedCmd installs the starter assessment and the configured demo users.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the starter assessment and demo users",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := logging.New(cfg.Logging.Level, cfg.Logging.File)
			defer log.Sync()

			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
				return err
			}

			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()
			store := pgstore.NewStore(pool)

			if err := store.CreateAssessment(ctx, earthquakeAssessment()); err != nil {
				return err
			}
			for _, demo := range cfg.DemoUsers {
				if err := store.UpsertUser(ctx, demo.User()); err != nil {
					return err
				}
			}
			log.Info("seed data installed", zap.Int("demoUsers", len(cfg.DemoUsers)))
			return nil
		},
	}
}

// earthquakeAssessment is the starter quiz shipped with the platform.
func earthquakeAssessment() domain.Assessment {
	return domain.Assessment{
		ID:           "earthquake-awareness",
		Title:        "Earthquake Awareness Quiz",
		Description:  "Core concepts and preparedness for earthquake safety.",
		PassingScore: 70,
		Difficulty:   domain.Beginner,
		IsActive:     true,
		Questions: []domain.Question{
			{
				Text: "What should you do immediately when you feel an earthquake?",
				Kind: domain.MultipleChoice,
				Options: []string{
					"Run outside the building",
					"Drop, Cover, and Hold On (take cover under a sturdy desk or table)",
					"Get in the bathtub",
					"Stand in the doorway",
				},
				CorrectAnswer: "Drop, Cover, and Hold On (take cover under a sturdy desk or table)",
				Points:        1,
				Explanation:   "The 'Drop, Cover, and Hold On' technique protects you from falling debris. Avoid running outside as falling objects are more dangerous outdoors.",
			},
			{
				Text: "How long should you remain in a 'Drop, Cover, Hold On' position?",
				Kind: domain.MultipleChoice,
				Options: []string{
					"10 seconds",
					"Until you stop feeling shaking (usually 30-60 seconds)",
					"5 minutes",
					"As soon as possible",
				},
				CorrectAnswer: "Until you stop feeling shaking (usually 30-60 seconds)",
				Points:        1,
				Explanation:   "Most earthquakes last 5-30 seconds, but strong shaking may continue for longer. Stay protected until all shaking has completely stopped.",
			},
			{
				Text:          "Aftershocks can be as dangerous as the initial earthquake.",
				Kind:          domain.TrueFalse,
				CorrectAnswer: "true",
				Points:        1,
				Explanation:   "Aftershocks can further damage weakened structures and may strike minutes, days, or even weeks after the main shock.",
			},
			{
				Text: "Where is the safest place to be during an earthquake if you are indoors?",
				Kind: domain.MultipleChoice,
				Options: []string{
					"Next to a window",
					"Under a sturdy table, away from windows and heavy objects",
					"In an elevator",
					"On a balcony",
				},
				CorrectAnswer: "Under a sturdy table, away from windows and heavy objects",
				Points:        1,
				Explanation:   "Sturdy furniture shields you from falling debris; windows and unsecured heavy objects are the main indoor hazards.",
			},
			{
				Text:          "How many days of emergency supplies should a household keep ready?",
				Kind:          domain.ShortAnswer,
				CorrectAnswer: "3",
				Points:        1,
				Explanation:   "Emergency agencies recommend at least three days of water, food, and medication per person.",
			},
		},
	}
}
