package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/aiquizzer/quizzer-backend/internal/model"
)

const (
	easySuccessRate = 0.5
	hardSuccessRate = 0.8
)

type profileStore interface {
	Get(ctx context.Context, username string) (*model.UserProfile, error)
}

// ProfileService exposes per-subject performance and adaptive difficulty.
type ProfileService struct {
	profiles profileStore
	log      zerolog.Logger
}

// NewProfileService creates a new ProfileService.
func NewProfileService(profiles profileStore, log zerolog.Logger) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		log:      log.With().Str("component", "profile_service").Logger(),
	}
}

// Get returns the user's performance per subject, sorted by subject. Users
// without any graded submission get an empty profile.
func (s *ProfileService) Get(ctx context.Context, username string) (*model.ProfileView, error) {
	view := &model.ProfileView{Username: username, Subjects: []model.SubjectPerformance{}}

	p, err := s.load(ctx, username)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return view, nil
	}

	for subject, stats := range p.Performance {
		view.Subjects = append(view.Subjects, model.SubjectPerformance{
			Subject:               subject,
			Correct:               stats.Correct,
			Total:                 stats.Total,
			SuccessRate:           stats.SuccessRate(),
			RecommendedDifficulty: DifficultyFor(stats),
		})
	}
	sort.Slice(view.Subjects, func(i, j int) bool { return view.Subjects[i].Subject < view.Subjects[j].Subject })
	updated := p.UpdatedAt
	view.UpdatedAt = &updated
	return view, nil
}

// RecommendDifficulty resolves the difficulty to use for the user's next quiz on subject.
func (s *ProfileService) RecommendDifficulty(ctx context.Context, username, subject string) (model.Difficulty, error) {
	p, err := s.load(ctx, username)
	if err != nil {
		return "", err
	}
	if p == nil {
		return model.DifficultyMedium, nil
	}
	return DifficultyFor(p.Performance[model.NormalizeSubject(subject)]), nil
}

// DifficultyFor maps a success rate to a difficulty: below 50% easy, above 80%
// hard, medium otherwise and when there is no history.
func DifficultyFor(stats model.SubjectStats) model.Difficulty {
	if stats.Total <= 0 {
		return model.DifficultyMedium
	}
	rate := stats.SuccessRate()
	switch {
	case rate < easySuccessRate:
		return model.DifficultyEasy
	case rate > hardSuccessRate:
		return model.DifficultyHard
	default:
		return model.DifficultyMedium
	}
}

func (s *ProfileService) load(ctx context.Context, username string) (*model.UserProfile, error) {
	p, err := s.profiles.Get(ctx, username)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}
