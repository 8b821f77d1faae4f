package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/wenqi/jobtailor/internal/domain"
	"github.com/wenqi/jobtailor/internal/repository"
)

// ApplicationService persists and serves analysis outcomes.
type ApplicationService struct {
	repo *repository.ApplicationRepository
}

// NewApplicationService creates a new application service.
func NewApplicationService(repo *repository.ApplicationRepository) *ApplicationService {
	return &ApplicationService{repo: repo}
}

// SaveAnalysis upserts the analysis result keyed by the submission. Display
// fields fall back to the submission when the analysis left them empty.
func (s *ApplicationService) SaveAnalysis(ctx context.Context, sub domain.JobSubmission, result *domain.AnalysisResult) (*domain.Application, error) {
	title, company := result.Title, result.Company
	if title == "" {
		title = sub.Title
	}
	if company == "" {
		company = sub.Company
	}

	app := &domain.Application{
		ID:        uuid.NewString(),
		UserID:    sub.UserID,
		TargetURL: sub.TargetURL,
		Title:     title,
		Company:   company,
		Result:    *result,
	}
	if err := s.repo.Upsert(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// ListByUser returns a user's applications, newest first.
func (s *ApplicationService) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Application, error) {
	return s.repo.ListByUser(ctx, userID, limit)
}

// ThreadService creates the chat thread attached to a job.
type ThreadService struct {
	repo *repository.ThreadRepository
}

// NewThreadService creates a new thread service.
func NewThreadService(repo *repository.ThreadRepository) *ThreadService {
	return &ThreadService{repo: repo}
}

// CreateOrGetThread returns the thread for (userID, targetURL), creating it
// on first use.
func (s *ThreadService) CreateOrGetThread(ctx context.Context, userID, targetURL, title, company string) (*domain.ChatThread, error) {
	return s.repo.CreateOrGet(ctx, userID, targetURL, title, company)
}

// PortfolioService records generated portfolios.
type PortfolioService struct {
	repo *repository.PortfolioRepository
}

// NewPortfolioService creates a new portfolio service.
func NewPortfolioService(repo *repository.PortfolioRepository) *PortfolioService {
	return &PortfolioService{repo: repo}
}

// ExistsForThread reports whether the thread already has a portfolio.
func (s *PortfolioService) ExistsForThread(ctx context.Context, threadID string) (bool, error) {
	return s.repo.ExistsByThreadID(ctx, threadID)
}

// SavePortfolio records a generated portfolio.
func (s *PortfolioService) SavePortfolio(ctx context.Context, p *domain.Portfolio) error {
	return s.repo.Create(ctx, p)
}
