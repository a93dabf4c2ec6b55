package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/repository"
)

// QuestionService owns audience questions and their votes.
type QuestionService struct {
	questionRepo repository.QuestionRepository
	stateRepo    repository.StateRepository
}

func NewQuestionService(questionRepo repository.QuestionRepository, stateRepo repository.StateRepository) *QuestionService {
	if questionRepo == nil || stateRepo == nil {
		panic("repositories cannot be nil for QuestionService")
	}
	return &QuestionService{questionRepo: questionRepo, stateRepo: stateRepo}
}

// Ask submits a question. With moderation required the question starts
// hidden and only its sender and moderators see it until approval.
func (s *QuestionService) Ask(ctx context.Context, worldID, roomID string, sender *domain.User, content string, requiresModeration bool) (*domain.Question, error) {
	if sender.IsBanned() || sender.IsSilenced() {
		return nil, ErrPermissionDenied
	}
	if content == "" {
		return nil, ErrInvalidInput
	}
	id, err := s.stateRepo.NextEventID(ctx, worldID, SeriesQuestion)
	if err != nil {
		return nil, ErrBrokerUnavailable
	}
	question := &domain.Question{
		ID:       id,
		WorldID:  worldID,
		RoomID:   roomID,
		SenderID: sender.ID,
		Content:  content,
		Visible:  !requiresModeration,
	}
	audit := &domain.AuditLog{
		WorldID: worldID,
		UserID:  sender.ID,
		Type:    "question.ask",
	}
	if err := s.questionRepo.Create(ctx, question, audit); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"world_id": worldID,
			"room_id":  roomID,
		}).Error("Failed to create question")
		return nil, ErrPersistence
	}
	return question, nil
}

// Vote records one user's vote and returns the question with its new count.
// Voting twice is rejected as invalid input. The question must belong to the
// room the permission check ran against.
func (s *QuestionService) Vote(ctx context.Context, worldID, roomID string, questionID uint64, voter *domain.User) (*domain.Question, error) {
	question, err := s.questionRepo.FindByID(ctx, worldID, questionID)
	if err != nil {
		if errors.Is(err, repository.ErrQuestionNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrPersistence
	}
	if question.RoomID != roomID {
		return nil, ErrNotFound
	}
	if !question.Visible && question.SenderID != voter.ID {
		return nil, ErrNotFound
	}
	votes, err := s.questionRepo.Vote(ctx, questionID, voter.ID)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrInvalidInput
		}
		return nil, ErrPersistence
	}
	question.Votes = votes
	return question, nil
}

// Moderate approves, hides or marks a question answered, with an audit trail.
// Like Vote, it refuses to touch a question outside the room whose grant
// admitted the caller.
func (s *QuestionService) Moderate(ctx context.Context, worldID, roomID string, questionID uint64, moderatorID string, visible, answered bool) (*domain.Question, error) {
	question, err := s.questionRepo.FindByID(ctx, worldID, questionID)
	if err != nil {
		if errors.Is(err, repository.ErrQuestionNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrPersistence
	}
	if question.RoomID != roomID {
		return nil, ErrNotFound
	}
	question.Visible = visible
	question.Answered = answered
	audit := &domain.AuditLog{
		WorldID: worldID,
		UserID:  moderatorID,
		Type:    "question.moderate",
	}
	if err := s.questionRepo.Update(ctx, question, audit); err != nil {
		return nil, ErrPersistence
	}
	return question, nil
}

// List returns a room's questions for a viewer. Moderators pass includeHidden
// to see unapproved questions from everyone.
func (s *QuestionService) List(ctx context.Context, worldID, roomID, viewerID string, includeHidden bool) ([]domain.Question, error) {
	questions, err := s.questionRepo.List(ctx, worldID, roomID, viewerID, includeHidden)
	if err != nil {
		return nil, ErrPersistence
	}
	return questions, nil
}
