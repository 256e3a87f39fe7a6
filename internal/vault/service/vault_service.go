package service

import (
	"context"
	"errors"

	authdomain "github.com/cipher-calc/backend/internal/auth/domain"
	authrepo "github.com/cipher-calc/backend/internal/auth/repository"
	"github.com/cipher-calc/backend/internal/common/clock"
	commoncrypto "github.com/cipher-calc/backend/internal/common/crypto"
	"github.com/cipher-calc/backend/internal/common/logger"
	"github.com/cipher-calc/backend/internal/observability/metrics"
	"github.com/cipher-calc/backend/internal/vault/domain"
	vaultrepo "github.com/cipher-calc/backend/internal/vault/repository"
)

// Notifier receives messages the moment they are delivered. The websocket
// hub implements it; a nil-safe no-op keeps the service testable without one.
type Notifier interface {
	NotifyMessage(userID string, msg domain.Message)
}

type noopNotifier struct{}

func (noopNotifier) NotifyMessage(string, domain.Message) {}

// VaultService answers secret-code checks and manages the message vault
// behind them.
type VaultService struct {
	users       authrepo.UserRepository
	messages    vaultrepo.MessageRepository
	idGenerator commoncrypto.IDGenerator
	clock       clock.Clock
	notifier    Notifier
	log         *logger.Logger
}

func NewVaultService(
	users authrepo.UserRepository,
	messages vaultrepo.MessageRepository,
	idGenerator commoncrypto.IDGenerator,
	clk clock.Clock,
	log *logger.Logger,
) *VaultService {
	return &VaultService{
		users:       users,
		messages:    messages,
		idGenerator: idGenerator,
		clock:       clk,
		notifier:    noopNotifier{},
		log:         log,
	}
}

// SetNotifier installs the live feed sink. Called once during startup,
// before the HTTP server accepts traffic.
func (s *VaultService) SetNotifier(n Notifier) {
	if n != nil {
		s.notifier = n
	}
}

func (s *VaultService) VerifySecretCode(ctx context.Context, code string) (authdomain.Summary, error) {
	if code == "" {
		metrics.SecretCodeChecksTotal.WithLabelValues("invalid").Inc()
		return authdomain.Summary{}, ErrSecretCodeInvalid
	}

	user, err := s.users.FindBySecretCode(ctx, code)
	if err != nil {
		if errors.Is(err, authrepo.ErrUserNotFound) {
			metrics.SecretCodeChecksTotal.WithLabelValues("invalid").Inc()
			s.log.WithFields(ctx, logger.Fields{
				"action": "secret_code_rejected",
			}).Warn("secret code rejected")
			return authdomain.Summary{}, ErrSecretCodeInvalid
		}
		return authdomain.Summary{}, err
	}

	metrics.SecretCodeChecksTotal.WithLabelValues("valid").Inc()
	s.log.WithFields(ctx, logger.Fields{
		"user_id": string(user.ID),
		"action":  "secret_code_accepted",
	}).Info("secret code accepted")

	return user.Summary(), nil
}

func (s *VaultService) ListMessages(ctx context.Context, code string) ([]domain.Message, error) {
	owner, err := s.VerifySecretCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.messages.ListForUser(ctx, owner.ID)
}

type SendMessageInput struct {
	RecipientUserID     string
	RecipientSecretCode string
	SenderName          string
	SenderEmail         string
	Subject             string
	Content             string
}

// SendMessage delivers to the account named by user id or secret code,
// whichever the caller supplied. User id wins when both are present.
func (s *VaultService) SendMessage(ctx context.Context, input SendMessageInput) (domain.Message, error) {
	recipient, err := s.resolveRecipient(ctx, input)
	if err != nil {
		return domain.Message{}, err
	}

	id, err := s.idGenerator.NewID()
	if err != nil {
		return domain.Message{}, err
	}

	msg := domain.Message{
		ID:          id,
		SenderName:  input.SenderName,
		SenderEmail: input.SenderEmail,
		Subject:     input.Subject,
		Content:     input.Content,
		CreatedAt:   s.clock.Now(),
		UserID:      string(recipient.ID),
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": string(recipient.ID),
			"action":  "message_create_failed",
		}).Errorf("message delivery failed: %v", err)
		return domain.Message{}, err
	}

	metrics.MessagesDelivered.Inc()
	s.notifier.NotifyMessage(string(recipient.ID), msg)

	s.log.WithFields(ctx, logger.Fields{
		"user_id":    string(recipient.ID),
		"message_id": msg.ID,
		"action":     "message_delivered",
	}).Info("message delivered")

	return msg, nil
}

// MarkRead flips the read flag on a message belonging to ownerID. A message
// owned by another account reads as not found.
func (s *VaultService) MarkRead(ctx context.Context, messageID string, ownerID string) error {
	updated, err := s.messages.MarkRead(ctx, messageID, ownerID)
	if err != nil {
		return err
	}
	if !updated {
		return ErrMessageNotFound
	}
	metrics.MessagesRead.Inc()
	return nil
}

func (s *VaultService) DeleteMessage(ctx context.Context, messageID string, ownerID string) error {
	deleted, err := s.messages.Delete(ctx, messageID, ownerID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrMessageNotFound
	}
	metrics.MessagesDeleted.Inc()
	return nil
}

func (s *VaultService) resolveRecipient(ctx context.Context, input SendMessageInput) (authdomain.User, error) {
	var (
		user authdomain.User
		err  error
	)

	switch {
	case input.RecipientUserID != "":
		user, err = s.users.FindByID(ctx, authdomain.UserID(input.RecipientUserID))
	case input.RecipientSecretCode != "":
		user, err = s.users.FindBySecretCode(ctx, input.RecipientSecretCode)
	default:
		return authdomain.User{}, ErrRecipientRequired
	}

	if err != nil {
		if errors.Is(err, authrepo.ErrUserNotFound) {
			return authdomain.User{}, ErrRecipientNotFound
		}
		return authdomain.User{}, err
	}
	return user, nil
}
