package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/mpetrovs/tabchat/internal/client/auth"
	"github.com/mpetrovs/tabchat/internal/client/backend"
	"github.com/mpetrovs/tabchat/internal/client/models"
	"github.com/mpetrovs/tabchat/internal/client/repositories/pendingops"
	"github.com/mpetrovs/tabchat/internal/common"
	"github.com/mpetrovs/tabchat/internal/logging"
	"github.com/mpetrovs/tabchat/internal/netx"
)

// ImageUploader stores image bytes with a third-party host and returns the
// public URL. Satisfied by netx.ImageHost.
type ImageUploader interface {
	Upload(ctx context.Context, image []byte) (string, error)
}

var _ ImageUploader = (*netx.ImageHost)(nil)

// ProfileService manages the current user's profile document and the device
// push-token lifecycle.
type ProfileService struct {
	store  backend.Store
	queue  pendingops.Repository
	conn   Connectivity
	images ImageUploader
	log    logging.Logger
}

func NewProfileService(store backend.Store, queue pendingops.Repository, conn Connectivity,
	images ImageUploader, log logging.Logger) *ProfileService {
	return &ProfileService{store: store, queue: queue, conn: conn, images: images, log: log}
}

// EnsureUser returns the profile for the session, creating the document on
// first access after authentication.
func (s *ProfileService) EnsureUser(ctx context.Context, session *auth.Session) (*models.User, error) {
	u, err := s.store.GetUser(ctx, session.UID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	u = &models.User{ID: session.UID, Email: session.Email, Friends: []string{}}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "profile created", "user", session.UID)
	return u, nil
}

// UpdateFields merge-writes profile fields, queueing the update when the
// device is offline.
func (s *ProfileService) UpdateFields(ctx context.Context, userID string, fields map[string]any) error {
	if s.conn.Online() {
		err := s.store.UpdateUserFields(ctx, userID, fields)
		if err == nil || !backend.IsTransient(err) {
			return err
		}
		s.log.Warn(ctx, "profile update degraded to queue", "user", userID, "error", err)
	}

	op, err := models.NewPendingOperation(models.OpProfileUpdate, models.ProfileOp{
		UserID: userID,
		Fields: fields,
	})
	if err != nil {
		return err
	}
	return s.queue.Enqueue(ctx, op)
}

// SetDisplayName updates the profile name.
func (s *ProfileService) SetDisplayName(ctx context.Context, userID, name string) error {
	return s.UpdateFields(ctx, userID, map[string]any{"name": name})
}

// SetProfileImage uploads the image to the third-party host, then points
// the profile at the hosted URL. The upload needs connectivity; there is no
// queued variant because the queue stores intents, not blobs.
func (s *ProfileService) SetProfileImage(ctx context.Context, userID string, image []byte) (string, error) {
	if !s.conn.Online() {
		return "", fmt.Errorf("image upload requires connectivity: %w", common.ErrorUnavailable)
	}
	url, err := s.images.Upload(ctx, image)
	if err != nil {
		return "", fmt.Errorf("uploading profile image: %w", err)
	}
	if err := s.UpdateFields(ctx, userID, map[string]any{"profileImage": url}); err != nil {
		return "", err
	}
	return url, nil
}

// RegisterPushToken stores the device's push token on the profile so
// counterparties can notify this device.
func (s *ProfileService) RegisterPushToken(ctx context.Context, userID, token string) error {
	return s.UpdateFields(ctx, userID, map[string]any{"pushToken": token})
}

// UnregisterPushToken clears the token on sign-out.
func (s *ProfileService) UnregisterPushToken(ctx context.Context, userID string) error {
	return s.UpdateFields(ctx, userID, map[string]any{"pushToken": ""})
}
