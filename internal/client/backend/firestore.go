package backend

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mpetrovs/tabchat/internal/client/models"
	"github.com/mpetrovs/tabchat/internal/common"
	"github.com/mpetrovs/tabchat/internal/logging"
)

// FirestoreStore implements Store over Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
	log    logging.Logger
}

// NewFirestoreStore connects to the given project. credentialsFile may be
// empty, in which case application-default credentials are used.
func NewFirestoreStore(ctx context.Context, projectID, credentialsFile string, log logging.Logger) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &FirestoreStore{client: client, log: log}, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// Ping reads a well-known document id; NotFound still proves reachability.
func (s *FirestoreStore) Ping(ctx context.Context) error {
	_, err := s.client.Collection(common.UsersCollection).Doc("__reachability__").Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return mapError(err)
	}
	return nil
}

type userDoc struct {
	Email        string    `firestore:"email"`
	Name         string    `firestore:"name"`
	ProfileImage string    `firestore:"profileImage"`
	Friends      []string  `firestore:"friends"`
	PushToken    string    `firestore:"pushToken"`
	CreatedAt    time.Time `firestore:"createdAt,serverTimestamp"`
}

func (d *userDoc) toModel(id string) *models.User {
	return &models.User{
		ID:              id,
		Email:           d.Email,
		Name:            d.Name,
		ProfileImageURL: d.ProfileImage,
		Friends:         d.Friends,
		PushToken:       d.PushToken,
	}
}

func (s *FirestoreStore) userRef(id string) *firestore.DocumentRef {
	return s.client.Collection(common.UsersCollection).Doc(id)
}

func (s *FirestoreStore) convRef(id string) *firestore.DocumentRef {
	return s.client.Collection(common.ChatRoomsColl).Doc(id)
}

func (s *FirestoreStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	snap, err := s.userRef(id).Get(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	var d userDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decoding user %s: %w", id, err)
	}
	return d.toModel(id), nil
}

func (s *FirestoreStore) CreateUser(ctx context.Context, u *models.User) error {
	doc := userDoc{
		Email:        u.Email,
		Name:         u.Name,
		ProfileImage: u.ProfileImageURL,
		Friends:      u.Friends,
		PushToken:    u.PushToken,
	}
	if doc.Friends == nil {
		doc.Friends = []string{}
	}
	if _, err := s.userRef(u.ID).Set(ctx, doc, firestore.MergeAll); err != nil {
		return fmt.Errorf("creating user %s: %w", u.ID, mapError(err))
	}
	return nil
}

func (s *FirestoreStore) UpdateUserFields(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if _, err := s.userRef(id).Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("updating user %s: %w", id, mapError(err))
	}
	return nil
}

func (s *FirestoreStore) AddFriend(ctx context.Context, userID, friendID string) error {
	_, err := s.userRef(userID).Update(ctx, []firestore.Update{
		{Path: "friends", Value: firestore.ArrayUnion(friendID)},
	})
	if err != nil {
		return fmt.Errorf("adding friend %s to %s: %w", friendID, userID, mapError(err))
	}
	return nil
}

func (s *FirestoreStore) ListUsers(ctx context.Context, excludeID string) ([]*models.User, error) {
	iter := s.client.Collection(common.UsersCollection).Documents(ctx)
	defer iter.Stop()

	var result []*models.User
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, mapError(err)
		}
		if snap.Ref.ID == excludeID {
			continue
		}
		var d userDoc
		if err := snap.DataTo(&d); err != nil {
			s.log.Warn(ctx, "skipping undecodable user document", "id", snap.Ref.ID, "error", err)
			continue
		}
		result = append(result, d.toModel(snap.Ref.ID))
	}
	return result, nil
}

type conversationDoc struct {
	Participants    []string           `firestore:"participants"`
	Balances        map[string]float64 `firestore:"balances"`
	LastMessage     string             `firestore:"lastMessage"`
	LastMessageTime time.Time          `firestore:"lastMessageTime"`
}

func (d *conversationDoc) toModel(id string) *models.Conversation {
	c := &models.Conversation{
		ID:              id,
		Balances:        make(map[string]decimal.Decimal, len(d.Participants)),
		LastMessage:     d.LastMessage,
		LastMessageTime: d.LastMessageTime,
	}
	if len(d.Participants) == 2 {
		c.Participants = [2]string{d.Participants[0], d.Participants[1]}
	}
	// Only participant keys are kept; anything else in the stored map is a
	// corruption we refuse to propagate.
	for _, p := range d.Participants {
		c.Balances[p] = decimal.NewFromFloat(d.Balances[p])
	}
	return c
}

func (s *FirestoreStore) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	snap, err := s.convRef(id).Get(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	var d conversationDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decoding conversation %s: %w", id, err)
	}
	return d.toModel(id), nil
}

func (s *FirestoreStore) CreateConversation(ctx context.Context, c *models.Conversation) error {
	balances := make(map[string]float64, len(c.Balances))
	for k, v := range c.Balances {
		balances[k] = v.InexactFloat64()
	}
	doc := conversationDoc{
		Participants: []string{c.Participants[0], c.Participants[1]},
		Balances:     balances,
	}
	_, err := s.convRef(c.ID).Create(ctx, doc)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil
		}
		return fmt.Errorf("creating conversation %s: %w", c.ID, mapError(err))
	}
	return nil
}

func (s *FirestoreStore) IncrementBalance(ctx context.Context, conversationID, userID string, delta decimal.Decimal) error {
	_, err := s.convRef(conversationID).Update(ctx, []firestore.Update{
		{FieldPath: firestore.FieldPath{"balances", userID}, Value: firestore.Increment(delta.InexactFloat64())},
	})
	if err != nil {
		return fmt.Errorf("incrementing balance of %s in %s: %w", userID, conversationID, mapError(err))
	}
	return nil
}

func (s *FirestoreStore) SetConversationPreview(ctx context.Context, conversationID, preview string) error {
	_, err := s.convRef(conversationID).Set(ctx, map[string]any{
		"lastMessage":     preview,
		"lastMessageTime": firestore.ServerTimestamp,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("updating preview of %s: %w", conversationID, mapError(err))
	}
	return nil
}

type messageDoc struct {
	SenderID        string    `firestore:"senderId"`
	Text            string    `firestore:"text"`
	Amount          float64   `firestore:"amount,omitempty"`
	TransactionType string    `firestore:"transactionType,omitempty"`
	Timestamp       time.Time `firestore:"timestamp,serverTimestamp"`
}

func (d *messageDoc) toModel(id string) *models.Message {
	m := &models.Message{
		ID:        id,
		SenderID:  d.SenderID,
		Text:      d.Text,
		Timestamp: d.Timestamp,
		Status:    models.StatusConfirmed,
	}
	if d.Amount != 0 {
		a := decimal.NewFromFloat(d.Amount)
		m.Amount = &a
		m.TransactionType = models.TransactionType(d.TransactionType)
	}
	return m
}

// AppendMessage relies on the serverTimestamp tag: a zero Timestamp is
// stamped by the server, a non-zero one (queued offline, replayed later) is
// stored as the canonical time of the message.
func (s *FirestoreStore) AppendMessage(ctx context.Context, conversationID string, m *models.Message) (string, error) {
	doc := messageDoc{
		SenderID:  m.SenderID,
		Text:      m.Text,
		Timestamp: m.Timestamp,
	}
	if m.Amount != nil {
		doc.Amount = m.Amount.InexactFloat64()
		doc.TransactionType = string(m.TransactionType)
	}
	ref, _, err := s.convRef(conversationID).Collection(common.MessagesSubColl).Add(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("appending message to %s: %w", conversationID, mapError(err))
	}
	return ref.ID, nil
}

func (s *FirestoreStore) WatchConversation(ctx context.Context, id string) (<-chan *models.Conversation, error) {
	out := make(chan *models.Conversation)
	iter := s.convRef(id).Snapshots(ctx)

	go func() {
		defer close(out)
		defer iter.Stop()
		for {
			snap, err := iter.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					s.log.Warn(ctx, "conversation watch ended", "conversation", id, "error", err)
				}
				return
			}
			if !snap.Exists() {
				continue
			}
			var d conversationDoc
			if err := snap.DataTo(&d); err != nil {
				s.log.Warn(ctx, "skipping undecodable conversation snapshot", "conversation", id, "error", err)
				continue
			}
			select {
			case out <- d.toModel(id):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (s *FirestoreStore) WatchMessages(ctx context.Context, conversationID string) (<-chan []*models.Message, error) {
	out := make(chan []*models.Message)
	query := s.convRef(conversationID).Collection(common.MessagesSubColl).OrderBy("timestamp", firestore.Asc)
	iter := query.Snapshots(ctx)

	go func() {
		defer close(out)
		defer iter.Stop()
		for {
			qs, err := iter.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					s.log.Warn(ctx, "message watch ended", "conversation", conversationID, "error", err)
				}
				return
			}

			var batch []*models.Message
			for {
				snap, err := qs.Documents.Next()
				if err == iterator.Done {
					break
				}
				if err != nil {
					s.log.Warn(ctx, "message snapshot iteration failed", "conversation", conversationID, "error", err)
					break
				}
				var d messageDoc
				if err := snap.DataTo(&d); err != nil {
					continue
				}
				batch = append(batch, d.toModel(snap.Ref.ID))
			}

			select {
			case out <- batch:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
