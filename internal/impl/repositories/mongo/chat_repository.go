package repositories_mongo

import (
	"context"
	"time"

	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/errs"
	"github.com/drujensen/researchagent/internal/domain/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoChatRepository struct {
	collection *mongo.Collection
}

func NewMongoChatRepository(collection *mongo.Collection) *MongoChatRepository {
	return &MongoChatRepository{
		collection: collection,
	}
}

func (r *MongoChatRepository) ListChats(ctx context.Context, sessionID string) ([]*entities.Chat, error) {
	var chats []*entities.Chat
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, errs.InternalErrorf("failed to list chats: %v", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var chat entities.Chat
		if err := cursor.Decode(&chat); err != nil {
			return nil, errs.InternalErrorf("failed to decode chat: %v", err)
		}
		chats = append(chats, &chat)
	}

	if err := cursor.Err(); err != nil {
		return nil, errs.InternalErrorf("failed to list chats: %v", err)
	}

	return chats, nil
}

func (r *MongoChatRepository) GetChat(ctx context.Context, id string) (*entities.Chat, error) {
	var chat entities.Chat
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&chat)
	if err == mongo.ErrNoDocuments {
		return nil, errs.NotFoundErrorf("chat not found: %s", id)
	}
	if err != nil {
		return nil, errs.InternalErrorf("failed to get chat: %v", err)
	}

	return &chat, nil
}

func (r *MongoChatRepository) CreateChat(ctx context.Context, chat *entities.Chat) error {
	now := time.Now()
	chat.CreatedAt = now
	chat.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, chat); err != nil {
		return errs.InternalErrorf("failed to create chat: %v", err)
	}

	return nil
}

func (r *MongoChatRepository) UpdateChat(ctx context.Context, chat *entities.Chat) error {
	chat.UpdatedAt = time.Now()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": chat.ID}, bson.M{
		"$set": bson.M{
			"name":       chat.Name,
			"messages":   chat.Messages,
			"usage":      chat.Usage,
			"updated_at": chat.UpdatedAt,
		},
	})
	if err != nil {
		return errs.InternalErrorf("failed to update chat: %v", err)
	}
	if result.MatchedCount == 0 {
		return errs.NotFoundErrorf("chat not found: %s", chat.ID)
	}

	return nil
}

func (r *MongoChatRepository) DeleteChat(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errs.InternalErrorf("failed to delete chat: %v", err)
	}
	if result.DeletedCount == 0 {
		return errs.NotFoundErrorf("chat not found: %s", id)
	}

	return nil
}

var _ interfaces.ChatRepository = (*MongoChatRepository)(nil)
