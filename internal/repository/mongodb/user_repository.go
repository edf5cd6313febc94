package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"article-api/internal/domain"
	"article-api/internal/repository"
)

type userDocument struct {
	ID       primitive.ObjectID `bson:"_id"`
	Email    string             `bson:"email"`
	Password string             `bson:"password"`
	Name     string             `bson:"name,omitempty"`
	Age      *float64           `bson:"age,omitempty"`
}

func (d userDocument) toDomain() *domain.User {
	return &domain.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		PasswordHash: d.Password,
		Name:         d.Name,
		Age:          d.Age,
	}
}

type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) repository.UserRepository {
	return &UserRepository{collection: db.Collection(usersCollection)}
}

// Init ensures the unique index that backs email uniqueness.
func (r *UserRepository) Init(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users email index: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (string, error) {
	doc := userDocument{
		ID:       primitive.NewObjectID(),
		Email:    user.Email,
		Password: user.PasswordHash,
		Name:     user.Name,
		Age:      user.Age,
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("insert user: %w", repository.ErrDuplicateEmail)
		}
		return "", fmt.Errorf("insert user: %w", err)
	}

	user.ID = doc.ID.Hex()
	return user.ID, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, name *string, age *float64) (*domain.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	if name != nil {
		set["name"] = *name
	}
	if age != nil {
		set["age"] = *age
	}
	if len(set) == 0 {
		return r.findOne(ctx, bson.M{"_id": oid})
	}

	var doc userDocument
	err = r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, notFound(err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.toDomain(), nil
}
