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

type articleDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Author      primitive.ObjectID `bson:"author"`
}

type authorDocument struct {
	ID   primitive.ObjectID `bson:"_id"`
	Name string             `bson:"name"`
}

type ArticleRepository struct {
	articles *mongo.Collection
	users    *mongo.Collection
}

func NewArticleRepository(db *mongo.Database) repository.ArticleRepository {
	return &ArticleRepository{
		articles: db.Collection(articlesCollection),
		users:    db.Collection(usersCollection),
	}
}

// Init is a no-op; the articles collection needs no indexes.
func (r *ArticleRepository) Init(ctx context.Context) error {
	return nil
}

func (r *ArticleRepository) Create(ctx context.Context, article *domain.Article) (string, error) {
	author, err := objectID(article.AuthorID)
	if err != nil {
		return "", fmt.Errorf("article author: %w", err)
	}

	doc := articleDocument{
		ID:          primitive.NewObjectID(),
		Title:       article.Title,
		Description: article.Description,
		Author:      author,
	}
	if _, err := r.articles.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert article: %w", err)
	}

	article.ID = doc.ID.Hex()
	return article.ID, nil
}

func (r *ArticleRepository) ListWithAuthors(ctx context.Context) ([]domain.ArticleWithAuthor, error) {
	cursor, err := r.articles.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find articles: %w", err)
	}
	var docs []articleDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode articles: %w", err)
	}

	authors, err := r.resolveAuthors(ctx, docs)
	if err != nil {
		return nil, err
	}

	articles := make([]domain.ArticleWithAuthor, 0, len(docs))
	for _, doc := range docs {
		item := domain.ArticleWithAuthor{
			Article: domain.Article{
				ID:          doc.ID.Hex(),
				Title:       doc.Title,
				Description: doc.Description,
				AuthorID:    doc.Author.Hex(),
			},
		}
		if a, ok := authors[doc.Author]; ok {
			item.Author = &domain.AuthorSummary{ID: a.ID.Hex(), Name: a.Name}
		}
		articles = append(articles, item)
	}
	return articles, nil
}

// resolveAuthors loads the name of every distinct author referenced by docs
// in a single query.
func (r *ArticleRepository) resolveAuthors(ctx context.Context, docs []articleDocument) (map[primitive.ObjectID]authorDocument, error) {
	authors := make(map[primitive.ObjectID]authorDocument)
	if len(docs) == 0 {
		return authors, nil
	}

	seen := make(map[primitive.ObjectID]struct{}, len(docs))
	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, doc := range docs {
		if _, ok := seen[doc.Author]; ok {
			continue
		}
		seen[doc.Author] = struct{}{}
		ids = append(ids, doc.Author)
	}

	cursor, err := r.users.Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"name": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("find article authors: %w", err)
	}
	var found []authorDocument
	if err := cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("decode article authors: %w", err)
	}
	for _, a := range found {
		authors[a.ID] = a
	}
	return authors, nil
}
