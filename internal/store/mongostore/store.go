// Package mongostore is the MongoDB store.Store, the default backend.
package mongostore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/listenupapp/booklist-server/internal/domain"
	"github.com/listenupapp/booklist-server/internal/errors"
	"github.com/listenupapp/booklist-server/internal/store"
)

// Collection names.
const (
	authorsCollection = "authors"
	booksCollection   = "books"
	usersCollection   = "users"
)

// Store handles catalog documents in MongoDB.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	authors *mongo.Collection
	books   *mongo.Collection
	users   *mongo.Collection
	logger  *slog.Logger
}

var _ store.Store = (*Store)(nil)

// Open connects to uri, selects database and makes sure the unique indexes exist.
func Open(ctx context.Context, uri, database string, logger *slog.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := New(client.Database(database), logger)
	s.client = client

	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	if logger != nil {
		logger.Info("connected to MongoDB", "database", database)
	}
	return s, nil
}

// New wraps an already connected database. Close does not disconnect the client.
func New(db *mongo.Database, logger *slog.Logger) *Store {
	return &Store{
		db:      db,
		authors: db.Collection(authorsCollection),
		books:   db.Collection(booksCollection),
		users:   db.Collection(usersCollection),
		logger:  logger,
	}
}

// EnsureIndexes creates the unique indexes on author names, book titles and usernames.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := []struct {
		col   *mongo.Collection
		field string
	}{
		{s.authors, "name"},
		{s.books, "title"},
		{s.users, "username"},
	}
	for _, u := range unique {
		model := mongo.IndexModel{
			Keys:    bson.D{{Key: u.field, Value: 1}},
			Options: options.Index().SetUnique(true),
		}
		if _, err := u.col.Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create unique index %s.%s: %w", u.col.Name(), u.field, err)
		}
	}
	return nil
}

// Ping verifies the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

// Close disconnects the client opened by Open.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// CountAuthors returns the number of author documents.
func (s *Store) CountAuthors(ctx context.Context) (int, error) {
	n, err := s.authors.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count authors: %w", err)
	}
	return int(n), nil
}

// ListAuthors returns every author in natural order.
func (s *Store) ListAuthors(ctx context.Context) ([]*domain.Author, error) {
	var docs []authorDoc
	if err := findAll(ctx, s.authors, &docs); err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	out := make([]*domain.Author, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

// GetAuthorByName returns the author with exactly this name.
func (s *Store) GetAuthorByName(ctx context.Context, name string) (*domain.Author, error) {
	var doc authorDoc
	if err := s.authors.FindOne(ctx, bson.M{"name": name}).Decode(&doc); err != nil {
		return nil, translate(err, fmt.Sprintf("author %q", name))
	}
	return doc.toDomain(), nil
}

// CreateAuthor validates and inserts an author.
func (s *Store) CreateAuthor(ctx context.Context, author *domain.Author) error {
	if err := store.Validate(author); err != nil {
		return err
	}
	author.InitTimestamps()

	doc := authorDoc{
		ID:        primitive.NewObjectID(),
		Name:      author.Name,
		Born:      author.Born,
		CreatedAt: author.CreatedAt,
		UpdatedAt: author.UpdatedAt,
	}
	if _, err := s.authors.InsertOne(ctx, doc); err != nil {
		return translate(err, fmt.Sprintf("author %q", author.Name))
	}
	author.ID = doc.ID.Hex()
	return nil
}

// SetAuthorBorn sets born on the named author and returns the updated document.
func (s *Store) SetAuthorBorn(ctx context.Context, name string, born int) (*domain.Author, error) {
	update := bson.M{"$set": bson.M{"born": born, "updatedAt": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc authorDoc
	if err := s.authors.FindOneAndUpdate(ctx, bson.M{"name": name}, update, opts).Decode(&doc); err != nil {
		return nil, translate(err, fmt.Sprintf("author %q", name))
	}
	return doc.toDomain(), nil
}

// CountBooks returns the number of book documents.
func (s *Store) CountBooks(ctx context.Context) (int, error) {
	n, err := s.books.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return int(n), nil
}

// ListBooks returns every book in natural order.
func (s *Store) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	var docs []bookDoc
	if err := findAll(ctx, s.books, &docs); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	out := make([]*domain.Book, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

// GetBookByTitle returns the book with exactly this title.
func (s *Store) GetBookByTitle(ctx context.Context, title string) (*domain.Book, error) {
	var doc bookDoc
	if err := s.books.FindOne(ctx, bson.M{"title": title}).Decode(&doc); err != nil {
		return nil, translate(err, fmt.Sprintf("book %q", title))
	}
	return doc.toDomain(), nil
}

// CreateBook validates and inserts a book. The author reference must be an ObjectID hex string.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	if err := store.Validate(book); err != nil {
		return err
	}
	authorID, err := primitive.ObjectIDFromHex(book.AuthorID)
	if err != nil {
		return errors.ValidationWithDetails("author is invalid",
			map[string]string{"author": "is invalid"}).WithCause(err)
	}
	if book.Genres == nil {
		book.Genres = []string{}
	}
	book.InitTimestamps()

	doc := bookDoc{
		ID:        primitive.NewObjectID(),
		Title:     book.Title,
		Published: book.Published,
		Genres:    book.Genres,
		Author:    authorID,
		CreatedAt: book.CreatedAt,
		UpdatedAt: book.UpdatedAt,
	}
	if _, err := s.books.InsertOne(ctx, doc); err != nil {
		return translate(err, fmt.Sprintf("book %q", book.Title))
	}
	book.ID = doc.ID.Hex()
	return nil
}

// GetUser returns a user by ObjectID hex string. Malformed IDs are not found.
func (s *Store) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", userID, store.ErrNotFound)
	}
	var doc userDoc
	if err := s.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, translate(err, "user "+userID)
	}
	return doc.toDomain(), nil
}

// GetUserByUsername returns the user with exactly this username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, bson.M{"username": username}).Decode(&doc); err != nil {
		return nil, translate(err, fmt.Sprintf("user %q", username))
	}
	return doc.toDomain(), nil
}

// CreateUser validates and inserts a user.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	if err := store.Validate(user); err != nil {
		return err
	}
	user.InitTimestamps()

	doc := userDoc{
		ID:            primitive.NewObjectID(),
		Username:      user.Username,
		FavoriteGenre: user.FavoriteGenre,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		return translate(err, fmt.Sprintf("user %q", user.Username))
	}
	user.ID = doc.ID.Hex()
	return nil
}

func findAll[T any](ctx context.Context, col *mongo.Collection, out *[]T) error {
	cur, err := col.Find(ctx, bson.D{})
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	return cur.All(ctx, out)
}

// translate maps driver errors onto the store sentinels.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", what, store.ErrAlreadyExists)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}
