package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/listenupapp/booklist-server/internal/domain"
)

// Field names follow the collections the catalog has always used.

type authorDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Born      *int               `bson:"born,omitempty"`
	CreatedAt time.Time          `bson:"createdAt,omitempty"`
	UpdatedAt time.Time          `bson:"updatedAt,omitempty"`
}

func (d *authorDoc) toDomain() *domain.Author {
	return &domain.Author{
		Record: domain.Record{ID: d.ID.Hex(), CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt},
		Name:   d.Name,
		Born:   d.Born,
	}
}

type bookDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Published int                `bson:"published"`
	Genres    []string           `bson:"genres"`
	Author    primitive.ObjectID `bson:"author"`
	CreatedAt time.Time          `bson:"createdAt,omitempty"`
	UpdatedAt time.Time          `bson:"updatedAt,omitempty"`
}

func (d *bookDoc) toDomain() *domain.Book {
	genres := d.Genres
	if genres == nil {
		genres = []string{}
	}
	return &domain.Book{
		Record:    domain.Record{ID: d.ID.Hex(), CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt},
		Title:     d.Title,
		Published: d.Published,
		Genres:    genres,
		AuthorID:  d.Author.Hex(),
	}
}

type userDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Username      string             `bson:"username"`
	FavoriteGenre string             `bson:"favoriteGenre"`
	CreatedAt     time.Time          `bson:"createdAt,omitempty"`
	UpdatedAt     time.Time          `bson:"updatedAt,omitempty"`
}

func (d *userDoc) toDomain() *domain.User {
	return &domain.User{
		Record:        domain.Record{ID: d.ID.Hex(), CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt},
		Username:      d.Username,
		FavoriteGenre: d.FavoriteGenre,
	}
}
