package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/yaml.v3"

	"storefront-services/internal/common/errors"
	"storefront-services/internal/models"
)

// Source lists the published dealer locations.
type Source interface {
	Name() string
	List(ctx context.Context) ([]models.StoreRecord, error)
}

type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) Name() string { return "postgres" }

func (s *PostgresSource) List(ctx context.Context) ([]models.StoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, store_type, address, city, state, zip_code, country,
		       phone, email, website, lat, lng
		FROM stores
		WHERE published = TRUE
		ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, errors.NewStoreSourceFailedError(s.Name(), err)
	}
	defer rows.Close()

	var out []models.StoreRecord
	for rows.Next() {
		var r models.StoreRecord
		var storeType string
		var state, zip, phone, email, website sql.NullString
		var lat, lng sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.Name, &storeType, &r.Address, &r.City, &state, &zip, &r.Country,
			&phone, &email, &website, &lat, &lng); err != nil {
			return nil, errors.NewStoreSourceFailedError(s.Name(), err)
		}
		r.StoreType = models.StoreType(storeType)
		r.State, r.ZipCode = state.String, zip.String
		r.Phone, r.Email, r.Website = phone.String, email.String, website.String
		if lat.Valid && lng.Valid {
			r.Location = &models.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreSourceFailedError(s.Name(), err)
	}
	return out, nil
}

// SaveCoordinates fills in coordinates for a store that has none. Stores
// edited in the CMS meanwhile keep their own values.
func (s *PostgresSource) SaveCoordinates(ctx context.Context, storeID string, c models.Coordinates) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE stores SET lat = $1, lng = $2, geocoded_at = NOW() WHERE id = $3 AND lat IS NULL`,
		c.Lat, c.Lng, storeID)
	if err != nil {
		return fmt.Errorf("save coordinates for %s: %w", storeID, err)
	}
	return nil
}

type MongoSource struct {
	collection *mongo.Collection
}

func NewMongoSource(collection *mongo.Collection) *MongoSource {
	return &MongoSource{collection: collection}
}

func (s *MongoSource) Name() string { return "mongo" }

func (s *MongoSource) List(ctx context.Context) ([]models.StoreRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.collection.Find(ctx, bson.M{"published": bson.M{"$ne": false}}, opts)
	if err != nil {
		return nil, errors.NewStoreSourceFailedError(s.Name(), err)
	}
	defer cursor.Close(ctx)

	var out []models.StoreRecord
	if err := cursor.All(ctx, &out); err != nil {
		return nil, errors.NewStoreSourceFailedError(s.Name(), err)
	}
	return out, nil
}

// FileSource reads a CMS export in YAML or JSON.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return "file" }

type storeFile struct {
	Stores []models.StoreRecord `json:"stores" yaml:"stores"`
}

func (s *FileSource) List(_ context.Context) ([]models.StoreRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.NewStoreSourceFailedError(s.Name(), err)
	}

	var file storeFile
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".json":
		err = json.Unmarshal(data, &file)
	default:
		err = yaml.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, errors.NewStoreSourceFailedError(s.Name(), fmt.Errorf("parse %s: %w", s.path, err))
	}
	return file.Stores, nil
}
