package stores

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	stderrors "storefront-services/internal/common/errors"
	"storefront-services/internal/models"
)

var storeColumns = []string{
	"id", "name", "store_type", "address", "city", "state", "zip_code", "country",
	"phone", "email", "website", "lat", "lng",
}

func TestPostgresSource_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, name, store_type .* FROM stores\s+WHERE published = TRUE`).
		WillReturnRows(sqlmock.NewRows(storeColumns).
			AddRow("s1", "Wasatch Lighting", "distributor", "1 Main St", "Provo", "UT", "84604", "US",
				"801-555-0100", nil, nil, 40.23, -111.65).
			AddRow("s2", "Maple Controls", "retailer", "9 King St", "Toronto", nil, nil, "Canada",
				nil, "sales@maple.example", nil, nil, nil))

	src := NewPostgresSource(db)
	records, err := src.List(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.StoreTypeDistributor, records[0].StoreType)
	assert.Equal(t, "801-555-0100", records[0].Phone)
	assert.Equal(t, &models.Coordinates{Lat: 40.23, Lng: -111.65}, records[0].Location)
	assert.Nil(t, records[1].Location)
	assert.Empty(t, records[1].State)
	assert.Equal(t, "sales@maple.example", records[1].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_ListFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id`).WillReturnError(errors.New("relation \"stores\" does not exist"))

	_, err = NewPostgresSource(db).List(context.Background())

	require.Error(t, err)
	se := stderrors.AsStandardError(err)
	require.NotNil(t, se)
	assert.Equal(t, stderrors.ErrCodeStoreSourceFailed, se.Code)
}

func TestPostgresSource_SaveCoordinates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE stores SET lat = \$1, lng = \$2, geocoded_at = NOW\(\) WHERE id = \$3 AND lat IS NULL`).
		WithArgs(40.23, -111.65, "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewPostgresSource(db).SaveCoordinates(context.Background(), "s1", models.Coordinates{Lat: 40.23, Lng: -111.65})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMongoSource_List(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decodes published stores", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, "storefront.stores", mtest.FirstBatch,
				bson.D{
					{Key: "_id", Value: "s1"},
					{Key: "name", Value: "Rocky Reps"},
					{Key: "storeType", Value: "rep"},
					{Key: "city", Value: "Denver"},
					{Key: "country", Value: "US"},
					{Key: "location", Value: bson.D{{Key: "lat", Value: 39.74}, {Key: "lng", Value: -104.99}}},
				},
				bson.D{
					{Key: "_id", Value: "s2"},
					{Key: "name", Value: "Wasatch Lighting"},
					{Key: "storeType", Value: "distributor"},
					{Key: "city", Value: "Provo"},
					{Key: "country", Value: "US"},
				},
			),
			mtest.CreateCursorResponse(0, "storefront.stores", mtest.NextBatch),
		)

		records, err := NewMongoSource(mt.Coll).List(context.Background())

		require.NoError(mt, err)
		require.Len(mt, records, 2)
		assert.Equal(mt, "s1", records[0].ID)
		assert.Equal(mt, models.StoreTypeRep, records[0].StoreType)
		assert.Equal(mt, &models.Coordinates{Lat: 39.74, Lng: -104.99}, records[0].Location)
		assert.Nil(mt, records[1].Location)
	})

	mt.Run("find failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Message: "bad query",
			Name:    "BadValue",
		}))

		_, err := NewMongoSource(mt.Coll).List(context.Background())

		require.Error(mt, err)
		se := stderrors.AsStandardError(err)
		require.NotNil(mt, se)
		assert.Equal(mt, stderrors.ErrCodeStoreSourceFailed, se.Code)
	})
}

func TestFileSource_List(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "stores.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
stores:
  - id: s1
    name: Wasatch Lighting
    storeType: distributor
    city: Provo
    country: US
    location:
      lat: 40.23
      lng: -111.65
  - id: s2
    name: Maple Controls
    storeType: retailer
    city: Toronto
    country: Canada
`), 0o600))

	jsonPath := filepath.Join(dir, "stores.json")
	require.NoError(t, os.WriteFile(jsonPath,
		[]byte(`{"stores":[{"id":"s3","name":"Rocky Reps","storeType":"rep","city":"Denver","country":"US"}]}`), 0o600))

	tests := []struct {
		name    string
		path    string
		wantIDs []string
		wantErr bool
	}{
		{name: "yaml export", path: yamlPath, wantIDs: []string{"s1", "s2"}},
		{name: "json export", path: jsonPath, wantIDs: []string{"s3"}},
		{name: "missing file", path: filepath.Join(dir, "nope.yaml"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := NewFileSource(tt.path).List(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			got := make([]string, 0, len(records))
			for _, r := range records {
				got = append(got, r.ID)
			}
			assert.Equal(t, tt.wantIDs, got)
		})
	}

	records, err := NewFileSource(yamlPath).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &models.Coordinates{Lat: 40.23, Lng: -111.65}, records[0].Location)
}

func TestFileSource_BadContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stores.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"stores": [`), 0o600))

	_, err := NewFileSource(path).List(context.Background())

	assert.Error(t, err)
}
