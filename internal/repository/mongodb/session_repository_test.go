package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/mamadbah2/farmstock/internal/domain/models"
	"github.com/mamadbah2/farmstock/internal/repository/session"
)

func TestSessionRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("get existing key", func(mt *mtest.T) {
		repo := &SessionRepository{collection: mt.Coll}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: session.KeyToken},
			{Key: "value", Value: "abc"},
			{Key: "updated_at", Value: time.Now()},
		}))

		got, err := repo.Get(ctx, session.KeyToken)
		require.NoError(mt, err)
		assert.Equal(mt, []byte("abc"), got)
	})

	mt.Run("missing key maps to ErrNotFound", func(mt *mtest.T) {
		repo := &SessionRepository{collection: mt.Coll}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.Get(ctx, session.KeyUser)
		assert.ErrorIs(mt, err, session.ErrNotFound)
	})

	mt.Run("set and delete", func(mt *mtest.T) {
		repo := &SessionRepository{collection: mt.Coll}

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		require.NoError(mt, repo.Set(ctx, session.KeyActiveFarm, []byte(`{"id":"farmA"}`)))
		require.NoError(mt, repo.Delete(ctx, session.KeyActiveFarm))
	})

	mt.Run("write error is wrapped", func(mt *mtest.T) {
		repo := &SessionRepository{collection: mt.Coll}

		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "bad value",
		}))

		err := repo.Set(ctx, session.KeyToken, []byte("abc"))
		assert.ErrorContains(mt, err, "failed to store session key token")
	})
}

func TestSaveInventorySnapshot(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("insert", func(mt *mtest.T) {
		repo := &MongoDBRepository{client: mt.Client, dbName: mt.DB.Name()}

		mt.AddMockResponses(mtest.CreateSuccessResponse())

		err := repo.SaveInventorySnapshot(context.Background(), models.InventorySnapshot{
			FarmID:     "farmA",
			Date:       time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			TotalItems: 3,
		})
		require.NoError(mt, err)
	})
}
