package mongo

import (
	"context"
	"testing"
	"transferly/internal/payment"
	"transferly/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestRunMigration(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("creates missing collection", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "transferly.$cmd.listCollections", mtest.FirstBatch),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
		)

		err := RunMigration(context.Background(), mt.Client, "transferly", logger.Discard())
		require.NoError(t, err)
	})

	mt.Run("index failure is reported", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "transferly.$cmd.listCollections", mtest.FirstBatch,
				bson.D{{Key: "name", Value: payment.CollectionName}, {Key: "type", Value: "collection"}}),
			mtest.CreateSuccessResponse(),
			mtest.CreateCommandErrorResponse(mtest.CommandError{
				Code:    85,
				Message: "index options conflict",
				Name:    "IndexOptionsConflict",
			}),
		)

		err := RunMigration(context.Background(), mt.Client, "transferly", logger.Discard())
		require.Error(t, err)
		assert.Contains(t, err.Error(), payment.CollectionName)
	})
}
