package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type NewMongoClientParams struct {
	Host     string
	Port     string
	Username string
	Password string
}

// NewMongoClient connects to the document store with the Stable Server API
// v1 enabled, so driver and server upgrades keep the used command surface
func NewMongoClient(ctx context.Context, params NewMongoClientParams) (*mongo.Client, error) {
	uri := fmt.Sprintf("mongodb://%s:%s", params.Host, params.Port)
	if params.Username != "" {
		uri = fmt.Sprintf(
			"mongodb://%s:%s@%s:%s",
			params.Username, params.Password, params.Host, params.Port,
		)
	}

	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	clientOpts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	return client, nil
}

func Ping(ctx context.Context, client *mongo.Client) error {
	return client.Ping(ctx, readpref.Primary())
}
