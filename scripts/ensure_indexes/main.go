// Creates the MongoDB indexes the chat service relies on: the unique
// (gardenId, name) pair on channels and the message sort/filter indexes.
// Startup does this too; the script exists for provisioning a database
// before the service ever runs.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gardenly/chat-service/pkg/db"
)

func main() {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	mongoDB := os.Getenv("MONGO_DB")
	if mongoDB == "" {
		mongoDB = "gardenly"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mongo, err := db.Connect(ctx, mongoURI, mongoDB)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongo.Close(ctx)

	if err := mongo.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	log.Printf("Indexes ensured on %s", mongoDB)
}
