package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/stridehq/stride/auth"
	"github.com/stridehq/stride/cache"
	"github.com/stridehq/stride/engine"
	"github.com/stridehq/stride/events"
	"github.com/stridehq/stride/review"
	"github.com/stridehq/stride/server"
	"github.com/stridehq/stride/storage"
)

func main() {
	// Load the .env file
	err := godotenv.Load()
	if err != nil {
		fmt.Println("Error loading .env file")
	}

	// Read the environment variables
	signingKey := os.Getenv("JWT_SIGNING_KEY") // JWT signing key for token generation
	serverURL := os.Getenv("SERVER_URL")       // The URL where the server is running
	dbURI := os.Getenv("MONGODB_URI")          // MongoDB database URI
	dbName := os.Getenv("DB_NAME")             // The name of the MongoDB database
	redisURL := os.Getenv("REDIS_URL")         // Redis URL for the ledger cache, optional
	rabbitMQURL := os.Getenv("RABBITMQ_URL")   // RabbitMQ URL for progression events, optional

	// Set default values if the environment variables are empty
	if signingKey == "" {
		signingKey = "your_default_signing_key"
	}
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
	if dbName == "" {
		dbName = "stride"
	}

	store, err := storage.NewStorage(dbName, dbURI)
	if err != nil {
		log.Fatal("error initializing storage: ", err)
	}
	defer store.Disconnect()

	// The ledger cache and event publisher are optional infrastructure;
	// the engine runs without either.
	var ledgerCache cache.CacheInterface
	if redisURL != "" {
		ledgerCache, err = cache.NewCache(redisURL)
		if err != nil {
			log.Fatal("error initializing cache: ", err)
		}
		defer ledgerCache.Disconnect()
	}

	var publisher events.Publisher
	if rabbitMQURL != "" {
		rabbit, err := events.NewRabbitPublisher(rabbitMQURL, "progression.events")
		if err != nil {
			log.Fatal("error initializing event publisher: ", err)
		}
		defer rabbit.Close()
		publisher = rabbit
	}

	eng := engine.New(store, ledgerCache, publisher)
	caps := auth.RoleCapability{}
	authService := auth.NewService(store, signingKey)
	reviewService := review.NewService(store, caps)

	srv := server.NewServer(eng, authService, reviewService, caps)
	go func() {
		if err := srv.Start(serverURL, signingKey); err != nil {
			log.Fatal(err)
		}
	}()

	// Setting up the signal interrupt handler to gracefully shut down
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	fmt.Println()
	fmt.Println(sig)
}
