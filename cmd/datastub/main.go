package main

import (
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"gridprep/internal/datastub"
)

// datastub runs the local stand-in for the remote data service, for
// development without the real one.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[DataStub] No .env file found, using environment variables")
	}

	port := os.Getenv("DATASTUB_PORT")
	if port == "" {
		port = "9090"
	}
	dataDir := os.Getenv("DATASTUB_DATA_DIR")
	if dataDir == "" {
		dataDir = "./data/datastub"
	}

	server, err := datastub.NewServer(dataDir)
	if err != nil {
		log.Fatalf("[DataStub] Setup failed: %v", err)
	}

	log.Printf("[DataStub] Listening on :%s (data dir %s)", port, dataDir)
	if err := http.ListenAndServe(":"+port, server.Handler()); err != nil {
		log.Fatalf("[DataStub] Server error: %v", err)
	}
}
