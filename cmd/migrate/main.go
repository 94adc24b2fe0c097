package main

import (
	"context"
	"flag"
	"log"
	"os"

	"ai-textassist-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	direction := flag.String("dir", "up", "migration direction: up, down or status")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	ctx := context.Background()
	var err error
	switch *direction {
	case "up":
		err = database.MigrateUp(ctx, dsn)
	case "down":
		err = database.MigrateDown(ctx, dsn)
	case "status":
		err = database.MigrateStatus(ctx, dsn)
	default:
		log.Fatalf("Error: unknown direction %q", *direction)
	}
	if err != nil {
		log.Fatalf("Error: migration %s failed: %v", *direction, err)
	}
	log.Printf("Migration %s completed", *direction)
}
