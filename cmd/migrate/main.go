package main

import (
	"fmt"
	"log"
	"os"

	"ai-docqa-be/internal/bootstrap"
	"ai-docqa-be/internal/config"
	"ai-docqa-be/internal/model"
	"ai-docqa-be/pkg/database"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	cfg := config.Load()
	provider, err := bootstrap.NewEmbeddingProvider(cfg)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	// Plain connection; the vector extension may not exist yet.
	db, err := database.NewGormDB(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	createExtensions(db)

	log.Println("Running schema migration...")
	if err := db.AutoMigrate(
		&model.Document{},
		&model.ChunkEmbedding{},
		&model.IndexMeta{},
	); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	setVectorDimensions(db, provider.Dimensions())
	createVectorIndex(db)
	log.Println("Migration complete.")
}

// setVectorDimensions pins the embedding column to the configured model's
// dimensions. The ivfflat index needs a fixed-dimension column, and
// AutoMigrate leaves it dimensionless.
func setVectorDimensions(db *gorm.DB, dims int) {
	if dims <= 0 {
		log.Println("Warn: embedding model reports no dimensions, leaving column unchanged")
		return
	}
	var current int
	row := db.Raw(`SELECT atttypmod FROM pg_attribute
		WHERE attrelid = 'chunk_embeddings'::regclass AND attname = 'embedding_value'`).Row()
	if err := row.Scan(&current); err == nil && current == dims {
		return
	}
	alter := fmt.Sprintf("ALTER TABLE chunk_embeddings ALTER COLUMN embedding_value TYPE vector(%d)", dims)
	if err := db.Exec(alter).Error; err != nil {
		log.Fatalf("Error: Failed to set vector dimensions to %d: %v (existing rows may carry other dimensions; reset or re-embed first)", dims, err)
	}
	log.Printf("Vector column set to %d dimensions", dims)
}

// createExtensions needs superuser on some setups; a managed database may
// have them preinstalled, so failures only warn.
func createExtensions(db *gorm.DB) {
	for _, name := range []string{"pgcrypto", "vector"} {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS " + name).Error; err != nil {
			log.Printf("Warn: Failed to create extension %s: %v. Continuing...", name, err)
		}
	}
}

// createVectorIndex adds the ivfflat index for cosine search, which
// AutoMigrate cannot express. Failure is non-fatal: searches still work as
// sequential scans, just slower.
func createVectorIndex(db *gorm.DB) {
	const indexSQL = `CREATE INDEX IF NOT EXISTS idx_chunk_embeddings_cosine
		ON chunk_embeddings USING ivfflat (embedding_value vector_cosine_ops) WITH (lists = 100)`
	if err := db.Exec(indexSQL).Error; err != nil {
		log.Printf("Warn: Failed to create ivfflat index: %v", err)
	}
}
