package database

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"

	"verein-backend/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

var validSchema = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// SchemaName sanitizes a club name into a Postgres schema name.
func SchemaName(club string) (string, error) {
	safeName := strings.ToLower(strings.TrimSpace(club))
	safeName = strings.ReplaceAll(safeName, " ", "_")
	if !validSchema.MatchString(safeName) {
		return "", fmt.Errorf("invalid schema name after sanitization: %s", safeName)
	}
	return safeName, nil
}

// GetTenantDB returns a new DB session with search_path set to the club schema.
func GetTenantDB(schema string) (*gorm.DB, error) {
	schema = strings.TrimSpace(schema)
	if schema == "" {
		return nil, fmt.Errorf("empty schema name")
	}
	if !validSchema.MatchString(schema) {
		return nil, fmt.Errorf("invalid schema name: %s", schema)
	}

	tenantDB := DB.Session(&gorm.Session{NewDB: true})
	if err := tenantDB.Exec(`SET search_path = "` + schema + `", public`).Error; err != nil {
		return nil, err
	}

	return tenantDB, nil
}

// TenantTx runs fn inside a short transaction pinned to the club schema with
// SET LOCAL, so the search_path never leaks onto pooled connections. The
// idempotency coordinator uses this for its claim/finish writes, which must
// commit independently of any unit-of-work transaction.
func TenantTx(schema string, fn func(tx *gorm.DB) error) error {
	schema = strings.TrimSpace(schema)
	if !validSchema.MatchString(schema) {
		return fmt.Errorf("invalid schema name: %s", schema)
	}
	return DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`SET LOCAL search_path = "` + schema + `", public`).Error; err != nil {
			return fmt.Errorf("schema pin failed: %w", err)
		}
		return fn(tx)
	})
}

func Connect() {
	err := godotenv.Load()
	if err != nil {
		log.Println("no .env file loaded:", err)
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=5432 sslmode=disable",
		getenv("DB_HOST", "db"), os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), os.Getenv("DB_NAME"))
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})

	if err != nil {
		log.Println(err)
		panic("Could not connect to database")
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// AutoMigrate migrates the public (platform) schema.
func AutoMigrate() {
	DB.AutoMigrate(&models.User{}, &models.Club{})
}
