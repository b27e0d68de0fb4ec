package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"catalog-chat/config"
	"catalog-chat/internal/domain"
	"catalog-chat/internal/repository"
	"catalog-chat/internal/services"
	"catalog-chat/pkg/database"
	"catalog-chat/pkg/logger"

	"gorm.io/gorm"
)

const usage = `
Catalog Chat - Database CLI Tool

Usage:
  migrate [command] [flags]

Commands:
  up          Create the products and chat_messages tables if missing
  status      Show store connectivity and row counts
  seed        Insert the sample catalog when the products table is empty
  token       Issue a development access token

Flags:
  -user string   User id for the issued token (default "dev-user")
  -email string  Email for the issued token

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go seed
  go run cmd/migrate/main.go token -user u-1 -email a@x.com
`

type stores struct {
	productsDB *gorm.DB
	messagesDB *gorm.DB
	products   *repository.GormProductRepository
	messages   *repository.GormMessageRepository
}

func main() {
	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	cfg := config.LoadConfig()

	// the token command needs no database
	if command == "token" {
		runToken(cfg, flag.Args()[1:])
		return
	}

	s := openStores(cfg)
	defer database.Close(s.productsDB)
	defer database.Close(s.messagesDB)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch command {
	case "up":
		runMigrationsUp(ctx, s)
	case "status":
		showStatus(ctx, s)
	case "seed":
		runSeed(ctx, cfg, s)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func openStores(cfg *config.Config) *stores {
	productsDB, err := database.Open(cfg.ProductsDBDriver, cfg.ProductsDBDSN, cfg.AppMode)
	if err != nil {
		log.Fatalf("❌ Products store: %v", err)
	}
	messagesDB, err := database.Open(cfg.MessagesDBDriver, cfg.MessagesDBDSN, cfg.AppMode)
	if err != nil {
		log.Fatalf("❌ Messages store: %v", err)
	}
	return &stores{
		productsDB: productsDB,
		messagesDB: messagesDB,
		products:   repository.NewProductRepository(productsDB),
		messages:   repository.NewMessageRepository(messagesDB),
	}
}

func runMigrationsUp(ctx context.Context, s *stores) {
	log.Println("🚀 Running migrations UP...")

	if err := s.products.EnsureSchema(ctx); err != nil {
		log.Fatalf("❌ Products migration failed: %v", err)
	}
	if err := s.messages.EnsureSchema(ctx); err != nil {
		log.Fatalf("❌ Messages migration failed: %v", err)
	}

	log.Println("✅ Migrations completed successfully!")
}

func showStatus(ctx context.Context, s *stores) {
	log.Println("🔍 Checking store status...")

	checks := []struct {
		name  string
		db    *gorm.DB
		table string
	}{
		{"products", s.productsDB, domain.Product{}.TableName()},
		{"messages", s.messagesDB, domain.ChatRecord{}.TableName()},
	}

	for _, c := range checks {
		if err := database.Ping(ctx, c.db); err != nil {
			log.Printf("❌ Store %-10s unreachable: %v", c.name, err)
			continue
		}
		if !c.db.Migrator().HasTable(c.table) {
			log.Printf("❌ Table %-15s does not exist", c.table)
			continue
		}
		var count int64
		if err := c.db.WithContext(ctx).Table(c.table).Count(&count).Error; err != nil {
			log.Printf("⚠️  Error counting %s: %v", c.table, err)
			continue
		}
		log.Printf("✅ Table %-15s exists (%d rows)", c.table, count)
	}
}

func runSeed(ctx context.Context, cfg *config.Config, s *stores) {
	log.Println("🌱 Seeding product catalog...")

	if err := s.products.EnsureSchema(ctx); err != nil {
		log.Fatalf("❌ Products migration failed: %v", err)
	}

	l := logger.New(cfg.AppMode)
	defer l.Sync()

	n, err := services.SeedCatalog(ctx, s.products, domain.SampleCatalog(), l.Named("seed"))
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
	log.Printf("✅ Seeding completed (%d products inserted)", n)
}

func runToken(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	userID := fs.String("user", "dev-user", "User id for the issued token")
	email := fs.String("email", "", "Email for the issued token")
	_ = fs.Parse(args)

	identities := services.NewIdentityService(cfg.JWTSecret, time.Duration(cfg.JWTExpiryMin)*time.Minute)
	token, expiresAt, err := identities.IssueAccessToken(domain.Identity{UserID: *userID, Email: *email})
	if err != nil {
		log.Fatalf("❌ Token issue failed: %v", err)
	}

	log.Printf("✅ Token for %s expires %s", *userID, expiresAt.Format(time.RFC3339))
	fmt.Println(token)
}
