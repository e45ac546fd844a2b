package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"unibook-api/internal/config"
	"unibook-api/internal/domain/entity"
	"unibook-api/internal/wire"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	// 1. 加载配置；bootstrap 总是迁移表结构
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg.Database.AutoMigrate = true

	ctx := context.Background()

	// 2. 初始化数据层
	dataLayer, cleanup, err := wire.InitializePostgresOnly(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize data layer: %v", err)
	}
	defer cleanup()

	// 3. 创建首个管理员
	adminEmail := os.Getenv("BOOTSTRAP_ADMIN_EMAIL")
	if adminEmail == "" {
		if len(cfg.Security.AdminEmails) == 0 {
			fmt.Println("No admin email configured, skipping admin creation.")
			fmt.Println("Bootstrap completed successfully.")
			return
		}
		adminEmail = cfg.Security.AdminEmails[0]
	}
	adminPassword := os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")
	if adminPassword == "" {
		log.Fatalf("BOOTSTRAP_ADMIN_PASSWORD is required")
	}

	exists, err := dataLayer.UserRepo.ExistsByEmail(ctx, adminEmail)
	if err != nil {
		log.Fatalf("failed to check admin existence: %v", err)
	}
	if exists {
		fmt.Printf("Admin user %s already exists.\n", adminEmail)
		fmt.Println("Bootstrap completed successfully.")
		return
	}

	fmt.Printf("Creating admin user: %s...\n", adminEmail)
	admin := entity.NewUser(adminEmail, "System Admin")
	admin.Role = entity.UserRoleAdmin
	admin.IsVerified = true
	if err := admin.SetPassword(adminPassword); err != nil {
		log.Fatalf("failed to hash admin password: %v", err)
	}
	if err := dataLayer.UserRepo.Create(ctx, admin); err != nil {
		log.Fatalf("failed to create admin user: %v", err)
	}

	fmt.Println("Bootstrap completed successfully.")
}
