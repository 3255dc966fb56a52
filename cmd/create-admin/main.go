// Command create-admin seeds an administrator account.
//
//	create-admin -name "Site Admin" -email admin@example.org -password 's3cret-pass'
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"Sahaaya/internal/auth"
	"Sahaaya/internal/bootstrap"
	"Sahaaya/internal/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	name := flag.String("name", "Administrator", "display name")
	email := flag.String("email", "", "admin email (required)")
	password := flag.String("password", "", "admin password, at least 8 characters (required)")
	flag.Parse()

	if *email == "" || len(*password) < 8 {
		flag.Usage()
		os.Exit(2)
	}

	bootstrap.Loadenv()

	var (
		users  *auth.UserService
		logger *zap.Logger
	)
	app := fx.New(
		fx.NopLogger,
		fx.Provide(
			config.NewAppConfig,
			config.NewLogger,
			config.NewMongoDBClient,
			auth.NewGate,
			auth.NewTokenIssuer,
			auth.NewUserRepository,
			auth.NewUserService,
		),
		fx.Populate(&users, &logger),
	)
	if err := app.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "create-admin:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "create-admin:", err)
		os.Exit(1)
	}

	admin, err := users.CreateAdmin(ctx, *name, *email, *password)
	stopErr := app.Stop(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "create-admin:", err)
		os.Exit(1)
	}
	if stopErr != nil {
		logger.Warn("shutdown failed", zap.Error(stopErr))
	}
	fmt.Printf("admin %s created with id %s\n", admin.Email, admin.ID.Hex())
}
