// Command servicetoken mints a bearer token for an upstream service.
//
//	SERVICE_JWT_SECRET=... servicetoken -service identity-api -scopes events.write,users.write -ttl 720h
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BradenHooton/authtrail/internal/auth"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	service := flag.String("service", "", "name of the calling service")
	scopes := flag.String("scopes", "", "comma separated scopes (events.write, history.read, devices.write, users.write, *)")
	ttl := flag.Duration("ttl", 0, "token lifetime, 0 for no expiry")
	flag.Parse()

	_ = godotenv.Load()

	secret := os.Getenv("SERVICE_JWT_SECRET")
	if secret == "" {
		logger.Error("SERVICE_JWT_SECRET is required")
		os.Exit(1)
	}

	tm := auth.NewTokenManager(secret)
	token, err := tm.GenerateServiceToken(*service, splitScopes(*scopes), *ttl)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		os.Exit(1)
	}

	fmt.Println(token)
}

func splitScopes(s string) []string {
	var scopes []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			scopes = append(scopes, part)
		}
	}
	return scopes
}
