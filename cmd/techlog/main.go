// Command techlog runs the blog server. All configuration comes from
// environment variables, optionally loaded from a .env file.
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/hwangharp/techlog"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env: %v", err)
	}

	cfg := techlog.SiteConfig{
		Name:          techlog.EnvOr("SITE_NAME", "Blog"),
		URL:           techlog.EnvOr("SITE_URL", "http://localhost:3000"),
		Description:   os.Getenv("SITE_DESCRIPTION"),
		Author:        os.Getenv("SITE_AUTHOR"),
		Addr:          techlog.EnvOr("ADDR", ":3000"),
		DatabasePath:  techlog.EnvOr("DATABASE_PATH", "data/blog.db"),
		SessionSecret: techlog.MustEnv("SESSION_SECRET"),
		TokenSecret:   os.Getenv("TOKEN_SECRET"),
		CookieSecure:  os.Getenv("COOKIE_SECURE") == "true",
	}

	verifier := &techlog.HTTPProfileVerifier{
		URL: techlog.MustEnv("PROVIDER_USERINFO_URL"),
	}

	app := techlog.New(cfg, verifier,
		techlog.WithStaticDir(techlog.EnvOr("STATIC_DIR", "public")),
	)
	defer app.Close()

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}
