package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/runningcoach/backend/lib/mypublisher"
	"github.com/runningcoach/backend/lib/mypubsub"
	"github.com/runningcoach/backend/lib/myqueue"
	"github.com/runningcoach/backend/lib/mystore"
	"github.com/runningcoach/backend/lib/mytime"
	"github.com/runningcoach/backend/lib/myuuid"
	"github.com/runningcoach/backend/lib/myvault"
	"github.com/runningcoach/backend/services/activity"
	"github.com/runningcoach/backend/services/dashboard"
	"github.com/runningcoach/backend/services/oauth"
	"github.com/runningcoach/backend/services/oauth/oauthclient"
	"github.com/runningcoach/backend/services/oauth/oauthvault"
	"github.com/runningcoach/backend/services/oauth/providers"
	"github.com/runningcoach/backend/services/settings"
	"github.com/runningcoach/backend/services/strava"
)

type config struct {
	port               string
	stravaClientID     string
	stravaClientSecret string
	redirectURI        string
	secretKey          string // reserved for session signing
}

func loadConfig() (config, error) {
	cfg := config{
		port:               os.Getenv("PORT"),
		stravaClientID:     os.Getenv("STRAVA_CLIENT_ID"),
		stravaClientSecret: os.Getenv("STRAVA_CLIENT_SECRET"),
		redirectURI:        os.Getenv("REDIRECT_URI"),
		secretKey:          os.Getenv("SECRET_KEY"),
	}
	if cfg.port == "" {
		cfg.port = "8080"
	}

	missing := []string{}
	if cfg.stravaClientID == "" {
		missing = append(missing, "STRAVA_CLIENT_ID")
	}
	if cfg.stravaClientSecret == "" {
		missing = append(missing, "STRAVA_CLIENT_SECRET")
	}
	if cfg.redirectURI == "" {
		missing = append(missing, "REDIRECT_URI")
	}
	if cfg.secretKey == "" {
		missing = append(missing, "SECRET_KEY")
	}
	if len(missing) > 0 {
		return config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	return cfg, nil
}

func main() {
	c := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %s", err)
	}

	router := mux.NewRouter()

	nower := mytime.RealNower{}
	uuider := myuuid.RealUUIDer{}

	pubsub, pubsubCleanup, err := mypubsub.New(c)
	if err != nil {
		log.Fatalf("Error creating pubsub: %s", err)
	}
	defer pubsubCleanup()

	queue, queueCleanup, err := myqueue.New(c)
	if err != nil {
		log.Fatalf("Error creating task queue: %s", err)
	}
	defer queueCleanup()

	publisher, publisherCleanup, err := mypublisher.New(c, pubsub, queue, nower)
	if err != nil {
		log.Fatalf("Error creating publisher: %s", err)
	}
	defer publisherCleanup()
	publisher.RegisterEndpoints(c, router)

	registry := providers.NewProviders()
	registry.Set("strava", cfg.stravaClientID, cfg.stravaClientSecret, "", "")

	sessionStore, sessionStoreCleanup, err := mystore.New[oauth.OAuthSessionSetup](c)
	if err != nil {
		log.Fatalf("Error creating session store: %s", err)
	}
	defer sessionStoreCleanup()

	tokenVault, tokenVaultCleanup, err := myvault.New[oauthvault.Token](c)
	if err != nil {
		log.Fatalf("Error creating token vault: %s", err)
	}
	defer tokenVaultCleanup()

	views := dashboard.NewViews()

	oauthService := oauth.NewService(sessionStore, tokenVault, nower, uuider,
		oauthclient.NewOAuthClient(registry), publisher, registry, cfg.redirectURI, views)
	err = oauthService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering oauth service: %s", err)
	}

	snapshotStore, snapshotStoreCleanup, err := mystore.New[activity.ActivitySnapshot](c)
	if err != nil {
		log.Fatalf("Error creating snapshot store: %s", err)
	}
	defer snapshotStoreCleanup()

	activityService := activity.NewService(snapshotStore, tokenVault, strava.NewClient(""), nower, pubsub, publisher)
	err = activityService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering activity service: %s", err)
	}

	settingsStore, settingsStoreCleanup, err := mystore.New[settings.Settings](c)
	if err != nil {
		log.Fatalf("Error creating settings store: %s", err)
	}
	defer settingsStoreCleanup()

	settingsService := settings.NewService(settingsStore, publisher)
	err = settingsService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering settings service: %s", err)
	}

	dashboardService := dashboard.NewService(tokenVault, activityService, settingsService, views)
	err = dashboardService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering dashboard service: %s", err)
	}

	startWebServerBlocking(router, cfg.port)
}

func startWebServerBlocking(router *mux.Router, port string) {
	log.Printf("Starting webserver on port %s (try http://localhost:%s)", port, port)
	err := http.ListenAndServe(fmt.Sprintf(":%s", port), router)
	if err != nil {
		log.Fatalf("Error starting webserver on port %s: %s", port, err)
	}
}
