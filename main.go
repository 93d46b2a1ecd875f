package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"surgebot/internal/api"
	"surgebot/internal/config"
	"surgebot/internal/db"
	"surgebot/internal/handlers"
	"surgebot/internal/session"
	"surgebot/internal/solana"
	"surgebot/internal/sweeper"
	"surgebot/internal/telegram_api"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not loaded, relying on process environment.")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Critical: failed to load configuration: %v", err)
	}

	if err := db.InitDB(); err != nil {
		log.Fatalf("Critical: failed to initialize database: %v", err)
	}
	defer db.CloseDB()

	if err := telegram_api.InitBot(cfg.TelegramToken, cfg.AppEnv == "dev"); err != nil {
		log.Fatalf("Critical: failed to initialize Telegram bot: %v", err)
	}

	sessionManager := session.NewManager()
	solanaClient := solana.NewClient(cfg.SolanaRPCURL)

	botHandler := handlers.NewBotHandler(handlers.HandlerDependencies{
		Config:         cfg,
		BotClient:      telegram_api.Client,
		SessionManager: sessionManager,
		Solana:         solanaClient,
	})

	monitor := sweeper.NewMonitor(sweeper.DBStore{}, telegram_api.Client, cfg.AdminChatIDs)
	if err := monitor.Start(cfg.SweepInterval, cfg.AdminSweepInterval); err != nil {
		log.Fatalf("Critical: failed to start subscription sweeper: %v", err)
	}
	defer monitor.Stop()

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))
	api.SetupRoutes(router, api.ApiDependencies{Config: cfg})

	go func() {
		log.Printf("Starting ops HTTP server on port %s", cfg.Port)
		if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
			log.Fatalf("Critical: HTTP server failed: %v", err)
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := telegram_api.Client.GetUpdatesChan(u)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	log.Println("Bot started. Listening for updates.")
	for {
		select {
		case update := <-updates:
			if update.Message != nil {
				go botHandler.HandleMessage(update)
			} else if update.CallbackQuery != nil {
				go botHandler.HandleCallback(update)
			}
		case sig := <-stop:
			log.Printf("Received %v, shutting down.", sig)
			return
		}
	}
}
