package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pawcademy/cache"
	configs "pawcademy/config"
	"pawcademy/logger"
	"pawcademy/mongoconn"
	"pawcademy/natsclient"
	"pawcademy/repository"
	"pawcademy/service"
)

func main() {
	config := configs.LoadConfig()

	logStreamer := logger.NewLogStreamer(config.ServiceName, config.Environment)
	defer logStreamer.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	mongoClient, err := mongoconn.ConnectDB(ctx, config.MongoDBURL)
	if err != nil {
		log.Fatalf("failed to connect to MongoDB: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())

	repo := repository.NewRepository(mongoClient)
	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Fatalf("failed to ensure indexes: %v", err)
	}

	redisCache := cache.NewRedisCache(config.RedisURL, config.RedisPassword, 0)

	natsClient, err := natsclient.NewNatsClient(config.NATSURL, config.ServiceName)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}
	defer natsClient.Close()

	svc, err := service.NewService(repo, natsClient, redisCache, logStreamer)
	if err != nil {
		log.Fatalf("failed to initialize service: %v", err)
	}

	if err := svc.RegisterSubjects(); err != nil {
		log.Fatalf("failed to register NATS subjects: %v", err)
	}

	svc.StartCronJob()

	// warm the leaderboard snapshots before the first cron tick
	if err := svc.SyncLeaderboardSnapshots(ctx); err != nil {
		log.Printf("initial leaderboard snapshot failed: %v", err)
	}

	log.Printf("%s listening on NATS %s", config.ServiceName, config.NATSURL)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down")
}
