package main

import (
	"log"

	"github.com/techagentng/notify/config"
	"github.com/techagentng/notify/db"
	"github.com/techagentng/notify/logger"
	"github.com/techagentng/notify/realtime"
	"github.com/techagentng/notify/server"
	"github.com/techagentng/notify/services"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zlog, err := logger.Init(conf.Debug)
	if err != nil {
		log.Fatalf("unable to init logger: %v", err)
	}
	defer zlog.Sync()

	gormDB := db.GetDB(conf)
	notificationRepo := db.NewNotificationRepo(gormDB)
	readStateRepo := db.NewReadStateRepo(gormDB)

	rdb := realtime.InitRedis(conf.RedisAddr)
	fanout := realtime.NewFanout(realtime.NewRedisPublisher(rdb), zlog)
	hub := realtime.NewHub(rdb, zlog)

	notificationService := services.NewNotificationService(notificationRepo, fanout, zlog)
	readStateService := services.NewReadStateService(notificationRepo, readStateRepo, fanout, zlog)
	feedService := services.NewFeedService(notificationRepo, conf.FeedMaxLimit)
	sweeperService := services.NewSweeperService(notificationRepo, fanout, conf, zlog)

	s := &server.Server{
		Config:              conf,
		Logger:              zlog,
		NotificationService: notificationService,
		ReadStateService:    readStateService,
		FeedService:         feedService,
		SweeperService:      sweeperService,
		Hub:                 hub,
	}
	s.Start()
}
