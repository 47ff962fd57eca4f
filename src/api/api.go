package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/votesnap/votesnap/src/api/config"
	"github.com/votesnap/votesnap/src/api/data"
	"github.com/votesnap/votesnap/src/api/polls"
	"github.com/votesnap/votesnap/src/api/types"
	"github.com/votesnap/votesnap/src/api/webserver"
)

var allModels = []interface{}{
	&types.User{}, &types.Poll{},
	&types.PollOption{}, &types.PollVote{},
}

func migrate(db *gorm.DB) {
	if err := db.AutoMigrate(allModels...); err != nil {
		log.Fatalf("migrate: %v", err)
	}
}

// ensureAdmin seeds the bootstrap admin account when configured and
// missing.
func ensureAdmin(db *gorm.DB, email, password string) {
	if email == "" || password == "" {
		return
	}
	var existing types.User
	if err := db.First(&existing, "email = ?", email).Error; err == nil {
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("seed admin: %v", err)
		return
	}
	err = db.Create(&types.User{
		ID:       uuid.NewString(),
		Email:    email,
		Password: string(hash),
		Name:     "Administrator",
		Role:     types.RoleAdmin,
	}).Error
	if err != nil {
		log.Printf("seed admin: %v", err)
		return
	}
	log.Printf("seeded admin account %s", email)
}

func main() {
	cfg := config.Load()

	db := data.MustMySQL(cfg.MySQLDSN)
	migrate(db)
	ensureAdmin(db, cfg.AdminEmail, cfg.AdminPassword)

	rdb := data.MustRedis(cfg.RedisURL)

	ctx, cancel := context.WithCancel(context.Background())
	if cfg.AuditInterval > 0 {
		go polls.StartTallyAudit(ctx, db, time.Duration(cfg.AuditInterval)*time.Minute)
	}

	router := webserver.New(cfg, db, rdb)
	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		var err error
		if cfg.TLSCert != "" && cfg.TLSKey != "" {
			reloader, rerr := webserver.NewTLSReloader(cfg.TLSCert, cfg.TLSKey)
			if rerr != nil {
				log.Fatalf("tls: %v", rerr)
			}
			httpSrv.TLSConfig = reloader.GetConfig()
			err = httpSrv.ListenAndServeTLS("", "")
		} else {
			err = httpSrv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()
	log.Printf("VoteSnap API listening on %s", cfg.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
}
