package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"classtrack/internal/attendance"
	"classtrack/internal/batch"
	"classtrack/internal/config"
	"classtrack/internal/evaluate"
	"classtrack/internal/lock"
	"classtrack/internal/mailer"
	"classtrack/internal/queue"
	"classtrack/internal/store"
)

// Worker normalizes queued scan logs and runs the scheduled batch jobs:
// absence synthesis through the day, the notification sweep each evening,
// and the attended-today reset at midnight.
func main() {
	cfg := config.Load()
	loc := cfg.Location()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL, cfg.DBMaxOpen, cfg.DBMaxIdle)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "classtrack:scans")
	}

	repo := attendance.NewRepository(db.Client)
	rules := evaluate.Rules{LateGraceMin: cfg.LateGraceMin, EarlyMarginMin: cfg.EarlyMarginMin}
	gate := evaluate.Gate{WarnFloor: cfg.WarnFloor, FailFloor: cfg.FailFloor}
	svc := attendance.NewService(repo, rules, loc)

	var mail mailer.Sender
	if cfg.SMTPHost != "" {
		mail = mailer.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
		log.Printf("mailer: smtp via %s:%d", cfg.SMTPHost, cfg.SMTPPort)
	} else {
		mail = &mailer.Console{Logf: log.Printf}
		log.Println("mailer: SMTP_HOST not set, logging mail to console")
	}

	synth := batch.NewSynthesizer(repo)
	notifier := batch.NewNotifier(repo, mail, rules, gate, batch.Scope(cfg.NotifyScope), cfg.RegistrarTo)
	reset := batch.NewReset(repo)
	locker := lock.NewRedisLock(redisClient.Client)

	go runScheduler(ctx, cfg, loc, locker, synth, notifier, reset)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		log.Printf("metrics on :%s", cfg.MetricsPort)
		if err := http.ListenAndServe(":"+cfg.MetricsPort, mux); err != nil {
			log.Printf("metrics listener stopped: %v", err)
		}
	}()

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != queue.TypeScan {
			continue
		}

		id := string(msg.Body)
		status, err := svc.Normalize(ctx, id)
		if err != nil {
			log.Printf("normalize log %s failed: %v", id, err)
			continue
		}
		log.Printf("log %s normalized: %s", id, status)
	}

	log.Println("worker stopped")
}

// runScheduler drives the batch jobs off a one-minute tick. Every job runs
// under a Redis lock so overlapping worker replicas stay idle.
func runScheduler(ctx context.Context, cfg config.App, loc *time.Location, locker lock.Locker, synth *batch.Synthesizer, notifier *batch.Notifier, reset *batch.Reset) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var lastSynth time.Time
	var lastNotifyDate string
	// The reset clears flags accumulated since midnight, so a mid-day
	// restart must not fire it; it waits for the first tick of a new date.
	lastResetDate := time.Now().In(loc).Format("2006-01-02")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		now := time.Now().In(loc)
		today := now.Format("2006-01-02")
		clock := now.Format("15:04")

		// Classes only meet during school hours, so absence synthesis
		// sleeps outside them.
		if now.Hour() >= 7 && now.Hour() < 23 && now.Sub(lastSynth) >= cfg.SynthesizeEvery {
			lastSynth = now
			withLock(ctx, locker, "synthesize", cfg.SynthesizeEvery, func() {
				report, err := synth.Run(ctx, now)
				if err != nil {
					log.Printf("synthesize run failed: %v", err)
					return
				}
				if report.Inserted > 0 || len(report.Failures) > 0 {
					log.Printf("synthesize: %d absences inserted, %d failures", report.Inserted, len(report.Failures))
				}
			})
		}

		if dailyJobDue(clock, cfg.NotifyAt, lastNotifyDate, today) {
			lastNotifyDate = today
			withLock(ctx, locker, "notify", 10*time.Minute, func() {
				report, err := notifier.Run(ctx, now)
				if err != nil {
					log.Printf("notify run failed: %v", err)
					return
				}
				log.Printf("notify: %d warnings, %d failed-attendance, %d failures",
					report.Warnings, report.Failed, len(report.Failures))
			})
		}

		if lastResetDate != today {
			lastResetDate = today
			withLock(ctx, locker, "reset", 5*time.Minute, func() {
				if err := reset.Run(ctx, now); err != nil {
					log.Printf("reset run failed: %v", err)
					return
				}
				log.Println("attended-today flags reset")
			})
		}
	}
}

// dailyJobDue reports whether a once-a-day job should fire: the wall clock
// has passed its scheduled time and the job has not yet run today. The >=
// comparison lets a dropped tick delay the run instead of skipping the day.
func dailyJobDue(clock, at, lastRun, today string) bool {
	return clock >= at && lastRun != today
}

func withLock(ctx context.Context, locker lock.Locker, key string, ttl time.Duration, fn func()) {
	ok, err := locker.Lock(ctx, key, ttl)
	if err != nil {
		log.Printf("lock %s failed: %v", key, err)
		return
	}
	if !ok {
		log.Printf("lock %s held elsewhere, skipping", key)
		return
	}
	defer func() {
		if err := locker.Unlock(ctx, key); err != nil {
			log.Printf("unlock %s failed: %v", key, err)
		}
	}()
	fn()
}
