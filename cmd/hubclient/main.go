package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/huddle/chat-hub/internal/api"
	"github.com/huddle/chat-hub/internal/history"
	"github.com/huddle/chat-hub/internal/hub"
	"github.com/huddle/chat-hub/internal/livechat"
	"github.com/huddle/chat-hub/internal/metrics"
	"github.com/huddle/chat-hub/internal/transport"
)

func main() {
	game := flag.String("game", "", "start a matchmaking attempt for this game")
	tags := flag.String("tags", "", "comma-separated matchmaking tags")
	size := flag.Int("size", 4, "requested group size for matchmaking")
	status := flag.String("status", "online", "presence status announced on start")
	flag.Parse()

	log.Println("Starting hub chat client...")

	wsURL := "ws://localhost:8080/ws"
	if v := os.Getenv("HUB_WS_URL"); v != "" {
		wsURL = v
	}
	apiURL := "http://localhost:8080/api"
	if v := os.Getenv("HUB_API_URL"); v != "" {
		apiURL = v
	}
	apiToken := os.Getenv("HUB_API_TOKEN")

	redisAddr := "localhost:6379"
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		redisAddr = v
	}
	metricsAddr := ":9100"
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		metricsAddr = v
	}

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(ctx).Err(); err != nil {
		cancel()
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	cancel()
	snapshots := history.NewSnapshotStore(rdb)

	// --- Transport ---
	dialCtx, dialCancel := context.WithTimeout(context.Background(), 10*time.Second)
	wsTransport, err := transport.DialWS(dialCtx, wsURL)
	dialCancel()
	if err != nil {
		log.Fatalf("failed to connect to chat relay: %v", err)
	}

	// --- Service wiring ---
	apiClient := api.NewClient(apiURL, apiToken)
	store := hub.NewStore(apiClient)
	svc := livechat.NewService(wsTransport, store, apiClient)

	// Hydrate room histories from the snapshot before going live.
	loadCtx, loadCancel := context.WithTimeout(context.Background(), 5*time.Second)
	snapshot, err := snapshots.Load(loadCtx)
	loadCancel()
	if err != nil {
		log.Printf("history snapshot unavailable, starting empty: %v", err)
	} else if len(snapshot) > 0 {
		svc.LoadHistory(snapshot)
		log.Printf("hydrated %d room histories from snapshot", len(snapshot))
	}

	if err := svc.Start(); err != nil {
		log.Fatalf("failed to start live chat service: %v", err)
	}

	if err := svc.SendPresence(context.Background(), *status, *game); err != nil {
		log.Printf("initial presence: %v", err)
	}

	// --- Metrics endpoint ---
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			log.Printf("metrics server: %v", err)
		}
	}()

	log.Printf("Hub chat client running")
	log.Printf("  ws_url:       %s", wsURL)
	log.Printf("  api_url:      %s", apiURL)
	log.Printf("  redis_addr:   %s", redisAddr)
	log.Printf("  metrics_addr: %s", metricsAddr)
	log.Printf("  client_id:    %s", wsTransport.ClientID())

	if *game != "" {
		var tagList []string
		for _, tag := range strings.Split(*tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tagList = append(tagList, tag)
			}
		}
		log.Printf("starting matchmaking: game=%s size=%d tags=%v", *game, *size, tagList)
		if err := svc.Matchmake(context.Background(), *game, tagList, *size); err != nil {
			log.Printf("matchmaking: %v", err)
		}
	}

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received signal %v, shutting down...", sig)

	svc.Stop()

	saveCtx, saveCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := snapshots.Save(saveCtx, svc.State().Snapshot()); err != nil {
		log.Printf("saving history snapshot: %v", err)
	}
	saveCancel()

	wsTransport.Close()
	rdb.Close()
}
