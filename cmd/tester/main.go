package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/bot"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/model"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/observer"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/logger"
	"go.uber.org/zap"
)

// SendTask is one synthetic webhook delivery handed to a worker.
type SendTask struct {
	Signal  model.SignalKind
	Payload []byte
	Target  string
	Client  *http.Client
}

var (
	greetingTexts = []string{"Hi", "hello", "menu", "Hey", "start"}
	freeTexts     = []string{
		"how do i contact the helpline",
		"is 1933 free to call",
		"i want to know about rehab",
		"what happens after i report",
		"can you help me",
	}
	categoryIDs = []string{bot.CatReport, bot.CatConf, bot.CatRehab, bot.CatAbout}
	faqIDs      = []string{
		bot.FAQGenFullform, bot.FAQGenWhat, bot.FAQGenReach,
		bot.FAQRepTip, bot.FAQRepHow, bot.FAQRep247,
		bot.FAQConfIdent,
		bot.FAQRehHelp, bot.FAQReh14446,
		bot.FAQLawManuf, bot.FAQLawSeize,
	}
)

func main() {
	target := flag.String("target", "http://localhost:8080/webhook", "Webhook endpoint URL")
	rate := flag.Int("rate", 50, "Target messages per second")
	duration := flag.Duration("duration", 1*time.Minute, "Load test duration")
	concurrency := flag.Int("concurrency", 10, "Number of concurrent sender workers")
	users := flag.Int("users", 200, "Number of distinct synthetic phone numbers")
	metricsPort := flag.Int("metrics-port", 9091, "Port for Prometheus metrics endpoint")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Webhook Load Generator\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generates load for the helpline bot by POSTing synthetic Cloud API webhook payloads.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if err := logger.Initialize(*logLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	observer.InitMetrics(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsServer := startMetricsServer(*metricsPort)
	var metricsWg sync.WaitGroup
	metricsWg.Add(1)
	go func() {
		defer metricsWg.Done()
		<-ctx.Done()
		logger.Log.Info("Shutting down metrics server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Metrics server shutdown error", zap.Error(err))
		}
	}()

	logger.Log.Info("Starting Webhook Load Generator",
		zap.String("target", *target),
		zap.Int("rate_per_sec", *rate),
		zap.Duration("duration", *duration),
		zap.Int("concurrency", *concurrency),
		zap.Int("users", *users),
		zap.Int("metrics_port", *metricsPort),
	)

	rand.Seed(time.Now().UnixNano())
	gofakeit.Seed(time.Now().UnixNano())

	// A stable pool of phone numbers so the bot sees returning users,
	// not an endless stream of registrations.
	phones := make([]string, *users)
	for i := range phones {
		phones[i] = fmt.Sprintf("91%d", gofakeit.Number(7000000000, 9999999999))
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}

	var wg sync.WaitGroup
	pool, err := ants.NewPoolWithFunc(*concurrency, func(data interface{}) {
		sendWorkerFunc(data, &wg)
	})
	if err != nil {
		logger.Log.Fatal("Failed to create worker pool", zap.Error(err))
	}
	defer pool.Release()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var loopWg sync.WaitGroup
	loopWg.Add(1)
	go runLoadLoop(ctx, *rate, *duration, *target, phones, httpClient, pool, &wg, &loopWg)

	select {
	case sig := <-sigChan:
		logger.Log.Info("Received termination signal, shutting down...", zap.String("signal", sig.String()))
		cancel()
	case <-ctx.Done():
	}

	logger.Log.Info("Waiting for load loop to finish...")
	loopWg.Wait()

	logger.Log.Info("Waiting for in-flight sends to complete...")
	wg.Wait()

	cancel()
	metricsWg.Wait()

	logger.Log.Info("Load generator shutdown complete.")
}

func startMetricsServer(port int) *http.Server {
	logger.Log.Info("Starting Prometheus metrics server", zap.Int("port", port))
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Failed to start Prometheus metrics server", zap.Error(err))
		}
	}()

	return server
}

// runLoadLoop submits one send task per tick until the duration elapses.
func runLoadLoop(ctx context.Context, rate int, duration time.Duration, target string, phones []string, client *http.Client, pool *ants.PoolWithFunc, wg *sync.WaitGroup, loopWg *sync.WaitGroup) {
	defer loopWg.Done()

	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	durationTimer := time.NewTimer(duration)
	defer durationTimer.Stop()

	logger.Log.Info("Starting load loop",
		zap.Int("target_rate_per_sec", rate),
		zap.Duration("duration", duration),
	)

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("Load loop stopping due to context cancellation")
			return
		case <-durationTimer.C:
			logger.Log.Info("Load loop stopping after specified duration")
			return
		case <-ticker.C:
			from := phones[rand.Intn(len(phones))]
			signalKind, payload := randomPayload(from)

			observer.IncLoadgenMessagesAttempted(signalKind.String())

			wg.Add(1)
			task := SendTask{Signal: signalKind, Payload: payload, Target: target, Client: client}
			if err := pool.Invoke(task); err != nil {
				wg.Done()
				logger.Log.Warn("Failed to invoke worker pool", zap.Error(err))
				observer.IncLoadgenSendErrors(signalKind.String())
			}
		}
	}
}

// randomPayload builds a Cloud API webhook envelope with a weighted mix of
// signals roughly matching real traffic: mostly taps, some typed text.
func randomPayload(from string) (model.SignalKind, []byte) {
	var message map[string]interface{}
	var kind model.SignalKind

	switch roll := rand.Intn(100); {
	case roll < 25: // greeting text
		kind = model.SignalText
		message = textMessage(from, greetingTexts[rand.Intn(len(greetingTexts))])
	case roll < 40: // free text
		kind = model.SignalText
		message = textMessage(from, freeTexts[rand.Intn(len(freeTexts))])
	case roll < 60: // nav button
		kind = model.SignalButton
		id := bot.BtnMainMenu
		if rand.Intn(2) == 0 {
			id = bot.BtnMoreFAQs
		}
		message = interactiveMessage(from, "button_reply", id)
	case roll < 80: // category pick
		kind = model.SignalList
		message = interactiveMessage(from, "list_reply", categoryIDs[rand.Intn(len(categoryIDs))])
	default: // FAQ pick
		kind = model.SignalList
		message = interactiveMessage(from, "list_reply", faqIDs[rand.Intn(len(faqIDs))])
	}

	envelope := map[string]interface{}{
		"entry": []map[string]interface{}{{
			"changes": []map[string]interface{}{{
				"value": map[string]interface{}{
					"messages": []map[string]interface{}{message},
				},
			}},
		}},
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		logger.Log.Error("Failed to marshal payload", zap.Error(err))
		return kind, nil
	}
	return kind, payload
}

func textMessage(from, body string) map[string]interface{} {
	return map[string]interface{}{
		"from": from,
		"type": "text",
		"text": map[string]interface{}{"body": body},
	}
}

func interactiveMessage(from, replyType, id string) map[string]interface{} {
	return map[string]interface{}{
		"from": from,
		"type": "interactive",
		"interactive": map[string]interface{}{
			"type":    replyType,
			replyType: map[string]interface{}{"id": id},
		},
	}
}

// sendWorkerFunc delivers one payload to the webhook endpoint.
func sendWorkerFunc(data interface{}, wg *sync.WaitGroup) {
	defer wg.Done()

	task := data.(SendTask)
	if task.Payload == nil {
		observer.IncLoadgenSendErrors(task.Signal.String())
		return
	}

	resp, err := task.Client.Post(task.Target, "application/json", bytes.NewReader(task.Payload))
	if err != nil {
		logger.Log.Error("Failed to POST webhook payload", zap.Error(err))
		observer.IncLoadgenSendErrors(task.Signal.String())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Log.Warn("Webhook endpoint returned non-200", zap.Int("status", resp.StatusCode))
		observer.IncLoadgenSendErrors(task.Signal.String())
		return
	}

	observer.IncLoadgenMessagesSent(task.Signal.String())
}
