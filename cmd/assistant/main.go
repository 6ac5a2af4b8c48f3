package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/voice-turn-lab/internal/audio"
	"github.com/voice-turn-lab/internal/logging"
	"github.com/voice-turn-lab/internal/session"
	"github.com/voice-turn-lab/internal/stt"
	"github.com/voice-turn-lab/internal/tts"
	"github.com/voice-turn-lab/llm"
)

func main() {
	_ = godotenv.Load()
	logging.Init()
	defer func() { _ = logging.Sync() }()

	baseURL := envOr("ASSISTANT_API_URL", "http://localhost:8000")
	assistantName := envOr("ASSISTANT_NAME", "Samanta")
	cfg := session.ConfigFromEnv()

	src, err := newSource()
	if err != nil {
		logging.Errorw("assistant: bad audio source configuration", "err", err)
		os.Exit(1)
	}

	sess := session.New(cfg, src,
		stt.NewClient(baseURL),
		llm.NewClient(baseURL),
		tts.NewClient(baseURL),
		audio.NewSpeaker(),
	)
	sess.History().OnUpdate(func(turns []session.Turn) {
		render(assistantName, turns)
	})

	if err := sess.Start(context.Background()); err != nil {
		logging.Errorw("assistant: failed to start session", "err", err)
		os.Exit(1)
	}
	fmt.Println("Listening... press Ctrl-C to stop.")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		logging.Infow("assistant: stop requested")
		sess.Stop()
		<-sess.Done()
	case <-sess.Done():
		// Device loss or other terminal condition; already logged.
	}
}

// newSource picks the capture input: the local microphone by default, or a
// remote Opus-over-websocket mic stream when AUDIO_SOURCE=stream.
func newSource() (audio.Source, error) {
	rate := envIntOr("MIC_SAMPLE_RATE", 48000)
	switch strings.ToLower(envOr("AUDIO_SOURCE", "device")) {
	case "stream":
		u := strings.TrimSpace(os.Getenv("MIC_STREAM_URL"))
		if u == "" {
			return nil, fmt.Errorf("MIC_STREAM_URL is required when AUDIO_SOURCE=stream")
		}
		return audio.NewStreamSource(u, rate), nil
	case "device", "":
		return audio.NewDeviceSource(rate), nil
	default:
		return nil, fmt.Errorf("unknown AUDIO_SOURCE %q", os.Getenv("AUDIO_SOURCE"))
	}
}

// render prints the conversation snapshot, oldest first.
func render(assistantName string, turns []session.Turn) {
	fmt.Println(strings.Repeat("-", 40))
	for _, t := range turns {
		who := "You"
		if t.Role == session.RoleAssistant {
			who = assistantName
		}
		fmt.Printf("%s: %s\n", who, t.Content)
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
