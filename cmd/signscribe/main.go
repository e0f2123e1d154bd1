package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ayusman/signscribe/internal/app"
	"github.com/ayusman/signscribe/internal/capture"
	"github.com/ayusman/signscribe/internal/config"
	"github.com/ayusman/signscribe/internal/detector"
	"github.com/ayusman/signscribe/internal/server"
	"github.com/ayusman/signscribe/internal/sign"
	"github.com/ayusman/signscribe/internal/speech"
	"github.com/ayusman/signscribe/internal/store"
	"github.com/ayusman/signscribe/internal/trace"
	"github.com/ayusman/signscribe/internal/tray"
)

const shutdownTimeout = 5 * time.Second

func main() {
	fmt.Println("SignScribe - Sign Language Transcription")

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	traceCfg := trace.DefaultConfig()
	traceCfg.ExporterType = cfg.TraceExporter
	traceCfg.OTLPEndpoint = cfg.OTLPEndpoint
	if err := trace.Initialize(context.Background(), traceCfg); err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	source := capture.NewSource(capture.CameraFactory(cfg.Camera), cfg.Devices)
	classifier := sign.NewClassifier()

	provider, modelCfg, err := newProvider(cfg, st, classifier)
	if err != nil {
		log.Fatalf("Failed to configure detector: %v", err)
	}

	var gateway speech.Gateway
	if cfg.SpeechEnabled() {
		el, err := speech.NewElevenLabs(speech.ElevenLabsConfig{
			APIKey:  cfg.ElevenLabsKey,
			VoiceID: cfg.ElevenLabsVoice,
			Model:   cfg.ElevenLabsModel,
		})
		if err != nil {
			log.Fatalf("Failed to configure speech: %v", err)
		}
		gateway = el
	} else {
		log.Println("ELEVENLABS_API_KEY not set, speech disabled")
	}
	speaker := speech.NewSpeaker(gateway)

	a := app.New(app.Config{
		Source:   source,
		Provider: provider,
		Model:    modelCfg,
		Facing:   cfg.Facing,
	})

	hub := server.NewHub()
	a.AddListener(hub)

	webDir := findWebDir()
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir:  webDir,
		Store:      st,
		Classifier: classifier,
		Session:    a,
		Speaker:    speaker,
		Frames:     source,
		Events:     hub,
	})

	var once sync.Once
	shutdown := func() {
		once.Do(func() {
			log.Println("Shutting down")
			if err := a.Close(); err != nil {
				log.Printf("Error stopping session: %v", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.Printf("Error stopping server: %v", err)
			}
			if err := trace.Shutdown(ctx); err != nil {
				log.Printf("Error flushing traces: %v", err)
			}
		})
	}

	serveErr := make(chan error, 1)
	go func() {
		fmt.Printf("Starting server on %s\n", cfg.Addr)
		serveErr <- srv.ListenAndServe(cfg.Addr)
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if cfg.Tray {
		t := tray.New(a, speaker)
		a.AddListener(t)
		t.OnSettings(func() { openBrowser(settingsURL(cfg.Addr)) })
		t.OnQuit(shutdown)

		go func() {
			select {
			case <-signals:
			case err := <-serveErr:
				if err != nil {
					log.Printf("Server failed: %v", err)
				}
			}
			shutdown()
			os.Exit(0)
		}()

		// systray wants the main goroutine.
		t.Run()
		shutdown()
		return
	}

	select {
	case <-signals:
		shutdown()
	case err := <-serveErr:
		shutdown()
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}
}

// newProvider builds the detection backend selected by cfg.
func newProvider(cfg *config.Config, st *store.Store, classifier *sign.Classifier) (detector.Provider, detector.Config, error) {
	switch cfg.Detector {
	case config.DetectorLocal:
		extractor, err := detector.NewMediaPipeExtractor(detector.DefaultMediaPipeConfig())
		if err != nil {
			return nil, detector.Config{}, err
		}
		n, err := sign.LoadTemplates(classifier, st)
		if err != nil {
			return nil, detector.Config{}, err
		}
		log.Printf("Loaded %d trained signs", n)
		return sign.NewLocalProvider(extractor, classifier), detector.Config{}, nil
	default:
		return detector.NewRoboflowProvider(), detector.Config{
			Key:     cfg.RoboflowKey,
			ModelID: cfg.RoboflowModel,
			Version: cfg.RoboflowVersion,
		}, nil
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.signscribe/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".signscribe", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

func settingsURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}
