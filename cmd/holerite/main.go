package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/holerite/internal/archive"
	"github.com/zombor/holerite/internal/payslip"
	"github.com/zombor/holerite/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("holerite")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		dbPath         = fs.StringLong("db", "holerite.db", "Database file path")
		storagePath    = fs.StringLong("storage", "./payslips", "Storage directory path")
		recognizerType = fs.StringLong("recognizer", "tesseract", "OCR engine: 'tesseract', 'gemini' or 'ollama'")
		ocrLang        = fs.StringLong("ocr-lang", "por", "Tesseract primary language")
		ocrFallback    = fs.StringLong("ocr-fallback-lang", "eng", "Tesseract language tried when the primary fails or reads nothing")
		tessdata       = fs.StringLong("tessdata", "", "Tesseract tessdata directory (optional)")
		noPDFText      = fs.BoolLong("no-pdf-text", "Always OCR PDFs, even when they carry a text layer")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "qwen2.5vl", "Ollama vision model name")
		vocabPath      = fs.StringLong("vocabulary", "", "JSON file overriding the parser vocabulary (optional)")
		watchDir       = fs.StringLong("watch", "", "Inbox directory to ingest payslips from (optional)")
		authUser       = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass       = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel       = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		_              = fs.StringLong("config", "", "Config file with one 'flag value' per line (optional)")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("HOLERITE"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid log level %q\n", *logLevel)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	if level > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	vocab := payslip.DefaultVocabulary()
	if *vocabPath != "" {
		f, err := os.Open(*vocabPath)
		if err != nil {
			slog.Error("Failed to open vocabulary", "path", *vocabPath, "error", err)
			os.Exit(1)
		}
		vocab, err = payslip.LoadVocabulary(f)
		f.Close()
		if err != nil {
			slog.Error("Failed to load vocabulary", "path", *vocabPath, "error", err)
			os.Exit(1)
		}
		slog.Info("Loaded vocabulary", "path", *vocabPath)
	}
	parser := payslip.NewParserWithDeps(vocab, nil, slog.Default())

	slog.Info("Initializing database...")
	db, err := archive.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var recognizer scanning.Recognizer
	switch *recognizerType {
	case "tesseract":
		slog.Info("Initializing Tesseract recognizer...", "languages", []string{*ocrLang, *ocrFallback})
		recognizer, err = scanning.NewTesseract([]string{*ocrLang, *ocrFallback}, *tessdata, slog.Default())
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini recognizer...", "model", *geminiModel)
		recognizer, err = scanning.NewGemini(apiKey, *geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama recognizer...", "url", *ollamaURL, "model", *ollamaModel)
		recognizer, err = scanning.NewOllama(*ollamaURL, *ollamaModel)
	default:
		slog.Error("Invalid recognizer type", "type", *recognizerType, "valid", "tesseract, gemini or ollama")
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Failed to initialize recognizer", "type", *recognizerType, "error", err)
		os.Exit(1)
	}
	if !*noPDFText {
		recognizer = scanning.NewPDFText(recognizer, slog.Default())
	}
	defer recognizer.Close()

	slog.Info("Initializing storage...")
	store, err := archive.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	service := archive.NewService(db, recognizer, store, parser)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *watchDir != "" {
		if err := os.MkdirAll(*watchDir, 0755); err != nil {
			slog.Error("Failed to create inbox directory", "dir", *watchDir, "error", err)
			os.Exit(1)
		}
		watcher := archive.NewWatcher(*watchDir, service)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				slog.Error("Watcher stopped", "error", err)
			}
		}()
	}

	server := archive.NewServer(service, archive.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	})
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	addr := fmt.Sprintf(":%d", *port)
	if err := server.Start(ctx, addr); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shut down")
}
