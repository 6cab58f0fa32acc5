package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"strings"
	"time"

	"github.com/rcarmo/go-fbtile/internal/config"
	"github.com/rcarmo/go-fbtile/internal/fbtile"
	"github.com/rcarmo/go-fbtile/internal/handler"
	"github.com/rcarmo/go-fbtile/internal/logging"
	"github.com/rcarmo/go-fbtile/web"
)

const (
	appName    = "FBTile Conversion Server"
	appVersion = "v1.0.0"
)

type parsedArgs struct {
	host       string
	port       string
	logLevel   string
	configFile string
	layout     string
	op         string
	walker     string
	workers    int
}

func main() {
	args, action := parseFlags()
	switch action {
	case "help":
		showHelp()
		return
	case "version":
		showVersion()
		return
	}

	if err := run(args); err != nil {
		log.Fatalln(err)
	}
}

func parseFlags() (parsedArgs, string) {
	return parseFlagsWithArgs(os.Args[1:])
}

func parseFlagsWithArgs(arguments []string) (parsedArgs, string) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	hostFlag := fs.String("host", "", "server listen host")
	portFlag := fs.String("port", "", "server listen port")
	logLevelFlag := fs.String("log-level", "", "log level (debug, info, warn, error)")
	configFlag := fs.String("config", "", "YAML configuration file")
	layoutFlag := fs.String("layout", "", "default tiled layout (none, intelx, intely, intelyf)")
	opFlag := fs.String("op", "", "default operation (none, tile, detile)")
	walkerFlag := fs.String("walker", "", "tile walker (opti, simple)")
	workersFlag := fs.Int("workers", 0, "goroutines per frame conversion")
	helpFlag := fs.Bool("help", false, "show help")
	versionFlag := fs.Bool("version", false, "show version")

	if err := fs.Parse(arguments); err != nil {
		return parsedArgs{}, "help"
	}

	if *helpFlag {
		return parsedArgs{}, "help"
	}
	if *versionFlag {
		return parsedArgs{}, "version"
	}

	return parsedArgs{
		host:       strings.TrimSpace(*hostFlag),
		port:       strings.TrimSpace(*portFlag),
		logLevel:   strings.TrimSpace(*logLevelFlag),
		configFile: strings.TrimSpace(*configFlag),
		layout:     strings.TrimSpace(*layoutFlag),
		op:         strings.TrimSpace(*opFlag),
		walker:     strings.TrimSpace(*walkerFlag),
		workers:    *workersFlag,
	}, ""
}

func run(args parsedArgs) error {
	cfg, err := config.LoadWithOverrides(config.LoadOptions{
		Host:       args.host,
		Port:       args.port,
		LogLevel:   args.logLevel,
		ConfigFile: args.configFile,
		Layout:     args.layout,
		Op:         args.op,
		Walker:     args.walker,
		Workers:    args.workers,
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	closeLog, err := setupLogging(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	_, _, walker, err := cfg.Tiling.Resolve()
	if err != nil {
		return err
	}
	fbtile.SetDefaultWalker(walker)

	server := createServer(cfg)
	logging.Info("starting server on %s (layout=%s op=%s walker=%s workers=%d)",
		server.Addr, cfg.Tiling.Layout, cfg.Tiling.Op, walker, cfg.Tiling.Workers)

	if err := startServer(server, cfg); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func createServer(cfg *config.Config) *http.Server {
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	mux := http.NewServeMux()
	if static, err := web.DistFS(); err == nil {
		mux.Handle("/", http.FileServer(http.FS(static)))
	} else {
		logging.Warn("static files unavailable: %v", err)
	}
	handler.New(cfg).Register(mux)
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	h := applySecurityMiddleware(mux, cfg)
	h = requestLoggingMiddleware(h)

	return &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func applySecurityMiddleware(next http.Handler, cfg *config.Config) http.Handler {
	if cfg == nil {
		return securityHeadersMiddleware(corsMiddleware(next, nil))
	}

	h := corsMiddleware(next, cfg.Server.AllowedOrigins)
	h = securityHeadersMiddleware(h)

	return h
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		// Allow inline scripts/styles and WASM for the single-page UI
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline' 'wasm-unsafe-eval'; style-src 'self' 'unsafe-inline'; connect-src 'self' ws: wss:")

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowedOrigins []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if isOriginAllowed(origin, allowedOrigins, r.Host) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isOriginAllowed(origin string, allowedOrigins []string, host string) bool {
	if origin == "" {
		return false
	}

	for _, allowed := range allowedOrigins {
		if strings.TrimSpace(allowed) == origin {
			return true
		}
	}

	if len(allowedOrigins) == 0 {
		return strings.Contains(origin, host)
	}

	return false
}

// setupLogging applies the configured level and, when a file is named,
// sends log output there. The returned func closes the file.
func setupLogging(cfg config.LoggingConfig) (func(), error) {
	log.SetFlags(log.LstdFlags | log.LUTC)
	logging.SetLevelFromString(cfg.Level)

	if cfg.File == "" {
		return func() {}, nil
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	logging.Default().SetOutput(f)
	return func() {
		logging.Default().SetOutput(os.Stderr)
		_ = f.Close()
	}, nil
}

func requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.Debug("%s %s %s %s", r.RemoteAddr, r.Method, r.URL.Path, time.Since(start))
	})
}

func startServer(server *http.Server, _ *config.Config) error {
	if server == nil {
		return fmt.Errorf("server is nil")
	}

	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

func showHelp() {
	fmt.Println(appName)
	fmt.Println("USAGE: fbtile-server [options]")
	fmt.Println("OPTIONS:")
	fmt.Println("  -host               Set server listen host (default 0.0.0.0)")
	fmt.Println("  -port               Set server listen port (default 8080)")
	fmt.Println("  -log-level          Set log level (debug, info, warn, error)")
	fmt.Println("  -config             Read settings from a YAML file")
	fmt.Println("  -layout             Default tiled layout (none, intelx, intely, intelyf)")
	fmt.Println("  -op                 Default operation (none, tile, detile)")
	fmt.Println("  -walker             Tile walker (opti, simple)")
	fmt.Println("  -workers            Goroutines per frame conversion")
	fmt.Println("  -version            Show version information")
	fmt.Println("  -help               Show this help message")
	fmt.Println("ENVIRONMENT VARIABLES: SERVER_HOST, SERVER_PORT, LOG_LEVEL, LOG_FILE, FBTILE_CONFIG, TILING_LAYOUT, TILING_OP, TILING_WALKER, TILING_WORKERS")
	fmt.Println("EXAMPLES: fbtile-server -host 0.0.0.0 -port 8080 -layout intely -op detile")
}

func showVersion() {
	fmt.Printf("%s %s\n", appName, appVersion)
	fmt.Println("Built with Go", time.Now().Year())
	fmt.Printf("Layouts: %s\n", strings.Join(layoutNames(), ", "))
}

func layoutNames() []string {
	var names []string
	for _, l := range fbtile.Layouts() {
		names = append(names, l.String())
	}
	return names
}
