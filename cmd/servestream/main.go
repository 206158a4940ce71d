// Command servestream is a demo binary showing servestream.Server
// mounted under a real HTTP server: it is the "network framework glue"
// §1 calls out of scope for the core, kept in its own package so the
// core never imports net/http.
package main

import (
	"flag"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/servestream/servestream"
	"github.com/servestream/servestream/config"
	"github.com/servestream/servestream/diag"
	"github.com/servestream/servestream/fsstorage"
	"github.com/servestream/servestream/sqlitestorage"
)

var (
	addrFlag           string
	rootFlag           string
	configFlag         string
	dbFlag             string
	verbosityTraceFlag bool
)

func init() {
	flag.StringVar(&addrFlag, "addr", ":8080", "address to listen on")
	flag.StringVar(&rootFlag, "root", ".", "directory to serve")
	flag.StringVar(&configFlag, "config", "", "YAML config file (optional)")
	flag.StringVar(&dbFlag, "db", "", "SQLite blob-store file to mount at /_blobs/ (optional; 'memory' for in-memory)")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "verbosity: trace logging")
}

func main() {
	flag.Parse()

	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}
	log.Logger = log.Level(logLevel).Output(zerolog.ConsoleWriter{Out: os.Stdout})

	opts := servestream.Options{}
	if configFlag != "" {
		loaded, err := config.Load(configFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("could not load config")
		}
		opts = loaded
	}

	sink := diag.NewZerologSink()

	fsStore := fsstorage.New(fsstorage.Options{
		Root:             rootFlag,
		Ignore:           opts.IgnorePattern,
		IgnoreDisabled:   opts.IgnoreDisabled,
		OnDirectory:      fsstorage.DirectoryMode(opts.OnDirectory),
		EncodingMappings: opts.ContentEncodingMappings,
		MimeResolver:     opts.MimeModule,
	})
	fsServer := servestream.NewServer(fsStore, opts, sink)

	r := chi.NewRouter()

	var blobServer *servestream.Server
	if dbFlag != "" {
		db, err := sqlitestorage.Open(dbFilename(dbFlag))
		if err != nil {
			log.Fatal().Err(err).Msg("could not open blob store")
		}
		defer db.CloseDB()
		blobServer = servestream.NewServer(db, opts, sink)
	}

	r.HandleFunc("/*", func(w http.ResponseWriter, req *http.Request) {
		srv := fsServer
		ref := req.URL.EscapedPath()
		if blobServer != nil && strings.HasPrefix(ref, "/_blobs/") {
			srv = blobServer
			ref = strings.TrimPrefix(ref, "/_blobs")
		}

		sr := srv.PrepareResponse(req.Context(), ref, map[string][]string(req.Header), req.Method)
		if err := sr.Send(adaptResponseWriter{w}); err != nil {
			log.Error().Err(err).Msg("error writing response body")
		}
	})

	log.Info().Msgf("serving %s on %s", rootFlag, addrFlag)
	if err := http.ListenAndServe(addrFlag, r); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func dbFilename(flagValue string) string {
	if flagValue == "memory" {
		return ""
	}
	return flagValue
}

// adaptResponseWriter satisfies servestream.ResponseSink over a real
// http.ResponseWriter. http.Header's underlying type is
// map[string][]string, so the conversion below shares storage with the
// ResponseWriter's own header map rather than copying it.
type adaptResponseWriter struct {
	w http.ResponseWriter
}

func (a adaptResponseWriter) Header() map[string][]string {
	return map[string][]string(a.w.Header())
}

func (a adaptResponseWriter) WriteHeader(statusCode int) {
	a.w.WriteHeader(statusCode)
}

func (a adaptResponseWriter) Write(p []byte) (int, error) {
	return a.w.Write(p)
}
