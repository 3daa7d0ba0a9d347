// avatarstub serves stand-in avatars on the rendering service's query parameters, so the
// server can be run without network access:
//
//	avatarstub --addr :7778 &
//	server --service-url http://localhost:7778/api/ --insecure-cookies --secret-key ...

package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/maxhully/profilegen/avatargen"
	"github.com/maxhully/profilegen/internal/logger"
)

func main() {
	addr := flag.String("addr", ":7778", "Address to listen on")
	env := flag.String("env", "development", "development or production (changes log format)")
	flag.Parse()

	log := logger.New(*env)
	mux := http.NewServeMux()
	mux.Handle("/api/", avatargen.Handler())

	handler := log.RequestLogger(handlers.CORS(handlers.AllowedMethods([]string{http.MethodGet}))(mux))
	log.Info("listening", slog.String("addr", *addr))
	if err := http.ListenAndServe(*addr, handler); err != nil {
		log.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
