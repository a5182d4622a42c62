package main

import (
	"log"
	"net/http"
	"os"

	"blogclient/internal/api"
	"blogclient/internal/config"
	"blogclient/internal/server"
	"blogclient/internal/session"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	storage, err := session.OpenStorage(cfg.TokenDBPath)
	if err != nil {
		log.Fatal(err)
	}
	defer storage.Close()

	store := session.NewStore(storage)
	store.Restore()

	client := api.New(cfg.APIBaseURL, store)

	srv, err := server.New(store, client, cfg.TemplateDir)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("listening on %s (api %s)", cfg.Addr, cfg.APIBaseURL)
	if err := http.ListenAndServe(cfg.Addr, srv); err != nil {
		log.Fatal(err)
	}
}
