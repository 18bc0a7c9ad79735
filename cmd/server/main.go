package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/knifecatalog/internal/logging"
	"github.com/dmitrijs2005/knifecatalog/internal/server"
	"github.com/dmitrijs2005/knifecatalog/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

}
