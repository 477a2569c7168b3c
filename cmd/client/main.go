package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/polvault/internal/client/cli"
	"github.com/dmitrijs2005/polvault/internal/client/config"
	"github.com/dmitrijs2005/polvault/internal/flagx"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	app, err := cli.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
	}

	root := cli.NewRootCmd(ctx, app)
	root.SetArgs(flagx.ExcludeArgs(os.Args[1:], config.OwnedFlags))

	err = root.ExecuteContext(ctx)
	_ = app.Close(context.Background())
	if err != nil {
		os.Exit(1)
	}

}
