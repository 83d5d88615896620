package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"xposter/internal/app"
)

func main() {
	var (
		cfgPath string
		envPath string
		once    bool
		dryRun  bool
		verify  bool
		status  bool
	)
	flag.StringVar(&cfgPath, "config", "./config/accounts.yaml", "path to accounts config (yaml or json)")
	flag.StringVar(&envPath, "env", ".env", "dotenv file loaded before the config (ignored if missing)")
	flag.BoolVar(&once, "once", false, "post once for every account and exit")
	flag.BoolVar(&dryRun, "dry-run", false, "generate and log posts without publishing")
	flag.BoolVar(&verify, "verify", false, "check account credentials and exit")
	flag.BoolVar(&status, "status", false, "print recent post history and exit")
	flag.Parse()

	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fatal("env", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.NewApp(cfgPath, app.Options{DryRun: dryRun})
	if err != nil {
		fatal("", err)
	}

	switch {
	case verify:
		ok := a.VerifyAll(ctx)
		a.Close()
		if !ok {
			os.Exit(1)
		}
		return
	case status:
		err := a.PrintStatus(ctx, os.Stdout, 5)
		a.Close()
		if err != nil {
			fatal("status", err)
		}
		return
	case once:
		err := a.RunOnce(ctx)
		a.Close()
		if err != nil {
			fatal("once", err)
		}
		return
	}

	// Refuse to start live posting with credentials that do not work.
	if !a.DryRun() && !a.VerifyAll(ctx) {
		a.Close()
		fatal("verify", errors.New("credential check failed"))
	}

	if err := a.Start(ctx); err != nil {
		a.Close()
		fatal("start", err)
	}

	select {
	case <-ctx.Done():
	case <-a.Done():
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	_ = a.Stop(stopCtx)

	if err := a.Err(); err != nil {
		fatal("run", err)
	}
}

func fatal(stage string, err error) {
	if stage == "" {
		fmt.Println("fatal:", err)
	} else {
		fmt.Printf("fatal %s: %v\n", stage, err)
	}
	os.Exit(1)
}
