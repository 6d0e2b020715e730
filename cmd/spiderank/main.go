// Command spiderank crawls the web, ranks what it finds and answers search
// queries over the result.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	appName = "spiderank"
	appSHA  = "compiled-and-deployed-at"
)

func main() {
	host, _ := os.Hostname()
	// Instantiate a root logger that will be passed to all services.
	rootLogger := logrus.New()
	logger := rootLogger.WithFields(logrus.Fields{
		"app":    appName,
		"SHA":    appSHA,
		"host":   host,
		"run_id": uuid.New().String(),
	})

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	// Listen for os signals and trigger a graceful shutdown.
	go func() {
		signalChan := make(chan os.Signal, 1)
		signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

		select {
		case s := <-signalChan:
			logger.WithField("signal", s.String()).Info("shutting down due to os signal")
			cancelFn()
		case <-ctx.Done():
		}
	}()

	if err := newRootCmd(rootLogger, logger).ExecuteContext(ctx); err != nil {
		logger.WithField("err", err).Error("shutting down due to an error")
		cancelFn()
		os.Exit(1)
	}
}
