package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/trezcool/mahudhurio/apps/api/echo"
	"github.com/trezcool/mahudhurio/apps/container"
	"github.com/trezcool/mahudhurio/core"
)

func main() {
	conf := core.Conf

	// =========================================================================
	// Set up Dependencies

	c, err := container.New(conf, container.Options{LogPrefix: "API : "})
	if err != nil {
		panic(fmt.Sprintf("setting up dependencies: %v", err))
	}
	logger := c.Logger
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error(fmt.Sprintf("closing dependencies: %v", err), err)
		}
	}()

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Notifications Dispatcher

	ctx, stopDispatcher := context.WithCancel(context.Background())
	dispatcherDone := c.RunNotifications(ctx)
	defer func() {
		stopDispatcher()
		<-dispatcherDone
	}()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("dbEngine").Set(conf.Database.Engine)
	expvar.NewString("queueBackend").Set(conf.Queue.Backend)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(
		conf.Server.Address,
		shutdown,
		&echoapi.Deps{
			Logger:          logger,
			UserSvc:         c.UserSvc,
			ClassSvc:        c.ClassSvc,
			StudentSvc:      c.StudentSvc,
			AttendanceSvc:   c.AttendanceSvc,
			FeeSvc:          c.FeeSvc,
			NotificationSvc: c.NotificationSvc,
			Jobs:            c.Jobs,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
