package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/trezcool/mahudhurio/apps/container"
	"github.com/trezcool/mahudhurio/core"
)

func main() {
	logger := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	// set up services; the CLI exits right away so notifications are delivered inline
	c, err := container.New(core.Conf, container.Options{
		LogPrefix:      "ADMIN : ",
		SkipMigrations: true,
		Queue:          container.QueueInline,
	})
	if err != nil {
		logger.Fatal(err)
	}

	var db *sql.DB
	if c.DB() != nil {
		db = c.DB().DB
	}

	// start CLI
	cli := commandLine{
		db:     db,
		usrSvc: c.UserSvc,
		jobs:   c.Jobs,
	}
	err = cli.run(os.Args)
	if err != nil && err != errHelp {
		logger.Printf("\nerror: %s\n", err)
	}
	if cerr := c.Close(); cerr != nil {
		logger.Printf("closing: %s\n", cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}
