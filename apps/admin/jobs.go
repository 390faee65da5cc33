package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) runJob(name string) error {
	res, err := cli.jobs.Run(context.Background(), name)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d affected\n", res.Job, res.Affected)
	return nil
}
