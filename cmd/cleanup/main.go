package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/yomogy/swa-role-sync/internal/cleanup"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	os.Exit(cleanup.New(log).Run(context.Background()))
}
