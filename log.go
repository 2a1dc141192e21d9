package main

import (
	"fmt"
	"path"

	"github.com/cenkalti/log"
)

type logFormatter struct{}

func (f logFormatter) Format(rec *log.Record) string {
	return fmt.Sprintf("%s [%s] %-8s %s:%d %s", rec.Time.Format("2006-01-02 15:04:05"), rec.LoggerName, rec.Level, path.Base(rec.Filename), rec.Line, rec.Message)
}

func init() {
	log.DefaultHandler.SetFormatter(logFormatter{})
}
