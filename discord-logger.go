package main

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// Routes discordgo's internal logging through logrus
type discordLogger struct {
	log *logrus.Logger
}

func (l *discordLogger) Print(msgL, caller int, format string, a ...interface{}) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("Recovered in ", r)
		}
	}()

	entry := l.log.WithField("prefix", "discordgo")
	msg := fmt.Sprintf(format, a...)

	switch msgL {
	case discordgo.LogError:
		entry.Error(msg)
	case discordgo.LogWarning:
		entry.Warn(msg)
	case discordgo.LogInformational:
		entry.Info(msg)
	default:
		entry.Debug(msg)
	}
}

// Level for discordgo matching the logrus level, discordgo filters below it
func discordLogLevel(lvl logrus.Level) int {
	switch {
	case lvl >= logrus.DebugLevel:
		return discordgo.LogDebug
	case lvl >= logrus.InfoLevel:
		return discordgo.LogInformational
	case lvl >= logrus.WarnLevel:
		return discordgo.LogWarning
	default:
		return discordgo.LogError
	}
}

func wrapLogrus(log *logrus.Logger) *discordLogger {
	return &discordLogger{log: log}
}
