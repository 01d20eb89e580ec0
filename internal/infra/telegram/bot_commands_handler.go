package telegram

import (
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterBotCommands installs /start and /help. Only the operator gets the command list.
func RegisterBotCommands(b *telebot.Bot, adminID int64, baseLogger *logrus.Entry) {
	b.Handle("/start", StartHandler(adminID, baseLogger))
	b.Handle("/help", HelpHandler(adminID, baseLogger))
}

func StartHandler(adminID int64, baseLogger *logrus.Entry) telebot.HandlerFunc {
	log := baseLogger.WithField("command", "/start")
	return func(c telebot.Context) error {
		log.WithField("sender_id", c.Sender().ID).Info("Processing /start command")
		if c.Sender().ID == adminID {
			return c.Send("Hello, " + c.Sender().FirstName + "! Outreach notifications will arrive here. Use /help for the command list.")
		}
		return c.Send("This bot only serves the outreach operator.")
	}
}

func HelpHandler(adminID int64, baseLogger *logrus.Entry) telebot.HandlerFunc {
	log := baseLogger.WithField("command", "/help")
	return func(c telebot.Context) error {
		log.WithField("sender_id", c.Sender().ID).Info("Processing /help command")
		if c.Sender().ID != adminID {
			return c.Send("No commands are available to you.")
		}

		var help strings.Builder
		help.WriteString("Operator commands:\n\n")
		help.WriteString("`/run_scheduler`\n - Run an outreach pass now.\n\n")
		help.WriteString("`/project_stats <ProjectID>`\n - Show sent, responses and response rate of a project.\n\n")
		help.WriteString("`/reactivate <MessageID>`\n - Resume a message flagged unresponsive.\n\n")
		help.WriteString("`/mark_responded <MessageID>`\n - Record a reply received outside the webhook.\n\n")
		help.WriteString("`/help`\n - Show this message.")
		return c.Send(help.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	}
}
