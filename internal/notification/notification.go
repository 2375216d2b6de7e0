/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package notification

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dispatchdesk/cashbook/config"
	"github.com/dispatchdesk/cashbook/internal/request"
	"github.com/sirupsen/logrus"
)

type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

// Field is a single labelled value shown in a Slack message.
type Field struct {
	Label string
	Value string
}

func buildMessage(title string, fields []Field, now time.Time) slackMessage {
	msg := slackMessage{Blocks: []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: title, Emoji: true}},
	}}
	for _, f := range append(fields, Field{Label: "Time", Value: now.Format(time.RFC822)}) {
		msg.Blocks = append(msg.Blocks, slackBlock{
			Type:   "section",
			Fields: []slackText{{Type: "mrkdwn", Text: fmt.Sprintf("*%s:*\n%s", f.Label, f.Value)}},
		})
	}
	return msg
}

// SendSlack posts a message to webhookURL and waits for the answer.
func SendSlack(ctx context.Context, webhookURL, title string, fields []Field) error {
	payload, err := request.ToJsonReq(buildMessage(title, fields, time.Now()))
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, payload)
	if err != nil {
		return err
	}

	_, err = request.Call(req, nil)
	return err
}

func webhookURL() (string, string) {
	conf, err := config.Fetch()
	if err != nil {
		return "", ""
	}
	return conf.Notification.Slack.WebhookUrl, conf.ProjectName
}

func send(title string, fields []Field) {
	url, _ := webhookURL()
	if url == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), request.DefaultTimeout)
	defer cancel()
	if err := SendSlack(ctx, url, title, fields); err != nil {
		logrus.WithError(err).Warn("failed to send slack notification")
	}
}

// NotifyError logs systemError and, when a Slack webhook is configured,
// reports it there. It never blocks the caller.
func NotifyError(systemError error) {
	go func(systemError error) {
		logrus.Error(systemError)
		_, project := webhookURL()
		send(fmt.Sprintf("Error From %s 🐞", project), []Field{{Label: "Error", Value: systemError.Error()}})
	}(systemError)
}

// NotifyDegraded reports that a report was served with one of its sources
// missing. It never blocks the caller.
func NotifyDegraded(dateRange string, transactions, deposits string) {
	go func() {
		logrus.WithFields(logrus.Fields{
			"range":        dateRange,
			"transactions": transactions,
			"deposits":     deposits,
		}).Warn("serving degraded report")
		_, project := webhookURL()
		send(fmt.Sprintf("Degraded report from %s ⚠️", project), []Field{
			{Label: "Range", Value: dateRange},
			{Label: "Transactions source", Value: transactions},
			{Label: "Deposits source", Value: deposits},
		})
	}()
}
