package main

import (
	"contact-relay/client"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

type Config struct {
	RelayURL string `envconfig:"RELAY_URL" default:"http://localhost:5000"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "relayctl: %v\n", err)
	}
	os.Exit(code)
}

// run prints the relay counters and the contact lists of online users.
func run() (int, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stats, err := client.New(config.RelayURL).Stats(ctx)
	if err != nil {
		return exitRuntime, err
	}

	counters := tablewriter.NewWriter(os.Stdout)
	counters.SetHeader([]string{"Metric", "Value"})
	counters.SetAlignment(tablewriter.ALIGN_LEFT)
	counters.AppendBulk([][]string{
		{"online users", fmt.Sprint(stats.OnlineUsers)},
		{"open sockets", fmt.Sprint(stats.OpenSockets)},
		{"connections", fmt.Sprint(stats.Connections)},
		{"logins", fmt.Sprint(stats.Logins)},
		{"logins rejected", fmt.Sprint(stats.LoginRejected)},
		{"friend requests", fmt.Sprint(stats.FriendRequests)},
		{"friend responses", fmt.Sprint(stats.FriendResponses)},
		{"messages relayed", fmt.Sprint(stats.MessagesRelayed)},
		{"messages dropped", fmt.Sprint(stats.MessagesDropped)},
		{"messages censored", fmt.Sprint(stats.MessagesCensored)},
		{"leave notifications", fmt.Sprint(stats.LeaveNotified)},
		{"pushes dropped", fmt.Sprint(stats.PushesDropped)},
		{"protocol errors", fmt.Sprint(stats.ProtocolErrors)},
		{"rss (bytes)", fmt.Sprint(stats.RSSBytes)},
		{"cpu (%)", fmt.Sprintf("%.2f", stats.CPUPercent)},
		{"goroutines", fmt.Sprint(stats.Goroutines)},
		{"started at", stats.StartedAt},
	})
	counters.Render()

	contacts := tablewriter.NewWriter(os.Stdout)
	contacts.SetHeader([]string{"User", "Contacts"})
	contacts.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, user := range stats.Online {
		names := make([]string, 0, len(stats.Contacts[user]))
		for _, contact := range stats.Contacts[user] {
			names = append(names, string(contact))
		}
		sort.Strings(names)
		contacts.Append([]string{string(user), strings.Join(names, ", ")})
	}
	contacts.Render()

	return exitOK, nil
}
