package main

import (
	"bufio"
	"contact-relay/client"
	"contact-relay/domain"
	"contact-relay/domain/event"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

type Config struct {
	RelayURL string `envconfig:"RELAY_URL" default:"http://localhost:5000"`
	Username string `envconfig:"RELAY_USERNAME" required:"true"`
	// RELAY_COLOURS enables colorized output
	Colours bool `envconfig:"RELAY_COLOURS" default:"true"`
}

const usage = `commands:
  /add <user>       send a contact request
  /accept <user>    accept a request
  /decline <user>   decline a request
  /msg <user> text  send a message
  /quit`

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	color.Enable = config.Colours

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(config.RelayURL)
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	id, err := c.Connect(connectCtx)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = c.Close() }()

	if err := c.Login(connectCtx, config.Username); err != nil {
		return exitRuntime, fmt.Errorf("login failed: %w", err)
	}
	color.Green.Printf(">>> Connected to %s as %s (%s)\n", config.RelayURL, config.Username, id)
	fmt.Println(usage)

	go printFrames(c.Frames())

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return exitOK, nil
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			quit, err := execute(ctx, c, line)
			if err != nil {
				color.Red.Println(err)
			}
			if quit {
				return exitOK, nil
			}
		}
	}
}

func execute(ctx context.Context, c *client.Client, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	callCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	switch {
	case fields[0] == "/quit":
		return true, nil
	case fields[0] == "/add" && len(fields) == 2:
		return false, c.AddUser(callCtx, fields[1])
	case fields[0] == "/accept" && len(fields) == 2:
		return false, c.Respond(callCtx, fields[1], domain.StatusAccepted)
	case fields[0] == "/decline" && len(fields) == 2:
		return false, c.Respond(callCtx, fields[1], domain.StatusDeclined)
	case fields[0] == "/msg" && len(fields) >= 3:
		return false, c.Send(fields[1], strings.Join(fields[2:], " "))
	default:
		fmt.Println(usage)
		return false, nil
	}
}

func printFrames(frames <-chan event.InboundFrame) {
	for frame := range frames {
		clock := time.Now().Format(time.TimeOnly)
		switch frame.Event {
		case event.NameMessage:
			var msg event.MessagePayload
			_ = json.Unmarshal(frame.Data, &msg)
			fmt.Printf("[%s] %s: %s\n", clock, color.Cyan.Render(msg.From), msg.MessageText)
		case event.NameRequest:
			var from string
			_ = json.Unmarshal(frame.Data, &from)
			color.Yellow.Printf("[%s] %s wants to add you (/accept %s)\n", clock, from, from)
		case event.NameResponse:
			var resp event.ResponsePayload
			_ = json.Unmarshal(frame.Data, &resp)
			color.Yellow.Printf("[%s] %s %s your request\n", clock, resp.From, resp.Status)
		case event.NameLeave:
			var who string
			_ = json.Unmarshal(frame.Data, &who)
			color.Gray.Printf("[%s] %s left\n", clock, who)
		}
	}
	color.Red.Println("Connection closed")
}
