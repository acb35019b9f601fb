package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"ping-me/internal/client"
)

func main() {
	server := flag.String("server", "http://localhost:8083", "ping-me base url")
	token := flag.String("token", os.Getenv("PING_ME_TOKEN"), "bearer token")
	self := flag.String("user", os.Getenv("PING_ME_USER"), "your user id")
	flag.Parse()

	if *token == "" || *self == "" {
		fmt.Fprintln(os.Stderr, "both -token and -user are required")
		os.Exit(2)
	}

	ctx := context.Background()
	stream, err := client.DialStream(ctx, *server, *token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer stream.Close()

	notices := make(chan error, 16)
	store := client.NewStore(client.NewHTTPAPI(*server, *token), *self, func(err error) {
		select {
		case notices <- err:
		default:
		}
	})

	p := tea.NewProgram(newModel(store, stream, notices), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("ping-me: %v\n", err)
		os.Exit(1)
	}
}
