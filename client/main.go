// Interactive terminal client for the chat service. It mints a session token
// from the shared secret, opens the websocket with the session cookie, and
// renders the event stream; handy for driving the protocol by hand.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gardenly/chat-service/pkg/auth"
	"github.com/gardenly/chat-service/pkg/model"
)

func main() {
	serverAddr := flag.String("addr", "localhost:8082", "chat service address")
	secret := flag.String("secret", "dev_secret_change_me", "shared JWT secret")
	userID := flag.String("user", "user1", "user id")
	name := flag.String("name", "Gardener", "display name")
	color := flag.String("color", "#2e7d32", "display color")
	channelID := flag.String("channel", "", "channel id to send into")
	flag.Parse()

	verifier := auth.NewVerifier([]byte(*secret))
	token, err := verifier.GenerateToken(model.Identity{ID: *userID, Name: *name, Color: *color}, 24*time.Hour)
	if err != nil {
		log.Fatal("token:", err)
	}

	u := url.URL{Scheme: "ws", Host: *serverAddr, Path: "/ws"}
	log.Printf("connecting to %s", u.String())

	header := http.Header{}
	header.Add("Cookie", auth.SessionCookie+"="+token)

	c, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer c.Close()

	target := *channelID
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				log.Println("read:", err)
				return
			}
			render(raw)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				fmt.Print("> ")
				continue
			}

			if text == "/quit" {
				close(interrupt)
				return
			}

			event, ok := buildEvent(text, &target, *color)
			if !ok {
				fmt.Print("> ")
				continue
			}

			data, _ := json.Marshal(event)
			if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Println("write:", err)
				return
			}
			fmt.Print("> ")
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("interrupt")

			// Cleanly close the connection by sending a close message and
			// then waiting (with timeout) for the server to close it.
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("write close:", err)
				return
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		}
	}
}

// buildEvent turns one line of input into a client event. Slash commands
// cover everything that is not a plain send; ok is false when the line only
// changed local state or was malformed.
func buildEvent(text string, target *string, color string) (any, bool) {
	if !strings.HasPrefix(text, "/") {
		if *target == "" {
			fmt.Println("no channel selected, use /channel <id>")
			return nil, false
		}
		return map[string]string{
			"type":         model.EventMessage,
			"content":      text,
			"channelId":    *target,
			"displayColor": color,
		}, true
	}

	fields := strings.SplitN(text, " ", 3)
	switch fields[0] {
	case "/channel":
		if len(fields) < 2 {
			fmt.Println("usage: /channel <id>")
			return nil, false
		}
		*target = fields[1]
		fmt.Printf("sending to channel %s\n", *target)
		return nil, false
	case "/typing":
		if *target == "" {
			fmt.Println("no channel selected, use /channel <id>")
			return nil, false
		}
		return map[string]string{
			"type":         model.EventActivity,
			"channelId":    *target,
			"displayColor": color,
		}, true
	case "/edit":
		if len(fields) < 3 {
			fmt.Println("usage: /edit <message-id> <new content>")
			return nil, false
		}
		return map[string]string{
			"type":       model.EventEditMessage,
			"messageId":  fields[1],
			"newContent": fields[2],
		}, true
	case "/delete":
		if len(fields) < 2 {
			fmt.Println("usage: /delete <message-id>")
			return nil, false
		}
		return map[string]string{
			"type":      model.EventDeleteMessage,
			"messageId": fields[1],
		}, true
	default:
		fmt.Println("commands: /channel /typing /edit /delete /quit")
		return nil, false
	}
}

// render prints one server event. Unknown shapes are dumped raw rather than
// dropped so protocol changes stay visible.
func render(raw []byte) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		fmt.Printf("\rraw: %s\n> ", raw)
		return
	}

	switch envelope.Type {
	case model.EventInitialLoad:
		var ev model.InitialLoadEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return
		}
		fmt.Printf("\rchannels:\n")
		for _, ch := range ev.Channels {
			fmt.Printf("  %s  %s (garden %s)\n", ch.ID.Hex(), ch.Name, ch.GardenID)
		}
		fmt.Printf("history: %d messages\n", len(ev.Messages))
		for _, m := range ev.Messages {
			fmt.Printf("  %s [%s] %s: %s\n", m.ID.Hex(), m.ChannelName, m.Author, m.Content)
		}
		fmt.Print("> ")
	case model.EventText:
		var ev model.TextEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return
		}
		fmt.Printf("\r%s [%s] %s: %s\n> ", ev.ID.Hex(), ev.ChannelName, ev.Author, ev.Content)
	case model.EventEditMessage:
		var ev model.EditedEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return
		}
		fmt.Printf("\redited %s: %s\n> ", ev.ID.Hex(), ev.Content)
	case model.EventDeleteMessage:
		var ev model.DeletedEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return
		}
		fmt.Printf("\rdeleted %s\n> ", ev.ID.Hex())
	case model.EventActivity:
		var ev model.ActivityEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return
		}
		fmt.Printf("\r%s is typing...\n> ", ev.Payload.DisplayName)
	case model.EventError:
		var ev model.ErrorEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return
		}
		fmt.Printf("\r! %s failed: %s (%s)\n> ", ev.Op, ev.Reason, ev.Code)
	default:
		fmt.Printf("\rraw: %s\n> ", raw)
	}
}
