package bot

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	twitchIRCURL = "wss://irc-ws.chat.twitch.tv:443"

	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 10240 // 10KB

	// Reconnect backoff bounds
	minBackoff = time.Second
	maxBackoff = time.Minute
)

// Client maintains an anonymous read-only IRC connection to one Twitch
// channel and hands every PRIVMSG to the message callback. Anonymous
// (justinfan) connections cannot send chat, which is all this bot needs.
type Client struct {
	url     string
	channel string
	onMsg   func(*Message)

	mu   sync.Mutex
	conn *websocket.Conn
	done chan struct{}
	once sync.Once
}

func NewClient(channel string, onMsg func(*Message)) *Client {
	return &Client{
		url:     twitchIRCURL,
		channel: strings.ToLower(channel),
		onMsg:   onMsg,
		done:    make(chan struct{}),
	}
}

// Run connects and reads until Stop is called, reconnecting with backoff
// on any connection failure. Intended to run on its own goroutine.
func (c *Client) Run() {
	backoff := minBackoff
	for {
		select {
		case <-c.done:
			return
		default:
		}

		if err := c.connect(); err != nil {
			log.Printf("Chat bot [%s]: connect failed: %v (retrying in %v)", c.channel, err, backoff)
			select {
			case <-c.done:
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		backoff = minBackoff
		log.Printf("Chat bot [%s]: connected", c.channel)
		c.readLoop()
	}
}

// Stop closes the connection and ends the Run loop.
func (c *Client) Stop() {
	c.once.Do(func() { close(c.done) })
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.Unlock()
}

func (c *Client) connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return err
	}
	conn.SetReadLimit(maxMessageSize)

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	nick := fmt.Sprintf("justinfan%d", 10000+rand.Intn(89999))
	for _, line := range []string{
		"CAP REQ :twitch.tv/tags twitch.tv/commands",
		"NICK " + nick,
		"JOIN #" + c.channel,
	} {
		if err := c.write(line); err != nil {
			conn.Close()
			return err
		}
	}
	return nil
}

func (c *Client) readLoop() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				log.Printf("Chat bot [%s]: read error: %v", c.channel, err)
			}
			return
		}

		// Twitch may batch several IRC lines into one frame
		for _, line := range strings.Split(string(data), "\r\n") {
			m := parseLine(line)
			if m == nil {
				continue
			}
			switch m.Command {
			case "PING":
				c.write("PONG :" + m.Text)
			case "RECONNECT":
				log.Printf("Chat bot [%s]: server requested reconnect", c.channel)
				return
			case "PRIVMSG":
				c.onMsg(m)
			}
		}
	}
}

func (c *Client) write(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return websocket.ErrCloseSent
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, []byte(line))
}
