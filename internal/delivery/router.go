// Package delivery sends outbound messages to allow-listed endpoints. The
// transport is chosen by the endpoint scheme.
package delivery

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Message is one outbound delivery.
type Message struct {
	Destination string    `json:"destination"`
	Text        string    `json:"text"`
	SentAt      time.Time `json:"sent_at"`
}

const defaultDialTimeout = 30 * time.Second

// Sender delivers a message to an endpoint.
type Sender interface {
	Send(ctx context.Context, endpoint string, msg Message) error
}

// Router implements Sender over webhook, redis, amqp and log endpoints.
// Broker connections are opened on first use and reused until Close.
type Router struct {
	mu         sync.Mutex
	httpClient *http.Client
	redis      map[string]*redis.Client
	amqp       map[string]*amqp.Connection
	logger     *zap.Logger
}

// NewRouter creates a Router.
func NewRouter(timeout time.Duration, logger *zap.Logger) *Router {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		httpClient: &http.Client{Timeout: timeout},
		redis:      make(map[string]*redis.Client),
		amqp:       make(map[string]*amqp.Connection),
		logger:     logger,
	}
}

// Send delivers msg to endpoint.
func (r *Router) Send(ctx context.Context, endpoint string, msg Message) error {
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		err = r.sendWebhook(ctx, endpoint, msg)
	case "redis", "rediss":
		err = r.sendRedis(ctx, u, msg)
	case "amqp", "amqps":
		err = r.sendAMQP(ctx, u, msg)
	case "log":
		r.logger.Info("Message delivered",
			zap.String("destination", msg.Destination),
			zap.String("endpoint", endpoint),
			zap.String("text", msg.Text))
		return nil
	default:
		return fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}

	if err != nil {
		return err
	}
	r.logger.Debug("Message delivered",
		zap.String("destination", msg.Destination),
		zap.String("scheme", u.Scheme))
	return nil
}

// sendWebhook posts a Slack-style {"text": ...} payload.
func (r *Router) sendWebhook(ctx context.Context, endpoint string, msg Message) error {
	body, err := json.Marshal(map[string]string{"text": msg.Text})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

func (r *Router) sendRedis(ctx context.Context, u *url.URL, msg Message) error {
	addr, opts, channel := redisTarget(u, msg.Destination)

	r.mu.Lock()
	client, ok := r.redis[addr]
	if !ok {
		client = redis.NewClient(opts)
		r.redis[addr] = client
	}
	r.mu.Unlock()

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish to %s: %w", channel, err)
	}
	return nil
}

// redisTarget splits redis://[user:pass@]host:port/channel into a connection
// key, client options and the channel name.
func redisTarget(u *url.URL, fallback string) (string, *redis.Options, string) {
	opts := &redis.Options{Addr: u.Host}
	if u.User != nil {
		opts.Username = u.User.Username()
		opts.Password, _ = u.User.Password()
	}
	if u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{ServerName: u.Hostname(), MinVersion: tls.VersionTLS12}
	}

	channel := strings.Trim(u.Path, "/")
	if channel == "" {
		channel = fallback
	}
	return u.Scheme + "://" + u.Host, opts, channel
}

func (r *Router) sendAMQP(ctx context.Context, u *url.URL, msg Message) error {
	dialURL, queue := amqpTarget(u, msg.Destination)

	conn, err := r.amqpConn(ctx, dialURL)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open amqp channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	err = ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    msg.SentAt,
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("amqp publish to %s: %w", queue, err)
	}
	return nil
}

// amqpConn returns the cached connection for dialURL or dials a new one. The
// dial runs outside the lock and is bounded by ctx.
func (r *Router) amqpConn(ctx context.Context, dialURL string) (*amqp.Connection, error) {
	r.mu.Lock()
	conn, ok := r.amqp[dialURL]
	r.mu.Unlock()
	if ok && !conn.IsClosed() {
		return conn, nil
	}

	conn, err := amqp.DialConfig(dialURL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      contextDialer(ctx),
	})
	if err != nil {
		return nil, fmt.Errorf("connect amqp: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.amqp[dialURL]; ok && !existing.IsClosed() {
		_ = conn.Close()
		return existing, nil
	}
	r.amqp[dialURL] = conn
	return conn, nil
}

// contextDialer connects within ctx and bounds the AMQP handshake by the same
// deadline. The library clears the deadline once the connection is open.
func contextDialer(ctx context.Context) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		deadline, ok := ctx.Deadline()
		if !ok {
			deadline = time.Now().Add(defaultDialTimeout)
		}
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

// amqpTarget reads the queue from the "queue" query parameter, falling back to
// the destination name. The remaining URL is the broker address and vhost.
func amqpTarget(u *url.URL, fallback string) (string, string) {
	q := u.Query()
	queue := q.Get("queue")
	if queue == "" {
		queue = fallback
	}
	q.Del("queue")

	dial := *u
	dial.RawQuery = q.Encode()
	return dial.String(), queue
}

// Close releases broker connections.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for key, client := range r.redis {
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis %s: %w", key, err))
		}
		delete(r.redis, key)
	}
	for key, conn := range r.amqp {
		if !conn.IsClosed() {
			if err := conn.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close amqp: %w", err))
			}
		}
		delete(r.amqp, key)
	}
	return errors.Join(errs...)
}
