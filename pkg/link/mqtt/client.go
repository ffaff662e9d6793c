// Package mqtt implements the wireless link over an MQTT broker.
//
// A vehicle named TYPE/ID uses the topics (under the URL path prefix):
//
//	TYPE/ID/rx    payloads to the vehicle
//	TYPE/ID/tx    payloads from the vehicle
//	TYPE/ID/meta  retained announcement while advertising
package mqtt

import (
	"net/url"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

// Handler is the callback when a message is received.
type Handler func(topic string, payload []byte)

// ConnectHandler is to handle connect/disconnect events.
type ConnectHandler func(*Client)

// Client wraps the MQTT client with topic prefix and subscriptions
// restored after reconnecting.
type Client struct {
	Client       paho.Client
	TopicPrefix  string
	OnConnect    ConnectHandler
	OnDisconnect ConnectHandler

	subsLock sync.RWMutex
	subs     map[string][]*Subscription
}

// Subscription is a subscribed topic pattern.
type Subscription struct {
	Token paho.Token

	client  *Client
	pattern string
	handler Handler
}

// MatchTopic matches topic with pattern.
func MatchTopic(topic, pattern string) bool {
	tokensT, tokensP := strings.Split(topic, "/"), strings.Split(pattern, "/")
	for i, token := range tokensP {
		if token == "#" && i+1 == len(tokensP) {
			return true
		}
		if i >= len(tokensT) {
			return false
		}
		if token != "+" && token != tokensT[i] {
			return false
		}
	}
	return len(tokensP) == len(tokensT)
}

// ClientOptionsFromURL creates ClientOptions from URL.
// The URL path is the topic prefix, e.g. mqtt://host:1883/tinyrc/.
func ClientOptionsFromURL(serverURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, "", err
	}
	scheme := u.Scheme
	switch scheme {
	case "", "mqtt":
		scheme = "tcp"
	case "mqtts":
		scheme = "ssl"
	}

	topicPrefix := strings.TrimPrefix(u.Path, "/")
	if topicPrefix != "" && !strings.HasSuffix(topicPrefix, "/") {
		topicPrefix += "/"
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(scheme + "://" + u.Host).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	if clientID := u.Query().Get("client-id"); clientID != "" {
		opts.SetClientID(clientID)
	}
	return opts, topicPrefix, nil
}

// NewClient creates a Client.
func NewClient(options *paho.ClientOptions, topicPrefix string) *Client {
	c := &Client{TopicPrefix: topicPrefix}
	options.SetOnConnectHandler(c.onConnect)
	options.SetConnectionLostHandler(c.onConnectionLost)
	c.Client = paho.NewClient(options)
	return c
}

// NewClientFromURL creates a Client from URL.
func NewClientFromURL(brokerURL string) (*Client, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return NewClient(opts, topicPrefix), nil
}

// Connect connects the client.
func (c *Client) Connect() paho.Token {
	return c.Client.Connect()
}

// Connected indicates the connection to the broker is up.
func (c *Client) Connected() bool {
	return c.Client.IsConnected()
}

// Close implements io.Closer.
func (c *Client) Close() error {
	c.Client.Disconnect(250)
	return nil
}

// Sub subscribes a topic pattern relative to TopicPrefix.
func (c *Client) Sub(pattern string, handler Handler) *Subscription {
	sub := &Subscription{client: c, pattern: pattern, handler: handler}
	c.subsLock.Lock()
	if c.subs == nil {
		c.subs = make(map[string][]*Subscription)
	}
	first := len(c.subs[pattern]) == 0
	c.subs[pattern] = append(c.subs[pattern], sub)
	c.subsLock.Unlock()

	if first {
		glog.V(2).Infof("SUB %q", c.TopicPrefix+pattern)
		sub.Token = c.Client.Subscribe(c.TopicPrefix+pattern, 0, c.dispatch)
	} else {
		sub.Token = &paho.DummyToken{}
	}
	return sub
}

// Pub publishes to a topic.
func (c *Client) Pub(topic string, payload []byte) paho.Token {
	return c.PubWith(topic, payload, 0, false)
}

// PubWith publishes with QoS and retain settings.
func (c *Client) PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token {
	return c.Client.Publish(c.TopicPrefix+topic, qos, retain, payload)
}

// Resubscribe subscribes all existing patterns, used after reconnecting.
func (c *Client) Resubscribe() paho.Token {
	filters := make(map[string]byte)
	c.subsLock.RLock()
	for pattern := range c.subs {
		filters[c.TopicPrefix+pattern] = 0
	}
	c.subsLock.RUnlock()
	if len(filters) == 0 {
		return &paho.DummyToken{}
	}
	if glog.V(2) {
		for key := range filters {
			glog.Infof("SUB %q", key)
		}
	}
	return c.Client.SubscribeMultiple(filters, c.dispatch)
}

func (c *Client) onConnect(paho.Client) {
	glog.Info("mqtt connected")
	c.Resubscribe()
	if h := c.OnConnect; h != nil {
		h(c)
	}
}

func (c *Client) onConnectionLost(_ paho.Client, err error) {
	glog.Warningf("mqtt connection lost: %v", err)
	if h := c.OnDisconnect; h != nil {
		h(c)
	}
}

func (c *Client) dispatch(_ paho.Client, msg paho.Message) {
	c.deliver(msg.Topic(), msg.Payload())
}

func (c *Client) deliver(topic string, payload []byte) {
	if !strings.HasPrefix(topic, c.TopicPrefix) {
		return
	}
	topic = topic[len(c.TopicPrefix):]
	glog.V(2).Infof("RCV %q", topic)
	var handlers []Handler
	c.subsLock.RLock()
	for pattern, subs := range c.subs {
		if MatchTopic(topic, pattern) {
			for _, sub := range subs {
				handlers = append(handlers, sub.handler)
			}
		}
	}
	c.subsLock.RUnlock()
	for _, h := range handlers {
		h(topic, payload)
	}
}

// Close unsubscribes the handler.
func (s *Subscription) Close() error {
	c := s.client
	var unsub bool
	c.subsLock.Lock()
	subs := c.subs[s.pattern]
	for n, sub := range subs {
		if sub == s {
			subs = append(subs[:n], subs[n+1:]...)
			break
		}
	}
	if unsub = len(subs) == 0; unsub {
		delete(c.subs, s.pattern)
	} else {
		c.subs[s.pattern] = subs
	}
	c.subsLock.Unlock()
	if !unsub || !c.Client.IsConnected() {
		return nil
	}
	glog.V(2).Infof("UNSUB %q", s.pattern)
	token := c.Client.Unsubscribe(c.TopicPrefix + s.pattern)
	token.Wait()
	return token.Error()
}
