/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package drivers

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Comcast/rxfsm/stream"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig follows mosquitto_sub's options.
type MQTTConfig struct {
	Broker    string        `yaml:"broker"`
	ClientId  string        `yaml:"clientId"`
	KeepAlive time.Duration `yaml:"keepAlive"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	Clean     bool          `yaml:"clean"`
	Reconnect bool          `yaml:"reconnect"`
	Insecure  bool          `yaml:"insecure"`

	// Quiesce is the disconnection quiescence in milliseconds.
	Quiesce uint `yaml:"quiesce"`

	// SubTopics are subscriptions of the form TOPIC or TOPIC:QOS.
	SubTopics []string `yaml:"topics"`

	// InjectTopic puts the topic in the map of incoming messages.
	InjectTopic bool `yaml:"injectTopic"`

	// WrapWithTopic wraps non-maps in a map along with the topic.
	WrapWithTopic bool `yaml:"wrapWithTopic"`

	// DefaultOutboundTopic is used for requests without a topic.
	DefaultOutboundTopic string `yaml:"defaultOutboundTopic"`
}

// NewClient makes (but doesn't connect) a Paho client.
func (c *MQTTConfig) NewClient(log *slog.Logger) mqtt.Client {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.Broker)
	opts.SetClientID(c.ClientId)
	if 0 < c.KeepAlive {
		opts.SetKeepAlive(c.KeepAlive)
	}
	opts.Username = c.Username
	opts.Password = c.Password
	opts.AutoReconnect = c.Reconnect
	opts.CleanSession = c.Clean
	opts.SetTLSConfig(&tls.Config{
		InsecureSkipVerify: c.Insecure,
	})
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Warn("MQTT connection lost", "error", err)
	}
	return mqtt.NewClient(opts)
}

// ParseTopic extracts the QoS from a topic of the form TOPIC:QOS.
func ParseTopic(s string) (string, byte) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return s, 0
	}
	n, err := strconv.ParseUint(s[i+1:], 10, 8)
	if err != nil || 2 < n {
		return s, 0
	}
	return s[:i], byte(n)
}

// Incoming turns a received message into a source value.
func (c *MQTTConfig) Incoming(topic string, payload []byte) interface{} {
	var x interface{}
	if err := json.Unmarshal(payload, &x); err != nil {
		x = string(payload)
	}
	if m, is := x.(map[string]interface{}); is {
		if c.InjectTopic {
			m["topic"] = topic
		}
		return m
	}
	if c.WrapWithTopic {
		return map[string]interface{}{
			"topic":   topic,
			"payload": x,
		}
	}
	return x
}

// Outgoing gives the topic, QoS and payload for a request.
//
// A request that's a map can say "topic" and "qos" and, if it has
// one, its "payload" is published instead of the whole request.
func (c *MQTTConfig) Outgoing(x interface{}) (string, byte, []byte, error) {
	topic, qos := ParseTopic(c.DefaultOutboundTopic)
	if m, is := x.(map[string]interface{}); is {
		if s, is := m["topic"].(string); is {
			topic = s
		}
		if f, is := m["qos"].(float64); is {
			qos = byte(f)
		}
		if p, have := m["payload"]; have {
			x = p
		}
	}
	js, err := json.Marshal(&x)
	if err != nil {
		return "", 0, nil, err
	}
	return topic, qos, js, nil
}

// MQTT couples a machine to a broker.
type MQTT struct {
	Config *MQTTConfig
	Client mqtt.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (d *MQTT) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// Driver returns the Driver.  The client connects and subscribes
// right away and disconnects when the context is done.
func (d *MQTT) Driver() Driver {
	return func(ctx context.Context, requests stream.Stream) stream.Stream {
		log := d.logger()

		if d.Client == nil {
			d.Client = d.Config.NewClient(log)
		}

		log.Info("connecting to broker", "broker", d.Config.Broker)
		if t := d.Client.Connect(); t.Wait() && t.Error() != nil {
			return stream.Throw(fmt.Errorf("MQTT connect: %w", t.Error()))
		}

		out := stream.NewSubject()
		handler := func(client mqtt.Client, msg mqtt.Message) {
			log.Debug("incoming", "topic", msg.Topic(), "payload", string(msg.Payload()))
			out.Next(d.Config.Incoming(msg.Topic(), msg.Payload()))
		}

		for _, topic := range d.Config.SubTopics {
			topic, qos := ParseTopic(topic)
			if topic == "" {
				continue
			}
			log.Info("subscribing", "topic", topic, "qos", qos)
			if t := d.Client.Subscribe(topic, qos, handler); t.Wait() && t.Error() != nil {
				return stream.Throw(fmt.Errorf("MQTT subscribe %s: %w", topic, t.Error()))
			}
		}

		sub := requests.Subscribe(stream.Funcs{
			OnNext: func(x interface{}) {
				topic, qos, js, err := d.Config.Outgoing(x)
				if err != nil {
					log.Error("can't serialize", "error", err)
					return
				}
				t := d.Client.Publish(topic, qos, false, js)
				t.Wait()
				if err := t.Error(); err != nil {
					out.Error(fmt.Errorf("MQTT publish: %w", err))
				}
			},
		})

		go func() {
			<-ctx.Done()
			sub.Unsubscribe()
			d.Client.Disconnect(d.Config.Quiesce)
		}()

		return out
	}
}
