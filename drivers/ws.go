/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
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
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/Comcast/rxfsm/stream"

	"github.com/gorilla/websocket"
)

// WebSocket is a client connection.  Requests are written as JSON
// text messages, and received JSON messages become source values.
type WebSocket struct {
	URL string

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	sync.Mutex
	conn *websocket.Conn
}

func (c *WebSocket) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c *WebSocket) write(x interface{}) error {
	js, err := json.Marshal(&x)
	if err != nil {
		return err
	}
	c.Lock()
	defer c.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, js)
}

// Driver returns the Driver.  The connection is made right away, and
// it's closed when the context is done.  A failure to connect fails
// the source.
func (c *WebSocket) Driver() Driver {
	return func(ctx context.Context, requests stream.Stream) stream.Stream {
		dialer := c.Dialer
		if dialer == nil {
			dialer = websocket.DefaultDialer
		}

		c.logger().Info("wsconnect", "url", c.URL)
		conn, _, err := dialer.DialContext(ctx, c.URL, nil)
		if err != nil {
			return stream.Throw(err)
		}
		c.conn = conn

		out := stream.NewSubject()

		sub := requests.Subscribe(stream.Funcs{
			OnNext: func(x interface{}) {
				if err := c.write(x); err != nil {
					c.logger().Error("websocket write", "error", err)
				}
			},
		})

		go func() {
			<-ctx.Done()
			sub.Unsubscribe()
			conn.Close()
		}()

		go func() {
			for {
				_, bs, err := conn.ReadMessage()
				if err != nil {
					if ctx.Err() == nil {
						out.Error(err)
					}
					return
				}
				if len(bs) == 0 {
					continue
				}
				var msg interface{}
				if err = json.Unmarshal(bs, &msg); err != nil {
					c.logger().Warn("websocket bad message", "message", string(bs), "error", err)
					continue
				}
				out.Next(msg)
			}
		}()

		return out
	}
}
