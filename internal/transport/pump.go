package transport

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/ndbaker1/BONK/internal/apperrors"
	"github.com/ndbaker1/BONK/internal/logger"
	"github.com/ndbaker1/BONK/internal/protocol"
	"github.com/ndbaker1/BONK/internal/protocol/codec"
)

// readPump 从服务器读取消息并按顺序分发
func (c *Client) readPump(conn *connection) {
	var readErr error
	defer c.handleReadExit(conn, &readErr)

	c.setupPongHandler(conn)

	for {
		_, message, err := conn.ws.ReadMessage()
		if err != nil {
			readErr = err
			return
		}

		ev, err := codec.DecodeServerEvent(message)
		if err != nil {
			logger.LogError("消息解析错误: %v", err)
			if conn.callbacks.OnError != nil {
				conn.callbacks.OnError(apperrors.Wrap(apperrors.ErrMalformedMessage, err))
			}
			continue
		}

		c.dispatch(ev)
	}
}

// dispatch 单个处理器 panic 不影响后续事件
func (c *Client) dispatch(ev *protocol.ServerEvent) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
			logger.LogError("handler for %v panicked: %v", ev.EventCode, r)
		}
	}()
	if c.sink != nil {
		c.sink.Dispatch(ev)
	}
}

// handleReadExit 必须直接 defer，recover 才能生效
func (c *Client) handleReadExit(conn *connection, errp *error) {
	if r := recover(); r != nil {
		logger.LogPanic(r)
		logger.LogError("readPump panic recovered: %v", r)
	}
	defer close(conn.notified)
	err := *errp

	// open 已为 false 说明关闭由本端发起
	requested := !conn.open.Swap(false)
	conn.stopWriter()
	_ = conn.ws.Close()
	close(conn.done)

	// 已被新的 Connect 接管时由 Connect 通知调用方
	if !conn.closeClaimed.CompareAndSwap(false, true) {
		return
	}

	if !requested && !isExpectedClose(err) {
		logger.LogError("connection %s closed: %v", conn.identity, err)
		if conn.callbacks.OnError != nil {
			conn.callbacks.OnError(err)
		}
	} else {
		logger.LogInfo("connection %s closed", conn.identity)
	}
	if conn.callbacks.OnClose != nil {
		conn.callbacks.OnClose()
	}
}

func (c *Client) setupPongHandler(conn *connection) {
	_ = conn.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	conn.ws.SetPongHandler(func(string) error {
		_ = conn.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		return nil
	})
}

// writePump 向服务器写入消息
func (c *Client) writePump(conn *connection) {
	ticker := time.NewTicker(c.opts.pingPeriod())
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
			logger.LogError("writePump panic recovered: %v", r)
		}
		ticker.Stop()
		// 写失败时关闭底层连接，readPump 随之退出
		_ = conn.ws.Close()
	}()

	for {
		select {
		case message := <-conn.send:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := conn.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.LogError("write to %s failed: %v", conn.identity, err)
				return
			}

		case <-ticker.C:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-conn.stop:
			return
		}
	}
}
