// Package dispatch routes decoded server events to per-code handlers.
package dispatch

import (
	"sync"

	"github.com/ndbaker1/BONK/internal/logger"
	"github.com/ndbaker1/BONK/internal/protocol"
)

// Handler 事件处理函数，state 为共享的客户端上下文（非快照）
type Handler[S any] func(state S, ev *protocol.ServerEvent)

// Dispatcher 事件码 → 处理函数映射表
type Dispatcher[S any] struct {
	state S

	mu       sync.RWMutex
	handlers map[protocol.ServerEventCode]Handler[S]
}

// New 创建分发器，所有处理函数都收到同一个 state
func New[S any](state S) *Dispatcher[S] {
	return &Dispatcher[S]{
		state:    state,
		handlers: make(map[protocol.ServerEventCode]Handler[S]),
	}
}

// Register 注册处理函数，同一事件码重复注册时覆盖
func (d *Dispatcher[S]) Register(code protocol.ServerEventCode, h Handler[S]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[code] = h
}

// RegisterAll 批量注册
func (d *Dispatcher[S]) RegisterAll(handlers map[protocol.ServerEventCode]Handler[S]) {
	for code, h := range handlers {
		d.Register(code, h)
	}
}

// Handles 是否注册了该事件码
func (d *Dispatcher[S]) Handles(code protocol.ServerEventCode) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[code]
	return ok
}

// Dispatch 调用对应处理函数；未注册的事件码直接忽略
func (d *Dispatcher[S]) Dispatch(ev *protocol.ServerEvent) {
	if ev == nil {
		return
	}

	d.mu.RLock()
	h, ok := d.handlers[ev.EventCode]
	d.mu.RUnlock()

	if !ok {
		logger.LogDebug("no handler for %v, ignoring", ev.EventCode)
		return
	}
	h(d.state, ev)
}
