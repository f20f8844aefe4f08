// Package codec converts wire frames to and from typed events.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ndbaker1/BONK/internal/protocol"
)

var (
	ErrEmptyFrame   = errors.New("empty frame")
	ErrMissingCode  = errors.New("missing event_code")
	ErrUnknownEvent = errors.New("unknown event_code")
)

// encode 使用池化缓冲区编码，返回的切片不与缓冲区共享
func encode(v any) ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if err := json.NewEncoder(buf).Encode(v); err != nil {
		return nil, err
	}
	// json.Encoder 会追加换行
	out := make([]byte, buf.Len()-1)
	copy(out, buf.Bytes())
	return out, nil
}

// EncodeClientEvent 编码客户端事件
func EncodeClientEvent(ev *protocol.ClientEvent) ([]byte, error) {
	if ev == nil {
		return nil, ErrEmptyFrame
	}
	if ev.EventCode == 0 {
		return nil, ErrMissingCode
	}
	data, err := encode(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.EventCode, err)
	}
	return data, nil
}

// DecodeServerEvent 解码服务端事件。未知事件码不算错误，由分发器忽略。
func DecodeServerEvent(data []byte) (*protocol.ServerEvent, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}
	var ev protocol.ServerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decode server event: %w", err)
	}
	if ev.EventCode == 0 {
		return nil, ErrMissingCode
	}
	return &ev, nil
}

// EncodeServerEvent 编码服务端事件（测试桩服务器与回放使用）
func EncodeServerEvent(ev *protocol.ServerEvent) ([]byte, error) {
	if ev == nil {
		return nil, ErrEmptyFrame
	}
	if ev.EventCode == 0 {
		return nil, ErrMissingCode
	}
	data, err := encode(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.EventCode, err)
	}
	return data, nil
}

// DecodeClientEvent 解码客户端事件，拒绝未定义的事件码
func DecodeClientEvent(data []byte) (*protocol.ClientEvent, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}
	var ev protocol.ClientEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decode client event: %w", err)
	}
	if ev.EventCode == 0 {
		return nil, ErrMissingCode
	}
	if ev.EventCode > protocol.PlayerAction {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEvent, ev.EventCode)
	}
	return &ev, nil
}

// MustEncodeServerEvent 编码失败时 panic，仅用于测试与常量事件
func MustEncodeServerEvent(ev *protocol.ServerEvent) []byte {
	data, err := EncodeServerEvent(ev)
	if err != nil {
		panic(err)
	}
	return data
}
