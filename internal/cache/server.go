package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"
)

// Serve accepts daemon connections on l and answers them from kv until l is
// closed. It returns nil once the listener has been closed.
func Serve(l net.Listener, kv KV) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			continue
		}
		go handleConn(conn, kv)
	}
}

func handleConn(conn net.Conn, kv KV) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}
		_ = enc.Encode(handle(context.Background(), kv, req))
	}
}

func handle(ctx context.Context, kv KV, req Request) Response {
	var err error
	switch req.Op {
	case OpGet:
		var v []byte
		if v, err = kv.Get(ctx, req.Key); err == nil {
			return Response{OK: true, Value: v}
		}
	case OpPut:
		err = kv.Put(ctx, req.Key, req.Value, time.Duration(req.TTLSeconds)*time.Second)
	case OpDelete:
		err = kv.Delete(ctx, req.Key)
	default:
		err = errors.New("unknown op")
	}
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	return Response{OK: true}
}
