package main

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"

	"crushsim/internal/sockutil"
	"crushsim/internal/transport"
)

// serve accepts connections on socketPath until ctx is cancelled, handing
// each newline-delimited frame to handler and writing back its response
// on the same connection. Handler already serializes concurrent Handle
// calls, so connections are served on their own goroutines.
func serve(ctx context.Context, socketPath string, handler *transport.Handler) error {
	ln, err := sockutil.Listen(socketPath)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	slog.Info("crushsimd listening", "socket", socketPath)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go serveConn(conn, handler)
	}
}

func serveConn(conn net.Conn, handler *transport.Handler) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		resp, err := handler.Handle(line)
		if err != nil {
			slog.Warn("frame handling failed", "err", err)
			continue
		}
		resp = append(resp, '\n')
		if _, err := conn.Write(resp); err != nil {
			slog.Warn("write response failed", "err", err)
			return
		}
	}
}
