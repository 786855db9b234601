package monitor

import (
	"errors"
	"net"
	"net/rpc"
	"os"
)

// RPCServer exposes the monitor's samples on a unix socket so the status
// UI can inspect a running daemon.
type RPCServer struct {
	Socket  string
	Monitor *Monitor
}

func (s *RPCServer) Listen() error {
	if err := rpc.Register(s); err != nil {
		return err
	}

	err := os.Remove(s.Socket)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	l, err := net.Listen("unix", s.Socket)
	if err != nil {
		return err
	}

	for {
		rpc.Accept(l)
	}
}

func (s *RPCServer) FetchLatest(args int, reply *[]Sample) error {
	*reply = s.Monitor.Latest()
	return nil
}

func (s *RPCServer) FetchHistory(server string, reply *[]Sample) error {
	*reply = s.Monitor.History(server)
	return nil
}
