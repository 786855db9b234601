package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/sevlyar/go-daemon"
)

const daemonName = "sntpmond"

var daemonCtx = &daemon.Context{
	PidFileName: fmt.Sprintf("/var/run/%s.pid", daemonName),
	PidFilePerm: 0644,
	LogFileName: fmt.Sprintf("/var/log/%s.log", daemonName),
	LogFilePerm: 0640,
	WorkDir:     "./",
	Umask:       027,
	Args:        append([]string{daemonName}, os.Args[1:]...),
}

func killDaemon() error {
	process, err := daemonCtx.Search()
	if err != nil {
		return fmt.Errorf("finding daemon: %w", err)
	}

	if err := syscall.Kill(process.Pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("stopping daemon: %w", err)
	}
	return nil
}
