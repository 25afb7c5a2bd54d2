package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/matheus3301/chatline/internal/paths"
	"github.com/matheus3301/chatline/internal/rpc"
	"github.com/matheus3301/chatline/internal/tui"
)

func main() {
	homeFlag := flag.String("home", paths.DefaultRoot(), "daemon data directory")
	noStart := flag.Bool("no-start", false, "fail instead of starting chatlined when it is not running")
	flag.Parse()

	socketPath := paths.New(*homeFlag).SocketPath()

	if !probeDaemon(socketPath) {
		if *noStart {
			fmt.Fprintf(os.Stderr, "error: daemon not running at %s\n", socketPath)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "daemon not running in %s, starting...\n", *homeFlag)
		if err := startDaemon(*homeFlag); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start daemon: %v\n", err)
			os.Exit(1)
		}
		if !waitForDaemon(socketPath, 10*time.Second) {
			fmt.Fprintf(os.Stderr, "daemon did not become ready\n")
			os.Exit(1)
		}
	}

	c, err := rpc.Dial(socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to daemon: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	if err := tui.NewApp(c).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// probeDaemon makes a real RPC; a socket file alone may be stale.
func probeDaemon(socketPath string) bool {
	c, err := rpc.Dial(socketPath)
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = c.Connection.GetState(ctx, &rpc.Empty{})
	return err == nil
}

func startDaemon(home string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	daemon := filepath.Join(filepath.Dir(executable), "chatlined")
	if _, err := os.Stat(daemon); err != nil {
		daemon = "chatlined"
	}

	cmd := exec.Command(daemon, "--home", home)
	cmd.Stderr = os.Stderr
	return cmd.Start()
}

func waitForDaemon(socketPath string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if probeDaemon(socketPath) {
			return true
		}
		time.Sleep(300 * time.Millisecond)
	}
	return false
}
