package main

import (
	"fmt"
	"os"

	cli "github.com/spf13/pflag"

	"orin/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Assistant control socket")
	cli.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: assistant-ctl [-s socket] [trigger|sleep|exit|status]\n")
		cli.PrintDefaults()
	}
	cli.Parse()

	cmd := ipc.CmdTrigger
	if cli.NArg() > 0 {
		cmd = cli.Arg(0)
	}

	reply, err := ipc.SendCommand(*socket, cmd)
	if err != nil {
		fmt.Println("assistant not running:", err)
		os.Exit(1)
	}
	fmt.Println(reply.Message)
	if !reply.OK {
		os.Exit(1)
	}
}
